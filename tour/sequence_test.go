package tour

import (
	"reflect"
	"testing"
)

func TestBuildSequence(t *testing.T) {
	tests := []struct {
		desc  string
		self  string
		hosts []string
		want  []string
		err   error
	}{
		{
			desc:  "spec §8 S5: v1 v2 v3 v1",
			self:  "v1",
			hosts: []string{"v2", "v3", "v1"},
			want:  []string{"v1", "v2", "v3", "v1"},
		},
		{
			desc:  "spec §8 S6: v1 v2 v3 v2 v3",
			self:  "v1",
			hosts: []string{"v2", "v3", "v2", "v3"},
			want:  []string{"v1", "v2", "v3", "v2", "v3"},
		},
		{
			desc:  "immediately duplicate consecutive hostnames are collapsed",
			self:  "v1",
			hosts: []string{"v1", "v2", "v2", "v3"},
			want:  []string{"v1", "v2", "v3"},
		},
		{
			desc:  "spec §6/§8 S8: simplified list of only self is rejected",
			self:  "v1",
			hosts: nil,
			err:   ErrTooFewHops,
		},
		{
			desc:  "every host argument equal to self collapses to only self",
			self:  "v1",
			hosts: []string{"v1", "v1", "v1"},
			err:   ErrTooFewHops,
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, err := BuildSequence(tt.self, tt.hosts)
			if tt.err != nil {
				if err != tt.err {
					t.Fatalf("BuildSequence() error = %v, want %v", err, tt.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("BuildSequence() = %v, want %v", got, tt.want)
			}
		})
	}
}
