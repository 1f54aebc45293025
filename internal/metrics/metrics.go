// Package metrics defines the Prometheus metrics for both arptour
// daemons. All metrics use the "arptour_" namespace, grounded on
// athena-dhcpd/internal/metrics/metrics.go's promauto-based layout.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "arptour"

var (
	// ARPFramesReceived counts custom ARP frames received, by opcode.
	ARPFramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "arp_frames_received_total",
		Help:      "Total custom ARP frames received, by opcode.",
	}, []string{"op"})

	// ARPFramesDropped counts frames dropped for a wrong ar_id or a short
	// read.
	ARPFramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "arp_frames_dropped_total",
		Help:      "Total frames dropped due to a mismatched identification field or decode error.",
	})

	// ARPCacheSize is a gauge of the current ARP cache size.
	ARPCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "arp_cache_entries",
		Help:      "Current number of entries in the ARP cache.",
	})

	// AREQRequests counts AREQ client requests handled, by outcome.
	AREQRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "areq_requests_total",
		Help:      "Total AREQ requests handled by the ARP engine, by outcome.",
	}, []string{"outcome"})

	// AREQClientLatency tracks the client-observed AREQ round trip.
	AREQClientLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "areq_client_latency_seconds",
		Help:      "AREQ client-observed latency in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 3},
	})

	// TourHopsForwarded counts tour packets this node forwarded onward.
	TourHopsForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tour_hops_forwarded_total",
		Help:      "Total tour packets forwarded to the next hop.",
	})

	// TourPingsLaunched counts ping workers spawned for newly observed
	// preceding-node pairs.
	TourPingsLaunched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tour_pings_launched_total",
		Help:      "Total ping workers launched for newly observed preceding nodes.",
	})

	// PingEchoesSent counts ICMP echo requests sent by ping workers.
	PingEchoesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ping_echoes_sent_total",
		Help:      "Total ICMP echo requests sent.",
	})

	// PingRTT tracks observed ping round-trip times.
	PingRTT = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ping_rtt_milliseconds",
		Help:      "Observed ping round-trip time in milliseconds.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 50, 100, 250},
	})

	// MulticastMessagesReceived counts termination-handshake messages
	// received, by kind.
	MulticastMessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "multicast_messages_received_total",
		Help:      "Total multicast termination-handshake messages received, by kind.",
	}, []string{"kind"})
)
