// Command tourd is the tour forwarder daemon (spec §4.4). Invoked with
// no arguments it is a passive node awaiting tour arrival; invoked with
// a list of hostnames it is the tour's source node and that list (with
// itself inserted as element 0) is the visit order (spec §6).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/arptour/arptour/iface"
	"github.com/arptour/arptour/internal/config"
	"github.com/arptour/arptour/internal/logging"
	"github.com/arptour/arptour/tour"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "", "path to TOML configuration file")
	ifaceName := flag.String("interface", "", "network interface to bind (overrides config)")
	ns := flag.String("ns", "", "AREQ namespace (overrides config)")
	flag.Parse()
	hosts := flag.Args()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tourd: FATAL: %v\n", err)
		os.Exit(1)
	}
	if *ifaceName != "" {
		cfg.Daemon.Interface = *ifaceName
	}
	if *ns != "" {
		cfg.Daemon.Namespace = *ns
	}

	logger := logging.Setup(cfg.Daemon.LogLevel, os.Stdout)

	ifd, err := iface.Discover(cfg.Daemon.Interface)
	if err != nil {
		logger.Error("interface discovery failed", "error", err)
		os.Exit(1)
	}

	hostname, err := os.Hostname()
	if err != nil {
		logger.Error("failed to determine local hostname", "error", err)
		os.Exit(1)
	}
	logger.Info("tourd starting",
		"interface", ifd.Name, "ip", ifd.IPv4, "hostname", hostname, "hosts", hosts)

	fwd, err := tour.NewForwarder(ifd, hostname, cfg.Daemon.Namespace, logger)
	if err != nil {
		logger.Error("failed to start tour forwarder", "error", err)
		os.Exit(1)
	}
	defer fwd.Close()

	if cfg.Daemon.MetricsAddr != "" {
		go serveMetrics(cfg.Daemon.MetricsAddr, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(hosts) > 0 {
		if err := fwd.StartTour(hosts); err != nil {
			logger.Error("failed to start tour", "error", err)
			os.Exit(1)
		}
	}

	if err := fwd.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("tour forwarder exited", "error", err)
		os.Exit(1)
	}
	logger.Info("tourd shutting down")
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics server exited", "error", err)
	}
}
