// Command arpd is the ARP engine daemon (spec §4.2): it answers local
// AREQ clients and exchanges custom ARP frames over a raw packet socket.
// It takes no positional arguments (spec §6, "ARP daemon: no arguments").
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

	"github.com/arptour/arptour/arp"
	"github.com/arptour/arptour/iface"
	"github.com/arptour/arptour/internal/config"
	"github.com/arptour/arptour/internal/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "", "path to TOML configuration file")
	ifaceName := flag.String("interface", "", "network interface to bind (overrides config)")
	ns := flag.String("ns", "", "AREQ namespace (overrides config)")
	flag.Parse()

	if flag.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "arpd: takes no positional arguments")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "arpd: FATAL: %v\n", err)
		os.Exit(1)
	}
	if *ifaceName != "" {
		cfg.Daemon.Interface = *ifaceName
	}
	if *ns != "" {
		cfg.Daemon.Namespace = *ns
	}

	logger := logging.Setup(cfg.Daemon.LogLevel, os.Stdout)

	// Interface enumeration failing at startup is fatal (spec §7).
	ifd, err := iface.Discover(cfg.Daemon.Interface)
	if err != nil {
		logger.Error("interface discovery failed", "error", err)
		os.Exit(1)
	}
	logger.Info("arpd starting",
		"interface", ifd.Name, "ip", ifd.IPv4, "mac", ifd.MAC, "namespace", cfg.Daemon.Namespace)

	// Any raw socket creation failing is fatal (spec §7, privileges
	// required); arp.New opens both the raw packet socket and the AREQ
	// listener before returning.
	engine, err := arp.New(ifd, cfg.Daemon.Namespace, logger)
	if err != nil {
		logger.Error("failed to start arp engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	if cfg.Daemon.MetricsAddr != "" {
		go serveMetrics(cfg.Daemon.MetricsAddr, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("arp engine exited", "error", err)
		os.Exit(1)
	}
	logger.Info("arpd shutting down")
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics server exited", "error", err)
	}
}
