package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"ipc-alarm-relay/internal/config"
	"ipc-alarm-relay/internal/notify"
	"ipc-alarm-relay/internal/relay"
)

var serviceAction string // "install", "uninstall", "start", "stop", "restart"

// --- SERVICE WRAPPER ---

// program implements the kardianos/service interface
type program struct {
	cfg           config.Config
	server        *http.Server
	metricsServer *http.Server
}

func (p *program) Start(s service.Service) error {
	// Start should not block. Build everything here, listen async.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := relay.NewMetrics(registry)

	notifier := notify.New(notify.Config{
		URL:     p.cfg.NtfyURL,
		Token:   p.cfg.NtfyToken,
		Timeout: p.cfg.NotifyTimeout,
	})

	p.server = &http.Server{
		Addr: p.cfg.ListenAddr,
		Handler: relay.NewHandler(notifier,
			relay.WithMetrics(metrics),
			relay.WithMaxBodyBytes(p.cfg.MaxBodyBytes),
		),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Long enough for the webhook call to time out on its own first.
		WriteTimeout: p.cfg.NotifyTimeout + 30*time.Second,
	}

	if p.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			ErrorLog: logrus.StandardLogger(),
		}))
		p.metricsServer = &http.Server{
			Addr:              p.cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go listen(p.metricsServer, "Metrics")
	}

	go listen(p.server, "Alarm relay")
	return nil
}

func listen(srv *http.Server, name string) {
	logrus.Infof("%s listening on %s", name, srv.Addr)

	// Blocking call to listen
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logrus.Fatalf("%s server error: %v", name, err)
	}
}

func (p *program) Stop(s service.Service) error {
	logrus.Info("Stopping service...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, srv := range []*http.Server{p.server, p.metricsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			logrus.Warnf("Server forced to shutdown: %v", err)
		}
	}
	logrus.Info("Server stopped.")
	return nil
}

// --- COMMAND ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the alarm relay HTTP server",
	Long: `Starts a long-running HTTP server that accepts camera alarm events
on any path and forwards active alarms to the configured ntfy URL.
Can be installed as a system service.`,
	Example: `  NTFY_URL=https://ntfy.sh/my-cameras NTFY_TOKEN=tk_xxx ipc-alarm-relay serve
  ipc-alarm-relay serve --config /etc/ipc-alarm-relay.yaml --service install`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Define Service Configuration
		svcConfig := &service.Config{
			Name:        "ipc-alarm-relay",
			DisplayName: "IPC Alarm Relay",
			Description: "Forwards IP camera alarm events to an ntfy webhook",
			Arguments:   []string{"serve"},
		}
		if cfgFile != "" {
			svcConfig.Arguments = append(svcConfig.Arguments, "--config", cfgFile)
		}

		prg := &program{}

		// 2. Load configuration up front, except for actions that do not run the relay
		if serviceAction == "" || serviceAction == "install" {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			prg.cfg = cfg
		}

		s, err := service.New(prg, svcConfig)
		if err != nil {
			return err
		}

		// 3. Handle Service Control Actions (Install, Start, Stop, Uninstall)
		if serviceAction != "" {
			if err := service.Control(s, serviceAction); err != nil {
				return fmt.Errorf("failed to %s service: %w", serviceAction, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Service action '%s' completed successfully.\n", serviceAction)
			return nil
		}

		// 4. Run the Service (Blocking)
		// This happens when the Service Manager starts the binary, OR when run interactively
		logger, err := s.Logger(nil)
		if err != nil {
			return err
		}
		if err = s.Run(); err != nil {
			_ = logger.Error(err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serviceAction, "service", "", "Service action: install, uninstall, start, stop, restart")
}
