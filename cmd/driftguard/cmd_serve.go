package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/infrasync/driftguard/orchestrator"
)

var (
	serveAddr        string
	serveMetricsAddr string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP event ingest server",
	Long: `Run DriftGuard as a long-lived HTTP service.

Change events are POSTed to /events as JSON; each event runs one drift
check and the check result is returned in the response. Prometheus
metrics are served on a separate listener.`,
	Example: `  driftguard serve                          # Listen on :8080, metrics on :9090
  driftguard serve --addr :8888 --metrics :9999`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Event ingest listen address")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics", ":9090", "Metrics listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Metrics provider must exist before instruments are created in buildApp.
	promExporter, err := prometheus.New()
	if err != nil {
		return err
	}
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExporter)))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/events", handleEvents(a.orch))
	mux.HandleFunc("/healthz", handleHealthz)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	eventServer := &http.Server{Addr: serveAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	metricsServer := &http.Server{Addr: serveMetricsAddr, Handler: metricsMux, ReadHeaderTimeout: 10 * time.Second}

	var g run.Group
	g.Add(run.SignalHandler(ctx, syscall.SIGINT, syscall.SIGTERM))
	g.Add(func() error {
		log.Info().Str("addr", serveAddr).Msg("starting event server")
		return eventServer.ListenAndServe()
	}, func(error) {
		shutdownServer(eventServer)
	})
	g.Add(func() error {
		log.Info().Str("addr", serveMetricsAddr).Msg("starting metrics server")
		return metricsServer.ListenAndServe()
	}, func(error) {
		shutdownServer(metricsServer)
	})

	err = g.Run()

	var sigErr run.SignalError
	if errors.As(err, &sigErr) {
		log.Info().Str("signal", sigErr.Signal.String()).Msg("shutting down")
		return nil
	}
	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func shutdownServer(srv *http.Server) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// eventChecker runs one drift check for an inbound event.
type eventChecker interface {
	CheckEvent(ctx context.Context, evt map[string]any) (*orchestrator.CheckResult, error)
}

// handleEvents accepts one change event per request and runs it through
// the check pipeline synchronously.
func handleEvents(checker eventChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var evt map[string]any
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			http.Error(w, "invalid event json", http.StatusBadRequest)
			return
		}

		result, err := checker.CheckEvent(r.Context(), evt)
		if err != nil {
			log.Error().Err(err).Msg("drift check failed")
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			log.Error().Err(err).Msg("encode check result")
		}
	}
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
