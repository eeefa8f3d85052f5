package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Lumnic12/attend/internal/attend/facematch"
	"github.com/Lumnic12/attend/internal/attend/service"
	"github.com/Lumnic12/attend/internal/attend/store"
	"github.com/Lumnic12/attend/internal/config"
	"github.com/Lumnic12/attend/internal/grpcapi"
	"github.com/Lumnic12/attend/internal/httpapi"
	"github.com/Lumnic12/attend/internal/logging"
	"github.com/Lumnic12/attend/internal/metrics"
)

const cameraTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the badge reader endpoint",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "HTTP listen address (overrides ATTEND_HTTP_ADDR)")
	serveCmd.Flags().String("grpc-addr", "", "gRPC health listen address (overrides ATTEND_GRPC_ADDR)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cfg.HTTPAddr = v
	}
	if v, _ := cmd.Flags().GetString("grpc-addr"); v != "" {
		cfg.GRPCAddr = v
	}

	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// Face verification
	analyzer := newAnalyzer(cfg)
	camera := facematch.NewHTTPCamera(cfg.CameraURL, cameraTimeout)
	matcher := facematch.NewMatcher(camera, analyzer, facematch.Config{
		Threshold:    cfg.MatchThreshold,
		CaptureTries: cfg.CaptureTries,
		Angles:       cfg.RotationAngles,
	}, logger.With("component", "matcher"))

	// Services
	identities := service.NewIdentityStore(st.directory, st.faces, analyzer, logger.With("component", "identities"))
	if err := identities.Load(ctx); err != nil {
		return fmt.Errorf("load identities: %w", err)
	}

	tracker := service.NewAttendanceTracker(st.sink, service.AttendanceConfig{
		Duration: cfg.AttendanceDuration,
		Metrics:  collector,
	}, logger.With("component", "attendance"))
	defer tracker.Stop()

	scans := service.NewScanService(service.ScanDependencies{
		Identities: identities,
		Matcher:    matcher,
		Attendance: tracker,
		Sink:       st.sink,
		Snapshots:  st.snapshots,
		Metrics:    collector,
		Logger:     logger.With("component", "scan"),
	})

	correlator := service.NewCorrelator(scans, service.CorrelatorConfig{
		WaitTimeout: cfg.WaitTimeout,
		QueueSize:   cfg.QueueSize,
		Metrics:     collector,
	}, logger.With("component", "correlator"))
	correlator.Start(ctx)
	defer correlator.Stop()

	if pr, ok := st.sink.(store.AttendancePruner); ok {
		pruner := service.NewLogPruner(pr, service.PrunerConfig{
			RetentionDays: cfg.LogRetentionDays,
			IntervalHours: cfg.PruneIntervalHours,
		}, logger.With("component", "pruner"))
		pruner.Start(ctx)
		defer pruner.Stop()
	}

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     logger,
		Addr:       cfg.HTTPAddr,
		Correlator: correlator,
		Identities: identities,
		Attendance: tracker,
		Registrar:  service.NewRegistrar(st.directory, st.faces, analyzer, identities),
		Snapshots:  st.snapshots,
		History:    st.history,
		Gatherer:   reg,
		Metrics:    collector,
	})

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "endpoint", "/api/rfid?uid=<card_id>")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	// gRPC health
	var health *grpcapi.HealthServer
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		health = grpcapi.NewHealthServer(correlator.Running, grpcapi.DefaultProbeInterval, logger.With("component", "grpc"))
		go health.Watch(ctx)
		go func() {
			if err := health.Serve(lis); err != nil {
				logger.Error("grpc server error", "err", err)
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	if health != nil {
		health.Stop()
	}
	return nil
}
