package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/wardstate/internal/config"
	"github.com/ehr/wardstate/internal/hospital"
	"github.com/ehr/wardstate/internal/platform/idgen"
	"github.com/ehr/wardstate/internal/platform/notification"
	"github.com/ehr/wardstate/internal/platform/telemetry"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "wardstate",
		Short:        "Hospital ward state server",
		SilenceUsage: true,
	}
	root.AddCommand(serveCmd())
	root.AddCommand(demoCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ward console API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Seed a demo ward and print its state",
		RunE: func(cmd *cobra.Command, args []string) error {
			h := hospital.New(hospital.WithIDs(idgen.Sequence("")))
			if err := seedDemo(h); err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), h)
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	if lvl, err := cfg.Level(); err == nil {
		logger = logger.Level(lvl)
	}
	return logger
}

func newHospital(cfg *config.Config, logger zerolog.Logger) (*hospital.Hospital, error) {
	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	return hospital.New(
		hospital.WithIDs(idgen.FromName(cfg.IDStrategy)),
		hospital.WithDraftTimeout(cfg.DraftTimeout),
		hospital.WithLogger(logger),
		hospital.WithMetrics(metrics),
	), nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	h, err := newHospital(cfg, logger)
	if err != nil {
		return err
	}
	if cfg.SeedDemo {
		if err := seedDemo(h); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		logger.Info().Int("patients", h.Patients.Len()).Msg("demo data seeded")
	}

	sender := notification.LogSender{Logger: logger.With().Str("component", "outbox").Logger()}
	dispatcher := notification.NewDispatcher(h.Communications, sender, sender, logger, nil)

	e, stop := newServer(cfg, h, dispatcher, logger)
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.DispatchInterval > 0 {
		go runDispatcher(ctx, dispatcher, cfg.DispatchInterval, logger)
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func runDispatcher(ctx context.Context, d hospital.Dispatcher, every time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := d.Dispatch(ctx)
			if err != nil {
				return
			}
			if report.Sent > 0 || len(report.Failures) > 0 {
				logger.Info().Int("sent", report.Sent).Int("failed", len(report.Failures)).Msg("communications dispatched")
			}
		}
	}
}

type summary struct {
	Rooms       any `json:"rooms"`
	Patients    any `json:"patients"`
	Invoices    any `json:"invoices"`
	Suggestions any `json:"pending_suggestions"`
	Autopsies   any `json:"autopsies"`
	LowStock    any `json:"low_stock"`
}

func printSummary(w io.Writer, h *hospital.Hospital) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary{
		Rooms:       h.RoomOccupancy(),
		Patients:    h.Patients.GetAll(),
		Invoices:    h.Invoices.GetAll(),
		Suggestions: h.PendingSuggestions(),
		Autopsies:   h.Autopsies.GetAll(),
		LowStock:    h.LowStockMedications(),
	})
}
