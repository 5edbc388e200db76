package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/printkit/qr-postcard/api"
	"github.com/printkit/qr-postcard/config"
	"github.com/printkit/qr-postcard/postcard"
)

var version = "v1.2.0"

func main() {
	root := &cobra.Command{
		Use:   "qr-postcard",
		Short: "HTTP service that composites QR codes onto postcard images",
	}

	// --- serve command -------------------------------------------------------
	var configPath string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the QR postcard HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")
	root.AddCommand(serveCmd)

	// --- health command ------------------------------------------------------
	var healthAddr string
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check a running service's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(healthAddr)
		},
	}
	healthCmd.Flags().StringVar(&healthAddr, "addr", "http://localhost:8080", "Service HTTP address")
	root.AddCommand(healthCmd)

	// --- version command -----------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("qr-postcard %s\n", version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// runServe is the main service entrypoint that wires all components together.
func runServe(configPath string) error {
	// 1. Load .env, then config
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Setup logger
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)

	log.Info("starting qr-postcard", "version", version, "port", cfg.Port, "scale_to_image", cfg.ScaleToImage)

	// 3. Build the compositor with the stock geometry
	gen := postcard.NewGenerator()
	gen.ScaleToImage = cfg.ScaleToImage

	anchor := gen.Placement()
	log.Info("qr geometry",
		"size", gen.QR.Size,
		"center", fmt.Sprintf("(%d,%d)", gen.Center.X, gen.Center.Y),
		"top_left", fmt.Sprintf("(%d,%d)", anchor.X, anchor.Y))

	// 4. Start HTTP server
	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: api.NewRouter(&api.Server{
			Cfg:       cfg,
			Generator: gen,
			Log:       log,
			Version:   version,
		}),
		ReadTimeout:  cfg.ReadTimeout.Duration,
		WriteTimeout: cfg.WriteTimeout.Duration,
		IdleTimeout:  cfg.IdleTimeout.Duration,
	}

	go func() {
		log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// 5. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Duration)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	log.Info("goodbye")
	return nil
}

// runHealth queries the service health endpoint.
func runHealth(addr string) error {
	resp, err := http.Get(addr + "/health")
	if err != nil {
		return fmt.Errorf("failed to reach service at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	var buf [4096]byte
	n, _ := resp.Body.Read(buf[:])
	fmt.Println(string(buf[:n]))
	return nil
}
