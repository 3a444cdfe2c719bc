package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/spf13/cobra"

	"github.com/videoteka/videoteka/internal/api"
	"github.com/videoteka/videoteka/internal/app"
	"github.com/videoteka/videoteka/internal/engine"
	"github.com/videoteka/videoteka/internal/fetch"
	"github.com/videoteka/videoteka/internal/infra/config"
	"github.com/videoteka/videoteka/internal/infra/logger"
	"github.com/videoteka/videoteka/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the download daemon",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Path, logger.ParseLevel(cfg.Log.Level), cfg.Log.IncludeStdout)
	if err != nil {
		return err
	}

	db, err := store.NewPersistentStore(cfg.Store.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	client := fetch.NewClient(cfg, log)
	if err := client.CheckBinary(); err != nil {
		// Not fatal: the binary may appear on PATH later, every job
		// fails cleanly until then.
		log.Warn("download tool check: %v", err)
	}

	appCtx := app.NewContext(cfg, log)
	appCtx.Fetcher = client
	appCtx.Store = db

	manager := engine.NewQueueManager(appCtx, true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go engine.RecordHistory(ctx, manager, appCtx)

	e := echo.New()
	api.RegisterRoutes(e, appCtx, manager)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: e,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server: %v", err)
			stop()
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown: %v", err)
		}
	}()

	log.Info("videoteka listening on :%s (max %d concurrent downloads)",
		cfg.Port, cfg.Download.MaxConcurrent)

	// Blocks for the daemon's lifetime, then pauses live downloads and
	// drains the workers so partial files survive the restart.
	manager.Run(ctx)

	log.Info("shutdown complete")
	return nil
}
