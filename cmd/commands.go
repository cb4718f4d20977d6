package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"webdesk/jobs"
	"webdesk/routes"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "webdesk",
		Short:         "Web desktop backend: personal file storage with a recycle bin",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newSweepCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newSweepCmd() *cobra.Command {
	var (
		expired   bool
		orphans   bool
		retention time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Purge expired recycle bin entries and remove orphaned files",
		Long: `Runs one maintenance pass and exits. Meant to be scheduled from cron.
A lock file keeps two sweeps from running at the same time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !expired && !orphans {
				return errors.New("nothing to do: pass --expired and/or --orphans")
			}
			return runSweep(cmd.Context(), jobs.SweepOptions{
				Expired:   expired,
				Orphans:   orphans,
				Retention: retention,
			})
		},
	}
	cmd.Flags().BoolVar(&expired, "expired", true, "purge files that stayed in the recycle bin longer than the retention")
	cmd.Flags().BoolVar(&orphans, "orphans", false, "delete stored files that no record points at")
	cmd.Flags().DurationVar(&retention, "retention", 0, "override TRASH_RETENTION")
	return cmd
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := routes.NewRouter(a.container(), routes.RouterOptions{
		AllowedOrigins: a.cfg.AllowedOrigins,
		Logger:         a.logger.Named("http"),
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting webdesk server", zap.String("port", a.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runSweep(ctx context.Context, opts jobs.SweepOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if opts.Retention == 0 {
		opts.Retention = a.cfg.TrashRetention
	}

	cleaner := jobs.NewTrashCleaner(a.trash, a.cfg.SweepLockFile, a.logger)
	report, err := cleaner.Run(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Printf("purged %d expired files, removed %d orphaned files\n", report.Purged, report.Orphans)
	return nil
}
