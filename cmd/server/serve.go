package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"unionhub/internal/platform/cron"
	"unionhub/internal/platform/httpserver"
	"unionhub/internal/platform/kafka"
	httptransport "unionhub/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, the notification delivery worker and scheduled syncs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.seed(ctx); err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)

		var scheduler *cron.Scheduler
		if cfg.Informer.SyncCron != "" && len(cfg.Informer.Datasets) > 0 {
			scheduler = cron.NewScheduler(log)
			if _, err := scheduler.AddJob(gctx, cfg.Informer.SyncCron, func(ctx context.Context) {
				a.importer.SyncDatasets(ctx, cfg.Informer.Datasets)
			}); err != nil {
				return fmt.Errorf("schedule informer sync: %w", err)
			}
		}
		if cfg.Kafka.Enabled() {
			if err := startDelivery(gctx, g, a); err != nil {
				return err
			}
		}
		if scheduler != nil {
			g.Go(func() error { return scheduler.Run(gctx) })
		}

		srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(a.httpConfig()))
		g.Go(func() error {
			log.InfoContext(gctx, "starting unionhub", "addr", cfg.Server.Addr, "env", cfg.Server.Environment)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		err = g.Wait()
		log.Info("unionhub stopped")
		return err
	},
}

// startDelivery creates the notification topics and consumes them until ctx
// ends. Nothing is started when topic setup fails.
func startDelivery(ctx context.Context, g *errgroup.Group, a *app) error {
	k := cfg.Kafka
	if err := kafka.EnsureTopics(ctx, k.Brokers, k.Partitions, k.EmailTopic, k.SMSTopic); err != nil {
		return err
	}
	router := a.deliveryWorker().Router(k.EmailTopic, k.SMSTopic)
	consumer, err := kafka.NewConsumer(k.Brokers, k.ConsumerGroup, router.Topics(), log)
	if err != nil {
		return err
	}
	g.Go(func() error {
		if err := consumer.Run(ctx, router); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("delivery consumer: %w", err)
		}
		return nil
	})
	return nil
}
