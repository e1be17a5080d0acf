package main

import (
	"ChatSync/internal/ephemeral"
	"ChatSync/internal/model"
	"ChatSync/internal/store"
	"context"
	"errors"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var metricsAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Connect, bootstrap and log every state change until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context())
	},
}

func init() {
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	app, err := buildEngine()
	if err != nil {
		return err
	}
	engine := app.Engine

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	stops := []func(){
		store.Watch(engine.Store(), func(st *store.State) string { return st.ConnState }, store.Same[string], func(s string) {
			log.Info("connection state changed", "state", s)
		}),
		store.Watch(engine.Store(), func(st *store.State) int { return st.TotalUnread }, store.Same[int], func(n int) {
			log.Info("unread total changed", "total", n)
		}),
		store.Watch(engine.Store(), func(st *store.State) string { return st.LastError }, store.Same[string], func(e string) {
			if e != "" {
				log.Warn("engine error", "err", e)
			}
		}),
		store.Watch(engine.Store(), func(st *store.State) []model.Conversation { return st.Conversations }, store.SameSlice[model.Conversation],
			func(list []model.Conversation) {
				for _, c := range list {
					log.Info("conversation", "id", c.ID, "unread", c.UnreadCount, "last", c.LastMessagePreview)
				}
			}),
		engine.Signals().Subscribe(func(s ephemeral.Snapshot) {
			log.Debug("signals changed", "typing", len(s.Typing), "online", len(s.Online))
		}),
	}
	defer func() {
		for _, stop := range stops {
			stop()
		}
	}()

	if err := engine.Init(ctx); err != nil {
		log.Warn("engine initialized with errors", "err", err)
	}
	if err := engine.SetVisible(ctx, true); err != nil {
		log.Warn("set visible failed", "err", err)
	}

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Chat engine stopping...")
		engine.Cleanup()
		return nil
	})

	var srv *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: metricsAddr, Handler: mux}
		g.Go(func() error {
			log.Info("Metrics server starting...", "addr", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	// 优雅退出
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case <-ctx.Done():
		case sig := <-quit:
			log.Info("Received signal, shutting down...", "signal", sig)
			cancel()
		}

		if srv != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("Metrics server shutdown failed", "err", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("Watch exited successfully.")
	return nil
}
