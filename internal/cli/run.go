package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pfrederiksen/sfoweb/internal/config"
	"github.com/pfrederiksen/sfoweb/internal/coordinator"
	"github.com/pfrederiksen/sfoweb/internal/entry"
	"github.com/pfrederiksen/sfoweb/internal/integration"
	"github.com/pfrederiksen/sfoweb/internal/metrics"
	"github.com/pfrederiksen/sfoweb/internal/notifier"
	"github.com/pfrederiksen/sfoweb/internal/sensor"
)

// setupRetryInterval is how often entries whose first refresh failed are retried
const setupRetryInterval = 5 * time.Minute

func newRunCmd(a *app) *cobra.Command {
	var (
		once   bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load every account and keep polling",
		Long: `Load every configured account, poll the portal every scan interval and
report new appointments through the configured notifiers. Prometheus metrics
are served on --metrics-addr when set.

With --once every account is refreshed a single time and the sensor states
are printed as JSON.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.openStore(); err != nil {
				return err
			}

			entries, err := a.selectEntries(cmd.Context(), "")
			if err != nil {
				return err
			}

			var extra []notifier.Notifier
			if dryRun {
				extra = append(extra, notifier.NewDryRunNotifier(cmd.OutOrStdout()))
			}
			n, err := a.notifier(extra...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mgr := integration.NewManager(
				func(d entry.Data) coordinator.Fetcher { return a.fetcher(d) },
				integration.WithScanInterval(a.cfg.ScanInterval),
				integration.WithSnapshots(a.snapshots),
				integration.WithNotifier(n),
				integration.WithLogger(a.log),
			)
			defer mgr.UnloadAll()

			pending := a.setupEntries(ctx, mgr, entries)

			if once {
				states := make([]sensor.StateSnapshot, 0)
				for _, rt := range mgr.Runtimes() {
					for _, s := range rt.Sensors {
						states = append(states, sensor.Render(s))
					}
				}
				if err := writeJSON(cmd.OutOrStdout(), states); err != nil {
					return err
				}
				if len(pending) > 0 {
					return fmt.Errorf("%d of %d accounts not ready", len(pending), len(entries))
				}
				return nil
			}

			if a.cfg.MetricsAddr != "" {
				srv := newMetricsServer(a.cfg.MetricsAddr)
				go func() {
					a.log.Info("serving metrics", zap.String("addr", a.cfg.MetricsAddr))
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.log.Error("metrics server", zap.Error(err))
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			a.retryPending(ctx, mgr, pending)

			a.log.Info("shutting down")
			return nil
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Refresh once, print sensor states and exit")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Also print notifications for new appointments to stdout")
	cmd.Flags().String("metrics-addr", "", "Address to serve Prometheus metrics on, e.g. :9090")
	_ = a.v.BindPFlag(config.KeyMetricsAddr, cmd.Flags().Lookup("metrics-addr"))

	return cmd
}

// setupEntries loads entries and returns the ones that were not ready
func (a *app) setupEntries(ctx context.Context, mgr *integration.Manager, entries []*entry.Entry) []*entry.Entry {
	var pending []*entry.Entry
	for _, e := range entries {
		rt, err := mgr.Setup(ctx, e)
		if err != nil {
			pending = append(pending, e)
			continue
		}
		a.watchSensors(rt)
	}
	return pending
}

// retryPending retries setting up not-ready entries until ctx is done
func (a *app) retryPending(ctx context.Context, mgr *integration.Manager, pending []*entry.Entry) {
	ticker := time.NewTicker(setupRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if len(pending) > 0 {
				pending = a.setupEntries(ctx, mgr, pending)
			}
		}
	}
}

// watchSensors logs the entry's sensor states after every refresh
func (a *app) watchSensors(rt *integration.Runtime) {
	log := a.log.With(zap.String("entry_id", rt.Entry.EntryID))
	rt.Coordinator.AddListener(func() {
		for _, s := range rt.Sensors {
			log.Debug("sensor state",
				zap.String("unique_id", s.UniqueID()),
				zap.String("state", s.State()),
				zap.Bool("available", s.Available()),
			)
		}
	})
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
