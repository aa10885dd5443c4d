package cmd

import (
	"context"
	"net/http"

	"github.com/michaelpento.lv/arbengine/monitor"
	"github.com/michaelpento.lv/arbengine/utils"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the arbitrage engine and opportunity monitor",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		rt, err := setup(ctx, log)
		if err != nil {
			log.Fatal("Failed to initialize engine", zap.Error(err))
		}

		if rt.cfg.MetricsListen != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: rt.cfg.MetricsListen, Handler: mux}
			go func() {
				log.Info("metrics listener started", zap.String("addr", rt.cfg.MetricsListen))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("metrics listener failed", zap.Error(err))
				}
			}()
			defer srv.Close()
		}

		if !rt.cfg.Monitor.Enabled {
			log.Info("monitor disabled, engine idle until interrupted")
			<-ctx.Done()
			return
		}

		mon, err := monitor.New(rt.eng, rt.pairs, monitor.Config{
			Interval:      rt.cfg.Monitor.Interval.Std(),
			MaxPerCycle:   rt.cfg.Monitor.MaxPerCycle,
			MinConfidence: rt.cfg.Monitor.MinConfidence,
			AutoExecute:   rt.cfg.Monitor.AutoExecute,
			CacheSize:     rt.cfg.Monitor.QuoteCache,
			RateLimit:     rate.Limit(rt.cfg.Monitor.RateLimit.RequestsPerSecond),
			Burst:         rt.cfg.Monitor.RateLimit.BurstSize,
		}, log)
		if err != nil {
			log.Fatal("Failed to create monitor", zap.Error(err))
		}
		if err := mon.Register(rt.registry); err != nil {
			log.Fatal("Failed to register monitor metrics", zap.Error(err))
		}

		if err := mon.Run(ctx); err != nil && err != context.Canceled {
			log.Error("monitor exited", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
