// Package scheduler triggers the pause batch on a fixed daily schedule.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/revroute/internal/config"
	"github.com/smallbiznis/revroute/internal/pause/coordinator"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Scheduler struct {
	log         *zap.Logger
	cron        *cron.Cron
	coordinator *coordinator.Coordinator
}

func New(log *zap.Logger, coord *coordinator.Coordinator) *Scheduler {
	return &Scheduler{
		log:         log.Named("scheduler"),
		cron:        cron.New(cron.WithLocation(time.UTC)),
		coordinator: coord,
	}
}

func (s *Scheduler) start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		summary, err := s.coordinator.Run(ctx, time.Time{})
		if err != nil {
			s.log.Warn("scheduled pause batch failed", zap.Error(err))
			return
		}
		s.log.Info("scheduled pause batch finished",
			zap.String("run_id", summary.RunID),
			zap.Int("started", summary.Started),
			zap.Int("ended", summary.Ended),
			zap.Int("failed", summary.Failed),
		)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) stop() {
	<-s.cron.Stop().Done()
}

func Register(lc fx.Lifecycle, cfg config.Config, sched *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return sched.start(cfg.BatchCronSpec)
		},
		OnStop: func(context.Context) error {
			sched.stop()
			return nil
		},
	})
}

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(Register),
)
