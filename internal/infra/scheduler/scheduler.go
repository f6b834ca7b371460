package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a schedulable unit of work. Run receives a context that is cancelled
// when the scheduler stops.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler drives registered jobs on cron schedules. Started at boot, stopped
// on shutdown; stopping cancels the job context so in-flight work (e.g. the
// onboarding mail retry loop) can abort between steps.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
	runs   *prometheus.CounterVec
	runCtx context.Context
	cancel context.CancelFunc
}

// New constructs an idle scheduler.
func New(log *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(),
		logger: log,
		runs:   newRunCounter(prometheus.DefaultRegisterer),
		runCtx: ctx,
		cancel: cancel,
	}
}

func newRunCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leanx",
		Subsystem: "jobs",
		Name:      "runs_total",
		Help:      "Total number of scheduled job runs partitioned by job and result.",
	}, []string{"job", "result"})

	if err := reg.Register(runs); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing
			}
		}
		return nil
	}
	return runs
}

func (s *Scheduler) countRun(job, result string) {
	if s.runs == nil {
		return
	}
	s.runs.WithLabelValues(job, result).Inc()
}

// Register binds a job to a cron spec (standard five-field syntax).
func (s *Scheduler) Register(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now()

		s.logger.Info("job started", zap.String("job", job.Name()))
		if err := job.Run(s.runCtx); err != nil {
			s.countRun(job.Name(), "error")
			s.logger.Error("job failed",
				zap.String("job", job.Name()),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			return
		}
		s.countRun(job.Name(), "ok")
		s.logger.Info("job finished",
			zap.String("job", job.Name()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
	if err != nil {
		return fmt.Errorf("register job %s: %w", job.Name(), err)
	}
	return nil
}

// Start begins firing schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}
