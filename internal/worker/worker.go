// Package worker runs background jobs published by the API and the nightly
// absentee sweep.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"tutorcenter/internal/queue"
	"tutorcenter/internal/tutoring"
)

// SystemActor is recorded as the marker of scheduled absentee records.
const SystemActor = "system"

// JobObserver is told the outcome of every processed job.
type JobObserver interface {
	JobDone(typ string, err error)
}

type nopObserver struct{}

func (nopObserver) JobDone(string, error) {}

// Worker consumes queue messages and runs scheduled sweeps.
type Worker struct {
	svc *tutoring.Service
	log *zap.Logger
	obs JobObserver

	// SweepTimeout bounds a single scheduled sweep.
	SweepTimeout time.Duration
}

// New returns a worker. log and obs may be nil.
func New(svc *tutoring.Service, log *zap.Logger, obs JobObserver) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &Worker{svc: svc, log: log, obs: obs, SweepTimeout: 5 * time.Minute}
}

// Handle processes one message.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	switch msg.Type {
	case queue.TypeMarkAbsentees:
		var job queue.MarkAbsenteesJob
		if err := msg.Decode(&job); err != nil {
			return err
		}
		created, err := w.svc.MarkAbsentees(ctx, job.ClassID, job.MarkedBy)
		if err != nil {
			return fmt.Errorf("mark absentees for %s: %w", job.ClassID, err)
		}
		w.log.Info("absentees marked",
			zap.String("class_id", job.ClassID),
			zap.String("marked_by", job.MarkedBy),
			zap.Int("count", len(created)))
		return nil
	default:
		return fmt.Errorf("unknown job type %q", msg.Type)
	}
}

// Run consumes q until ctx is done. A failed job is logged and dropped.
func (w *Worker) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init: %w", err)
	}
	w.log.Info("worker started, waiting for messages")
	for msg := range messages {
		err := w.Handle(ctx, msg)
		w.obs.JobDone(msg.Type, err)
		if err != nil {
			w.log.Error("job failed", zap.String("type", msg.Type), zap.Error(err))
		}
	}
	w.log.Info("worker stopped")
	return nil
}

// Sweep marks absentees for every class held today.
func (w *Worker) Sweep(ctx context.Context) error {
	res, err := w.svc.SweepAbsentees(ctx, SystemActor)
	total := 0
	for _, n := range res {
		total += n
	}
	w.log.Info("absentee sweep finished", zap.Int("classes", len(res)), zap.Int("marked", total))
	w.obs.JobDone("sweep-absentees", err)
	if err != nil {
		return fmt.Errorf("sweep absentees: %w", err)
	}
	return nil
}

// Schedule returns a cron running Sweep on spec in loc. The caller starts
// and stops it. Overlapping runs are skipped.
func (w *Worker) Schedule(spec string, loc *time.Location) (*cron.Cron, error) {
	logger := cron.PrintfLogger(zap.NewStdLog(w.log.Named("cron")))
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.SweepTimeout)
		defer cancel()
		if err := w.Sweep(ctx); err != nil {
			w.log.Error("scheduled sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	return c, nil
}
