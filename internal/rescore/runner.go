package rescore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/Prioritize/internal/hermes"
	"github.com/MikeSquared-Agency/Prioritize/internal/metrics"
)

// Runner periodically scores DRAFT projects. Evaluation and configuration
// events only wake it early; the handlers that store those changes refresh
// the affected projects themselves.
type Runner struct {
	scorer   *Scorer
	hermes   hermes.Client
	metrics  *metrics.Metrics
	interval time.Duration
	logger   *slog.Logger

	wakeCh   chan struct{}
	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func New(scorer *Scorer, h hermes.Client, m *metrics.Metrics, interval time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		scorer:   scorer,
		hermes:   h,
		metrics:  m,
		interval: interval,
		logger:   logger,
		wakeCh:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.loop(ctx)
}

func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

// Wake asks for a pass before the next tick. Requests made while one is
// pending are merged.
func (r *Runner) Wake() {
	select {
	case r.wakeCh <- struct{}{}:
	default:
	}
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-r.wakeCh:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce scores every DRAFT project against the current configuration and
// returns how many were scored. Projects that fail to score stay DRAFT.
func (r *Runner) RunOnce(ctx context.Context) int {
	drafts, scored, err := r.scorer.ScoreDrafts(ctx)
	if err != nil {
		r.logger.Warn("rescore skipped", "drafts", drafts, "error", err)
		return 0
	}
	r.metrics.MarkRescore(time.Now(), scored)
	return scored
}

// SubscribeEvents wakes the runner on evaluation and configuration events,
// including those stored by other instances.
func (r *Runner) SubscribeEvents() {
	if r.hermes == nil {
		return
	}
	for _, subject := range []string{hermes.SubjectEvaluationCreatedAny, hermes.SubjectConfigurationUpdated} {
		if err := r.hermes.Subscribe(subject, func(string, []byte) { r.Wake() }); err != nil {
			r.logger.Warn("failed to subscribe", "subject", subject, "error", err)
		}
	}
}
