package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/skillswap/exchange-server-go/internal/model"
)

const ledgerAuditTimeout = 30 * time.Second

// DivergenceFinder lists profiles whose rating count disagrees with their
// completed sessions. repository.ProfileRepository satisfies it.
type DivergenceFinder interface {
	FindLedgerDivergences(ctx context.Context) ([]model.LedgerDivergence, error)
}

type DivergenceReporter interface {
	SetLedgerDivergent(n int)
}

// LedgerAuditJob surfaces ratings that were applied to a profile without the
// session being completed, or the other way round.
type LedgerAuditJob struct {
	finder   DivergenceFinder
	reporter DivergenceReporter
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

func NewLedgerAuditJob(finder DivergenceFinder, reporter DivergenceReporter, interval time.Duration) *LedgerAuditJob {
	return &LedgerAuditJob{
		finder:   finder,
		reporter: reporter,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *LedgerAuditJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("ledger audit job started")
}

func (j *LedgerAuditJob) Stop() {
	j.stopOnce.Do(func() {
		close(j.done)
		log.Info().Msg("ledger audit job stopped")
	})
}

func (j *LedgerAuditJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.audit()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.audit()
		}
	}
}

func (j *LedgerAuditJob) audit() {
	ctx, cancel := context.WithTimeout(context.Background(), ledgerAuditTimeout)
	defer cancel()

	if _, err := j.RunOnce(ctx); err != nil {
		log.Error().Err(err).Msg("failed to audit rating ledger")
	}
}

// RunOnce performs a single audit and returns the divergent profiles.
func (j *LedgerAuditJob) RunOnce(ctx context.Context) ([]model.LedgerDivergence, error) {
	divergences, err := j.finder.FindLedgerDivergences(ctx)
	if err != nil {
		return nil, err
	}

	for _, d := range divergences {
		log.Warn().
			Str("userId", d.UserID).
			Int("ratingCount", d.RatingCount).
			Int("completedSessions", d.CompletedSessions).
			Msg("rating ledger diverged")
	}
	if j.reporter != nil {
		j.reporter.SetLedgerDivergent(len(divergences))
	}
	if len(divergences) == 0 {
		log.Debug().Msg("rating ledger consistent")
	}
	return divergences, nil
}
