package service

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/davidnge/ytconverter-dev/config"
	"github.com/davidnge/ytconverter-dev/repository"
)

// Sweeper purges artifacts of conversions past the retention window. Job
// records stay behind for audit; only files and their references go.
type Sweeper struct {
	repo repository.ConversionRepository
	cfg  config.Converter
}

func NewSweeper(repo repository.ConversionRepository, cfg config.Converter) *Sweeper {
	return &Sweeper{repo: repo, cfg: cfg}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one retention pass. An error on one conversion is logged and
// the pass continues with the rest.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.RetentionWindow)
	expired, err := s.repo.FindOlderThan(ctx, cutoff)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("retention query failed")
		return
	}

	cleaned := 0
	for _, conversion := range expired {
		if conversion.FilePath == nil {
			continue
		}
		if err := os.Remove(*conversion.FilePath); err != nil && !os.IsNotExist(err) {
			zerolog.Ctx(ctx).Error().Err(err).
				Str("conversion_id", conversion.ID.String()).
				Msg("failed to delete expired artifact")
			continue
		}
		if err := s.repo.ClearFilePath(ctx, conversion.ID); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).
				Str("conversion_id", conversion.ID.String()).
				Msg("failed to clear artifact reference")
			continue
		}
		cleaned++
	}
	if cleaned > 0 {
		zerolog.Ctx(ctx).Info().Int("cleaned", cleaned).Msg("retention sweep completed")
	}
}
