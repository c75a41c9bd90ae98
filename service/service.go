package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/davidnge/ytconverter-dev/config"
	"github.com/davidnge/ytconverter-dev/dto"
	"github.com/davidnge/ytconverter-dev/entities"
	"github.com/davidnge/ytconverter-dev/repository"
)

// Service executes the conversion pipeline for one queued job.
//
// Process returns nil both on success and on a handled failure (the job is
// marked failed, nothing left to retry). A non-nil return means the
// pipeline broke in an unhandled way and the delivery boundary may retry
// once before calling RecordFailure.
type Service interface {
	Process(ctx context.Context, message dto.ConversionMessage) error
	RecordFailure(ctx context.Context, id uuid.UUID, cause error)
}

type service struct {
	repo      repository.ConversionRepository
	extractor Extractor
	prober    Prober
	uploader  Uploader
	cfg       config.Converter
}

func NewService(repo repository.ConversionRepository, extractor Extractor, prober Prober, uploader Uploader, cfg config.Converter) Service {
	return &service{
		repo:      repo,
		extractor: extractor,
		prober:    prober,
		uploader:  uploader,
		cfg:       cfg,
	}
}

func (s *service) Process(ctx context.Context, message dto.ConversionMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	logger := zerolog.Ctx(ctx).With().Str("conversion_id", message.ConversionId.String()).Logger()
	ctx = logger.WithContext(ctx)
	logger.Info().Msg("processing conversion")

	conversion, err := s.repo.FindById(ctx, message.ConversionId)
	if err != nil {
		logger.Error().Err(err).Msg("failed to find conversion")
		return err
	}

	if conversion.Status.Terminal() {
		logger.Info().Str("status", conversion.Status.String()).Msg("conversion already finished")
		return nil
	}

	if err := s.repo.MarkProcessing(ctx, conversion.ID); err != nil {
		logger.Error().Err(err).Msg("failed to mark conversion processing")
		return err
	}

	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go s.heartbeat(heartbeatCtx, conversion.ID)

	runErr := s.runPipeline(ctx, conversion)
	if runErr == nil {
		logger.Info().Msg("conversion completed")
		return nil
	}

	if failure, ok := AsFailure(runErr); ok {
		logger.Info().Str("code", string(failure.Code)).Msg("conversion failed")
		s.failConversion(ctx, conversion.ID, failure.Message)
		return nil
	}
	return runErr
}

// RecordFailure writes a last-resort failure to the job. A secondary error
// while recording it is logged and swallowed.
func (s *service) RecordFailure(ctx context.Context, id uuid.UUID, cause error) {
	message := truncateMessage(cause.Error())
	if err := s.repo.MarkFailed(ctx, id, message); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("conversion_id", id.String()).
			Msg("failed to record conversion failure")
	}
}

func (s *service) failConversion(ctx context.Context, id uuid.UUID, message string) {
	if err := s.repo.MarkFailed(ctx, id, truncateMessage(message)); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to mark conversion failed")
	}
}

func (s *service) runPipeline(ctx context.Context, conversion *entities.Conversion) error {
	if conversion.YoutubeID == nil {
		return newFailure(CodeInvalidInput, "Invalid YouTube URL")
	}
	videoID := *conversion.YoutubeID

	if s.tryDedup(ctx, conversion, videoID) {
		return nil
	}

	result, err := s.extractor.Extract(ctx, conversion.URL, videoID, conversion.Quality)
	if err != nil {
		return err
	}

	if result.Quality != conversion.Quality {
		if err := s.repo.UpdateQuality(ctx, conversion.ID, result.Quality); err != nil {
			return fmt.Errorf("persist downgraded quality: %w", err)
		}
		conversion.Quality = result.Quality
	}

	if err := validateArtifact(result.FilePath, s.cfg.MinFileSize, s.cfg.MaxFileSize); err != nil {
		return err
	}

	title, duration := s.fillMetadata(ctx, result)
	if err := s.repo.UpdateMetadata(ctx, conversion.ID, title, duration); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to persist metadata")
	}
	conversion.Title = title
	conversion.Duration = duration

	update := repository.CompletionUpdate{Title: title, Duration: duration}
	if key, err := s.uploader.Upload(ctx, result.FilePath, conversion); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("upload failed, keeping local artifact")
		update.FilePath = &result.FilePath
	} else {
		update.RemoteKey = &key
	}

	return s.repo.MarkCompleted(ctx, conversion.ID, update)
}

// tryDedup reuses a recent completed conversion for the same video and
// quality. It is best-effort: any lookup or copy problem falls back to
// normal extraction.
func (s *service) tryDedup(ctx context.Context, conversion *entities.Conversion, videoID string) bool {
	since := time.Now().Add(-s.cfg.DedupWindow)
	reusable, err := s.repo.FindReusable(ctx, videoID, conversion.Quality, since)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("dedup lookup failed")
		return false
	}
	if reusable == nil || !s.artifactPresent(reusable) {
		return false
	}

	update := repository.CompletionUpdate{
		Title:     reusable.Title,
		Duration:  reusable.Duration,
		FilePath:  reusable.FilePath,
		RemoteKey: reusable.RemoteKey,
	}
	if err := s.repo.MarkCompleted(ctx, conversion.ID, update); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("dedup copy failed")
		return false
	}
	zerolog.Ctx(ctx).Info().
		Str("reused_from", reusable.ID.String()).
		Msg("reused recent conversion artifact")
	return true
}

func (s *service) artifactPresent(conversion *entities.Conversion) bool {
	if conversion.RemoteKey != nil {
		return true
	}
	if conversion.FilePath == nil {
		return false
	}
	_, err := os.Stat(*conversion.FilePath)
	return err == nil
}

// fillMetadata probes the artifact for tags the extractor did not report.
// Probe failures are non-fatal.
func (s *service) fillMetadata(ctx context.Context, result *ExtractResult) (*string, *int) {
	title, duration := result.Title, result.Duration
	if title != nil && duration != nil {
		return title, duration
	}

	probed, err := s.prober.Probe(ctx, result.FilePath)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("metadata probe failed")
		return title, duration
	}
	if title == nil {
		title = probed.Title
	}
	if duration == nil {
		duration = probed.Duration
	}
	return title, duration
}

// heartbeat refreshes updated_at while the job runs so observers can tell a
// long extraction from a dead worker. It stops with the job context.
func (s *service) heartbeat(ctx context.Context, id uuid.UUID) {
	interval := s.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.repo.Touch(ctx, id); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("heartbeat touch failed")
			}
		}
	}
}
