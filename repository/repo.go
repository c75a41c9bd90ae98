package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/davidnge/ytconverter-dev/constant"
	"github.com/davidnge/ytconverter-dev/entities"
)

// CompletionUpdate is everything written to a job when it reaches completed.
type CompletionUpdate struct {
	Title     *string
	Duration  *int
	FilePath  *string
	RemoteKey *string
}

// ConversionRepository owns every mutation of the conversion entity. Status
// transitions are guarded at the row level: once a job is completed or
// failed no update below touches it again.
type ConversionRepository interface {
	Create(ctx context.Context, conversion *entities.Conversion) error
	FindById(ctx context.Context, id uuid.UUID) (*entities.Conversion, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID, update CompletionUpdate) error
	MarkFailed(ctx context.Context, id uuid.UUID, message string) error
	UpdateQuality(ctx context.Context, id uuid.UUID, quality constant.Quality) error
	UpdateMetadata(ctx context.Context, id uuid.UUID, title *string, duration *int) error
	ClearFilePath(ctx context.Context, id uuid.UUID) error
	Touch(ctx context.Context, id uuid.UUID) error
	FindReusable(ctx context.Context, videoID string, quality constant.Quality, since time.Time) (*entities.Conversion, error)
	FindOlderThan(ctx context.Context, cutoff time.Time) ([]*entities.Conversion, error)
}

var nonTerminalStatuses = []constant.JobStatus{
	constant.JobStatusPending,
	constant.JobStatusProcessing,
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) ConversionRepository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	return &repo{
		db: gormDB,
	}
}

func (r *repo) Create(ctx context.Context, conversion *entities.Conversion) error {
	return r.db.WithContext(ctx).Create(conversion).Error
}

func (r *repo) FindById(ctx context.Context, id uuid.UUID) (*entities.Conversion, error) {
	conversion := &entities.Conversion{}
	err := r.db.WithContext(ctx).First(conversion, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return conversion, nil
}

// mutable scopes an update to rows that have not reached a terminal status.
func (r *repo) mutable(ctx context.Context, id uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&entities.Conversion{}).
		Where("id = ? AND status IN ?", id, nonTerminalStatuses)
}

func (r *repo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return r.mutable(ctx, id).Update("status", constant.JobStatusProcessing).Error
}

func (r *repo) MarkCompleted(ctx context.Context, id uuid.UUID, update CompletionUpdate) error {
	return r.mutable(ctx, id).Updates(map[string]interface{}{
		"status":        constant.JobStatusCompleted,
		"title":         update.Title,
		"duration":      update.Duration,
		"file_path":     update.FilePath,
		"remote_key":    update.RemoteKey,
		"error_message": nil,
	}).Error
}

// MarkFailed clears all metadata so a failed job never shows leftovers from
// an earlier attempt.
func (r *repo) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	return r.mutable(ctx, id).Updates(map[string]interface{}{
		"status":        constant.JobStatusFailed,
		"title":         nil,
		"duration":      nil,
		"file_path":     nil,
		"remote_key":    nil,
		"error_message": message,
	}).Error
}

func (r *repo) UpdateQuality(ctx context.Context, id uuid.UUID, quality constant.Quality) error {
	return r.mutable(ctx, id).Update("quality", quality).Error
}

func (r *repo) UpdateMetadata(ctx context.Context, id uuid.UUID, title *string, duration *int) error {
	return r.mutable(ctx, id).Updates(map[string]interface{}{
		"title":    title,
		"duration": duration,
	}).Error
}

// ClearFilePath retires the local artifact reference. Unlike the status
// mutations it also applies to completed rows, since the sweeper purges
// artifacts of finished jobs.
func (r *repo) ClearFilePath(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entities.Conversion{}).
		Where("id = ?", id).
		Update("file_path", nil).Error
}

// Touch refreshes updated_at as the liveness heartbeat of a running job.
func (r *repo) Touch(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entities.Conversion{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}

func (r *repo) FindReusable(ctx context.Context, videoID string, quality constant.Quality, since time.Time) (*entities.Conversion, error) {
	conversion := &entities.Conversion{}
	err := r.db.WithContext(ctx).
		Where("youtube_id = ? AND quality = ? AND status = ? AND created_at > ?",
			videoID, quality, constant.JobStatusCompleted, since).
		Order("created_at DESC").
		First(conversion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return conversion, nil
}

func (r *repo) FindOlderThan(ctx context.Context, cutoff time.Time) ([]*entities.Conversion, error) {
	var conversions []*entities.Conversion
	err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Find(&conversions).Error
	if err != nil {
		return nil, err
	}
	return conversions, nil
}
