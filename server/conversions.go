package server

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/davidnge/ytconverter-dev/constant"
	"github.com/davidnge/ytconverter-dev/dto"
	"github.com/davidnge/ytconverter-dev/entities"
	"github.com/davidnge/ytconverter-dev/pkg/youtube"
	"github.com/davidnge/ytconverter-dev/repository"
	"github.com/davidnge/ytconverter-dev/service"
)

// messagePublisher is what the submission endpoint needs from the queue.
type messagePublisher interface {
	Publish(ctx context.Context, message dto.ConversionMessage) error
}

// ConversionAPI serves submission, status polling and download.
type ConversionAPI struct {
	repo      repository.ConversionRepository
	publisher messagePublisher
	uploader  service.Uploader
}

func NewConversionAPI(repo repository.ConversionRepository, publisher messagePublisher, uploader service.Uploader) *ConversionAPI {
	return &ConversionAPI{repo: repo, publisher: publisher, uploader: uploader}
}

func (a *ConversionAPI) Register(r *gin.Engine) {
	r.POST("/conversions", a.submit)
	r.GET("/conversions/:id", a.status)
	r.GET("/conversions/:id/download", a.download)
}

func (a *ConversionAPI) submit(c *gin.Context) {
	var req dto.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url and quality are required"})
		return
	}
	if !req.Quality.Valid() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "quality must be one of 128, 192, 320"})
		return
	}
	videoID := youtube.ExtractVideoID(req.URL)
	if !youtube.ValidURL(req.URL) || videoID == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "url must be a valid YouTube URL"})
		return
	}

	conversion := &entities.Conversion{
		ID:        uuid.New(),
		URL:       req.URL,
		YoutubeID: &videoID,
		Quality:   req.Quality,
		Status:    constant.JobStatusPending,
	}
	if err := a.repo.Create(c.Request.Context(), conversion); err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to create conversion")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create conversion"})
		return
	}

	if err := a.publisher.Publish(c.Request.Context(), dto.ConversionMessage{ConversionId: conversion.ID}); err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).
			Str("conversion_id", conversion.ID.String()).
			Msg("failed to enqueue conversion")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue conversion"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"id": conversion.ID})
}

// status is polled every few seconds until a terminal state shows up, so it
// always reads fresh and forbids intermediary caching.
func (a *ConversionAPI) status(c *gin.Context) {
	conversion, ok := a.findConversion(c)
	if !ok {
		return
	}

	c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
	c.Header("Pragma", "no-cache")

	resp := dto.StatusResponse{
		Id:           conversion.ID,
		Status:       conversion.Status.String(),
		Title:        conversion.Title,
		ErrorMessage: conversion.ErrorMessage,
	}
	if formatted := conversion.FormattedDuration(); formatted != "" {
		resp.Duration = &formatted
	}
	c.JSON(http.StatusOK, resp)
}

func (a *ConversionAPI) download(c *gin.Context) {
	conversion, ok := a.findConversion(c)
	if !ok {
		return
	}

	if conversion.Status == constant.JobStatusCompleted {
		if conversion.RemoteKey != nil {
			signed, err := a.uploader.PresignedURL(c.Request.Context(), conversion, service.DefaultPresignExpiry)
			if err == nil {
				c.Redirect(http.StatusFound, signed)
				return
			}
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to derive retrieval link")
		}
		if conversion.FilePath != nil {
			if _, err := os.Stat(*conversion.FilePath); err == nil {
				c.FileAttachment(*conversion.FilePath, conversion.Filename())
				return
			}
		}
	}

	c.JSON(http.StatusConflict, gin.H{"error": "File is not ready for download yet."})
}

func (a *ConversionAPI) findConversion(c *gin.Context) (*entities.Conversion, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversion id"})
		return nil, false
	}
	conversion, err := a.repo.FindById(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversion not found"})
			return nil, false
		}
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("failed to load conversion")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversion"})
		return nil, false
	}
	return conversion, true
}
