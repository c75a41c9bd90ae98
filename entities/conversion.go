package entities

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidnge/ytconverter-dev/constant"
)

// Conversion is one URL-to-MP3 request lifecycle. A row is created in
// pending state by the submission endpoint and mutated only by the worker
// pipeline and the retention sweeper.
type Conversion struct {
	ID           uuid.UUID          `json:"id" gorm:"primaryKey"`
	URL          string             `json:"url"`
	YoutubeID    *string            `json:"youtube_id"`
	Quality      constant.Quality   `json:"quality"`
	Status       constant.JobStatus `json:"status"`
	Title        *string            `json:"title"`
	Duration     *int               `json:"duration"`
	ErrorMessage *string            `json:"error_message"`
	FilePath     *string            `json:"file_path"`
	RemoteKey    *string            `json:"remote_key"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func (Conversion) TableName() string {
	return "conversions"
}

// FormattedDuration renders the duration as MM:SS, or "" when unknown.
func (c *Conversion) FormattedDuration() string {
	if c.Duration == nil {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", *c.Duration/60, *c.Duration%60)
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9]+`)

// Filename is the attachment name offered to the downloading client,
// derived from the title when known and the video id otherwise.
func (c *Conversion) Filename() string {
	base := ""
	if c.Title != nil {
		base = strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.ToLower(*c.Title), "-"), "-")
		if len(base) > 31 {
			base = base[:31]
		}
	}
	if base == "" && c.YoutubeID != nil {
		base = *c.YoutubeID
	}
	if base == "" {
		base = c.ID.String()
	}
	return fmt.Sprintf("%s-%dkbps.mp3", base, c.Quality)
}

// HasArtifact reports whether the job still owns an artifact, locally or in
// durable storage.
func (c *Conversion) HasArtifact() bool {
	return c.FilePath != nil || c.RemoteKey != nil
}
