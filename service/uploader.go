package service

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"

	"github.com/davidnge/ytconverter-dev/entities"
)

// DefaultPresignExpiry bounds how long a derived retrieval link stays valid.
const DefaultPresignExpiry = time.Hour

// Uploader moves completed artifacts to durable storage and derives
// time-limited retrieval links for them.
type Uploader interface {
	Upload(ctx context.Context, localPath string, conversion *entities.Conversion) (string, error)
	PresignedURL(ctx context.Context, conversion *entities.Conversion, expiry time.Duration) (string, error)
}

type minioUploader struct {
	client *minio.Client
	bucket string
}

func NewUploader(client *minio.Client, bucket string) Uploader {
	return &minioUploader{client: client, bucket: bucket}
}

func remoteKeyFor(conversion *entities.Conversion) string {
	videoID := conversion.ID.String()
	if conversion.YoutubeID != nil {
		videoID = *conversion.YoutubeID
	}
	return fmt.Sprintf("mp3s/%s_%d.mp3", videoID, conversion.Quality)
}

// Upload stores the artifact under a key derived from the video id and
// quality, then removes the local copy. A failed removal is logged only;
// the remote copy is already in place.
func (u *minioUploader) Upload(ctx context.Context, localPath string, conversion *entities.Conversion) (string, error) {
	key := remoteKeyFor(conversion)
	_, err := u.client.FPutObject(ctx, u.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: "audio/mpeg",
	})
	if err != nil {
		return "", err
	}

	if err := os.Remove(localPath); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("path", localPath).Msg("failed to delete local artifact after upload")
	}
	return key, nil
}

// PresignedURL derives a retrieval link that downloads the artifact as an
// attachment. Returns an error when the job has no remote artifact.
func (u *minioUploader) PresignedURL(ctx context.Context, conversion *entities.Conversion, expiry time.Duration) (string, error) {
	if conversion.RemoteKey == nil {
		return "", fmt.Errorf("conversion %s has no remote artifact", conversion.ID)
	}
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}

	params := url.Values{}
	params.Set("response-content-type", "audio/mpeg")
	params.Set("response-content-disposition", fmt.Sprintf("attachment; filename=%q", conversion.Filename()))

	signed, err := u.client.PresignedGetObject(ctx, u.bucket, *conversion.RemoteKey, expiry, params)
	if err != nil {
		return "", err
	}
	return signed.String(), nil
}
