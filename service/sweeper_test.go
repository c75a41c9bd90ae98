package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/davidnge/ytconverter-dev/constant"
	"github.com/davidnge/ytconverter-dev/entities"
)

func TestSweepPurgesExpiredArtifacts(t *testing.T) {
	cfg := testConverterConfig(t)
	cfg.RetentionWindow = 24 * time.Hour

	oldPath := writeFileOfSize(t, 2048)
	old := &entities.Conversion{
		ID:        uuid.New(),
		Status:    constant.JobStatusCompleted,
		FilePath:  &oldPath,
		CreatedAt: time.Now().Add(-25 * time.Hour),
	}
	freshPath := writeFileOfSize(t, 2048)
	fresh := &entities.Conversion{
		ID:        uuid.New(),
		Status:    constant.JobStatusCompleted,
		FilePath:  &freshPath,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	repo := newFakeRepo(old, fresh)

	NewSweeper(repo, cfg).Sweep(context.Background())

	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatal("expired artifact should be deleted")
	}
	if repo.conversions[old.ID].FilePath != nil {
		t.Fatal("expired artifact reference should be cleared")
	}
	if _, err := os.Stat(freshPath); err != nil {
		t.Fatal("fresh artifact must survive the sweep")
	}
	if repo.conversions[fresh.ID].FilePath == nil {
		t.Fatal("fresh artifact reference must survive the sweep")
	}
}

func TestSweepContinuesPastMissingFiles(t *testing.T) {
	cfg := testConverterConfig(t)
	cfg.RetentionWindow = 24 * time.Hour

	gone := "/nonexistent/sweeper-test.mp3"
	dangling := &entities.Conversion{
		ID:        uuid.New(),
		Status:    constant.JobStatusCompleted,
		FilePath:  &gone,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}
	oldPath := writeFileOfSize(t, 2048)
	old := &entities.Conversion{
		ID:        uuid.New(),
		Status:    constant.JobStatusCompleted,
		FilePath:  &oldPath,
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}
	repo := newFakeRepo(dangling, old)

	NewSweeper(repo, cfg).Sweep(context.Background())

	if repo.conversions[dangling.ID].FilePath != nil {
		t.Fatal("dangling reference should be cleared")
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Fatal("sweep should reach the second conversion")
	}
}
