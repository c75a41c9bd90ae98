package service

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFileOfSize(t *testing.T, size int64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.mp3")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(size); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

const (
	minSize = 1000
	maxSize = 200 * 1024 * 1024
)

func TestValidateArtifactBelowMinimum(t *testing.T) {
	path := writeFileOfSize(t, 999)
	err := validateArtifact(path, minSize, maxSize)
	f, ok := AsFailure(err)
	if !ok || f.Code != CodeInvalidArtifact {
		t.Fatalf("expected invalid_artifact, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatal("undersized artifact should be deleted")
	}
}

func TestValidateArtifactAtMinimum(t *testing.T) {
	path := writeFileOfSize(t, 1000)
	if err := validateArtifact(path, minSize, maxSize); err != nil {
		t.Fatalf("1000-byte artifact should pass: %v", err)
	}
	if _, statErr := os.Stat(path); statErr != nil {
		t.Fatal("accepted artifact should remain on disk")
	}
}

func TestValidateArtifactAtMaximum(t *testing.T) {
	path := writeFileOfSize(t, maxSize)
	if err := validateArtifact(path, minSize, maxSize); err != nil {
		t.Fatalf("artifact at the upper bound should pass: %v", err)
	}
}

func TestValidateArtifactAboveMaximum(t *testing.T) {
	path := writeFileOfSize(t, maxSize+1)
	err := validateArtifact(path, minSize, maxSize)
	f, ok := AsFailure(err)
	if !ok || f.Code != CodeOversizedArtifact {
		t.Fatalf("expected oversized_artifact, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatal("oversized artifact should be deleted")
	}
}

func TestValidateArtifactMissingFile(t *testing.T) {
	err := validateArtifact(filepath.Join(t.TempDir(), "nope.mp3"), minSize, maxSize)
	f, ok := AsFailure(err)
	if !ok || f.Code != CodeInvalidArtifact {
		t.Fatalf("expected invalid_artifact, got %v", err)
	}
}
