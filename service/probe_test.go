package service

import (
	"context"
	"errors"
	"testing"
)

func TestProbeReadsTags(t *testing.T) {
	p := &ffprobeProber{run: func(ctx context.Context, args ...string) ([]byte, error) {
		return []byte(`{"format": {"duration": "185.302", "tags": {"title": "Test Song", "artist": "Someone"}}}`), nil
	}}
	res, err := p.Probe(context.Background(), "/tmp/x.mp3")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if res.Title == nil || *res.Title != "Test Song" {
		t.Fatalf("unexpected title: %v", res.Title)
	}
	if res.Duration == nil || *res.Duration != 185 {
		t.Fatalf("unexpected duration: %v", res.Duration)
	}
}

func TestProbeMissingTags(t *testing.T) {
	p := &ffprobeProber{run: func(ctx context.Context, args ...string) ([]byte, error) {
		return []byte(`{"format": {}}`), nil
	}}
	res, err := p.Probe(context.Background(), "/tmp/x.mp3")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if res.Title != nil || res.Duration != nil {
		t.Fatalf("expected empty result, got %+v", res)
	}
}

func TestProbeToolError(t *testing.T) {
	p := &ffprobeProber{run: func(ctx context.Context, args ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}}
	if _, err := p.Probe(context.Background(), "/tmp/x.mp3"); err == nil {
		t.Fatal("expected error")
	}
}
