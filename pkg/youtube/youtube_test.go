package youtube_test

import (
	"testing"

	"github.com/davidnge/ytconverter-dev/pkg/youtube"
)

func TestExtractVideoIDWatchLink(t *testing.T) {
	id := youtube.ExtractVideoID("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	if id != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected id: %q", id)
	}
}

func TestExtractVideoIDShortLink(t *testing.T) {
	id := youtube.ExtractVideoID("https://youtu.be/dQw4w9WgXcQ")
	if id != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected id: %q", id)
	}
}

func TestExtractVideoIDShorts(t *testing.T) {
	id := youtube.ExtractVideoID("https://www.youtube.com/shorts/aAbBcC12345")
	if id != "aAbBcC12345" {
		t.Fatalf("unexpected id: %q", id)
	}
}

func TestExtractVideoIDWithExtraParams(t *testing.T) {
	id := youtube.ExtractVideoID("https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ&t=42")
	if id != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected id: %q", id)
	}
}

func TestExtractVideoIDIdempotent(t *testing.T) {
	url := "https://youtu.be/dQw4w9WgXcQ"
	first := youtube.ExtractVideoID(url)
	for i := 0; i < 10; i++ {
		if got := youtube.ExtractVideoID(url); got != first {
			t.Fatalf("extraction not deterministic: %q vs %q", got, first)
		}
	}
	if len(first) != 11 {
		t.Fatalf("expected 11 characters, got %d", len(first))
	}
}

func TestExtractVideoIDMalformed(t *testing.T) {
	for _, url := range []string{
		"",
		"https://example.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=short",
		"not a url",
	} {
		if id := youtube.ExtractVideoID(url); id != "" {
			t.Fatalf("expected empty id for %q, got %q", url, id)
		}
	}
}

func TestValidURL(t *testing.T) {
	valid := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"http://youtube.com/watch?v=dQw4w9WgXcQ",
		"youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/aAbBcC12345",
	}
	for _, url := range valid {
		if !youtube.ValidURL(url) {
			t.Fatalf("expected %q to be valid", url)
		}
	}
	invalid := []string{
		"https://vimeo.com/12345",
		"https://example.com/watch?v=dQw4w9WgXcQ",
		"",
	}
	for _, url := range invalid {
		if youtube.ValidURL(url) {
			t.Fatalf("expected %q to be invalid", url)
		}
	}
}
