package service

import (
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
)

// ProbeResult carries whatever tags ffprobe could read from an artifact.
type ProbeResult struct {
	Title    *string
	Duration *int
}

// Prober reads embedded metadata from a produced artifact. Probe failures
// are non-fatal to the pipeline; the caller keeps whatever it already knows.
type Prober interface {
	Probe(ctx context.Context, path string) (*ProbeResult, error)
}

type ffprobeProber struct {
	run runner
}

func NewProber() Prober {
	return &ffprobeProber{run: runFFprobe}
}

type ffprobeOutput struct {
	Format struct {
		Duration string            `json:"duration"`
		Tags     map[string]string `json:"tags"`
	} `json:"format"`
}

func (p *ffprobeProber) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	out, err := p.run(ctx, "-v", "quiet", "-print_format", "json", "-show_format", path)
	if err != nil {
		return nil, err
	}

	parsed := &ffprobeOutput{}
	if err := json.Unmarshal(out, parsed); err != nil {
		return nil, err
	}

	res := &ProbeResult{}
	if title, ok := parsed.Format.Tags["title"]; ok && title != "" {
		res.Title = &title
	}
	if parsed.Format.Duration != "" {
		if secs, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil && secs > 0 {
			d := int(secs)
			res.Duration = &d
		}
	}
	return res, nil
}

func runFFprobe(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "ffprobe", args...).Output()
}
