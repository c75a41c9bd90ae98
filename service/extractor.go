package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/davidnge/ytconverter-dev/config"
	"github.com/davidnge/ytconverter-dev/constant"
)

// ExtractResult is a successfully produced local artifact plus whatever
// metadata the tool reported. Quality is the effective bitrate, which may be
// lower than requested for long inputs.
type ExtractResult struct {
	FilePath string
	Title    *string
	Duration *int
	Quality  constant.Quality
}

// Extractor turns a video URL into a local MP3 artifact.
type Extractor interface {
	Extract(ctx context.Context, url, videoID string, quality constant.Quality) (*ExtractResult, error)
}

// runner executes one external command and returns its combined output.
// It exists so tests can substitute the yt-dlp invocation.
type runner func(ctx context.Context, args ...string) ([]byte, error)

type ytDlpExtractor struct {
	cfg config.Converter
	run runner
}

func NewExtractor(cfg config.Converter) Extractor {
	return &ytDlpExtractor{cfg: cfg, run: runYtDlp}
}

type videoInfo struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// rateLimitArgs are added on the single re-attempt after an
// authentication-pattern failure.
var rateLimitArgs = []string{
	"--sleep-requests", "1",
	"--sleep-interval", "5",
	"--max-sleep-interval", "30",
}

// Extract runs the info pre-fetch and the download under one shared timeout
// covering both steps.
func (e *ytDlpExtractor) Extract(ctx context.Context, url, videoID string, quality constant.Quality) (*ExtractResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ExtractionTimeout)
	defer cancel()

	cookiePath, cleanup, err := writeCookieFile(e.cfg.Cookies)
	if err != nil {
		return nil, fmt.Errorf("prepare cookies: %w", err)
	}
	defer cleanup()

	info, err := e.probeInfo(ctx, url, cookiePath)
	if err != nil {
		return nil, err
	}

	duration := int(info.Duration)
	if duration > e.cfg.DurationHardCap {
		return nil, newFailure(CodeInputTooLong,
			fmt.Sprintf("Video is too long. Please choose a video under %d minutes.", e.cfg.DurationHardCap/60))
	}
	if duration > e.cfg.DurationSoftCap && quality == constant.Quality320 {
		zerolog.Ctx(ctx).Info().
			Str("video_id", videoID).
			Int("duration", duration).
			Msg("downgrading quality for long input")
		quality = constant.Quality192
	}

	if err := os.MkdirAll(e.cfg.DownloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	outputTemplate := filepath.Join(e.cfg.DownloadDir, videoID+".%(ext)s")
	args := []string{
		"-f", "bestaudio",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", fmt.Sprintf("%dK", quality),
		"--no-playlist",
		"-o", outputTemplate,
	}
	if cookiePath != "" {
		args = append(args, "--cookies", cookiePath)
	}
	args = append(args, url)

	if err := e.download(ctx, args); err != nil {
		return nil, err
	}

	artifactPath := filepath.Join(e.cfg.DownloadDir, videoID+".mp3")
	if _, err := os.Stat(artifactPath); err != nil {
		return nil, newFailure(CodeToolExecutionFailure, "The audio file was not created successfully.")
	}

	res := &ExtractResult{FilePath: artifactPath, Quality: quality}
	if info.Title != "" {
		res.Title = &info.Title
	}
	if duration > 0 {
		res.Duration = &duration
	}
	return res, nil
}

func (e *ytDlpExtractor) probeInfo(ctx context.Context, url, cookiePath string) (*videoInfo, error) {
	args := []string{"-j", "--no-playlist"}
	if cookiePath != "" {
		args = append(args, "--cookies", cookiePath)
	}
	args = append(args, url)

	out, err := e.run(ctx, args...)
	if err != nil {
		return nil, e.classifyRunError(ctx, out, err)
	}

	info := &videoInfo{}
	if jsonErr := json.Unmarshal(out, info); jsonErr != nil {
		return nil, newFailure(CodeToolExecutionFailure, "Failed to fetch video info.")
	}
	return info, nil
}

// download runs the extraction and re-attempts exactly once with
// rate-limiting flags when the tool output matches an authentication
// signature.
func (e *ytDlpExtractor) download(ctx context.Context, args []string) error {
	out, err := e.run(ctx, args...)
	if err == nil {
		return nil
	}

	failure := e.classifyRunError(ctx, out, err)
	f, ok := AsFailure(failure)
	if !ok || f.Code != CodeAuthenticationRequired {
		return failure
	}

	zerolog.Ctx(ctx).Warn().Msg("authentication signature in tool output, re-attempting with rate limiting")
	retryArgs := append(append([]string{}, rateLimitArgs...), args...)
	out, err = e.run(ctx, retryArgs...)
	if err == nil {
		return nil
	}
	return e.classifyRunError(ctx, out, err)
}

func (e *ytDlpExtractor) classifyRunError(ctx context.Context, out []byte, runErr error) error {
	if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newFailure(CodeTimeout, "The conversion took too long and was cancelled.")
	}
	if f := classifyOutput(string(out)); f != nil {
		return f
	}
	return &Failure{
		Code:    CodeToolExecutionFailure,
		Message: "The download tool failed.",
		Cause:   runErr,
	}
}

// runYtDlp executes yt-dlp in its own process group so the whole tree can be
// killed on timeout, not just the leader.
func runYtDlp(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "yt-dlp", args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 10 * time.Second
	return cmd.CombinedOutput()
}
