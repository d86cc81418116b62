package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/hszk-dev/musicgate/internal/domain/model"
)

// YtDlpConfig holds configuration for the yt-dlp extractor.
type YtDlpConfig struct {
	// BinPath is the path to the yt-dlp binary.
	// If empty, "yt-dlp" will be used (assumes it's in PATH).
	BinPath string

	// SocketTimeout is passed to yt-dlp's --socket-timeout.
	// Default: 30s
	SocketTimeout time.Duration

	// Retries is the number of retries yt-dlp performs internally.
	// Default: 3
	Retries int

	// PlayerClient selects the innertube client yt-dlp impersonates.
	// The android client is the most reliable for audio-only formats.
	// Default: android
	PlayerClient string
}

// DefaultYtDlpConfig returns a YtDlpConfig with production-ready defaults.
func DefaultYtDlpConfig() YtDlpConfig {
	return YtDlpConfig{
		BinPath:       "yt-dlp",
		SocketTimeout: 30 * time.Second,
		Retries:       3,
		PlayerClient:  "android",
	}
}

// YtDlpExtractor implements Extractor using the yt-dlp CLI.
type YtDlpExtractor struct {
	config YtDlpConfig
}

// Compile-time verification that YtDlpExtractor implements Extractor.
var _ Extractor = (*YtDlpExtractor)(nil)

// NewYtDlpExtractor creates a new yt-dlp-based extractor.
func NewYtDlpExtractor(cfg YtDlpConfig) *YtDlpExtractor {
	if cfg.BinPath == "" {
		cfg.BinPath = "yt-dlp"
	}
	if cfg.SocketTimeout <= 0 {
		cfg.SocketTimeout = 30 * time.Second
	}
	return &YtDlpExtractor{
		config: cfg,
	}
}

// Extract runs yt-dlp as a subprocess in metadata-dump mode and parses the
// JSON it prints. The subprocess is bounded by the socket timeout times the
// retry budget; past that the context kills it.
func (e *YtDlpExtractor) Extract(ctx context.Context, videoID string) (*MediaInfo, error) {
	deadline := e.config.SocketTimeout * time.Duration(e.config.Retries+1)
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	args := e.buildArgs(model.WatchURL(videoID))
	cmd := exec.CommandContext(ctx, e.config.BinPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("extraction timed out for %s: %w", videoID, ctx.Err())
		}
		// stderr text is the only classification signal upstream gives us
		// (rate limiting vs. content errors), so keep it verbatim.
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("yt-dlp failed: %s", msg)
	}

	info, err := parseMediaInfo(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp output for %s: %w", videoID, err)
	}
	return info, nil
}

// buildArgs constructs the yt-dlp command arguments.
func (e *YtDlpExtractor) buildArgs(watchURL string) []string {
	args := []string{
		"-J", // dump single-video JSON, no download
		"--no-warnings",
		"--no-check-certificates",
		"-f", "bestaudio/best",
		"--socket-timeout", strconv.Itoa(int(e.config.SocketTimeout.Seconds())),
		"--retries", strconv.Itoa(e.config.Retries),
	}
	if e.config.PlayerClient != "" {
		args = append(args, "--extractor-args", "youtube:player_client="+e.config.PlayerClient)
	}
	return append(args, watchURL)
}

// parseMediaInfo decodes a yt-dlp -J dump into MediaInfo.
func parseMediaInfo(data []byte) (*MediaInfo, error) {
	var info MediaInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
