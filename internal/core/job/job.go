// Package job is the Job Orchestrator (C14): resolves a URL to either the
// HLS path (parse, select a variant, fetch+decrypt+write in order, remux)
// or the plain-HTTP path (stream to disk with resume), under one correlation
// ID for logging.
package job

import (
	"context"
	"errors"
	"log/slog"
	neturl "net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/streamvault/hlsfetch/internal/core/hlserr"
	"github.com/streamvault/hlsfetch/internal/core/httpclient"
	"github.com/streamvault/hlsfetch/internal/core/httpdownload"
	"github.com/streamvault/hlsfetch/internal/core/keycache"
	"github.com/streamvault/hlsfetch/internal/core/playlist"
	"github.com/streamvault/hlsfetch/internal/core/remux"
	"github.com/streamvault/hlsfetch/internal/core/scheduler"
	"github.com/streamvault/hlsfetch/internal/core/segment"
	"github.com/streamvault/hlsfetch/internal/core/writer"
)

// Mode selects how the source URL is treated.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeHLS  Mode = "hls"
	ModeHTTP Mode = "http"
)

// Options configures one job run.
type Options struct {
	URL         string
	OutputPath  string
	Mode        Mode
	Concurrency int
	Preference  playlist.Preference
	Headers     map[string]string
	NoRemux     bool

	// SegmentReporter and HTTPReporter receive progress callbacks for the
	// HLS and plain-HTTP paths respectively; either may be nil.
	SegmentReporter scheduler.Reporter
	HTTPReporter    httpdownload.Reporter

	Logger *slog.Logger
}

// Result describes a completed job.
type Result struct {
	JobID      string
	OutputPath string
	Remuxed    bool
}

// Run executes one download job end to end.
func Run(ctx context.Context, client *httpclient.Client, opts Options) (Result, error) {
	jobID := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("job_id", jobID)

	mode := opts.Mode
	if mode == "" {
		mode = ModeAuto
	}
	if mode == ModeAuto {
		mode = detectMode(ctx, client, opts.URL, opts.Headers)
	}

	logger.Info("job starting", "url", opts.URL, "mode", mode)

	switch mode {
	case ModeHLS:
		return runHLS(ctx, client, jobID, opts, logger)
	case ModeHTTP:
		return runHTTP(ctx, client, jobID, opts, logger)
	default:
		return Result{}, hlserr.NewUsageError("unrecognized mode %q", mode)
	}
}

// detectMode sniffs the URL's suffix, falling back to a HEAD (then GET) to
// inspect the Content-Type when the suffix is inconclusive.
func detectMode(ctx context.Context, client *httpclient.Client, url string, headers map[string]string) Mode {
	lower := strings.ToLower(url)
	if strings.Contains(lower, ".m3u8") {
		return ModeHLS
	}

	contentType, err := client.Head(ctx, url, headers)
	if err == nil && isHLSContentType(contentType) {
		return ModeHLS
	}
	return ModeHTTP
}

func isHLSContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "application/vnd.apple.mpegurl") ||
		strings.Contains(ct, "application/x-mpegurl") ||
		strings.Contains(ct, "audio/mpegurl")
}

func runHTTP(ctx context.Context, client *httpclient.Client, jobID string, opts Options, logger *slog.Logger) (Result, error) {
	out := opts.OutputPath
	if out == "" {
		out = filepath.Base(opts.URL)
	}

	reporter := opts.HTTPReporter
	if reporter == nil {
		reporter = httpdownload.NoopReporter{}
	}

	result, err := httpdownload.Download(ctx, client, opts.URL, out, opts.Headers, reporter)
	if err != nil {
		logger.Error("http download failed", "error", err)
		return Result{}, err
	}

	logger.Info("http download complete", "path", result.Path, "bytes", result.Bytes)
	return Result{JobID: jobID, OutputPath: result.Path}, nil
}

func runHLS(ctx context.Context, client *httpclient.Client, jobID string, opts Options, logger *slog.Logger) (Result, error) {
	media, err := resolveMediaPlaylist(ctx, client, opts.URL, opts.Preference, opts.Headers, logger)
	if err != nil {
		return Result{}, err
	}

	out := opts.OutputPath
	if out == "" {
		out = defaultTSName(opts.URL)
	}

	w, err := writer.Open(out)
	if err != nil {
		return Result{}, err
	}

	keys := keycache.New(client, opts.Headers)
	fetcher := segment.New(client, keys, opts.Headers)

	reporter := opts.SegmentReporter
	if reporter == nil {
		reporter = scheduler.NoopReporter{}
	}

	runErr := scheduler.Run(ctx, media.Segments, fetcher, w, opts.Concurrency, reporter)
	closeErr := w.Close()
	if runErr != nil {
		logger.Error("hls download failed", "error", runErr)
		return Result{}, runErr
	}
	if closeErr != nil {
		return Result{}, closeErr
	}

	logger.Info("hls segments written", "path", out, "segments", len(media.Segments))

	if opts.NoRemux {
		return Result{JobID: jobID, OutputPath: out}, nil
	}

	mp4Path := strings.TrimSuffix(out, filepath.Ext(out)) + ".mp4"
	if err := remux.Remux(ctx, out, mp4Path); err != nil {
		var unavailable *hlserr.RemuxUnavailable
		if errors.As(err, &unavailable) {
			logger.Warn("remux unavailable, keeping transport stream", "reason", unavailable.Error())
			return Result{JobID: jobID, OutputPath: out}, nil
		}
		logger.Error("remux failed", "error", err)
		return Result{}, err
	}

	logger.Info("remux complete", "path", mp4Path)
	return Result{JobID: jobID, OutputPath: mp4Path, Remuxed: true}, nil
}

// resolveMediaPlaylist fetches playlistURL and, if it's a master playlist,
// selects a variant per pref and fetches that variant's media playlist.
func resolveMediaPlaylist(ctx context.Context, client *httpclient.Client, playlistURL string, pref playlist.Preference, headers map[string]string, logger *slog.Logger) (*playlist.MediaPlaylist, error) {
	text, err := client.GetText(ctx, playlistURL, headers)
	if err != nil {
		return nil, err
	}

	parsed, err := playlist.Parse(text, playlistURL)
	if err != nil {
		return nil, err
	}

	if parsed.Media != nil {
		return parsed.Media, nil
	}

	variant, err := playlist.SelectVariant(parsed.Master, pref)
	if err != nil {
		return nil, err
	}
	logger.Info("variant selected", "uri", variant.URI, "bandwidth", variant.Bandwidth)

	variantText, err := client.GetText(ctx, variant.URI, headers)
	if err != nil {
		return nil, err
	}

	variantParsed, err := playlist.Parse(variantText, variant.URI)
	if err != nil {
		return nil, err
	}
	if variantParsed.Media == nil {
		return nil, hlserr.NewParseError(0, "variant %s did not resolve to a media playlist", variant.URI)
	}
	return variantParsed.Media, nil
}

func defaultTSName(sourceURL string) string {
	p := sourceURL
	if u, err := neturl.Parse(sourceURL); err == nil {
		p = u.Path
	}
	base := path.Base(p)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "output"
	}
	return base + ".ts"
}
