package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/streamvault/hlsfetch/internal/core/config"
	"github.com/streamvault/hlsfetch/internal/core/hlserr"
	"github.com/streamvault/hlsfetch/internal/core/httpclient"
	"github.com/streamvault/hlsfetch/internal/core/job"
	"github.com/streamvault/hlsfetch/internal/core/playlist"
	"github.com/streamvault/hlsfetch/internal/core/progress"
	"github.com/streamvault/hlsfetch/internal/core/version"
)

var (
	output      string
	mode        string
	resHeight   int
	bandwidth   int
	concurrency int
	userAgent   string
	referer     string
	cookies     string
	noRemux     bool
	noProgress  bool
)

var rootCmd = &cobra.Command{
	Use:     "hlsfetch [url]",
	Short:   "Download HLS streams and plain HTTP files, with resume and AES-128 decryption",
	Version: version.Version,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDownload(args[0])
	},
}

func init() {
	color.NoColor = color.NoColor || os.Getenv("NO_COLOR") != ""

	rootCmd.Flags().StringVarP(&output, "out", "o", "", "output file path")
	rootCmd.Flags().StringVar(&mode, "mode", "auto", "source mode: auto, hls, or http")
	rootCmd.Flags().IntVar(&resHeight, "res", 0, "preferred max resolution height (HLS only)")
	rootCmd.Flags().IntVar(&bandwidth, "bw", 0, "preferred max bandwidth in bits/sec (HLS only)")
	rootCmd.Flags().IntVar(&concurrency, "conc", 0, "segment worker count (HLS only, default from config)")
	rootCmd.Flags().StringVar(&userAgent, "ua", "", "override the User-Agent header")
	rootCmd.Flags().StringVar(&referer, "ref", "", "override the Referer header")
	rootCmd.Flags().StringVar(&cookies, "cookies", "", "raw Cookie header value")
	rootCmd.Flags().BoolVar(&noRemux, "no-remux", false, "skip the ffmpeg remux step, keep the .ts file")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the terminal progress UI")
}

// Execute runs the CLI and returns an exit code (see hlserr.ExitCode).
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		return hlserr.ExitCode(err)
	}
	return hlserr.ExitSuccess
}

func runDownload(url string) error {
	cfg := config.LoadOrDefault()
	if !config.Exists() {
		fmt.Fprintln(os.Stderr, color.YellowString("no config file found, using defaults. Run 'hlsfetch config init' to create one."))
	}

	jobMode, err := parseMode(mode)
	if err != nil {
		return err
	}

	if cfg.FFmpegPath != "" {
		os.Setenv("FFMPEG_PATH", cfg.FFmpegPath)
	}

	client := httpclient.New(httpclient.Config{
		UserAgent: firstNonEmpty(userAgent, cfg.UserAgent),
		Referer:   firstNonEmpty(referer, cfg.Referer),
		Cookies:   firstNonEmpty(cookies, cfg.Cookies),
	})

	conc := concurrency
	if conc == 0 {
		conc = cfg.Concurrency
	}

	outPath := output
	if outPath == "" && cfg.OutputDir != "" {
		outPath = filepath.Join(cfg.OutputDir, defaultOutputName(url))
	}

	opts := job.Options{
		URL:         url,
		OutputPath:  outPath,
		Mode:        jobMode,
		Concurrency: conc,
		Preference: playlist.Preference{
			ResolutionHeight: resHeight,
			Bandwidth:        bandwidth,
		},
		NoRemux: noRemux || cfg.NoRemux,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if noProgress {
		result, err := job.Run(ctx, client, opts)
		if err != nil {
			return err
		}
		fmt.Println(color.GreenString("done: ") + result.OutputPath)
		return nil
	}

	return runWithProgress(ctx, client, opts, url)
}

func runWithProgress(ctx context.Context, client *httpclient.Client, opts job.Options, url string) error {
	model := progress.NewModel(displayName(url, opts.OutputPath))
	opts.SegmentReporter = model.SegmentReporter()
	opts.HTTPReporter = model.HTTPReporter()

	resultCh := make(chan job.Result, 1)
	errCh := make(chan error, 1)

	go func() {
		result, err := job.Run(ctx, client, opts)
		if err != nil {
			model.Fail(err)
			errCh <- err
			return
		}
		model.Done(result.OutputPath)
		resultCh <- result
	}()

	program := tea.NewProgram(model)
	if _, err := program.Run(); err != nil {
		return err
	}

	// The TUI may exit (e.g. user pressed q) before the goroutine above has
	// sent its result; the download keeps running and is waited for here.
	select {
	case err := <-errCh:
		return err
	case <-resultCh:
		return nil
	}
}

// defaultOutputName derives a bare filename from url's last path segment,
// used only to anchor it under a configured OutputDir; the job orchestrator
// applies its own extension rules (.ts/.mp4) when no output path is given.
func defaultOutputName(url string) string {
	if i := strings.LastIndex(url, "/"); i >= 0 && i < len(url)-1 {
		name := url[i+1:]
		if q := strings.IndexByte(name, '?'); q >= 0 {
			name = name[:q]
		}
		return name
	}
	return "output"
}

func displayName(url, out string) string {
	if out != "" {
		return out
	}
	if i := strings.LastIndex(url, "/"); i >= 0 && i < len(url)-1 {
		return url[i+1:]
	}
	return url
}

func parseMode(m string) (job.Mode, error) {
	switch strings.ToLower(m) {
	case "", "auto":
		return job.ModeAuto, nil
	case "hls":
		return job.ModeHLS, nil
	case "http":
		return job.ModeHTTP, nil
	default:
		return "", hlserr.NewUsageError("unrecognized --mode %q (want auto, hls, or http)", m)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
