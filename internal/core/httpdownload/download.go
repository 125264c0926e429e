// Package httpdownload is the HTTP File Downloader (C9): the plain-HTTP
// top-level path, parallel to the scheduler but far simpler — streams a
// single resource to disk in bounded chunks, resuming by byte range when
// the server and a local partial file both allow it.
package httpdownload

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/streamvault/hlsfetch/internal/core/hlserr"
	"github.com/streamvault/hlsfetch/internal/core/httpclient"
)

const chunkSize = 1 << 20 // 1 MiB, per spec.md §4.9

// Reporter receives progress as bytes land on disk. total is always -1: the
// server's Content-Length is not passed on.
type Reporter interface {
	Report(bytesWritten, total int64)
}

// NoopReporter discards progress callbacks.
type NoopReporter struct{}

func (NoopReporter) Report(int64, int64) {}

// Result describes a completed download.
type Result struct {
	Path  string // final path, possibly renamed by magic-byte sniffing
	Bytes int64
}

// Download streams url to outPath. If outPath already has partial content it
// requests Range: bytes=<size>-; a 206 reply is appended, any other success
// reply truncates and starts over. The Accept-Ranges header is not consulted.
func Download(ctx context.Context, client *httpclient.Client, url, outPath string, headers map[string]string, reporter Reporter) (Result, error) {
	if reporter == nil {
		reporter = NoopReporter{}
	}

	for attempt := 1; ; attempt++ {
		written, err := attemptDownload(ctx, client, url, outPath, headers, reporter)
		if err == nil {
			final := renameByMagicBytes(outPath)
			return Result{Path: final, Bytes: written}, nil
		}
		if attempt >= httpclient.MaxAttempts {
			return Result{}, err
		}
		select {
		case <-time.After(httpclient.Backoff(attempt)):
		case <-ctx.Done():
			return Result{}, hlserr.NewCancelled(ctx.Err().Error())
		}
	}
}

// attemptDownload issues one GET (ranged if a partial file exists) and
// streams the body to disk in ≤chunkSize writes, restarting from the
// current file size on the next attempt if the body read fails partway.
func attemptDownload(ctx context.Context, client *httpclient.Client, url, outPath string, headers map[string]string, reporter Reporter) (int64, error) {
	existing := localSize(outPath)

	var byteRange *httpclient.ByteRange
	if existing > 0 {
		byteRange = &httpclient.ByteRange{Offset: existing}
	}

	body, status, err := client.GetStream(ctx, url, headers, byteRange)
	if err != nil {
		return existing, err
	}
	defer body.Close()

	var f *os.File
	var openErr error
	switch status {
	case 206:
		f, openErr = os.OpenFile(outPath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	default: // 200: server ignored the range (or none was requested)
		existing = 0
		f, openErr = os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	}
	if openErr != nil {
		return existing, hlserr.NewWriteError(outPath, openErr)
	}
	defer f.Close()

	buf := make([]byte, chunkSize)
	written := existing
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				return written, hlserr.NewWriteError(outPath, writeErr)
			}
			written += int64(n)
			reporter.Report(written, -1)
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, hlserr.NewNetworkError(url, 0, 1, readErr)
		}
	}
}

func localSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
