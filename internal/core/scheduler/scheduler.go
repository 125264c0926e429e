// Package scheduler is the Download Scheduler (C6): drives N concurrent
// segment fetchers over an ordered segment list, and hands their plaintext
// buffers to the Output Writer in strict index order regardless of
// completion order.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/streamvault/hlsfetch/internal/core/hlserr"
	"github.com/streamvault/hlsfetch/internal/core/playlist"
	"github.com/streamvault/hlsfetch/internal/core/writer"
)

const (
	MinConcurrency     = 1
	MaxConcurrency     = 32
	DefaultConcurrency = 4
)

// Fetcher fetches and decrypts one segment's plaintext.
type Fetcher interface {
	Fetch(ctx context.Context, seg playlist.Segment) ([]byte, error)
}

// Reporter receives progress after each committed write.
type Reporter interface {
	Report(completed, total int, bytesWritten int64)
}

// NoopReporter discards progress callbacks.
type NoopReporter struct{}

func (NoopReporter) Report(int, int, int64) {}

// ClampConcurrency bounds n to [MinConcurrency, MaxConcurrency], defaulting
// a non-positive value to DefaultConcurrency.
func ClampConcurrency(n int) int {
	if n <= 0 {
		n = DefaultConcurrency
	}
	if n < MinConcurrency {
		return MinConcurrency
	}
	if n > MaxConcurrency {
		return MaxConcurrency
	}
	return n
}

type fetchResult struct {
	index int
	data  []byte
	err   error
}

// Run fetches every segment in segments with up to concurrency workers and
// writes their plaintext to w in strict index order. It returns the first
// error encountered (a segment's terminal failure, a write failure, or
// ctx's cancellation), and ensures every spawned worker has settled before
// returning.
func Run(ctx context.Context, segments []playlist.Segment, fetcher Fetcher, w *writer.Writer, concurrency int, reporter Reporter) error {
	if reporter == nil {
		reporter = NoopReporter{}
	}
	concurrency = ClampConcurrency(concurrency)
	total := len(segments)
	if total == 0 {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan playlist.Segment, total)
	for _, seg := range segments {
		work <- seg
	}
	close(work)

	results := make(chan fetchResult, concurrency)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seg := range work {
				select {
				case <-runCtx.Done():
					return
				default:
				}
				data, err := fetcher.Fetch(runCtx, seg)
				select {
				case results <- fetchResult{index: seg.Index, data: data, err: err}:
				case <-runCtx.Done():
					return
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	pending := make(map[int][]byte)
	nextWrite := 0
	completed := 0
	var bytesWritten int64
	var firstErr error

	for result := range results {
		if firstErr != nil {
			// Already failing: drain remaining results so workers can
			// exit, but stop doing further work.
			continue
		}
		if result.err != nil {
			firstErr = result.err
			cancel()
			continue
		}

		pending[result.index] = result.data
		for {
			data, ok := pending[nextWrite]
			if !ok {
				break
			}
			if err := w.Write(data); err != nil {
				firstErr = err
				cancel()
				break
			}
			bytesWritten += int64(len(data))
			delete(pending, nextWrite)
			nextWrite++
			completed++
			reporter.Report(completed, total, bytesWritten)
		}
	}

	if firstErr != nil {
		return firstErr
	}
	if ctx.Err() != nil {
		return hlserr.NewCancelled(ctx.Err().Error())
	}
	if nextWrite != total {
		return hlserr.NewWriteError(w.Path(), fmt.Errorf("wrote %d of %d segments", nextWrite, total))
	}
	return nil
}
