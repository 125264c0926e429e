// Package remux is the Remux Invoker (C8): treats the muxer as a pure
// subprocess contract, copying streams from a TS input into an MP4 output
// without re-encoding.
package remux

import (
	"bytes"
	"context"
	"log"
	"os"
	"os/exec"

	"github.com/streamvault/hlsfetch/internal/core/hlserr"
)

const stderrTailLimit = 4096

// Resolve returns the muxer binary path: FFMPEG_PATH if set, otherwise
// "ffmpeg" resolved via the OS's executable search path. It returns
// RemuxUnavailable if FFMPEG_PATH is set but names no existing file (PATH is
// then not searched), or if it is unset and ffmpeg is not on PATH.
func Resolve() (string, error) {
	if path := os.Getenv("FFMPEG_PATH"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return "", hlserr.NewRemuxUnavailable(path)
	}
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", hlserr.NewRemuxUnavailable("ffmpeg")
	}
	return path, nil
}

// Remux invokes the muxer to copy streams from tsPath into mp4Path, with no
// re-encoding. Returns RemuxUnavailable if the muxer can't be found, or
// RemuxFailed with a bounded stderr tail on non-zero exit.
func Remux(ctx context.Context, tsPath, mp4Path string) error {
	binary, err := Resolve()
	if err != nil {
		return err
	}

	args := []string{
		"-threads", "1",
		"-i", tsPath,
		"-c", "copy",
		"-f", "mp4",
		"-y",
		mp4Path,
	}

	log.Printf("[remux] %s %v", binary, args)

	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		tail := stderr.Bytes()
		if len(tail) > stderrTailLimit {
			tail = tail[len(tail)-stderrTailLimit:]
		}
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return hlserr.NewRemuxFailed(exitCode, string(tail))
	}

	if info, statErr := os.Stat(mp4Path); statErr == nil {
		log.Printf("[remux] output %s (%d bytes)", mp4Path, info.Size())
	}

	return nil
}
