// Package hlserr defines the typed error taxonomy used across hlsfetch's
// core packages and the CLI's exit-code mapping.
package hlserr

import (
	"errors"
	"fmt"
)

// Exit codes, matching the CLI surface.
const (
	ExitSuccess   = 0
	ExitUsage     = 2
	ExitNetwork   = 3
	ExitParse     = 4
	ExitDecrypt   = 5
	ExitRemux     = 6
	ExitCancelled = 130
)

// Coder is implemented by every error kind in this package so the CLI can
// dispatch on it with a single errors.As switch.
type Coder interface {
	error
	Code() int
}

// UsageError reports bad CLI arguments.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return "usage: " + e.Msg }
func (e *UsageError) Code() int     { return ExitUsage }

func NewUsageError(format string, args ...any) *UsageError {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// NetworkError reports a transport or HTTP failure that survived retries.
type NetworkError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("network error fetching %s: status %d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("network error fetching %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
func (e *NetworkError) Code() int     { return ExitNetwork }

func NewNetworkError(url string, status, attempts int, err error) *NetworkError {
	return &NetworkError{URL: url, StatusCode: status, Attempts: attempts, Err: err}
}

// ParseError reports a malformed playlist.
type ParseError struct {
	Msg  string
	Line int
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, e.Msg)
	}
	return "parse error: " + e.Msg
}
func (e *ParseError) Code() int { return ExitParse }

func NewParseError(line int, format string, args ...any) *ParseError {
	return &ParseError{Msg: fmt.Sprintf(format, args...), Line: line}
}

// NoVariantError reports an empty master playlist.
type NoVariantError struct {
	PlaylistURL string
}

func (e *NoVariantError) Error() string {
	return fmt.Sprintf("master playlist %s has no variants", e.PlaylistURL)
}
func (e *NoVariantError) Code() int { return ExitParse }

func NewNoVariantError(playlistURL string) *NoVariantError {
	return &NoVariantError{PlaylistURL: playlistURL}
}

// UnsupportedEncryption reports an encryption method other than AES-128 or NONE.
type UnsupportedEncryption struct {
	Method string
}

func (e *UnsupportedEncryption) Error() string {
	return fmt.Sprintf("unsupported encryption method %q", e.Method)
}
func (e *UnsupportedEncryption) Code() int { return ExitParse }

func NewUnsupportedEncryption(method string) *UnsupportedEncryption {
	return &UnsupportedEncryption{Method: method}
}

// KeyError reports a key fetch or validation failure.
type KeyError struct {
	KeyURI string
	Err    error
}

func (e *KeyError) Error() string { return fmt.Sprintf("key fetch %s: %v", e.KeyURI, e.Err) }
func (e *KeyError) Unwrap() error { return e.Err }
func (e *KeyError) Code() int     { return ExitDecrypt }

func NewKeyError(keyURI string, err error) *KeyError {
	return &KeyError{KeyURI: keyURI, Err: err}
}

// DecryptError reports a cipher or padding failure.
type DecryptError struct {
	SegmentIndex int
	Err          error
}

func (e *DecryptError) Error() string {
	return fmt.Sprintf("decrypt segment %d: %v", e.SegmentIndex, e.Err)
}
func (e *DecryptError) Unwrap() error { return e.Err }
func (e *DecryptError) Code() int     { return ExitDecrypt }

func NewDecryptError(segmentIndex int, err error) *DecryptError {
	return &DecryptError{SegmentIndex: segmentIndex, Err: err}
}

// WriteError reports a local I/O failure.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string { return fmt.Sprintf("write %s: %v", e.Path, e.Err) }
func (e *WriteError) Unwrap() error { return e.Err }
func (e *WriteError) Code() int     { return ExitNetwork }

func NewWriteError(path string, err error) *WriteError {
	return &WriteError{Path: path, Err: err}
}

// RemuxUnavailable reports a missing muxer executable. Non-fatal: callers
// may keep the TS output.
type RemuxUnavailable struct {
	Binary string
}

func (e *RemuxUnavailable) Error() string {
	return fmt.Sprintf("remux unavailable: %s not found", e.Binary)
}
func (e *RemuxUnavailable) Code() int { return ExitRemux }

func NewRemuxUnavailable(binary string) *RemuxUnavailable {
	return &RemuxUnavailable{Binary: binary}
}

// RemuxFailed reports a non-zero muxer exit, with a bounded stderr tail.
type RemuxFailed struct {
	ExitCode   int
	StderrTail string
}

func (e *RemuxFailed) Error() string {
	return fmt.Sprintf("remux failed with exit code %d: %s", e.ExitCode, e.StderrTail)
}
func (e *RemuxFailed) Code() int { return ExitRemux }

func NewRemuxFailed(exitCode int, stderrTail string) *RemuxFailed {
	return &RemuxFailed{ExitCode: exitCode, StderrTail: stderrTail}
}

// Cancelled reports a cooperative cancellation.
type Cancelled struct {
	Reason string
}

func (e *Cancelled) Error() string {
	if e.Reason == "" {
		return "cancelled"
	}
	return "cancelled: " + e.Reason
}
func (e *Cancelled) Code() int { return ExitCancelled }

func NewCancelled(reason string) *Cancelled {
	return &Cancelled{Reason: reason}
}

// ExitCode maps any error returned by the core to a CLI exit code. Unknown
// error types default to ExitNetwork, matching spec.md's "first error wins"
// propagation policy for unclassified I/O failures.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var coder Coder
	if errors.As(err, &coder) {
		return coder.Code()
	}
	return ExitNetwork
}
