package httpdownload

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/streamvault/hlsfetch/internal/core/httpclient"
)

func TestDownloadFullFile(t *testing.T) {
	content := make([]byte, 256*1024)
	for i := range content {
		content[i] = byte(i)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "out.bin")
	client := httpclient.New(httpclient.Config{})

	result, err := Download(context.Background(), client, srv.URL, out, nil, nil)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	got, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatal(err)
	}
	if sha256.Sum256(got) != sha256.Sum256(content) {
		t.Fatal("downloaded content does not match source")
	}
}

func TestDownloadResumesFromPartialFile(t *testing.T) {
	full := make([]byte, 10*1024*1024)
	for i := range full {
		full[i] = byte(i % 251)
	}
	const crashAt = 3 * 1024 * 1024

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rangeHeader := r.Header.Get("Range")
		if rangeHeader == "" {
			w.Header().Set("Accept-Ranges", "bytes")
			w.Write(full)
			return
		}
		var start int64
		fmt.Sscanf(rangeHeader, "bytes=%d-", &start)
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, len(full)-1, len(full)))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(full[start:])
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "resumed.bin")
	if err := os.WriteFile(out, full[:crashAt], 0644); err != nil {
		t.Fatal(err)
	}

	client := httpclient.New(httpclient.Config{})
	result, err := Download(context.Background(), client, srv.URL, out, nil, nil)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	got, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatal(err)
	}
	if sha256.Sum256(got) != sha256.Sum256(full) {
		t.Fatal("resumed file does not match the full source by SHA-256")
	}
}

func TestDownloadTruncatesOn200WhenServerIgnoresRange(t *testing.T) {
	content := []byte("a fresh, complete response body")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Always 200, ignoring any Range header: server doesn't support resume.
		w.Write(content)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "stale.bin")
	if err := os.WriteFile(out, []byte("stale partial data that should be discarded"), 0644); err != nil {
		t.Fatal(err)
	}

	client := httpclient.New(httpclient.Config{})
	result, err := Download(context.Background(), client, srv.URL, out, nil, nil)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}

	got, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("got %q, want the server's fresh body %q (should have truncated)", got, content)
	}
}

func TestDownloadReportsProgress(t *testing.T) {
	content := make([]byte, 5*1024*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "progress.bin")
	client := httpclient.New(httpclient.Config{})

	var lastWritten int64
	reporter := reporterFunc(func(written, total int64) {
		if written < lastWritten {
			t.Errorf("progress went backwards: %d after %d", written, lastWritten)
		}
		lastWritten = written
	})

	if _, err := Download(context.Background(), client, srv.URL, out, nil, reporter); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if lastWritten != int64(len(content)) {
		t.Fatalf("final reported progress = %d, want %d", lastWritten, len(content))
	}
}

type reporterFunc func(written, total int64)

func (f reporterFunc) Report(written, total int64) { f(written, total) }
