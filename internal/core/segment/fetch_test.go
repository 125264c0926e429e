package segment

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/streamvault/hlsfetch/internal/core/httpclient"
	"github.com/streamvault/hlsfetch/internal/core/keycache"
	"github.com/streamvault/hlsfetch/internal/core/playlist"
)

func TestFetchPlainSegment(t *testing.T) {
	body := []byte("transport stream bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.Config{})
	keys := keycache.New(client, nil)
	f := New(client, keys, nil)

	seg := playlist.Segment{Index: 0, URI: srv.URL + "/seg0.ts"}
	got, err := f.Fetch(context.Background(), seg)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("got %q, want %q", got, body)
	}
}

func TestFetchEncryptedSegmentWithImplicitIV(t *testing.T) {
	key := bytes.Repeat([]byte{0x11}, 16)
	plaintext := []byte("encrypted segment payload, longer than a block")

	mux := http.NewServeMux()
	mux.HandleFunc("/k.key", func(w http.ResponseWriter, r *http.Request) {
		w.Write(key)
	})
	mux.HandleFunc("/seg3.ts", func(w http.ResponseWriter, r *http.Request) {
		iv := ivFromAbsoluteIndex(3)
		w.Write(encryptAES128CBC(t, plaintext, key, iv))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := httpclient.New(httpclient.Config{})
	keys := keycache.New(client, nil)
	f := New(client, keys, nil)

	seg := playlist.Segment{
		Index:         3,
		AbsoluteIndex: 3,
		URI:           srv.URL + "/seg3.ts",
		Encryption:    playlist.Encryption{Method: playlist.EncryptionAES128, KeyURI: srv.URL + "/k.key"},
	}
	got, err := f.Fetch(context.Background(), seg)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("got %q, want %q", got, plaintext)
	}
}

func TestFetchNonRetryableStatusIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.Config{})
	keys := keycache.New(client, nil)
	f := New(client, keys, nil)

	seg := playlist.Segment{Index: 0, URI: srv.URL + "/missing.ts"}
	if _, err := f.Fetch(context.Background(), seg); err == nil {
		t.Fatal("expected a NetworkError for a 404 response")
	}
}
