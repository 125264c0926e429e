// Package segment is the Segment Fetcher (C5): downloads one HLS segment
// and, if it carries an AES-128 encryption context, decrypts it.
package segment

import (
	"context"

	"github.com/streamvault/hlsfetch/internal/core/hlserr"
	"github.com/streamvault/hlsfetch/internal/core/httpclient"
	"github.com/streamvault/hlsfetch/internal/core/keycache"
	"github.com/streamvault/hlsfetch/internal/core/playlist"
)

// Fetcher downloads and decrypts individual segments, sharing an HTTP
// client and key cache with every other worker in the job.
type Fetcher struct {
	client  *httpclient.Client
	keys    *keycache.Cache
	headers map[string]string
}

// New builds a Fetcher.
func New(client *httpclient.Client, keys *keycache.Cache, headers map[string]string) *Fetcher {
	return &Fetcher{client: client, keys: keys, headers: headers}
}

// Fetch downloads seg and returns its plaintext bytes.
func (f *Fetcher) Fetch(ctx context.Context, seg playlist.Segment) ([]byte, error) {
	var byteRange *httpclient.ByteRange
	if seg.ByteRange != nil {
		byteRange = &httpclient.ByteRange{Offset: seg.ByteRange.Offset, Length: seg.ByteRange.Length}
	}

	body, err := f.client.GetBytes(ctx, seg.URI, f.headers, byteRange)
	if err != nil {
		return nil, err
	}

	if seg.Encryption.Method == playlist.EncryptionNone {
		return body, nil
	}

	key, err := f.keys.Get(ctx, seg.Encryption.KeyURI)
	if err != nil {
		return nil, err
	}

	iv := seg.Encryption.IV
	if iv == nil {
		iv = ivFromAbsoluteIndex(seg.AbsoluteIndex)
	}

	plaintext, err := decryptAES128CBC(body, key, iv)
	if err != nil {
		return nil, hlserr.NewDecryptError(seg.Index, err)
	}
	return plaintext, nil
}
