package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultImageMaxBytes = 5 << 20

// ImagePart is an image attached to the customer's latest message.
type ImagePart struct {
	MIMEType  string
	Data      []byte
	SourceURL string // TalkTalk image URL, for logs
}

// ImageFetcher downloads customer-sent images so they can be passed inline
// to vision-capable models.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (ImagePart, error)
}

// HTTPImageFetcher fetches images over plain HTTP(S).
type HTTPImageFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPImageFetcher creates a fetcher. maxBytes <= 0 uses a 5 MB cap.
func NewHTTPImageFetcher(client *http.Client, maxBytes int64) *HTTPImageFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = defaultImageMaxBytes
	}
	return &HTTPImageFetcher{client: client, maxBytes: maxBytes}
}

// Fetch downloads url and sniffs its MIME type.
func (f *HTTPImageFetcher) Fetch(ctx context.Context, url string) (ImagePart, error) {
	if strings.TrimSpace(url) == "" {
		return ImagePart{}, errors.New("conversation: image url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ImagePart{}, fmt.Errorf("conversation: build image request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return ImagePart{}, fmt.Errorf("conversation: fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ImagePart{}, fmt.Errorf("conversation: fetch image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return ImagePart{}, fmt.Errorf("conversation: read image: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return ImagePart{}, fmt.Errorf("conversation: image exceeds %d bytes", f.maxBytes)
	}

	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "image/") {
			mimeType = ct
		} else {
			return ImagePart{}, fmt.Errorf("conversation: unsupported image type %q", mimeType)
		}
	}
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	return ImagePart{MIMEType: mimeType, Data: data, SourceURL: url}, nil
}
