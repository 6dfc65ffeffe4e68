// Package fetcher retrieves photo bytes for one pipeline run.
package fetcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"photo-intel-pipeline/models"
)

const (
	// maxImageBytes caps a single download; anything larger is rejected
	// rather than held in memory.
	maxImageBytes = 20 << 20

	defaultTimeout = 30 * time.Second
)

// Fetcher downloads images over HTTP.
type Fetcher struct {
	client *http.Client
}

// New creates a fetcher; timeout <= 0 uses the default.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the image at url and returns its base64 bytes plus media
// type. The media type comes from the Content-Type header when it names an
// image, otherwise from sniffing the first bytes.
func (f *Fetcher) Fetch(ctx context.Context, url string) (models.ImageData, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return models.ImageData{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return models.ImageData{}, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ImageData{}, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return models.ImageData{}, fmt.Errorf("failed to read image body: %w", err)
	}
	if len(body) > maxImageBytes {
		return models.ImageData{}, fmt.Errorf("image exceeds %d byte limit", maxImageBytes)
	}
	if len(body) == 0 {
		return models.ImageData{}, fmt.Errorf("image fetch returned empty body")
	}

	mediaType := resp.Header.Get("Content-Type")
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = http.DetectContentType(body)
	}

	return models.ImageData{
		Base64:    base64.StdEncoding.EncodeToString(body),
		MediaType: mediaType,
	}, nil
}
