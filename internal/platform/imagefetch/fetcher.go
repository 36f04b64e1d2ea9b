// Package imagefetch downloads remote images with size and content-type
// guards so arbitrary URLs cannot drag unbounded or non-image payloads
// into the classification pipeline.
package imagefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/visionsmith/argus-api/internal/classifier"
	"github.com/visionsmith/argus-api/internal/config"
	"github.com/visionsmith/argus-api/internal/platform/logger"
)

// Common errors returned by the fetcher.
var (
	// ErrFetchFailed is returned when the image could not be retrieved
	ErrFetchFailed = errors.New("failed to fetch image")

	// ErrUnsupportedType is returned when the response is not an allowed image type
	ErrUnsupportedType = errors.New("unsupported image content type")

	// ErrImageTooLarge is returned when the response exceeds the configured size cap
	ErrImageTooLarge = errors.New("image exceeds maximum allowed size")
)

// allowedTypes is the content-type allowlist for fetched images.
var allowedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// Fetcher downloads remote images over HTTP.
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher from the fetch configuration.
// If log is nil, a default logger will be used.
func NewFetcher(cfg config.FetchConfig, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
		logger:    log.With(slog.String("component", "image_fetcher")),
	}
}

// Fetch downloads the image at the given URL and returns it with its
// content type. It enforces the content-type allowlist and the size cap;
// oversized bodies are abandoned as soon as the cap is crossed.
func (f *Fetcher) Fetch(ctx context.Context, imageURL string) (classifier.Image, error) {
	log := logger.FromContextOrDefault(ctx, f.logger)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return classifier.Image{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/jpeg, image/png, image/gif, image/webp")

	resp, err := f.client.Do(req)
	if err != nil {
		log.Warn("image fetch failed", "error", err)
		return classifier.Image{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Debug("failed to close response body", "error", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		log.Warn("image fetch returned non-OK status", "status", resp.StatusCode)
		return classifier.Image{}, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	mimeType, err := normalizeContentType(resp.Header.Get("Content-Type"))
	if err != nil {
		log.Warn("image fetch rejected by content type",
			"content_type", resp.Header.Get("Content-Type"))
		return classifier.Image{}, err
	}

	// The Content-Length header, when present, lets us reject oversized
	// images before reading the body.
	if resp.ContentLength > f.maxBytes {
		return classifier.Image{}, fmt.Errorf("%w: %d bytes, limit %d",
			ErrImageTooLarge, resp.ContentLength, f.maxBytes)
	}

	// Read one byte past the cap so a body exactly at the limit passes
	// and anything beyond it is detected without reading it all.
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return classifier.Image{}, fmt.Errorf("%w: reading body: %v", ErrFetchFailed, err)
	}
	if int64(len(data)) > f.maxBytes {
		return classifier.Image{}, fmt.Errorf("%w: body exceeds %d bytes", ErrImageTooLarge, f.maxBytes)
	}

	log.Debug("image fetched",
		"bytes", len(data),
		"content_type", mimeType)

	return classifier.Image{
		Data:      data,
		MIMEType:  mimeType,
		SourceURL: imageURL,
	}, nil
}

// normalizeContentType parses a Content-Type header value and checks it
// against the allowlist.
func normalizeContentType(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("%w: missing content type", ErrUnsupportedType)
	}

	mimeType, _, err := mime.ParseMediaType(header)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, header)
	}

	mimeType = strings.ToLower(mimeType)
	if _, ok := allowedTypes[mimeType]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, mimeType)
	}
	return mimeType, nil
}
