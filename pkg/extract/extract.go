// Package extract turns course materials into plain text for module
// generation. Only link materials are handled locally; PDF and audio
// transcription run in an external pipeline and are out of reach here.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/studiora/studiora-api/internal/models"
)

// Extractor produces plain text from a single material.
type Extractor interface {
	ExtractText(ctx context.Context, material models.Material) (string, error)
}

// LinkExtractor fetches link materials over HTTP and strips markup. It
// rejects material types that need the external extraction pipeline.
type LinkExtractor struct {
	client    *resty.Client
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewLinkExtractor builds an extractor with the given request timeout.
func NewLinkExtractor(timeout time.Duration, logger zerolog.Logger) *LinkExtractor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &LinkExtractor{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "link_extractor").Logger(),
	}
}

// ExtractText downloads the linked page and returns its visible text.
func (e *LinkExtractor) ExtractText(ctx context.Context, material models.Material) (string, error) {
	if material.Type != models.MaterialTypeLink {
		return "", fmt.Errorf("material type %q requires the external extraction pipeline", material.Type)
	}

	resp, err := e.client.R().SetContext(ctx).Get(material.FileURL)
	if err != nil {
		return "", fmt.Errorf("fetch link material: %w", err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("fetch link material: unexpected status %d", resp.StatusCode())
	}

	text := e.sanitizer.Sanitize(string(resp.Body()))
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("link material produced no text")
	}

	e.logger.Debug().Uint("material_id", material.ID).Int("length", len(text)).Msg("link text extracted")

	return text, nil
}
