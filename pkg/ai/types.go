package ai

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidPayload indicates the model response did not contain the
// expected JSON document.
var ErrInvalidPayload = errors.New("ai response did not contain valid json")

// Generator describes an AI model that turns a prompt into raw text.
// Callers own prompt construction and payload parsing.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ExtractJSON cuts the JSON document out of a raw model response. Models
// routinely wrap payloads in markdown fences or prose, so the document is
// delimited by the first '{' or '[' and the last matching '}' or ']'.
func ExtractJSON(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidPayload
	}

	objStart := strings.IndexByte(raw, '{')
	arrStart := strings.IndexByte(raw, '[')

	start := objStart
	end := strings.LastIndexByte(raw, '}')
	if arrStart != -1 && (objStart == -1 || arrStart < objStart) {
		start = arrStart
		end = strings.LastIndexByte(raw, ']')
	}

	if start == -1 || end == -1 || end <= start {
		return "", ErrInvalidPayload
	}

	return raw[start : end+1], nil
}
