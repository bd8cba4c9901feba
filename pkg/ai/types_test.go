package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractJSONFromFencedObject(t *testing.T) {
	raw := "```json\n{\"title\": \"Basics\"}\n```"

	payload, err := ExtractJSON(raw)
	require.NoError(t, err)
	require.JSONEq(t, `{"title": "Basics"}`, payload)
}

func TestExtractJSONFromProseWrappedArray(t *testing.T) {
	raw := "Here are the modules you asked for:\n[{\"title\": \"Basics\"}]\nLet me know if you need more."

	payload, err := ExtractJSON(raw)
	require.NoError(t, err)
	require.JSONEq(t, `[{"title": "Basics"}]`, payload)
}

func TestExtractJSONPrefersEarliestDocument(t *testing.T) {
	raw := `[{"note": "braces { inside } strings"}]`

	payload, err := ExtractJSON(raw)
	require.NoError(t, err)
	require.JSONEq(t, raw, payload)
}

func TestExtractJSONRejectsMissingDocument(t *testing.T) {
	for _, raw := range []string{"", "   ", "no json here", "}{", "]["} {
		_, err := ExtractJSON(raw)
		require.ErrorIs(t, err, ErrInvalidPayload, "input %q", raw)
	}
}
