package extract

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/studiora/studiora-api/internal/models"
)

func testExtractor() *LinkExtractor {
	return NewLinkExtractor(2*time.Second, zerolog.New(io.Discard))
}

func TestExtractTextStripsMarkup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><script>evil()</script><h1>Go Basics</h1><p>Channels carry values.</p></body></html>`))
	}))
	defer server.Close()

	material := models.Material{Type: models.MaterialTypeLink, FileURL: server.URL}
	text, err := testExtractor().ExtractText(context.Background(), material)
	require.NoError(t, err)
	require.Contains(t, text, "Go Basics")
	require.Contains(t, text, "Channels carry values.")
	require.NotContains(t, text, "evil")
	require.NotContains(t, text, "<h1>")
}

func TestExtractTextRejectsNonLinkMaterials(t *testing.T) {
	material := models.Material{Type: models.MaterialTypePDF, FileURL: "https://example.com/doc.pdf"}

	_, err := testExtractor().ExtractText(context.Background(), material)
	require.Error(t, err)
	require.Contains(t, err.Error(), "external extraction pipeline")
}

func TestExtractTextFailsOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	material := models.Material{Type: models.MaterialTypeLink, FileURL: server.URL}
	_, err := testExtractor().ExtractText(context.Background(), material)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status 404")
}

func TestExtractTextFailsOnEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body><script>only()</script></body></html>"))
	}))
	defer server.Close()

	material := models.Material{Type: models.MaterialTypeLink, FileURL: server.URL}
	_, err := testExtractor().ExtractText(context.Background(), material)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no text")
}
