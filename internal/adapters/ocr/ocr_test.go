package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRemoteOCR_SendsVisionRequest(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content []struct {
				Type     string `json:"type"`
				Text     string `json:"text"`
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"content"`
		} `json:"messages"`
	}
	var headers http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		headers = r.Header.Clone()
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  OMEGA-123-GAMMA \n"}}]}`)
	}))
	defer server.Close()

	client := NewRemoteOCR(RemoteConfig{Endpoint: server.URL, APIKey: "secret", HeaderID: "route-7"})
	text, err := client.ExtractText(context.Background(), pngHeader)
	require.NoError(t, err)
	assert.Equal(t, "OMEGA-123-GAMMA", text)

	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))
	assert.Equal(t, "route-7", headers.Get("id"))
	assert.Equal(t, DefaultRemoteModel, got.Model)
	assert.Equal(t, 2048, got.MaxTokens)
	assert.Zero(t, got.Temperature)
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Content, 2)
	assert.Equal(t, "Free OCR.", got.Messages[0].Content[0].Text)
	assert.True(t, strings.HasPrefix(got.Messages[0].Content[1].ImageURL.URL, "data:image/png;base64,"))
}

func TestRemoteOCR_RequiresHeaderID(t *testing.T) {
	client := NewRemoteOCR(RemoteConfig{Endpoint: "http://127.0.0.1:0", APIKey: "k"})
	_, err := client.ExtractText(context.Background(), pngHeader)
	assert.ErrorIs(t, err, ErrMissingHeaderID)
}

func TestRemoteOCR_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewRemoteOCR(RemoteConfig{Endpoint: server.URL, APIKey: "k", HeaderID: "h"})
	_, err := client.ExtractText(context.Background(), pngHeader)
	assert.Error(t, err)
}

func TestDataURL_DefaultsToJPEG(t *testing.T) {
	assert.True(t, strings.HasPrefix(dataURL([]byte("raw bytes")), "data:image/jpeg;base64,"))
}

type stubOCR struct {
	text  string
	err   error
	calls int
}

func (s *stubOCR) ExtractText(ctx context.Context, image []byte) (string, error) {
	s.calls++
	return s.text, s.err
}

func TestFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("primary succeeds", func(t *testing.T) {
		primary, secondary := &stubOCR{text: "remote"}, &stubOCR{text: "local"}
		text, err := NewFallback(primary, secondary, quietLogger()).ExtractText(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "remote", text)
		assert.Zero(t, secondary.calls)
	})

	t.Run("primary fails", func(t *testing.T) {
		primary, secondary := &stubOCR{err: errors.New("timeout")}, &stubOCR{text: "local"}
		text, err := NewFallback(primary, secondary, quietLogger()).ExtractText(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "local", text)
	})

	t.Run("no primary", func(t *testing.T) {
		secondary := &stubOCR{text: "local"}
		text, err := NewFallback(nil, secondary, quietLogger()).ExtractText(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "local", text)
	})

	t.Run("nothing configured", func(t *testing.T) {
		_, err := NewFallback(nil, nil, quietLogger()).ExtractText(ctx, nil)
		assert.Error(t, err)
	})

	t.Run("primary only fails", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := NewFallback(&stubOCR{err: boom}, nil, quietLogger()).ExtractText(ctx, nil)
		assert.ErrorIs(t, err, boom)
	})
}

func TestTesseract_MissingBinary(t *testing.T) {
	engine := NewTesseract("definitely-not-tesseract", "")
	assert.Equal(t, "eng", engine.Language)
	_, err := engine.ExtractText(context.Background(), pngHeader)
	assert.Error(t, err)
}
