package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"server/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Options{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func imageResponse(data string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{
					{"text": "here is your image"},
					{"inlineData": map[string]any{"mimeType": "image/png", "data": data}},
				},
			},
		}},
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestTransformRequestShape(t *testing.T) {
	want := []byte{0x89, 'P', 'N', 'G'}
	var captured geminiGenerateContentRequest

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key query param")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(imageResponse(base64.StdEncoding.EncodeToString(want)))
	})

	got, err := client.Transform(context.Background(), []byte{1, 2, 3}, "image/jpeg", "a prompt")
	if err != nil {
		t.Fatalf("Transform returned error: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("image bytes mismatch: got %v want %v", got, want)
	}

	cfg := captured.GenerationConfig
	if cfg == nil {
		t.Fatal("generation config missing")
	}
	if cfg.Temperature != 1 || cfg.TopP != 0.95 || cfg.TopK != 40 || cfg.MaxOutputTokens != 8192 {
		t.Fatalf("unexpected sampling config: %+v", cfg)
	}
	if len(cfg.ResponseModalities) != 2 || cfg.ResponseModalities[0] != "Text" || cfg.ResponseModalities[1] != "Image" {
		t.Fatalf("unexpected response modalities: %v", cfg.ResponseModalities)
	}
	if len(captured.Contents) != 1 || len(captured.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected contents shape: %+v", captured.Contents)
	}
	if captured.Contents[0].Parts[0].InlineData == nil {
		t.Fatal("first part must carry the source image")
	}
	if captured.Contents[0].Parts[1].Text != "a prompt" {
		t.Fatalf("prompt mismatch: %q", captured.Contents[0].Parts[1].Text)
	}
}

func TestTransformRateLimitClassification(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Transform(context.Background(), []byte{1}, "image/png", "p")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestTransformNoImageData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": "only text"}},
				},
			}},
		})
	})

	_, err := client.Transform(context.Background(), []byte{1}, "image/png", "p")
	if !errors.Is(err, domain.ErrNoImageData) {
		t.Fatalf("expected ErrNoImageData, got %v", err)
	}
	if errors.Is(err, domain.ErrRateLimited) {
		t.Fatal("no-image failure must not classify as rate limited")
	}
}

func TestTransformGenericFailureCarriesStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 400, "message": "invalid argument"},
		})
	})

	_, err := client.Transform(context.Background(), []byte{1}, "image/png", "p")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, domain.ErrRateLimited) {
		t.Fatal("generic failure must not classify as rate limited")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "invalid argument") {
		t.Fatalf("error should carry status and body: %v", err)
	}
}

func TestAnalyzeFlattensToSingleParagraph(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": "A person\nsmiling.\n\nBrick wall behind."}},
				},
			}},
		})
	})

	got, err := client.Analyze(context.Background(), []byte{1, 2}, "image/jpeg")
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	want := "A person smiling. Brick wall behind."
	if got != want {
		t.Fatalf("description mismatch: got %q want %q", got, want)
	}
}

func TestAnalyzeRateLimitClassification(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.Analyze(context.Background(), []byte{1}, "image/png")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}
