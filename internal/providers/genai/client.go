package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/infra"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	AnalyzeModel string
	HTTPClient   *http.Client
	Logger       *infra.Logger
}

// Client provides a lightweight facade over the Gemini generateContent
// API with the two operations the pipeline needs: Analyze (image to
// text description) and Transform (image plus prompt to stylized image).
// Upstream HTTP 429 responses are surfaced as domain.ErrRateLimited so
// the consumer can apply its redelivery policy instead of failing the
// job terminally.
type Client struct {
	apiKey       string
	baseURL      string
	model        string
	analyzeModel string
	httpClient   *http.Client
	logger       *infra.Logger
}

// analyzeInstruction steers the model toward a description that helps the
// transform step avoid reproducing identifiable real people verbatim.
const analyzeInstruction = "You are an AI assistant that creates a description of the image. " +
	"Output only text, no markdown or other formatting. About 300 words. Single paragraph. " +
	"This is a realistic photo; to ensure we do not replicate it by accident, describe the " +
	"people in this image as well as the background. Focus on facial expressions and clothing."

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature        float64  `json:"temperature,omitempty"`
	TopP               float64  `json:"topP,omitempty"`
	TopK               int      `json:"topK,omitempty"`
	MaxOutputTokens    int      `json:"maxOutputTokens,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may
// provide a nil HTTP client; a reusable one with sensible timeouts will
// be created.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.0-flash-exp-image-generation"
	}
	analyzeModel := opts.AnalyzeModel
	if analyzeModel == "" {
		analyzeModel = "gemini-2.0-flash"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:       apiKey,
		baseURL:      baseURL,
		model:        model,
		analyzeModel: analyzeModel,
		httpClient:   client,
		logger:       logger,
	}, nil
}

// Model returns the configured transform model identifier.
func (c *Client) Model() string {
	return c.model
}

// Analyze produces a bounded natural-language description of the image:
// a single paragraph covering people, facial expressions, clothing, and
// background.
func (c *Client) Analyze(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(imageData),
				}},
				{Text: analyzeInstruction},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 2048,
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, c.analyzeModel, payload, &response); err != nil {
		return "", fmt.Errorf("analyze image: %w", err)
	}

	text := firstText(response)
	if text == "" {
		return "", fmt.Errorf("analyze image: empty description: %w", domain.ErrProviderFailure)
	}

	// Single paragraph per contract: flatten whatever line breaks the
	// model produced.
	return strings.Join(strings.Fields(text), " "), nil
}

// Transform sends the source image together with the generation prompt
// and returns the bytes of the first image payload in the response.
// A response without image data is a distinct failure
// (domain.ErrNoImageData), not a transport error.
func (c *Client) Transform(ctx context.Context, imageData []byte, mimeType, prompt string) ([]byte, error) {
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{InlineData: &geminiInlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(imageData),
				}},
				{Text: prompt},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:        1,
			TopP:               0.95,
			TopK:               40,
			MaxOutputTokens:    8192,
			ResponseModalities: []string{"Text", "Image"},
		},
	}

	var response geminiGenerateContentResponse
	if err := c.invoke(ctx, c.model, payload, &response); err != nil {
		return nil, fmt.Errorf("transform image: %w", err)
	}

	encoded := firstInlineImage(response)
	if encoded == "" {
		c.logger.Error().Str("model", c.model).Msg("genai: response carried no image payload")
		return nil, domain.ErrNoImageData
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return data, nil
}

func (c *Client) invoke(ctx context.Context, model string, payload any, out any) error {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(model))
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		c.logger.Warn().Str("model", model).Msg("genai: upstream rate limit")
		return fmt.Errorf("gemini status 429: %w", domain.ErrRateLimited)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func firstText(response geminiGenerateContentResponse) string {
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

// firstInlineImage extracts the first inline image payload from the
// first candidate.
func firstInlineImage(response geminiGenerateContentResponse) string {
	if len(response.Candidates) == 0 {
		return ""
	}
	for _, part := range response.Candidates[0].Content.Parts {
		if part.InlineData != nil && part.InlineData.Data != "" {
			return part.InlineData.Data
		}
	}
	return ""
}
