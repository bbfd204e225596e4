// Package gemini reads CD photos with Google Gemini. Images are downloaded
// and sent inline because the Gemini API does not fetch arbitrary URLs.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const maxImageBytes = 20 << 20

// Config captures the Gemini connection settings.
type Config struct {
	APIKey         string
	Model          string
	TimeoutSeconds int
}

// Client sends vision prompts to Gemini.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the client used to download images.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New constructs a Gemini client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key required")
	}
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Model == "" {
		return nil, errors.New("gemini model required")
	}
	timeout := 30 * time.Second
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// CompleteVisionJSON downloads the images, sends them with the prompts and
// returns the model's text reply.
func (c *Client) CompleteVisionJSON(ctx context.Context, systemPrompt, userPrompt string, imageURLs []string) (string, error) {
	parts := make([]genai.Part, 0, len(imageURLs)+1)
	parts = append(parts, genai.Text(strings.TrimSpace(userPrompt)))
	for _, raw := range imageURLs {
		format, data, err := c.download(ctx, raw)
		if err != nil {
			return "", err
		}
		parts = append(parts, genai.ImageData(format, data))
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.cfg.APIKey))
	if err != nil {
		return "", fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.cfg.Model)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"
	if prompt := strings.TrimSpace(systemPrompt); prompt != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(prompt))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return responseText(resp)
}

// HealthCheck verifies the key and model with a text-only request.
func (c *Client) HealthCheck(ctx context.Context) error {
	content, err := c.CompleteVisionJSON(ctx, "You must respond with JSON only.", `Respond with {"ok":true}`, nil)
	if err != nil {
		return fmt.Errorf("gemini health: %w", err)
	}
	if !strings.Contains(content, "true") {
		return fmt.Errorf("gemini health: unexpected response %q", content)
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no candidates returned from Gemini")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("empty content returned from Gemini")
	}
	var builder strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			builder.WriteString(string(txt))
		}
	}
	if builder.Len() == 0 {
		return "", errors.New("unexpected response format from Gemini")
	}
	return builder.String(), nil
}

// download fetches an image and returns its genai format name ("jpeg", "png", ...).
func (c *Client) download(ctx context.Context, rawURL string) (string, []byte, error) {
	rawURL = strings.TrimSpace(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("build image request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("download image %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("download image %s returned %d", rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", nil, fmt.Errorf("read image %s: %w", rawURL, err)
	}
	if len(data) > maxImageBytes {
		return "", nil, fmt.Errorf("image %s exceeds %d bytes", rawURL, maxImageBytes)
	}
	format, err := imageFormat(resp.Header.Get("Content-Type"), data)
	if err != nil {
		return "", nil, fmt.Errorf("image %s: %w", rawURL, err)
	}
	return format, data, nil
}

func imageFormat(contentType string, data []byte) (string, error) {
	mime := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	switch mime {
	case "image/jpeg", "image/jpg":
		return "jpeg", nil
	case "image/png":
		return "png", nil
	case "image/webp":
		return "webp", nil
	case "image/heic":
		return "heic", nil
	case "image/heif":
		return "heif", nil
	default:
		return "", fmt.Errorf("unsupported image type %q", mime)
	}
}
