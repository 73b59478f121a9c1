// Package imagegen requests character portraits from an OpenAI-compatible
// images endpoint.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/duskhollow/server/config"
)

// ErrDisabled is returned when no API key is configured.
var ErrDisabled = errors.New("image generation is disabled")

// Generator turns a prompt into an image URL.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client calls POST {base_url}/v1/images/generations.
type Client struct {
	cfg        config.ImageGenConfig
	httpClient *http.Client
}

// New builds a Client. A nil httpClient gets one with the configured timeout.
func New(cfg config.ImageGenConfig, httpClient *http.Client) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "dall-e-3"
	}
	if cfg.Size == "" {
		cfg.Size = "1024x1024"
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Enabled reports whether an API key is set.
func (c *Client) Enabled() bool { return strings.TrimSpace(c.cfg.APIKey) != "" }

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}

	body, err := json.Marshal(map[string]any{
		"model":  c.cfg.Model,
		"prompt": prompt,
		"n":      1,
		"size":   c.cfg.Size,
	})
	if err != nil {
		return "", fmt.Errorf("marshal image request: %w", err)
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/images/generations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", fmt.Errorf("image request status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload struct {
		Data []struct {
			URL     string `json:"url"`
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode image response: %w", err)
	}
	for _, d := range payload.Data {
		if u := strings.TrimSpace(d.URL); u != "" {
			return u, nil
		}
		if d.B64JSON != "" {
			return "data:image/png;base64," + d.B64JSON, nil
		}
	}
	return "", fmt.Errorf("image response has no data")
}

// PortraitPrompt builds the default prompt for a character portrait.
func PortraitPrompt(name, class string, level int) string {
	return fmt.Sprintf("Fantasy RPG portrait of %s, a level %d %s, dark dungeon background, painterly style",
		name, level, class)
}
