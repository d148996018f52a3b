package shortener

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m3rciful/postbot/core/logger"
)

// Config declares the external shortener endpoint.
type Config struct {
	Endpoint       string `yaml:"endpoint" envconfig:"SHORTENER_ENDPOINT"`
	APIKey         string `yaml:"api_key" envconfig:"SHORTENER_API_KEY"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"SHORTENER_TIMEOUT_SECONDS"`
}

// Client shortens URLs through a ShrinkEarn-style text API.
// Every failure path degrades to the original URL.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// New builds a Client. With an empty endpoint or API key the client
// acts as the identity shortener.
func New(cfg Config) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: strings.TrimSpace(cfg.Endpoint),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		http:     &http.Client{Timeout: timeout},
	}
}

// Shorten maps longURL to a shortened URL. On timeout, transport
// failure, non-200 status, or empty body it returns longURL unchanged.
func (c *Client) Shorten(ctx context.Context, longURL string) string {
	if c == nil || c.endpoint == "" || c.apiKey == "" || longURL == "" {
		return longURL
	}

	api := c.endpoint + "?api=" + url.QueryEscape(c.apiKey) +
		"&url=" + url.QueryEscape(longURL) + "&format=text"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api, nil)
	if err != nil {
		return longURL
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.SVCShortener.Warn("shorten failed",
			slog.String("event", "shorten.fallback"),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
		return longURL
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.SVCShortener.Warn("shorten failed",
			slog.String("event", "shorten.fallback"),
			slog.Int("status", resp.StatusCode),
		)
		return longURL
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return longURL
	}
	short := strings.TrimSpace(string(body))
	if short == "" {
		return longURL
	}
	return short
}
