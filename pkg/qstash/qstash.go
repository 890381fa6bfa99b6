package qstash

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultURL      = "https://qstash.upstash.io"
	SignatureHeader = "Upstash-Signature"
)

type Config struct {
	URL               string        `split_words:"true" default:"https://qstash.upstash.io"`
	Token             string        `split_words:"true"`
	CurrentSigningKey string        `split_words:"true"`
	NextSigningKey    string        `split_words:"true"`
	Timeout           time.Duration `split_words:"true" default:"10s"`

	// CleanupCron schedules POST /sessions/cleanup when set together with a
	// public base URL.
	CleanupCron string `split_words:"true"`
}

// SigningEnabled reports whether inbound requests must carry a signature.
func (c Config) SigningEnabled() bool {
	return strings.TrimSpace(c.CurrentSigningKey) != "" || strings.TrimSpace(c.NextSigningKey) != ""
}

type Client struct {
	baseURL    string
	token      string
	verifier   *Verifier
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		baseURL = DefaultURL
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	if cfg.SigningEnabled() {
		client.verifier = NewVerifier(cfg.CurrentSigningKey, cfg.NextSigningKey)
	}

	return client, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// Verifier returns nil when no signing keys are configured.
func (c *Client) Verifier() *Verifier {
	return c.verifier
}

type scheduleResponse struct {
	ScheduleID string `json:"scheduleId"`
}

// RegisterSchedule asks QStash to POST to destination on the given cron
// expression and returns the schedule id.
func (c *Client) RegisterSchedule(ctx context.Context, destination, cron string) (string, error) {
	if c.token == "" {
		return "", errors.New("qstash token is required to register schedules")
	}
	destination = strings.TrimSpace(destination)
	if _, err := url.ParseRequestURI(destination); err != nil {
		return "", fmt.Errorf("invalid schedule destination: %w", err)
	}
	if strings.TrimSpace(cron) == "" {
		return "", errors.New("schedule cron is required")
	}

	endpoint := c.baseURL + "/v2/schedules/" + destination
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(nil))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Upstash-Cron", strings.TrimSpace(cron))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("qstash register schedule: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("qstash read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("qstash register schedule: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out scheduleResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("qstash decode response: %w", err)
	}
	return out.ScheduleID, nil
}
