package state

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

	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidSession = errors.New("session id is empty")
)

const (
	defaultContextKeyPrefix = "support:session:"
	defaultContextKeySuffix = ":static_context"
	maxResponseSizeBytes    = 2 << 20
)

// UpstashOption customizes UpstashContextStore.
type UpstashOption func(*UpstashContextStore)

// WithTTL bounds how long a cached entry survives without being read. Use the
// session timeout: every hit extends the entry, so it lives as long as its
// session stays active.
func WithTTL(ttl time.Duration) UpstashOption {
	return func(s *UpstashContextStore) {
		s.ttl = ttl
	}
}

func WithHTTPClient(client *http.Client) UpstashOption {
	return func(s *UpstashContextStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashContextStore keeps per-session static context in Upstash Redis via
// REST, keyed strictly by session id.
type UpstashContextStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	ttl        time.Duration
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func (c UpstashRedisConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

func NewUpstashContextStore(cfg UpstashRedisConfig, opts ...UpstashOption) (*UpstashContextStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashContextStore{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		ttl:        DefaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return store, nil
}

// Get reports the cached context for sessionID; ok is false when nothing has
// been cached yet. A hit resets the entry's TTL.
func (s *UpstashContextStore) Get(ctx context.Context, sessionID string) (string, bool, error) {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return "", false, err
	}

	cmd := []any{"GET", key}
	if s.ttl > 0 {
		cmd = []any{"GETEX", key, "EX", ttlSeconds(s.ttl)}
	}
	resp, err := s.exec(ctx, cmd)
	if err != nil {
		return "", false, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return "", false, nil
	}

	var content string
	if err := json.Unmarshal(result, &content); err != nil {
		return "", false, fmt.Errorf("decode cached context: %w", err)
	}
	return content, true, nil
}

func (s *UpstashContextStore) Put(ctx context.Context, sessionID string, content string) error {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return err
	}

	cmd := []any{"SET", key, content}
	if s.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(s.ttl))
	}
	_, err = s.exec(ctx, cmd)
	return err
}

func (s *UpstashContextStore) Delete(ctx context.Context, sessionID string) error {
	key, err := s.redisKey(sessionID)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, []any{"DEL", key})
	return err
}

// Forget drops the entry of an evicted session. It is meant for
// WithEvictionHook; failures are logged and the TTL cleans up eventually.
func (s *UpstashContextStore) Forget(sessionID string) {
	timeout := s.httpClient.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Delete(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("drop cached context failed")
	}
}

func (s *UpstashContextStore) redisKey(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidSession
	}
	return defaultContextKeyPrefix + sessionID + defaultContextKeySuffix, nil
}

func (s *UpstashContextStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if s == nil {
		return nil, errors.New("nil store")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
