package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	defaultEndpoint  = "https://translate.google.com/translate_tts"
	defaultLanguage  = "en"
	defaultOutputDir = "data/output_audio"
	defaultTimeout   = 30 * time.Second

	// maxChunkLen bounds the text sent per request; the provider rejects
	// long queries, so replies are split on word boundaries and the MP3
	// chunks concatenated.
	maxChunkLen = 200
)

// Config contains synthesis client configuration
type Config struct {
	Endpoint  string
	Language  string
	OutputDir string
	Timeout   time.Duration
}

// Stats represents synthesis statistics
type Stats struct {
	Requests uint64 `json:"requests"`
	Failures uint64 `json:"failures"`
}

// Client converts reply text into a per-session MP3 artifact using the
// Google Translate TTS endpoint. It requires outbound network reachability;
// every provider failure degrades to an empty path.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger

	// Statistics
	mu       sync.Mutex
	requests uint64
	failures uint64
}

// NewClient creates a synthesis client, applying defaults for zero values
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// ArtifactName returns the deterministic per-session artifact filename
func ArtifactName(sessionID string) string {
	return fmt.Sprintf("tutor_reply_%s.mp3", sessionID)
}

// Synthesize converts text into speech and writes the session's MP3 artifact,
// overwriting any previous artifact for the session. It returns the artifact
// path, or an empty string on any failure; callers must treat an empty path
// as "no audio available", not as a fatal condition.
func (c *Client) Synthesize(ctx context.Context, text, sessionID string) string {
	c.mu.Lock()
	c.requests++
	c.mu.Unlock()

	if strings.TrimSpace(text) == "" {
		return c.fail("empty text", nil)
	}

	var audio bytes.Buffer
	for _, chunk := range splitText(text, maxChunkLen) {
		data, err := c.fetchChunk(ctx, chunk)
		if err != nil {
			return c.fail("provider request failed", err)
		}
		audio.Write(data)
	}

	if err := os.MkdirAll(c.config.OutputDir, 0755); err != nil {
		return c.fail("failed to create output directory", err)
	}

	path := filepath.Join(c.config.OutputDir, ArtifactName(sessionID))
	if err := os.WriteFile(path, audio.Bytes(), 0644); err != nil {
		return c.fail("failed to write artifact", err)
	}

	c.logger.Debug("Synthesized reply audio",
		slog.String("path", path),
		slog.Int("bytes", audio.Len()),
	)

	return path
}

// fetchChunk requests the MP3 audio for one chunk of text
func (c *Client) fetchChunk(ctx context.Context, text string) ([]byte, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", c.config.Language)
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// fail records a failure and returns the empty sentinel path
func (c *Client) fail(msg string, err error) string {
	c.mu.Lock()
	c.failures++
	c.mu.Unlock()

	attrs := []any{slog.String("reason", msg)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	c.logger.Warn("Speech synthesis failed", attrs...)

	return ""
}

// Stats returns current synthesis statistics
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Requests: c.requests, Failures: c.failures}
}

// splitText splits text into chunks of at most maxLen runes, breaking on
// whitespace where possible. A single word longer than maxLen is cut hard.
func splitText(text string, maxLen int) []string {
	var chunks []string
	var current strings.Builder

	for _, word := range strings.Fields(text) {
		if len([]rune(word)) > maxLen && current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		for len([]rune(word)) > maxLen {
			runes := []rune(word)
			chunks = append(chunks, string(runes[:maxLen]))
			word = string(runes[maxLen:])
		}

		if current.Len() == 0 {
			current.WriteString(word)
			continue
		}

		if len([]rune(current.String()))+1+len([]rune(word)) > maxLen {
			chunks = append(chunks, current.String())
			current.Reset()
			current.WriteString(word)
		} else {
			current.WriteString(" ")
			current.WriteString(word)
		}
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}
