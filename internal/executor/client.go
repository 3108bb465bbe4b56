// Package executor is the OneCompiler code execution client used by daily
// problem submissions.
package executor

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

	"learnstack/internal/apperr"
	"learnstack/internal/daily"
	"learnstack/internal/logger"
)

const defaultURL = "https://onecompiler-apis.p.rapidapi.com/api/v1/run"

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client calls the OneCompiler run endpoint through RapidAPI
type Client struct {
	log        *logger.Logger
	cfg        Config
	host       string
	httpClient *http.Client
}

var _ daily.Executor = (*Client)(nil)

func New(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = defaultURL
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid executor url %q", cfg.URL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		log:  log.With("client", "OneCompilerClient"),
		cfg:  cfg,
		host: u.Host,
		// per-call deadlines come from the caller's context
		httpClient: &http.Client{Timeout: cfg.Timeout + 5*time.Second},
	}, nil
}

type runFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type runRequest struct {
	Language string    `json:"language"`
	Stdin    string    `json:"stdin"`
	Files    []runFile `json:"files"`
}

type runResponse struct {
	Status    string  `json:"status"`
	Stdout    *string `json:"stdout"`
	Stderr    *string `json:"stderr"`
	Exception *string `json:"exception"`
}

// Run executes source once with the given stdin
func (c *Client) Run(ctx context.Context, language, stdin, fileName, source string) (daily.ExecutionResult, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(runRequest{
		Language: strings.ToLower(language),
		Stdin:    stdin,
		Files:    []runFile{{Name: fileName, Content: source}},
	})
	if err != nil {
		return daily.ExecutionResult{}, fmt.Errorf("failed to encode run request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return daily.ExecutionResult{}, fmt.Errorf("failed to build run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-RapidAPI-Host", c.host)
	req.Header.Set("X-RapidAPI-Key", c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return daily.ExecutionResult{}, apperr.Wrap(apperr.ExecutionTimeout, "code execution timed out", err)
		}
		c.log.Warn("execution request failed", "error", err)
		return daily.ExecutionResult{}, apperr.Wrap(apperr.ExternalService, "code execution service unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return daily.ExecutionResult{}, apperr.Wrap(apperr.ExternalService, "failed to read execution response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("execution service returned error status",
			"status", resp.StatusCode,
			"body", truncate(string(raw), 200),
		)
		return daily.ExecutionResult{}, apperr.New(apperr.ExternalService,
			fmt.Sprintf("code execution service returned %d", resp.StatusCode))
	}

	var out runResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return daily.ExecutionResult{}, apperr.Wrap(apperr.ExternalService, "malformed execution response", err)
	}

	c.log.Debug("execution finished",
		"language", language,
		"status", out.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return daily.ExecutionResult{
		Stdout:    deref(out.Stdout),
		Stderr:    deref(out.Stderr),
		Exception: deref(out.Exception),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
