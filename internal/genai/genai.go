// Package genai provides chat completions against an OpenAI-compatible
// endpoint (DeepSeek by default) using the openai-go SDK.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Defaults for the DeepSeek chat API.
const (
	DefaultBaseURL     = "https://api.deepseek.com/v1"
	DefaultModel       = "deepseek-chat"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4000
	DefaultTimeout     = 120 * time.Second
	DefaultMaxRetries  = 2
)

// ErrNoChoicesReturned is returned when the completion envelope has no choices.
var ErrNoChoicesReturned = errors.New("no choices returned")

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// completionsAdapter adapts the SDK completions service to chatService.
type completionsAdapter struct {
	svc *openai.ChatCompletionService
}

func (a completionsAdapter) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := a.svc.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	if resp == nil {
		return openai.ChatCompletion{}, ErrNoChoicesReturned
	}
	return *resp, nil
}

// Opts holds configuration for the GenAI client.
type Opts struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
	DebugMode   bool
	StateDir    string
}

// Option configures the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option { return func(o *Opts) { o.APIKey = key } }

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option { return func(o *Opts) { o.BaseURL = url } }

// WithModel sets the model name.
func WithModel(model string) Option { return func(o *Opts) { o.Model = model } }

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option { return func(o *Opts) { o.Temperature = t } }

// WithMaxTokens sets the default completion budget.
func WithMaxTokens(n int) Option { return func(o *Opts) { o.MaxTokens = n } }

// WithTimeout bounds every request, retries included.
func WithTimeout(d time.Duration) Option { return func(o *Opts) { o.Timeout = d } }

// WithMaxRetries sets how many times the SDK retries transient failures.
func WithMaxRetries(n int) Option { return func(o *Opts) { o.MaxRetries = n } }

// WithDebug enables writing each request/response pair as JSON under stateDir/debug.
func WithDebug(stateDir string) Option {
	return func(o *Opts) {
		o.DebugMode = true
		o.StateDir = stateDir
	}
}

// Client wraps the chat completion service.
type Client struct {
	chat        chatService
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	debugMode   bool
	stateDir    string
}

// NewClient initializes a new GenAI client. An API key is required.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		BaseURL:     DefaultBaseURL,
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("LLM API key not set")
	}

	cli := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	)
	slog.Debug("genai.NewClient: client created", "baseURL", cfg.BaseURL, "model", cfg.Model, "timeout", cfg.Timeout, "debug", cfg.DebugMode)

	return &Client{
		chat:        completionsAdapter{svc: &cli.Chat.Completions},
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		debugMode:   cfg.DebugMode,
		stateDir:    cfg.StateDir,
	}, nil
}

// Complete sends messages and returns the first choice's text. maxTokens <= 0
// uses the client default.
func (c *Client) Complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    toParams(messages),
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
	}

	start := time.Now()
	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("Client.Complete: completion failed", "error", err, "model", c.model, "elapsed", time.Since(start))
		c.writeDebug("Complete", messages, maxTokens, "", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		slog.Warn("Client.Complete: no choices returned", "model", c.model)
		c.writeDebug("Complete", messages, maxTokens, "", ErrNoChoicesReturned)
		return "", ErrNoChoicesReturned
	}

	content := resp.Choices[0].Message.Content
	slog.Debug("Client.Complete: completion received", "model", c.model, "chars", len(content), "elapsed", time.Since(start))
	c.writeDebug("Complete", messages, maxTokens, content, nil)
	return content, nil
}

func toParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

type debugEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Method    string                 `json:"method"`
	Model     string                 `json:"model"`
	Params    map[string]interface{} `json:"params"`
	Response  string                 `json:"response"`
	Error     string                 `json:"error,omitempty"`
}

// writeDebug persists the exchange when debug mode is on. Failures are logged only.
func (c *Client) writeDebug(method string, messages []Message, maxTokens int, response string, callErr error) {
	if !c.debugMode || c.stateDir == "" {
		return
	}
	dir := filepath.Join(c.stateDir, "debug")
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Warn("Client.writeDebug: cannot create debug dir", "error", err, "dir", dir)
		return
	}
	entry := debugEntry{
		Timestamp: time.Now(),
		Method:    method,
		Model:     c.model,
		Params: map[string]interface{}{
			"messages":    messages,
			"max_tokens":  maxTokens,
			"temperature": c.temperature,
		},
		Response: response,
	}
	if callErr != nil {
		entry.Error = callErr.Error()
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		slog.Warn("Client.writeDebug: marshal failed", "error", err)
		return
	}
	name := fmt.Sprintf("%s_%s_%s.json", entry.Timestamp.Format("20060102T150405"), strings.ToLower(method), uuid.NewString()[:8])
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		slog.Warn("Client.writeDebug: write failed", "error", err)
	}
}
