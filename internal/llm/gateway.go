// Package llm wraps the OpenRouter chat-completion API behind a small
// gateway with ordered model fallback. Every failure is classified and
// returned as a Result value; the gateway never propagates provider errors
// to its callers.
package llm

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"newsrelay/internal/logger"
	"newsrelay/internal/ratelimit"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// completion is the provider call, extracted so tests can stub the client.
type completion interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Gateway struct {
	client  completion
	models  []string
	budget  *ratelimit.Budget
	timeout time.Duration
}

type Options struct {
	APIKey   string
	BaseURL  string // empty means OpenRouter
	Models   []string
	SiteURL  string
	SiteName string
	Budget   *ratelimit.Budget
	Timeout  time.Duration
}

func New(opts Options) *Gateway {
	conf := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		conf.BaseURL = opts.BaseURL
	} else {
		conf.BaseURL = openRouterBaseURL
	}
	conf.HTTPClient = &http.Client{
		Transport: &attributionTransport{
			referer: opts.SiteURL,
			title:   opts.SiteName,
			base:    http.DefaultTransport,
		},
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Gateway{
		client:  openai.NewClientWithConfig(conf),
		models:  opts.Models,
		budget:  opts.Budget,
		timeout: timeout,
	}
}

// attributionTransport adds the OpenRouter attribution headers to every
// request.
type attributionTransport struct {
	referer string
	title   string
	base    http.RoundTripper
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		req.Header.Set("X-Title", t.title)
	}
	return t.base.RoundTrip(req)
}

// Complete asks the configured models, in order, for a completion of prompt.
// A rate-limit failure on a non-last model falls through to the next model
// immediately; an empty response does the same. Any other failure class is
// logged with a remediation hint and returned as-is. schema may be nil for
// free-form text.
func (g *Gateway) Complete(ctx context.Context, prompt string, schema *Schema) Result {
	if g.budget != nil && !g.budget.Allow() {
		return Failure(FailureRateLimited)
	}

	req := openai.ChatCompletionRequest{
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if schema != nil {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schema.Name,
				Schema: schema,
				Strict: true,
			},
		}
	}

	for i, model := range g.models {
		last := i == len(g.models)-1
		req.Model = model

		cctx, cancel := context.WithTimeout(ctx, g.timeout)
		resp, err := g.client.CreateChatCompletion(cctx, req)
		cancel()
		if g.budget != nil {
			g.budget.Record()
		}

		if err != nil {
			kind := classify(err)
			if kind == FailureRateLimited && !last {
				logger.Debug("model rate limited, falling back", "model", model)
				continue
			}
			logger.Warn("model call failed",
				"model", model, "kind", kind.String(), "hint", remediationHint(kind), "error", err)
			return Failure(kind)
		}

		content := ""
		if len(resp.Choices) > 0 {
			content = resp.Choices[0].Message.Content
		}
		if strings.TrimSpace(content) == "" {
			// Malformed or empty provider response: soft failure, next model.
			logger.Warn("model returned no content", "model", model)
			if last {
				return Failure(FailureEmpty)
			}
			continue
		}

		return Success(collapseBlankLines(content))
	}

	return Failure(FailureEmpty)
}

func classify(err error) FailureKind {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return kindFromStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return kindFromStatus(reqErr.HTTPStatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return FailureTimeout
		}
		return FailureConnection
	}
	return FailureOther
}

func kindFromStatus(status int) FailureKind {
	switch {
	case status == http.StatusTooManyRequests:
		return FailureRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return FailureAuth
	case status >= 400 && status < 500:
		return FailureBadRequest
	case status >= 500:
		return FailureServer
	}
	return FailureOther
}

// collapseBlankLines trims pathological whitespace some models emit: runs of
// blank lines are reduced to at most two once a response looks suspicious
// (triple newline or an excessive line count).
func collapseBlankLines(text string) string {
	if !strings.Contains(text, "\n\n\n") && strings.Count(text, "\n") <= 100 {
		return text
	}

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	consecutiveEmpty := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			consecutiveEmpty++
			if consecutiveEmpty <= 2 {
				cleaned = append(cleaned, line)
			}
			continue
		}
		consecutiveEmpty = 0
		cleaned = append(cleaned, line)
	}
	return strings.Join(cleaned, "\n")
}
