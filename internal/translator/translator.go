// Package translator turns source text into per-language output maps via the
// model gateway. Two policies coexist:
//
//   - the lenient path always covers every language, substituting the
//     original text when a translation fails (availability over fidelity,
//     used for alerts and scheduled feed items);
//   - the hardened path only emits languages whose structured output
//     verified, and aborts entirely when the summary step fails
//     (correctness over availability, used for unattended realtime news).
package translator

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"newsrelay/internal/language"
	"newsrelay/internal/llm"
	"newsrelay/internal/logger"
	"newsrelay/internal/metrics"
)

// Gateway is the completion capability the service needs.
type Gateway interface {
	Complete(ctx context.Context, prompt string, schema *llm.Schema) llm.Result
}

type Service struct {
	gw Gateway
}

func New(gw Gateway) *Service {
	return &Service{gw: gw}
}

// TranslateToAll returns a map covering the full language set: the source
// text under src and a translation (or, on failure, the original text) for
// every other language. Target calls run concurrently; one failure never
// blocks or cancels the rest.
func (s *Service) TranslateToAll(ctx context.Context, text string, src language.Code) map[language.Code]string {
	targets := language.Targets(src)
	results := make(map[language.Code]string, len(targets)+1)
	results[src] = text

	type outcome struct {
		lang language.Code
		text string
	}
	ch := make(chan outcome, len(targets))
	for _, target := range targets {
		go func(target language.Code) {
			ch <- outcome{target, s.translateLenient(ctx, text, src, target)}
		}(target)
	}
	for range targets {
		o := <-ch
		results[o.lang] = o.text
	}
	return results
}

func (s *Service) translateLenient(ctx context.Context, text string, src, target language.Code) string {
	res := s.gw.Complete(ctx, alertTranslationPrompt(text, src, target), nil)
	if !res.OK() || strings.TrimSpace(res.Text) == "" {
		logger.Warn("translation failed, delivering original text", "target", target.Name())
		metrics.Global.IncrementFailedTranslations()
		return text
	}
	metrics.Global.IncrementSuccessfulTranslations()
	return strings.TrimSpace(res.Text)
}

// SummarizeAndTranslate is the hardened path. It first asks for a verified
// structured summary in the source language; any extraction failure aborts
// with an empty map. Targets that fail verification are simply absent from
// the result, so callers must treat a missing key as "do not deliver".
func (s *Service) SummarizeAndTranslate(ctx context.Context, text string, src language.Code) map[language.Code]string {
	summary, ok := s.summarize(ctx, text, src)
	if !ok {
		logger.Warn("summary step failed, dropping event entirely", "lang", src.Name())
		return map[language.Code]string{}
	}

	targets := language.Targets(src)
	results := make(map[language.Code]string, len(targets)+1)
	results[src] = summary

	type outcome struct {
		lang language.Code
		text string
		ok   bool
	}
	ch := make(chan outcome, len(targets))
	for _, target := range targets {
		go func(target language.Code) {
			translated, ok := s.translateVerified(ctx, summary, src, target)
			ch <- outcome{target, translated, ok}
		}(target)
	}
	for range targets {
		o := <-ch
		if o.ok {
			results[o.lang] = o.text
		} else {
			logger.Warn("skipping language, verified translation failed", "target", o.lang.Name())
		}
	}
	return results
}

func (s *Service) summarize(ctx context.Context, text string, src language.Code) (string, bool) {
	schema := llm.ObjectSchema("news_summary",
		map[string]any{"summary": llm.StringProperty("concise factual summary in the source language")},
		[]string{"summary"})

	res := s.gw.Complete(ctx, summaryPrompt(text, src), schema)
	if !res.OK() {
		metrics.Global.IncrementFailedTranslations()
		return "", false
	}

	var parsed struct {
		Summary string `json:"summary"`
	}
	raw, ok := extractJSON(res.Text)
	if !ok {
		logger.Warn("could not extract JSON from summary response")
		metrics.Global.IncrementFailedTranslations()
		return "", false
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		logger.Warn("could not parse summary JSON", "error", err)
		metrics.Global.IncrementFailedTranslations()
		return "", false
	}
	summary := strings.TrimSpace(parsed.Summary)
	if summary == "" {
		logger.Warn("summary JSON was empty")
		metrics.Global.IncrementFailedTranslations()
		return "", false
	}
	metrics.Global.IncrementSuccessfulTranslations()
	return summary, true
}

func (s *Service) translateVerified(ctx context.Context, text string, src, target language.Code) (string, bool) {
	schema := llm.ObjectSchema("translation",
		map[string]any{"translation": llm.StringProperty("the translated text, nothing else")},
		[]string{"translation"})

	res := s.gw.Complete(ctx, structuredTranslationPrompt(text, src, target), schema)
	if !res.OK() {
		metrics.Global.IncrementFailedTranslations()
		return "", false
	}

	raw, ok := extractJSON(res.Text)
	if !ok {
		metrics.Global.IncrementFailedTranslations()
		return "", false
	}
	var parsed struct {
		Translation string `json:"translation"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		metrics.Global.IncrementFailedTranslations()
		return "", false
	}
	translated := strings.TrimSpace(parsed.Translation)
	if translated == "" {
		metrics.Global.IncrementFailedTranslations()
		return "", false
	}
	metrics.Global.IncrementSuccessfulTranslations()
	return translated, true
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSON pulls the JSON object out of a raw model response, tolerating
// surrounding commentary the model was asked not to produce.
func extractJSON(raw string) (string, bool) {
	match := jsonObjectPattern.FindString(raw)
	if match == "" {
		return "", false
	}
	return match, true
}
