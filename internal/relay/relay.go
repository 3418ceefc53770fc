// Package relay processes single incoming events from the realtime listener
// and the webhook surface: alerts through the lenient translation path, news
// through the hardened one, with a shared message-id idempotency window.
package relay

import (
	"context"
	"fmt"
	"strings"

	"newsrelay/internal/dedupe"
	"newsrelay/internal/delivery"
	"newsrelay/internal/language"
	"newsrelay/internal/logger"
	"newsrelay/internal/metrics"
)

type Translator interface {
	TranslateToAll(ctx context.Context, text string, src language.Code) map[language.Code]string
	SummarizeAndTranslate(ctx context.Context, text string, src language.Code) map[language.Code]string
}

type Deliverer interface {
	Deliver(ctx context.Context, lang language.Code, text, parseMode string) bool
}

type Processor struct {
	translator Translator
	fanout     Deliverer
	window     *dedupe.Window
}

// New builds a Processor. The window spans both event kinds and both entry
// surfaces, so a message relayed over the realtime socket cannot be replayed
// through the webhook.
func New(translator Translator, fanout Deliverer, window *dedupe.Window) *Processor {
	return &Processor{translator: translator, fanout: fanout, window: window}
}

// ProcessAlert relays an emergency alert to every language group. Alerts use
// the lenient path: a failed translation delivers the original text rather
// than withholding a safety message. The returned map records per-language
// delivery outcomes; duplicate reports that the message id was already
// handled and nothing was done.
func (p *Processor) ProcessAlert(ctx context.Context, text, messageID string, src language.Code) (results map[language.Code]bool, duplicate bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[language.Code]bool{}, false
	}
	if !p.window.MarkIfNew(messageKey("alert", messageID)) {
		logger.Info("duplicate alert ignored", "message_id", messageID)
		metrics.Global.IncrementDuplicatesFiltered()
		return map[language.Code]bool{}, true
	}

	logger.Info("processing alert", "message_id", messageID, "lang", src.Name())
	translations := p.translator.TranslateToAll(ctx, text, src)

	results = make(map[language.Code]bool, len(translations))
	for _, lang := range language.All() {
		rendition, ok := translations[lang]
		if !ok {
			continue
		}
		results[lang] = p.fanout.Deliver(ctx, lang, formatAlert(lang, rendition), delivery.ParseModeMarkdownV2)
	}
	metrics.Global.IncrementAlertsRelayed()
	return results, false
}

// ProcessNews relays a news event through the hardened path: only languages
// with a verified rendition are delivered, and a failed summary drops the
// event entirely. The message id is claimed up front, so a dropped event is
// not retried; unattended re-summarization would re-spend model budget on
// input that already failed once.
func (p *Processor) ProcessNews(ctx context.Context, text, messageID string, src language.Code) (results map[language.Code]bool, duplicate bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return map[language.Code]bool{}, false
	}
	if !p.window.MarkIfNew(messageKey("news", messageID)) {
		logger.Info("duplicate news event ignored", "message_id", messageID)
		metrics.Global.IncrementDuplicatesFiltered()
		return map[language.Code]bool{}, true
	}

	logger.Info("processing news event", "message_id", messageID, "lang", src.Name())
	renditions := p.translator.SummarizeAndTranslate(ctx, text, src)
	if len(renditions) == 0 {
		return map[language.Code]bool{}, false
	}

	results = make(map[language.Code]bool, len(renditions))
	for _, lang := range language.All() {
		rendition, ok := renditions[lang]
		if !ok {
			continue
		}
		results[lang] = p.fanout.Deliver(ctx, lang, formatNews(lang, rendition), delivery.ParseModeMarkdownV2)
	}
	metrics.Global.IncrementNewsRelayed()
	return results, false
}

// messageKey derives the window key for an event. Events without an id are
// always treated as new; prefixing by kind keeps alert and news id spaces
// apart.
func messageKey(kind, messageID string) string {
	if messageID == "" {
		return ""
	}
	return dedupe.Fingerprint(kind + "|" + messageID)
}

func formatAlert(lang language.Code, text string) string {
	return fmt.Sprintf("🚨 %s *EMERGENCY ALERT*\n\n%s", lang.Emoji(), delivery.EscapeMarkdownV2(text))
}

func formatNews(lang language.Code, text string) string {
	return fmt.Sprintf("📰 %s *NEWS UPDATE*\n\n%s\n\n\\-\\-\\-", lang.Emoji(), delivery.EscapeMarkdownV2(text))
}
