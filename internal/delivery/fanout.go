package delivery

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"newsrelay/internal/dedupe"
	"newsrelay/internal/language"
	"newsrelay/internal/logger"
	"newsrelay/internal/metrics"
)

// Options configures a Fanout. All paths of the relay share one Fanout so
// that the delivery dedupe window is global across origins.
type Options struct {
	Sender  Sender
	ChatIDs map[language.Code]string
	Window  *dedupe.Window

	// Pace is the minimum spacing between consecutive sends.
	Pace time.Duration
	// SendTimeout bounds a single transport attempt.
	SendTimeout time.Duration
}

// Fanout routes a rendered message to the chat group of its language. It
// owns the last line of duplicate defence: an identical (destination, text)
// pair inside the delivery window is silently suppressed.
type Fanout struct {
	sender  Sender
	chatIDs map[language.Code]string
	window  *dedupe.Window
	limiter *rate.Limiter
	timeout time.Duration
}

func NewFanout(opts Options) *Fanout {
	return &Fanout{
		sender:  opts.Sender,
		chatIDs: opts.ChatIDs,
		window:  opts.Window,
		limiter: rate.NewLimiter(rate.Every(opts.Pace), 1),
		timeout: opts.SendTimeout,
	}
}

// Deliver sends text to the group configured for lang and reports whether
// the message is accounted for (sent now, or already sent within the
// window). A language without a configured group is skipped, not an error:
// partial deployments are a supported mode.
//
// A transport timeout still marks the delivery window. The request may have
// reached the chat service after we stopped waiting, and a duplicate message
// in a public group is worse than a lost one.
func (f *Fanout) Deliver(ctx context.Context, lang language.Code, text, parseMode string) bool {
	chatID, ok := f.chatIDs[lang]
	if !ok || chatID == "" {
		logger.Warn("no chat group configured, skipping delivery", "lang", lang.Name())
		return false
	}

	key := dedupe.Fingerprint(chatID + "|" + text)
	if f.window.Seen(key) {
		logger.Debug("suppressing duplicate delivery", "lang", lang.Name())
		return true
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	err := f.sender.Send(sendCtx, chatID, text, parseMode)
	if err == nil {
		f.window.Mark(key)
		metrics.Global.IncrementMessagesSent()
		logger.Info("message delivered", "lang", lang.Name())
		return true
	}

	metrics.Global.IncrementMessagesFailed()
	if errors.Is(err, context.DeadlineExceeded) {
		f.window.Mark(key)
		logger.Warn("send timed out, message may still have been delivered", "lang", lang.Name())
		return false
	}
	logger.Error("send failed", "lang", lang.Name(), "error", err)
	return false
}
