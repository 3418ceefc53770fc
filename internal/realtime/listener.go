// Package realtime maintains a websocket subscription to the upstream
// channel-event stream and routes each event to the relay processor: alert
// channel events through the lenient alert path, news channel events through
// the hardened news path.
package realtime

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"newsrelay/internal/language"
	"newsrelay/internal/logger"
	"newsrelay/internal/metrics"
	"newsrelay/internal/retry"
)

// Event is one message from the upstream stream.
type Event struct {
	Channel   string `json:"channel"`
	Text      string `json:"text"`
	MessageID string `json:"message_id"`
}

// Processor handles routed events.
type Processor interface {
	ProcessAlert(ctx context.Context, text, messageID string, src language.Code) (map[language.Code]bool, bool)
	ProcessNews(ctx context.Context, text, messageID string, src language.Code) (map[language.Code]bool, bool)
}

type Options struct {
	URL          string
	AlertChannel string
	NewsChannel  string // empty disables news routing
	AlertLang    language.Code
	NewsLang     language.Code

	ReconnectBase     time.Duration
	ReconnectMax      time.Duration
	ReconnectAttempts int
}

type Listener struct {
	opts      Options
	processor Processor
	dialer    *websocket.Dialer
}

func NewListener(opts Options, processor Processor) *Listener {
	return &Listener{
		opts:      opts,
		processor: processor,
		dialer:    websocket.DefaultDialer,
	}
}

// Run blocks until ctx is cancelled or the reconnect budget is spent without
// a single healthy session. A session that served at least one event resets
// the budget, so only a persistently unreachable upstream disables the
// listener; the rest of the service keeps running either way.
func (l *Listener) Run(ctx context.Context) {
	if l.opts.URL == "" {
		logger.Info("realtime listener disabled, no endpoint configured")
		return
	}

	for {
		healthy := false
		err := retry.Do(ctx, retry.Config{
			MaxAttempts: l.opts.ReconnectAttempts,
			Delay:       l.opts.ReconnectBase,
			Backoff:     true,
			MaxDelay:    l.opts.ReconnectMax,
		}, func() error {
			served, err := l.session(ctx)
			if served {
				healthy = true
			}
			return err
		})

		if ctx.Err() != nil {
			return
		}
		if healthy {
			// Connection worked at some point, keep trying with a
			// fresh budget.
			continue
		}
		logger.Error("realtime listener giving up", "url", l.opts.URL, "error", err)
		metrics.Global.SetError("realtime listener disconnected")
		return
	}
}

// session dials once and reads events until the connection breaks. It
// reports whether at least one event was served.
func (l *Listener) session(ctx context.Context) (served bool, err error) {
	conn, _, err := l.dialer.DialContext(ctx, l.opts.URL, nil)
	if err != nil {
		logger.Warn("realtime dial failed", "url", l.opts.URL, "error", err)
		return false, err
	}
	logger.Info("realtime stream connected", "url", l.opts.URL)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return served, nil
			}
			logger.Warn("realtime stream dropped", "error", err)
			return served, err
		}
		served = true
		l.route(ctx, ev)
	}
}

func (l *Listener) route(ctx context.Context, ev Event) {
	switch {
	case ev.Channel == l.opts.AlertChannel:
		l.processor.ProcessAlert(ctx, ev.Text, ev.MessageID, l.opts.AlertLang)
	case l.opts.NewsChannel != "" && ev.Channel == l.opts.NewsChannel:
		l.processor.ProcessNews(ctx, ev.Text, ev.MessageID, l.opts.NewsLang)
	default:
		logger.Debug("ignoring event from unrouted channel", "channel", ev.Channel)
	}
}
