package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"newsrelay/internal/dedupe"
	"newsrelay/internal/language"
)

type recordingSender struct {
	calls []string
	err   error
}

func (s *recordingSender) Send(_ context.Context, chatID, text, _ string) error {
	s.calls = append(s.calls, chatID+"|"+text)
	return s.err
}

func newTestFanout(s Sender) *Fanout {
	return NewFanout(Options{
		Sender: s,
		ChatIDs: map[language.Code]string{
			language.Hebrew:  "-100111",
			language.English: "-100222",
		},
		Window:      dedupe.NewWindow(30 * time.Minute),
		Pace:        time.Microsecond,
		SendTimeout: time.Second,
	})
}

func TestDeliverSuppressesDuplicates(t *testing.T) {
	sender := &recordingSender{}
	f := newTestFanout(sender)
	ctx := context.Background()

	if !f.Deliver(ctx, language.Hebrew, "alert text", ParseModeMarkdownV2) {
		t.Fatal("first delivery should succeed")
	}
	if !f.Deliver(ctx, language.Hebrew, "alert text", ParseModeMarkdownV2) {
		t.Fatal("suppressed duplicate still counts as accounted for")
	}
	if len(sender.calls) != 1 {
		t.Fatalf("transport called %d times, want 1", len(sender.calls))
	}

	// Same text to another group is a distinct delivery.
	f.Deliver(ctx, language.English, "alert text", ParseModeMarkdownV2)
	if len(sender.calls) != 2 {
		t.Fatalf("transport called %d times, want 2", len(sender.calls))
	}
}

func TestDeliverSkipsUnconfiguredLanguage(t *testing.T) {
	sender := &recordingSender{}
	f := newTestFanout(sender)

	if f.Deliver(context.Background(), language.Spanish, "hola", ParseModeMarkdownV2) {
		t.Fatal("delivery to an unconfigured language should report false")
	}
	if len(sender.calls) != 0 {
		t.Fatal("transport must not be touched without a destination")
	}
}

func TestDeliverTimeoutStillMarksWindow(t *testing.T) {
	sender := &recordingSender{err: context.DeadlineExceeded}
	f := newTestFanout(sender)
	ctx := context.Background()

	if f.Deliver(ctx, language.Hebrew, "maybe sent", ParseModeMarkdownV2) {
		t.Fatal("timed-out delivery should report false")
	}

	// The message may have landed, so a retry must be suppressed.
	sender.err = nil
	if !f.Deliver(ctx, language.Hebrew, "maybe sent", ParseModeMarkdownV2) {
		t.Fatal("window hit should report true")
	}
	if len(sender.calls) != 1 {
		t.Fatalf("transport called %d times after timeout, want 1", len(sender.calls))
	}
}

func TestDeliverTransportErrorLeavesWindowClear(t *testing.T) {
	sender := &recordingSender{err: errors.New("telegram API error: status 500")}
	f := newTestFanout(sender)
	ctx := context.Background()

	if f.Deliver(ctx, language.Hebrew, "retry me", ParseModeMarkdownV2) {
		t.Fatal("failed delivery should report false")
	}

	sender.err = nil
	if !f.Deliver(ctx, language.Hebrew, "retry me", ParseModeMarkdownV2) {
		t.Fatal("retry after hard failure should go through")
	}
	if len(sender.calls) != 2 {
		t.Fatalf("transport called %d times, want 2", len(sender.calls))
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	got := EscapeMarkdownV2("a_b*c[d](e)~f`g>h#i+j-k=l|m{n}o.p!q")
	want := `a\_b\*c\[d\]\(e\)\~f\` + "`" + `g\>h\#i\+j\-k\=l\|m\{n\}o\.p\!q`
	if got != want {
		t.Fatalf("escape mismatch:\n got %q\nwant %q", got, want)
	}

	if EscapeMarkdownV2("plain text") != "plain text" {
		t.Fatal("plain text must pass through untouched")
	}
}
