// Package pipeline runs the scheduled ingestion cycle: fetch configured
// feeds, drop already-seen articles, score the rest, and relay the top
// picks to every language group.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"newsrelay/internal/dedupe"
	"newsrelay/internal/delivery"
	"newsrelay/internal/feed"
	"newsrelay/internal/language"
	"newsrelay/internal/logger"
	"newsrelay/internal/metrics"
	"newsrelay/internal/rater"
)

type Fetcher interface {
	Fetch(ctx context.Context, src feed.Source) []feed.Article
}

type Rater interface {
	RateBatch(ctx context.Context, articles []feed.Article, src language.Code) []rater.Rated
}

type Translator interface {
	TranslateToAll(ctx context.Context, text string, src language.Code) map[language.Code]string
}

type Deliverer interface {
	Deliver(ctx context.Context, lang language.Code, text, parseMode string) bool
}

// Options wires a Pipeline.
type Options struct {
	Fetcher    Fetcher
	Rater      Rater
	Translator Translator
	Fanout     Deliverer

	// Window is the feed dedupe window: an article marked here is not
	// re-rated for the window's TTL.
	Window  *dedupe.Window
	Sources []feed.Source

	MinRating   int
	MaxArticles int

	// Pace is the extra spacing between feed-path deliveries, on top of
	// the fanout's own limiter. Feed items are never urgent.
	Pace time.Duration
}

type Pipeline struct {
	fetcher     Fetcher
	rater       Rater
	translator  Translator
	fanout      Deliverer
	window      *dedupe.Window
	sources     []feed.Source
	minRating   int
	maxArticles int
	pace        time.Duration
}

func New(opts Options) *Pipeline {
	return &Pipeline{
		fetcher:     opts.Fetcher,
		rater:       opts.Rater,
		translator:  opts.Translator,
		fanout:      opts.Fanout,
		window:      opts.Window,
		sources:     opts.Sources,
		minRating:   opts.MinRating,
		maxArticles: opts.MaxArticles,
		pace:        opts.Pace,
	}
}

// Run executes one full cycle. It never returns an error: per-source and
// per-article failures are logged and the cycle carries on, because a
// scheduler retrying a whole cycle would just re-send half of it.
func (p *Pipeline) Run(ctx context.Context) {
	start := time.Now()
	logger.Info("ingestion cycle started", "sources", len(p.sources))

	if expired := p.window.Cleanup(); expired > 0 {
		logger.Debug("feed window swept", "expired", expired)
	}

	fresh := p.collect(ctx)
	if len(fresh) == 0 {
		logger.Info("nothing new this cycle")
		p.finish(start)
		return
	}

	selected := p.selectTop(p.rate(ctx, fresh))
	metrics.Global.AddArticlesSelected(len(selected))
	logger.Info("articles selected", "count", len(selected), "fresh", len(fresh))

	for _, r := range selected {
		p.publish(ctx, r.Article)
	}
	p.finish(start)
}

func (p *Pipeline) finish(start time.Time) {
	metrics.Global.SetLastRun()
	metrics.Global.RecordCycleTime(time.Since(start))
	logger.Info("ingestion cycle finished", "took", time.Since(start).Round(time.Millisecond))
}

// collect fetches every source and keeps only articles not seen within the
// feed window. Fresh articles are marked immediately so the next cycle will
// not re-rate them even if they fail downstream.
func (p *Pipeline) collect(ctx context.Context) []feed.Article {
	var fresh []feed.Article
	for _, src := range p.sources {
		articles := p.fetcher.Fetch(ctx, src)
		metrics.Global.AddArticlesProcessed(len(articles))
		for _, a := range articles {
			if !p.window.MarkIfNew(a.Identifier()) {
				metrics.Global.IncrementDuplicatesFiltered()
				continue
			}
			fresh = append(fresh, a)
		}
	}
	return fresh
}

// rate scores fresh articles one batch per source language, keeping the
// articles' relative order inside each batch.
func (p *Pipeline) rate(ctx context.Context, fresh []feed.Article) []rater.Rated {
	byLang := make(map[language.Code][]feed.Article)
	var order []language.Code
	for _, a := range fresh {
		if _, seen := byLang[a.SourceLang]; !seen {
			order = append(order, a.SourceLang)
		}
		byLang[a.SourceLang] = append(byLang[a.SourceLang], a)
	}

	var rated []rater.Rated
	for _, lang := range order {
		rated = append(rated, p.rater.RateBatch(ctx, byLang[lang], lang)...)
	}
	return rated
}

// selectTop keeps articles at or above the rating threshold, best first,
// capped at the per-cycle maximum. The sort is stable so equally rated
// articles keep their fetch order.
func (p *Pipeline) selectTop(rated []rater.Rated) []rater.Rated {
	kept := make([]rater.Rated, 0, len(rated))
	for _, r := range rated {
		if r.Score >= p.minRating {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	if p.maxArticles > 0 && len(kept) > p.maxArticles {
		kept = kept[:p.maxArticles]
	}
	return kept
}

// publish translates one article to every language and delivers each
// rendition to its group, pacing between sends.
func (p *Pipeline) publish(ctx context.Context, a feed.Article) {
	text := a.Title
	if a.Summary != "" {
		text += "\n\n" + a.Summary
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	translations := p.translator.TranslateToAll(ctx, text, a.SourceLang)
	for _, lang := range language.All() {
		rendition, ok := translations[lang]
		if !ok {
			continue
		}
		p.fanout.Deliver(ctx, lang, formatFeedMessage(lang, rendition, a.SourceName), delivery.ParseModeMarkdownV2)
		select {
		case <-time.After(p.pace):
		case <-ctx.Done():
			return
		}
	}
	metrics.Global.IncrementNewsRelayed()
}

func formatFeedMessage(lang language.Code, text, sourceName string) string {
	msg := fmt.Sprintf("%s %s", lang.Emoji(), delivery.EscapeMarkdownV2(text))
	if sourceName != "" {
		msg += "\n\n_" + delivery.EscapeMarkdownV2(sourceName) + "_"
	}
	return msg + "\n\n\\-\\-\\-"
}
