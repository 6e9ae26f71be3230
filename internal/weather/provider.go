// Package weather implements the capability behind the agent: answering a
// free-text weather query by searching for current conditions and asking
// the text-generation provider for a formatted summary.
package weather

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nimbuslab/weatherbot/internal/llm"
	"github.com/nimbuslab/weatherbot/internal/search"
)

const noDataReply = "Sorry, I couldn't find current weather information for that location."

// UpdateKind distinguishes progress notes from the final answer.
type UpdateKind string

const (
	UpdateProgress UpdateKind = "progress"
	UpdateResult   UpdateKind = "result"
)

// Update is one element of a streamed report. A stream carries zero or
// more progress updates followed by exactly one result update, which
// holds either the answer text or the provider error.
type Update struct {
	Kind UpdateKind
	Text string
	Err  error
}

// Provider answers weather queries. It holds no state between requests and
// never retries its collaborators; their failures propagate to the caller.
type Provider struct {
	searcher   search.Searcher
	summarizer llm.Summarizer
	logger     *logrus.Logger
}

func NewProvider(searcher search.Searcher, summarizer llm.Summarizer, logger *logrus.Logger) *Provider {
	if logger == nil {
		logger = logrus.New()
	}

	return &Provider{
		searcher:   searcher,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Report produces the complete answer for a query in one blocking call.
func (p *Provider) Report(ctx context.Context, query string) (string, error) {
	results, err := p.searcher.Search(ctx, "current weather "+query)
	if err != nil {
		return "", fmt.Errorf("weather search failed: %w", err)
	}

	if len(results) == 0 {
		p.logger.Infof("No search results for query %q", query)
		return noDataReply, nil
	}

	summary, err := p.summarizer.Summarize(ctx, query, results)
	if err != nil {
		return "", fmt.Errorf("weather summary failed: %w", err)
	}

	return summary, nil
}

// Stream produces the answer incrementally: progress updates for each
// phase, then one result update. The channel is closed after the result.
// Updates are emitted in production order; a cancelled context ends the
// stream early with the context error as the result.
func (p *Provider) Stream(ctx context.Context, query string) <-chan Update {
	updates := make(chan Update)

	go func() {
		defer close(updates)

		if !emit(ctx, updates, Update{
			Kind: UpdateProgress,
			Text: fmt.Sprintf("Searching for current weather in %s...", query),
		}) {
			return
		}

		results, err := p.searcher.Search(ctx, "current weather "+query)
		if err != nil {
			emit(ctx, updates, Update{Kind: UpdateResult, Err: fmt.Errorf("weather search failed: %w", err)})
			return
		}

		if len(results) == 0 {
			emit(ctx, updates, Update{Kind: UpdateResult, Text: noDataReply})
			return
		}

		if !emit(ctx, updates, Update{
			Kind: UpdateProgress,
			Text: "Processing weather data and formatting response...",
		}) {
			return
		}

		summary, err := p.summarizer.Summarize(ctx, query, results)
		if err != nil {
			emit(ctx, updates, Update{Kind: UpdateResult, Err: fmt.Errorf("weather summary failed: %w", err)})
			return
		}

		emit(ctx, updates, Update{Kind: UpdateResult, Text: summary})
	}()

	return updates
}

// emit delivers an update unless the context is cancelled. It returns
// false when the consumer is gone.
func emit(ctx context.Context, updates chan<- Update, update Update) bool {
	select {
	case updates <- update:
		return true
	case <-ctx.Done():
		return false
	}
}
