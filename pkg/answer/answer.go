// Package answer synthesizes grounded answers from retrieved chunks via a
// chat completion model.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/askdocco/askdoc/pkg/llm"
	"github.com/askdocco/askdoc/pkg/vector"
)

// ErrGenerationFailed is returned when the model could not produce an
// answer after all retries.
var ErrGenerationFailed = errors.New("answer generation failed")

// NoContextAnswer is returned verbatim when retrieval found nothing; the
// model is never called in that case.
const NoContextAnswer = "I couldn't find any relevant information in your documents to answer this question."

const systemPrompt = "You are a helpful assistant that answers questions using only the provided context. " +
	"If the context does not contain the answer, say so plainly instead of guessing."

// Config holds configuration for the answer synthesizer.
type Config struct {
	// ContextBudget caps the total context characters included in a prompt.
	ContextBudget int

	// CallsPerMinute throttles completion calls across all users.
	CallsPerMinute int

	// MaxAttempts bounds completion attempts per question, first try included.
	MaxAttempts int

	// BaseBackoff is the delay before the first retry; it doubles per attempt.
	BaseBackoff time.Duration
}

// Result is a synthesized answer with its provenance.
type Result struct {
	// Answer is the response text.
	Answer string

	// Sources lists the document ids of the chunks used, ordered by first
	// appearance in the prompt.
	Sources []string

	// Confidence is the mean similarity of the chunks used, in [0, 1].
	Confidence float32

	// NoContext marks an answer produced without any retrieved chunks.
	NoContext bool
}

// Synthesizer turns retrieved chunks and a question into an answer.
type Synthesizer struct {
	cfg     Config
	client  llm.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewSynthesizer creates a new answer synthesizer.
func NewSynthesizer(cfg Config, client llm.Client, logger *zap.Logger) *Synthesizer {
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = 6000
	}
	if cfg.CallsPerMinute <= 0 {
		cfg.CallsPerMinute = 30
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = time.Second
	}

	limiter := rate.NewLimiter(rate.Limit(float64(cfg.CallsPerMinute)/60.0), 1)

	return &Synthesizer{
		cfg:     cfg,
		client:  client,
		limiter: limiter,
		logger:  logger,
	}
}

// Synthesize answers the question from the matches. An empty match set
// yields the no-context answer with zero confidence and no model call.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, matches []vector.Match) (*Result, error) {
	included := s.fit(matches)
	if len(included) == 0 {
		return &Result{
			Answer:     NoContextAnswer,
			Sources:    []string{},
			Confidence: 0,
			NoContext:  true,
		}, nil
	}

	prompt := buildPrompt(question, included)

	text, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return &Result{
		Answer:     text,
		Sources:    sources(included),
		Confidence: confidence(included),
	}, nil
}

// fit selects matches for the prompt in rank order. A match that would
// push the total past the budget is dropped whole, never truncated; the
// walk continues so a smaller lower-ranked chunk can still fit.
func (s *Synthesizer) fit(matches []vector.Match) []vector.Match {
	included := []vector.Match{}
	used := 0

	for _, m := range matches {
		n := len(m.Text)
		if used+n > s.cfg.ContextBudget {
			continue
		}
		included = append(included, m)
		used += n
	}

	return included
}

func buildPrompt(question string, included []vector.Match) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, m := range included {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, m.Text)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

// sources returns the distinct document ids of the included matches,
// ordered by first appearance.
func sources(included []vector.Match) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, m := range included {
		if !seen[m.DocumentID] {
			seen[m.DocumentID] = true
			out = append(out, m.DocumentID)
		}
	}
	return out
}

// confidence is the mean similarity of the included matches, clamped to
// [0, 1].
func confidence(included []vector.Match) float32 {
	var sum float32
	for _, m := range included {
		sum += m.Score
	}

	mean := sum / float32(len(included))
	if mean < 0 {
		return 0
	}
	if mean > 1 {
		return 1
	}
	return mean
}

// complete calls the model, waiting on the rate limiter before every
// attempt and backing off exponentially on retryable failures.
func (s *Synthesizer) complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := s.cfg.BaseBackoff << (attempt - 1)
			s.logger.Warn("retrying answer generation",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", fmt.Errorf("%w: %v", ErrGenerationFailed, ctx.Err())
			case <-timer.C:
			}
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}

		text, err := s.client.Complete(ctx, llm.Request{
			System: systemPrompt,
			Prompt: prompt,
		})
		if err == nil {
			return text, nil
		}

		if !llm.Retryable(err) {
			return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
		lastErr = err
	}

	return "", fmt.Errorf("%w: %v", ErrGenerationFailed, lastErr)
}
