package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// FallbackNotice prefixes every answer that did not come from the document.
const FallbackNotice = "No relevant answer found in the document. "

// RelevanceGate returns the generator's answer when it was grounded in the
// document and otherwise hands the query to the fallback agent. It never
// retries.
type RelevanceGate struct {
	fallback port.FallbackAgent
	logger   arbor.ILogger
}

func NewRelevanceGate(fallback port.FallbackAgent, logger arbor.ILogger) *RelevanceGate {
	return &RelevanceGate{fallback: fallback, logger: logger}
}

func (g *RelevanceGate) Resolve(ctx context.Context, query string, decision domain.RelevanceDecision) (domain.Answer, error) {
	if decision.Relevant {
		return domain.Answer{Text: decision.Content, Grounded: true}, nil
	}

	g.logger.Debug().Str("query", query).Msg("No relevant chunk, calling fallback agent")

	out, err := g.fallback.Run(ctx, query)
	if err != nil {
		if errors.Is(err, domain.ErrFallbackAgent) {
			return domain.Answer{}, err
		}
		return domain.Answer{}, fmt.Errorf("%w: %w", domain.ErrFallbackAgent, err)
	}
	return domain.Answer{Text: FallbackNotice + out}, nil
}

// ParseRelevanceDecision decodes the generator's JSON reply. The "relevant"
// field is required, and a relevant decision must carry content.
func ParseRelevanceDecision(raw string) (domain.RelevanceDecision, error) {
	var wire struct {
		Content  *string `json:"content"`
		Relevant *bool   `json:"relevant"`
	}
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	if err := dec.Decode(&wire); err != nil {
		return domain.RelevanceDecision{}, fmt.Errorf("%w: %w", domain.ErrRelevanceParse, err)
	}
	if dec.More() {
		return domain.RelevanceDecision{}, fmt.Errorf("%w: trailing data after JSON object", domain.ErrRelevanceParse)
	}
	if wire.Relevant == nil {
		return domain.RelevanceDecision{}, fmt.Errorf("%w: missing \"relevant\" field", domain.ErrRelevanceParse)
	}

	decision := domain.RelevanceDecision{Relevant: *wire.Relevant}
	if wire.Content != nil {
		decision.Content = *wire.Content
	}
	if decision.Relevant && strings.TrimSpace(decision.Content) == "" {
		return domain.RelevanceDecision{}, fmt.Errorf("%w: relevant decision without content", domain.ErrRelevanceParse)
	}
	return decision, nil
}
