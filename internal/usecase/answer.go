package usecase

import (
	"context"

	"github.com/ternarybob/arbor"
	"pdfrag/internal/domain"
	"pdfrag/internal/port"
)

// AnswerUseCase answers a question about one document: retrieve, generate a
// grounded reply, then let the relevance gate pick the final answer.
type AnswerUseCase struct {
	retriever port.Retriever
	generator port.AnswerGenerator
	gate      *RelevanceGate
	logger    arbor.ILogger
}

func NewAnswerUseCase(retriever port.Retriever, generator port.AnswerGenerator, gate *RelevanceGate, logger arbor.ILogger) *AnswerUseCase {
	return &AnswerUseCase{
		retriever: retriever,
		generator: generator,
		gate:      gate,
		logger:    logger,
	}
}

func (u *AnswerUseCase) Answer(ctx context.Context, documentID, query string, topK int) (domain.Answer, error) {
	chunks, err := u.retriever.Retrieve(ctx, documentID, query, topK)
	if err != nil {
		return domain.Answer{}, err
	}

	raw, err := u.generator.Generate(ctx, query, chunks)
	if err != nil {
		return domain.Answer{}, err
	}

	decision, err := ParseRelevanceDecision(raw)
	if err != nil {
		u.logger.Warn().Err(err).Str("document_id", documentID).Msg("Unreadable answer from generator")
		return domain.Answer{}, err
	}

	answer, err := u.gate.Resolve(ctx, query, decision)
	if err != nil {
		return domain.Answer{}, err
	}
	if answer.Grounded {
		answer.Sources = chunks
	}

	u.logger.Debug().
		Str("document_id", documentID).
		Int("chunks", len(chunks)).
		Bool("grounded", answer.Grounded).
		Msg("Answered query")

	return answer, nil
}

