// Package translate turns a natural-language question into a read-only
// Cypher query, grounded in a live snapshot of the labels and
// relationship types that actually exist in the store.
package translate

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/repograph/gateway/internal/errors"
	"github.com/repograph/gateway/internal/guard"
	"github.com/repograph/gateway/internal/llm"
	"github.com/repograph/gateway/internal/store"
)

// Completer is the slice of the LLM client the translator needs;
// narrowed for tests.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Snapshot is the live schema the prompt is built from.
type Snapshot struct {
	NodeLabels        []string
	RelationshipTypes []string
}

// Translator generates Cypher from questions.
type Translator struct {
	completer Completer
	store     store.Store
	breaker   *guard.CircuitBreaker
	rowCap    *guard.RowCap
	logger    *slog.Logger

	// OnTokens, when set, receives the token count of each completion.
	OnTokens func(int)
}

// NewTranslator wires the completer, the store (for schema snapshots),
// the generation circuit breaker, and the row-cap enforcer.
func NewTranslator(completer Completer, st store.Store, breaker *guard.CircuitBreaker, rowCap *guard.RowCap) *Translator {
	return &Translator{
		completer: completer,
		store:     st,
		breaker:   breaker,
		rowCap:    rowCap,
		logger:    slog.Default().With("component", "translator"),
	}
}

// LiveSchema fetches the snapshot from the store immediately before
// generation. The static profile is never used here: the prompt only
// mentions what exists, so the model cannot hallucinate empty kinds
// into plausible-looking queries.
func (t *Translator) LiveSchema(ctx context.Context) (Snapshot, error) {
	labels, err := t.store.ListNodeLabels(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	rels, err := t.store.ListRelationshipTypes(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{NodeLabels: labels, RelationshipTypes: rels}, nil
}

// Translate generates a row-capped Cypher query for the question. A
// non-empty repositoryID selects the multi-repo prompt, which forces
// every non-Role predicate to filter by that repository.
func (t *Translator) Translate(ctx context.Context, question, repositoryID string, snapshot Snapshot) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", errors.UserInputError("Question is empty")
	}
	if repositoryID != "" {
		if err := guard.ValidateRepositoryID(repositoryID); err != nil {
			return "", err
		}
	}

	if !t.breaker.Allow() {
		return "", errors.CircuitOpenError("query generation is temporarily unavailable")
	}

	req := llm.Request{
		SystemPrompt: systemPrompt(snapshot, repositoryID, t.rowCap.Default),
		UserPrompt:   question,
	}
	resp, err := t.completer.Complete(ctx, req)
	if err != nil {
		t.breaker.RecordFailure()
		return "", err
	}
	t.breaker.RecordSuccess()

	if t.OnTokens != nil {
		t.OnTokens(resp.TokensUsed)
	}

	query := Postprocess(resp.Content)
	if query == "" {
		return "", errors.UserInputError("The model produced no query for this question")
	}
	query = t.rowCap.Enforce(query)
	t.logger.Debug("translated question", "query", query)
	return query, nil
}

var (
	reasoningRe = regexp.MustCompile(`(?s)<think(?:ing)?>.*?</think(?:ing)?>`)
	fenceOpenRe = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
	cypherLabel = regexp.MustCompile(`(?i)^cypher:\s*`)
)

// Postprocess strips model chatter from the raw completion: reasoning
// delimiters, code fences, a leading "cypher:" label, and surrounding
// whitespace.
func Postprocess(raw string) string {
	out := reasoningRe.ReplaceAllString(raw, "")
	out = fenceOpenRe.ReplaceAllString(out, "")
	out = strings.ReplaceAll(out, "```", "")
	out = strings.TrimSpace(out)
	out = cypherLabel.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}
