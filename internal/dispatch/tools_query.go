package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/repograph/gateway/internal/errors"
	"github.com/repograph/gateway/internal/guard"
	"github.com/repograph/gateway/internal/translate"
	"github.com/repograph/gateway/internal/validate"
)

// QueryDeps extends Deps with the translation pipeline.
type QueryDeps struct {
	Deps
	Translator *translate.Translator
	// RAGProcedure optionally names a store-side retrieval procedure
	// for query_with_rag; empty means the tool falls back to plain
	// translation.
	RAGProcedure string
}

type queryTool struct {
	schema  ToolSchema
	execute func(ctx context.Context, sess *Session, args map[string]any) (string, error)
}

func (t *queryTool) Schema() ToolSchema { return t.schema }
func (t *queryTool) Execute(ctx context.Context, sess *Session, args map[string]any) (string, error) {
	return t.execute(ctx, sess, args)
}

// runTranslated is the query_codebase pipeline: live schema →
// translate → validate → execute → format. A validator rejection never
// reaches the gateway.
func runTranslated(ctx context.Context, deps QueryDeps, question, repositoryID string, includeCypher bool) (string, error) {
	snapshot, err := deps.Translator.LiveSchema(ctx)
	if err != nil {
		return "", err
	}

	query, err := deps.Translator.Translate(ctx, question, repositoryID, snapshot)
	if err != nil {
		return "", err
	}

	validator := validate.NewValidator(snapshot.NodeLabels, snapshot.RelationshipTypes)
	verdict := validator.Validate(query)
	if !verdict.Valid {
		return "", errors.UserInputErrorf(
			"The generated query was rejected: %s", strings.Join(verdict.Errors, "; "))
	}

	callCtx, cancel := guard.WithDeadline(ctx, deps.QueryTimeout)
	defer cancel()
	rows, err := deps.Store.ExecuteRead(callCtx, query, nil)
	if err != nil {
		return "", err
	}

	out := formatRows(rows)
	if len(verdict.Warnings) > 0 {
		out += "\n(note: " + strings.Join(verdict.Warnings, "; ") + ")"
	}
	if includeCypher {
		out += "\n\nCypher:\n" + query
	}
	return out, nil
}

// NewQueryCodebase answers free-form questions via the translator.
func NewQueryCodebase(deps QueryDeps) Tool {
	return &queryTool{
		schema: ToolSchema{
			Name:        "query_codebase",
			Description: "Answer a natural-language question about the indexed graph.",
			Params: map[string]ParamSpec{
				"question":      {Type: "string", Description: "The question to answer", Required: true},
				"repository_id": {Type: "string", Description: "Override the session repository scope", Required: false},
			},
		},
		execute: func(ctx context.Context, sess *Session, args map[string]any) (string, error) {
			repo := stringArg(args, "repository_id")
			if repo == "" && sess != nil {
				repo = sess.RepositoryID
			}
			return runTranslated(ctx, deps, stringArg(args, "question"), repo, false)
		},
	}
}

// NewQueryWithRAG prefers the store's retrieval procedure when one is
// configured and falls back to the plain translation pipeline.
func NewQueryWithRAG(deps QueryDeps) Tool {
	return &queryTool{
		schema: ToolSchema{
			Name:        "query_with_rag",
			Description: "Answer a question using the store's retrieval pipeline when available.",
			Params: map[string]ParamSpec{
				"question":       {Type: "string", Description: "The question to answer", Required: true},
				"include_cypher": {Type: "boolean", Description: "Append the generated query to the answer", Required: false},
			},
		},
		execute: func(ctx context.Context, sess *Session, args map[string]any) (string, error) {
			question := stringArg(args, "question")
			includeCypher := boolArg(args, "include_cypher")
			repo := ""
			if sess != nil {
				repo = sess.RepositoryID
			}

			if deps.RAGProcedure != "" {
				callCtx, cancel := guard.WithDeadline(ctx, deps.QueryTimeout)
				rows, err := deps.Store.ExecuteRead(callCtx,
					fmt.Sprintf("CALL %s($question) YIELD answer RETURN answer LIMIT 1", deps.RAGProcedure),
					map[string]any{"question": question})
				cancel()
				if err == nil && len(rows) > 0 {
					return formatRows(rows), nil
				}
				// Retrieval path unavailable: fall through to plain
				// translation rather than failing the question.
			}

			return runTranslated(ctx, deps, question, repo, includeCypher)
		},
	}
}
