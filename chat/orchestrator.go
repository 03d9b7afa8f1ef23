// Package chat coordinates one question-answering turn: credential
// resolution, quota enforcement, retrieval, generation and conversation
// persistence.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"legalbot-backend/contracts"
	"legalbot-backend/conversations"
	"legalbot-backend/migrations"
	"legalbot-backend/rag"
	"legalbot-backend/security"
)

var (
	// ErrCredentialUnavailable means no generation key could be resolved for
	// the request. Raised before any retrieval or generation work.
	ErrCredentialUnavailable = errors.New("no usable generation credential")
	// ErrRetrievalUnavailable means the vector store is not configured or
	// could not be reached.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")
	// ErrGeneration wraps failures from the generation collaborator.
	ErrGeneration = errors.New("generation failed")
	// ErrGenerationFormat means contract mode received a reply that is not
	// the agreed JSON object.
	ErrGenerationFormat = errors.New("generation reply malformed")
)

// Generator is the external generation collaborator for one resolved key.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateContract(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string) (<-chan string, error)
}

// Retriever returns ranked passages for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]rag.Passage, error)
}

// ConversationStore appends completed turns.
type ConversationStore interface {
	AppendTurn(sessionID, userID, title string, userMsg, botMsg conversations.Message) error
}

// QuotaChecker gates free-tier usage.
type QuotaChecker interface {
	CheckAndConsume(userID int, now time.Time) error
}

// TemplateRenderer produces a downloadable document from completed contract
// variables.
type TemplateRenderer interface {
	Render(ctx context.Context, templateName string, values map[string]string) (string, error)
}

// Orchestrator wires the collaborators for the answering pipeline.
type Orchestrator struct {
	NewGenerator     func(apiKey string) Generator
	Retriever        Retriever
	Conversations    ConversationStore
	Quota            QuotaChecker
	SystemKey        func() string
	Renderer         TemplateRenderer
	ContractTemplate string
}

// Answer is one full question-answering turn.
type Answer struct {
	Text    string
	Sources []conversations.Source
}

// resolveGenerator picks the generation credential: the user's own decrypted
// key first; otherwise the system key, which premium users get outright and
// free users get after passing the usage ledger. The ledger is only touched
// when the request can actually complete.
func (o *Orchestrator) resolveGenerator(user *migrations.User) (Generator, error) {
	if user.APIKeyEncrypted != "" {
		if key := security.Decrypt(user.APIKeyEncrypted); key != "" {
			return o.NewGenerator(key), nil
		}
		log.Printf("[chat][credential] user=%s personal key unusable, falling back", user.Username)
	}
	systemKey := o.SystemKey()
	if systemKey == "" {
		return nil, ErrCredentialUnavailable
	}
	if user.SubscriptionType != "premium" {
		if err := o.Quota.CheckAndConsume(user.ID, time.Now()); err != nil {
			return nil, err
		}
	}
	return o.NewGenerator(systemKey), nil
}

// Answer resolves a credential, retrieves context, asks the collaborator and
// persists the turn.
func (o *Orchestrator) Answer(ctx context.Context, user *migrations.User, question, sessionID string) (*Answer, error) {
	gen, err := o.resolveGenerator(user)
	if err != nil {
		return nil, err
	}

	passages, err := o.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	text, err := gen.Generate(ctx, answerPrompt(question, passages))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	sources := formatSources(passages)
	if err := o.persistTurn(user.Username, sessionID, question, text, sources); err != nil {
		return nil, fmt.Errorf("persist turn: %w", err)
	}
	return &Answer{Text: text, Sources: sources}, nil
}

// AnswerStream is the streaming variant: tokens flow to the returned channel
// while the full answer is accumulated and persisted once the stream ends.
func (o *Orchestrator) AnswerStream(ctx context.Context, user *migrations.User, question, sessionID string) (<-chan string, error) {
	gen, err := o.resolveGenerator(user)
	if err != nil {
		return nil, err
	}
	passages, err := o.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}
	inner, err := gen.Stream(ctx, answerPrompt(question, passages))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	sources := formatSources(passages)
	out := make(chan string)
	go func() {
		defer close(out)
		var full []byte
		for tok := range inner {
			full = append(full, tok...)
			out <- tok
		}
		// The response is already committed to the client at this point, so
		// a store failure can only be logged.
		if err := o.persistTurn(user.Username, sessionID, question, string(full), sources); err != nil {
			log.Printf("[chat][persist] session=%s user=%s err=%v", sessionID, user.Username, err)
		}
	}()
	return out, nil
}

// ContractResult is the contract-mode reply: free text while variables are
// still being collected, plus a document link once complete.
type ContractResult struct {
	Response  string            `json:"response"`
	Variables map[string]string `json:"variables"`
	Link      string            `json:"link"`
}

// AnswerContract drives one templated contract-completion turn.
func (o *Orchestrator) AnswerContract(ctx context.Context, user *migrations.User, message string, variables map[string]string, history []conversations.Message) (*ContractResult, error) {
	gen, err := o.resolveGenerator(user)
	if err != nil {
		return nil, err
	}
	raw, err := gen.GenerateContract(ctx, contractPrompt(message, variables, history))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	reply, err := contracts.ParseReply(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFormat, err)
	}

	result := &ContractResult{Response: reply.Response, Variables: reply.Variables}
	if reply.Status == contracts.StatusComplete {
		link, err := o.Renderer.Render(ctx, o.ContractTemplate, reply.Variables)
		if err != nil {
			return nil, fmt.Errorf("render contract: %w", err)
		}
		result.Link = link
		if result.Response == "" {
			result.Response = "Your contract is ready to download."
		}
	}
	return result, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, question string) ([]rag.Passage, error) {
	passages, err := o.Retriever.Retrieve(ctx, question, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}
	return passages, nil
}

func (o *Orchestrator) persistTurn(username, sessionID, question, answer string, sources []conversations.Source) error {
	now := time.Now().UTC()
	userMsg := conversations.Message{Role: "user", Content: question, Timestamp: now}
	botMsg := conversations.Message{Role: "assistant", Content: answer, Sources: sources, Timestamp: now}
	return o.Conversations.AppendTurn(sessionID, username, deriveTitle(question), userMsg, botMsg)
}

// formatSources converts passages to citations with 1-indexed page numbers
// for display.
func formatSources(passages []rag.Passage) []conversations.Source {
	sources := make([]conversations.Source, 0, len(passages))
	for _, p := range passages {
		sources = append(sources, conversations.Source{
			Content: p.Text,
			Source:  p.SourceID,
			Page:    p.PageNumber + 1,
		})
	}
	return sources
}

// deriveTitle takes the first ~50 characters of the question, on a rune
// boundary, as the conversation title.
func deriveTitle(question string) string {
	runes := []rune(question)
	if len(runes) <= 50 {
		return question
	}
	return string(runes[:50]) + "..."
}
