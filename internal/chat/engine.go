// Package chat runs one assistant turn end to end: classify the request into
// tasks, assemble the persona profile, invoke the selected model, and split
// the resulting stream into prose deltas and edit payloads while recording
// the turn in the conversation log.
package chat

import (
	"context"
	"fmt"
	"log"

	"codeassist/internal/bundle"
	"codeassist/internal/convo"
	"codeassist/internal/llmclient"
	"codeassist/internal/persona"
	"codeassist/internal/segregate"
	"codeassist/internal/stream"
	"codeassist/internal/usage"
	"codeassist/internal/util/jsonutil"
)

// Request is one chat turn.
type Request struct {
	UserID         string
	RepositoryName string
	Iteration      int
	Query          string
	ModelID        string
	Bundle         bundle.Bundle
	// EditSequence >= 1 rewrites the conversation from that message on.
	EditSequence int
	// Streaming false collapses the model output into a single delta.
	Streaming bool
}

// Sink receives the decoded turn output in arrival order. Exactly one of
// Done or Error ends the turn.
type Sink interface {
	Delta(text string)
	Payload(m stream.ModificationArray)
	Done()
	Error(err error)
}

// Engine wires the two model phases to conversation state.
type Engine struct {
	segregator *segregate.Segregator
	catalog    *llmclient.Catalog
	convos     *convo.Manager
	usage      usage.Recorder
}

// NewEngine builds an engine. recorder may be nil.
func NewEngine(seg *segregate.Segregator, catalog *llmclient.Catalog, convos *convo.Manager, recorder usage.Recorder) *Engine {
	if recorder == nil {
		recorder = usage.NopRecorder{}
	}
	return &Engine{segregator: seg, catalog: catalog, convos: convos, usage: recorder}
}

// generationInput is the single user message handed to the generation model.
type generationInput struct {
	Tasks               []generationTask  `json:"segregated_query_array"`
	CodeSnippets        map[string]string `json:"code_snippets"`
	CodeFiles           map[string]string `json:"code_files"`
	ConversationHistory []historyMessage  `json:"conversation_history"`
}

type generationTask struct {
	SegregationType  string   `json:"segregation_type"`
	RelevantSnippets []string `json:"relevant_snippets"`
	RelevantFiles    []string `json:"relevant_files"`
	Continuation     bool     `json:"continuation"`
	SegregatedQuery  string   `json:"segregated_query"`
}

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Run executes one turn. Failures before the model stream opens are returned
// synchronously and nothing is delivered to sink; once the stream is open all
// outcomes arrive through sink.
func (e *Engine) Run(ctx context.Context, req Request, sink Sink) error {
	capability, err := e.catalog.Resolve(req.ModelID)
	if err != nil {
		return err
	}

	conv, err := e.convos.Resolve(ctx, req.UserID, req.RepositoryName, req.Iteration)
	if err != nil {
		return err
	}

	history, err := e.convos.History(ctx, conv.ID)
	if err != nil {
		return err
	}
	classifierHistory := make([]segregate.HistoryEntry, len(history))
	genHistory := make([]historyMessage, len(history))
	for i, m := range history {
		classifierHistory[i] = segregate.HistoryEntry{Role: string(m.Role), Content: m.Content}
		genHistory[i] = historyMessage{Role: string(m.Role), Content: m.Content}
	}

	tasks, err := e.segregator.Segregate(ctx, req.Query, req.Bundle, classifierHistory)
	if err != nil {
		return err
	}

	scoped, err := req.Bundle.Resolve(segregate.Refs(tasks))
	if err != nil {
		return fmt.Errorf("%w: %v", segregate.ErrClassification, err)
	}

	profile := persona.Profile(persona.Assemble(tasks))

	// The turn is committed once classification succeeds.
	userSeq, err := e.convos.StartTurn(ctx, conv.ID, req.Query, req.EditSequence)
	if err != nil {
		return err
	}

	genTasks := make([]generationTask, len(tasks))
	for i, t := range tasks {
		genTasks[i] = generationTask{
			SegregationType:  string(t.Type),
			RelevantSnippets: t.SnippetNames,
			RelevantFiles:    t.FileNames,
			Continuation:     t.Continuation,
			SegregatedQuery:  t.Text,
		}
	}
	inputJSON, err := jsonutil.MarshalNoEscape(generationInput{
		Tasks:               genTasks,
		CodeSnippets:        scoped.SnippetMap(),
		CodeFiles:           scoped.FileMap(),
		ConversationHistory: genHistory,
	})
	if err != nil {
		return fmt.Errorf("encode generation input: %w", err)
	}

	messages := []llmclient.Message{
		{Role: llmclient.RoleSystem, Content: profile},
		{Role: llmclient.RoleUser, Content: string(inputJSON)},
	}

	e.relay(ctx, capability, messages, conv.ID, userSeq, req, sink)
	return nil
}

// relay pumps the model stream through the sentinel decoder into sink.
func (e *Engine) relay(ctx context.Context, capability llmclient.Capability, messages []llmclient.Message, conversationID string, userSeq int, req Request, sink Sink) {
	decoder := stream.NewDecoder(&sinkAdapter{sink: sink, model: req.ModelID})

	events := capability.Invoke(ctx, messages, req.Streaming)
	for ev := range events {
		switch ev.Kind {
		case llmclient.EventDelta:
			decoder.WriteString(ev.Text)
		case llmclient.EventDone:
			decoder.Close()
			raw := decoder.Raw()
			if ctx.Err() == nil {
				if err := e.convos.FinishTurn(ctx, conversationID, raw, userSeq); err != nil {
					log.Printf("chat: persist assistant message: %v", err)
				}
			}
			e.usage.Record(usage.Record{
				UserID:       req.UserID,
				Model:        req.ModelID,
				InputTokens:  llmclient.CountMessageTokens(messages),
				OutputTokens: llmclient.CountTokens(raw),
			})
			sink.Done()
			return
		case llmclient.EventError:
			decoder.Close()
			// Partial content is still worth keeping, unless the client is
			// gone, in which case the turn is abandoned.
			if raw := decoder.Raw(); raw != "" && ctx.Err() == nil {
				if err := e.convos.FinishTurn(ctx, conversationID, raw, userSeq); err != nil {
					log.Printf("chat: persist partial assistant message: %v", err)
				}
			}
			e.usage.Record(usage.Record{
				UserID:      req.UserID,
				Model:       req.ModelID,
				InputTokens: llmclient.CountMessageTokens(messages),
				Failed:      true,
			})
			sink.Error(ev.Err)
			return
		}
	}
	// Channel closed without a terminal event, treat as an upstream failure.
	decoder.Close()
	sink.Error(fmt.Errorf("model %s: stream ended without completion", req.ModelID))
}

// sinkAdapter converts decoder callbacks into sink calls, parsing payloads on
// the way. A malformed payload is dropped and the relay continues.
type sinkAdapter struct {
	sink  Sink
	model string
}

func (a *sinkAdapter) Prose(text string) { a.sink.Delta(text) }

func (a *sinkAdapter) Payload(raw string) {
	m, err := stream.ParsePayload(raw)
	if err != nil {
		log.Printf("chat: dropping malformed edit payload from %s: %v", a.model, err)
		return
	}
	a.sink.Payload(m)
}
