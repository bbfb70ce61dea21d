// Package segregate classifies one raw user query into an ordered list of
// typed sub-tasks, each bound to the file and snippet names it references.
package segregate

import (
	"context"
	"errors"
	"fmt"

	"codeassist/internal/bundle"
	"codeassist/internal/llmclient"
	"codeassist/internal/util/jsonutil"
)

// Type is the closed set of task categories.
type Type string

const (
	TypeDebug   Type = "debug"
	TypeModify  Type = "modify"
	TypeExplain Type = "explain"
	TypeGeneral Type = "general"
)

// ParseType validates a classifier-supplied category.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeDebug, TypeModify, TypeExplain, TypeGeneral:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown segregation type %q", s)
}

// Task is one independently answerable sub-task. Order within the produced
// slice mirrors the order intents appear in the original query.
type Task struct {
	Type         Type
	Text         string
	FileNames    []string
	SnippetNames []string
	Continuation bool
}

// HistoryEntry is one prior turn shown to the classifier.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ErrClassification is the fatal failure mode of this phase: the classifier
// call failed or returned a structure the contract forbids. There is no
// fallback path; the whole request fails.
var ErrClassification = errors.New("segregate: classification failed")

// Segregator drives the classification model.
type Segregator struct {
	client llmclient.JSONClient
}

func New(client llmclient.JSONClient) *Segregator {
	return &Segregator{client: client}
}

// wire types mirror the classifier's contract exactly.

type classifierInput struct {
	UserQuery           string            `json:"user_query"`
	CodeSnippets        map[string]string `json:"code_snippets"`
	CodeFiles           map[string]string `json:"code_files"`
	ConversationHistory []HistoryEntry    `json:"conversation_history"`
}

type classifierOutput struct {
	Tasks []classifierTask `json:"segregated_query_array"`
}

type classifierTask struct {
	SegregationType  string   `json:"segregation_type"`
	RelevantSnippets []string `json:"relevant_snippets"`
	RelevantFiles    []string `json:"relevant_files"`
	Continuation     bool     `json:"continuation"`
	SegregatedQuery  string   `json:"segregated_query"`
}

// Segregate produces the ordered task list for one request. Every returned
// task references only names present in b; a fabricated name, an unknown
// category, or an empty task list is an ErrClassification.
func (s *Segregator) Segregate(ctx context.Context, queryText string, b bundle.Bundle, history []HistoryEntry) ([]Task, error) {
	input := classifierInput{
		UserQuery:           queryText,
		CodeSnippets:        b.SnippetMap(),
		CodeFiles:           b.FileMap(),
		ConversationHistory: history,
	}
	raw, err := s.client.GenerateJSON(ctx, classifierInstruction, input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassification, err)
	}
	var out classifierOutput
	if err := jsonutil.UnmarshalRaw(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassification, err)
	}
	tasks, err := validate(out, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassification, err)
	}
	return tasks, nil
}

func validate(out classifierOutput, b bundle.Bundle) ([]Task, error) {
	if len(out.Tasks) == 0 {
		return nil, errors.New("empty task list")
	}
	tasks := make([]Task, 0, len(out.Tasks))
	for i, raw := range out.Tasks {
		typ, err := ParseType(raw.SegregationType)
		if err != nil {
			return nil, fmt.Errorf("task %d: %v", i, err)
		}
		for _, name := range raw.RelevantFiles {
			if !b.HasFile(name) {
				return nil, fmt.Errorf("task %d references unknown file %q", i, name)
			}
		}
		for _, name := range raw.RelevantSnippets {
			if !b.HasSnippet(name) {
				return nil, fmt.Errorf("task %d references unknown snippet %q", i, name)
			}
		}
		tasks = append(tasks, Task{
			Type:         typ,
			Text:         raw.SegregatedQuery,
			FileNames:    raw.RelevantFiles,
			SnippetNames: raw.RelevantSnippets,
			Continuation: raw.Continuation,
		})
	}
	return tasks, nil
}

// Refs converts the task list into per-task bundle references, in task order.
func Refs(tasks []Task) []bundle.Refs {
	out := make([]bundle.Refs, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, bundle.Refs{FileNames: t.FileNames, SnippetNames: t.SnippetNames})
	}
	return out
}
