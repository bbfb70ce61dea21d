package chat

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"codeassist/internal/bundle"
	"codeassist/internal/convo"
	"codeassist/internal/llmclient"
	"codeassist/internal/segregate"
	"codeassist/internal/stream"
	"codeassist/internal/usage"
)

type recordingSink struct {
	deltas   []string
	payloads []stream.ModificationArray
	done     bool
	err      error
}

func (s *recordingSink) Delta(text string)                  { s.deltas = append(s.deltas, text) }
func (s *recordingSink) Payload(m stream.ModificationArray) { s.payloads = append(s.payloads, m) }
func (s *recordingSink) Done()                              { s.done = true }
func (s *recordingSink) Error(err error)                    { s.err = err }

func (s *recordingSink) text() string {
	out := ""
	for _, d := range s.deltas {
		out += d
	}
	return out
}

type recordingUsage struct {
	records []usage.Record
}

func (r *recordingUsage) Record(rec usage.Record) { r.records = append(r.records, rec) }

const classifierDoc = `{"segregated_query_array":[{
  "segregation_type": "modify",
  "relevant_files": ["main.js"],
  "relevant_snippets": [],
  "continuation": false,
  "segregated_query": "add logging"
}]}`

func testEngine(t *testing.T, cap llmclient.Capability, rec usage.Recorder) (*Engine, *convo.Manager) {
	t.Helper()
	catalog := llmclient.NewCatalog()
	catalog.Register("test-model", cap)
	convos, err := convo.NewManager(convo.NewMemoryStore())
	require.NoError(t, err)
	seg := segregate.New(&llmclient.FakeJSONClient{Docs: []json.RawMessage{json.RawMessage(classifierDoc)}})
	return NewEngine(seg, catalog, convos, rec), convos
}

func testRequest() Request {
	b, _ := bundle.Split([]string{"main.js"}, []string{"console.log(1)\n"})
	return Request{
		UserID:         "u1",
		RepositoryName: "repo",
		Iteration:      1,
		Query:          "add logging to main.js",
		ModelID:        "test-model",
		Bundle:         b,
		Streaming:      true,
	}
}

func TestRunStreamsProseAndPayload(t *testing.T) {
	payload := `{"modifications_array":[{"filename":"main.js","changes_array":[{"original_code_snippet":"console.log(1)","modified_code_snippet":"logger.info(1)"}]}]}`
	full := "Here is the change. " + stream.SentinelString + payload + stream.SentinelString + " Done."

	// Chunk mid-sentinel to exercise reassembly through the whole stack.
	raw := []byte(full)
	var chunks []string
	for i := 0; i < len(raw); i += 7 {
		end := i + 7
		if end > len(raw) {
			end = len(raw)
		}
		chunks = append(chunks, string(raw[i:end]))
	}

	rec := &recordingUsage{}
	eng, convos := testEngine(t, llmclient.NewFakeCapability("gen", chunks...), rec)
	var sink recordingSink
	require.NoError(t, eng.Run(context.Background(), testRequest(), &sink))

	require.True(t, sink.done)
	require.NoError(t, sink.err)
	require.Equal(t, "Here is the change.  Done.", sink.text())
	require.Len(t, sink.payloads, 1)
	require.Equal(t, "main.js", sink.payloads[0].Modifications[0].Filename)

	// The conversation log holds the raw response, payload included.
	conv, err := convos.Resolve(context.Background(), "u1", "repo", 1)
	require.NoError(t, err)
	msgs, err := convos.Messages(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, convo.RoleUser, msgs[0].Role)
	require.Equal(t, full, msgs[1].Content)

	require.Len(t, rec.records, 1)
	require.False(t, rec.records[0].Failed)
	require.Positive(t, rec.records[0].OutputTokens)
}

func TestRunUnknownModelIsSynchronous(t *testing.T) {
	eng, _ := testEngine(t, llmclient.NewFakeCapability("gen", "x"), nil)
	req := testRequest()
	req.ModelID = "nope"

	var sink recordingSink
	err := eng.Run(context.Background(), req, &sink)
	require.ErrorIs(t, err, llmclient.ErrUnknownModel)
	require.ErrorContains(t, err, "nope")
	require.Empty(t, sink.deltas)
	require.False(t, sink.done)
}

func TestRunClassificationFailureLeavesConversationUntouched(t *testing.T) {
	catalog := llmclient.NewCatalog()
	catalog.Register("test-model", llmclient.NewFakeCapability("gen", "x"))
	convos, err := convo.NewManager(convo.NewMemoryStore())
	require.NoError(t, err)
	seg := segregate.New(&llmclient.FakeJSONClient{Docs: []json.RawMessage{json.RawMessage(`{"segregated_query_array":[]}`)}})
	eng := NewEngine(seg, catalog, convos, nil)

	var sink recordingSink
	err = eng.Run(context.Background(), testRequest(), &sink)
	require.ErrorIs(t, err, segregate.ErrClassification)

	conv, err := convos.Resolve(context.Background(), "u1", "repo", 1)
	require.NoError(t, err)
	msgs, err := convos.Messages(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestRunMissingConversation(t *testing.T) {
	eng, _ := testEngine(t, llmclient.NewFakeCapability("gen", "x"), nil)
	req := testRequest()
	req.Iteration = 4

	var sink recordingSink
	err := eng.Run(context.Background(), req, &sink)
	require.ErrorIs(t, err, convo.ErrNotFound)
}

func TestRunUpstreamErrorInBand(t *testing.T) {
	cap := llmclient.NewFakeCapability("gen", "partial ", "never sent")
	cap.FailAfter = 1

	rec := &recordingUsage{}
	eng, convos := testEngine(t, cap, rec)
	var sink recordingSink
	require.NoError(t, eng.Run(context.Background(), testRequest(), &sink))

	require.Error(t, sink.err)
	require.False(t, sink.done)
	require.Equal(t, "partial ", sink.text())

	// User message persisted, partial assistant output kept best-effort.
	conv, err := convos.Resolve(context.Background(), "u1", "repo", 1)
	require.NoError(t, err)
	msgs, err := convos.Messages(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "partial ", msgs[1].Content)

	require.Len(t, rec.records, 1)
	require.True(t, rec.records[0].Failed)
}

func TestRunMalformedPayloadDroppedRelayContinues(t *testing.T) {
	full := "before " + stream.SentinelString + "not json" + stream.SentinelString + " after"
	eng, _ := testEngine(t, llmclient.NewFakeCapability("gen", full), nil)

	var sink recordingSink
	require.NoError(t, eng.Run(context.Background(), testRequest(), &sink))
	require.True(t, sink.done)
	require.Empty(t, sink.payloads)
	require.Equal(t, "before  after", sink.text())
}

func TestRunNonStreaming(t *testing.T) {
	req := testRequest()
	req.Streaming = false

	eng, _ := testEngine(t, llmclient.NewFakeCapability("gen", "all ", "at ", "once"), nil)
	var sink recordingSink
	require.NoError(t, eng.Run(context.Background(), req, &sink))
	require.True(t, sink.done)
	require.Equal(t, []string{"all at once"}, sink.deltas)
}

func TestRunEditRewritesTurn(t *testing.T) {
	eng, convos := testEngine(t, llmclient.NewFakeCapability("gen", "answer"), nil)
	ctx := context.Background()

	var sink recordingSink
	require.NoError(t, eng.Run(ctx, testRequest(), &sink))
	require.True(t, sink.done)

	req := testRequest()
	req.Query = "edited question"
	req.EditSequence = 1
	var sink2 recordingSink
	require.NoError(t, eng.Run(ctx, req, &sink2))
	require.True(t, sink2.done)

	conv, err := convos.Resolve(ctx, "u1", "repo", 1)
	require.NoError(t, err)
	msgs, err := convos.Messages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "edited question", msgs[0].Content)
	require.Equal(t, 1, msgs[0].Sequence)
}
