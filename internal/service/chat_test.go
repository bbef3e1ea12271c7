package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/lettervault/lettervault/internal/models"
)

type fakeGenerator struct {
	choices  []*llms.ContentChoice
	err      error
	received [][]llms.MessageContent
}

func (f *fakeGenerator) GenerateWithTools(_ context.Context, messages []llms.MessageContent, _ []llms.Tool) (*llms.ContentChoice, error) {
	f.received = append(f.received, messages)
	if f.err != nil {
		return nil, f.err
	}
	choice := f.choices[0]
	f.choices = f.choices[1:]
	return choice, nil
}

type fakeSearcher struct {
	lastOpts SearchOptions
	response *models.SearchResponse
	err      error
}

func (f *fakeSearcher) Search(_ context.Context, opts SearchOptions) (*models.SearchResponse, error) {
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func toolCallChoice(args string) *llms.ContentChoice {
	return &llms.ContentChoice{
		ToolCalls: []llms.ToolCall{{
			ID:   "call-1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      searchToolName,
				Arguments: args,
			},
		}},
	}
}

func textChoice(text string) *llms.ContentChoice {
	return &llms.ContentChoice{Content: text}
}

func TestAskRunsSearchToolLoop(t *testing.T) {
	gen := &fakeGenerator{choices: []*llms.ContentChoice{
		toolCallChoice(`{"query": "insurance float", "topK": 3}`),
		textChoice("Float is money we hold but don't own (1997 letter)."),
	}}
	search := &fakeSearcher{response: &models.SearchResponse{
		Results: []models.SearchResult{
			{Content: "float arises because...", Source: "1997.pdf", Year: 1997, Score: 0.9},
		},
		TotalResults: 1,
		SearchQuery:  "insurance float",
	}}

	svc := NewChatService(gen, search, nil)
	sess := svc.NewSession()

	answer, err := svc.Ask(context.Background(), sess, "What is float?")

	require.NoError(t, err)
	assert.Contains(t, answer.Text, "Float is money")
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, Source{Name: "1997.pdf", Year: 1997}, answer.Sources[0])

	assert.Equal(t, "insurance float", search.lastOpts.Query)
	assert.Equal(t, 3, search.lastOpts.TopK)

	// Second generation sees system, question, assistant tool call and
	// tool response.
	require.Len(t, gen.received, 2)
	last := gen.received[1]
	require.Len(t, last, 4)
	assert.Equal(t, llms.ChatMessageTypeTool, last[3].Role)
}

func TestAskPassesYearFilter(t *testing.T) {
	gen := &fakeGenerator{choices: []*llms.ContentChoice{
		toolCallChoice(`{"query": "financial crisis", "year": 2008}`),
		textChoice("In 2008 Buffett wrote about fear and greed."),
	}}
	search := &fakeSearcher{response: models.EmptyResponse("financial crisis")}

	svc := NewChatService(gen, search, nil)
	_, err := svc.Ask(context.Background(), svc.NewSession(), "What happened in 2008?")

	require.NoError(t, err)
	require.NotNil(t, search.lastOpts.Year)
	assert.Equal(t, 2008, *search.lastOpts.Year)
}

func TestAskDirectAnswerWithoutTools(t *testing.T) {
	gen := &fakeGenerator{choices: []*llms.ContentChoice{
		textChoice("Hello! Ask me about the letters."),
	}}
	svc := NewChatService(gen, &fakeSearcher{}, nil)
	sess := svc.NewSession()

	answer, err := svc.Ask(context.Background(), sess, "Hi")

	require.NoError(t, err)
	assert.Equal(t, "Hello! Ask me about the letters.", answer.Text)
	assert.Empty(t, answer.Sources)
}

func TestAskEmptyQuestion(t *testing.T) {
	svc := NewChatService(&fakeGenerator{}, &fakeSearcher{}, nil)

	_, err := svc.Ask(context.Background(), svc.NewSession(), "")

	var invalid *InvalidArgumentError
	assert.ErrorAs(t, err, &invalid)
}

func TestAskReportsSearchErrorToModel(t *testing.T) {
	gen := &fakeGenerator{choices: []*llms.ContentChoice{
		toolCallChoice(`{"query": ""}`),
		textChoice("I could not search the letters."),
	}}
	search := &fakeSearcher{err: &InvalidArgumentError{Field: "query", Reason: "must not be empty"}}

	svc := NewChatService(gen, search, nil)
	answer, err := svc.Ask(context.Background(), svc.NewSession(), "???")

	// The tool error goes back to the model, which still answers.
	require.NoError(t, err)
	assert.Contains(t, answer.Text, "could not search")

	last := gen.received[1]
	toolMsg := last[len(last)-1]
	resp, ok := toolMsg.Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Contains(t, resp.Content, "error")
}

func TestAskToolErrorPayloadsAreValidJSON(t *testing.T) {
	badName := &llms.ContentChoice{
		ToolCalls: []llms.ToolCall{{
			ID:   "call-1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      `search_"letters"`,
				Arguments: `{}`,
			},
		}},
	}
	badArgs := toolCallChoice(`{"query": 12`)
	gen := &fakeGenerator{choices: []*llms.ContentChoice{
		badName,
		badArgs,
		textChoice("Never mind."),
	}}

	svc := NewChatService(gen, &fakeSearcher{}, nil)
	_, err := svc.Ask(context.Background(), svc.NewSession(), "???")
	require.NoError(t, err)

	// Error payloads stay parseable even when the failure text itself
	// contains quotes.
	require.Len(t, gen.received, 3)
	for _, generation := range gen.received[1:] {
		toolMsg := generation[len(generation)-1]
		resp, ok := toolMsg.Parts[0].(llms.ToolCallResponse)
		require.True(t, ok)

		var payload map[string]string
		require.NoError(t, json.Unmarshal([]byte(resp.Content), &payload))
		assert.Contains(t, payload, "error")
	}
}

func TestAskBoundsToolIterations(t *testing.T) {
	var choices []*llms.ContentChoice
	for i := 0; i < maxToolIterations+1; i++ {
		choices = append(choices, toolCallChoice(`{"query": "again"}`))
	}
	gen := &fakeGenerator{choices: choices}
	search := &fakeSearcher{response: models.EmptyResponse("again")}

	svc := NewChatService(gen, search, nil)
	_, err := svc.Ask(context.Background(), svc.NewSession(), "loop forever")

	assert.Error(t, err)
	assert.Len(t, gen.received, maxToolIterations)
}

func TestAskPropagatesGenerationError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	svc := NewChatService(gen, &fakeSearcher{}, nil)

	_, err := svc.Ask(context.Background(), svc.NewSession(), "What is float?")
	assert.Error(t, err)
}

func TestNewSessionHasUniqueIDs(t *testing.T) {
	svc := NewChatService(&fakeGenerator{}, &fakeSearcher{}, nil)
	a, b := svc.NewSession(), svc.NewSession()
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEmpty(t, a.ID)
}
