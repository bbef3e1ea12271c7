package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/lettervault/lettervault/internal/metrics"
	"github.com/lettervault/lettervault/internal/models"
)

// maxToolIterations bounds the tool-calling loop for one question.
const maxToolIterations = 5

const chatSystemPrompt = `You are an expert on Warren Buffett's Berkshire Hathaway shareholder letters.

You MUST use the search_letters tool to find relevant passages before
answering any question. Never answer from general knowledge alone.

When answering:
- Base your answer only on the retrieved passages.
- Quote or paraphrase the letters and always mention which year's
  letter the information comes from.
- If a question concerns a specific year or period, pass the year to
  the tool.
- If the search returns nothing relevant, say so plainly instead of
  guessing.
- Keep the numbers exact. Do not round figures from the letters.`

// searchToolName is the function name the model calls for retrieval.
const searchToolName = "search_letters"

var searchTool = llms.Tool{
	Type: "function",
	Function: &llms.FunctionDefinition{
		Name:        searchToolName,
		Description: "Semantic search over Berkshire Hathaway shareholder letters. Returns the most relevant passages with their source file and year.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
				"topK": map[string]any{
					"type":        "integer",
					"description": "Number of passages to return",
				},
				"year": map[string]any{
					"type":        "integer",
					"description": "Restrict results to a single letter year",
				},
			},
			"required": []string{"query"},
		},
	},
}

// searchArgs mirrors the tool's JSON argument schema.
type searchArgs struct {
	Query string `json:"query"`
	TopK  int    `json:"topK,omitempty"`
	Year  *int   `json:"year,omitempty"`
}

// Source identifies a letter a chat answer drew from.
type Source struct {
	Name string
	Year int
}

// Answer is the model's reply plus the letters it consulted.
type Answer struct {
	Text    string
	Sources []Source
}

// generator is the slice of llm.Model that chat needs.
type generator interface {
	GenerateWithTools(ctx context.Context, messages []llms.MessageContent, tools []llms.Tool) (*llms.ContentChoice, error)
}

// searcher is the slice of SearchService that chat needs.
type searcher interface {
	Search(ctx context.Context, opts SearchOptions) (*models.SearchResponse, error)
}

// Session holds the conversation history for one chat.
type Session struct {
	ID       string
	messages []llms.MessageContent
}

// ChatService answers questions with a retrieval tool loop.
type ChatService struct {
	model   generator
	search  searcher
	logger  *slog.Logger
	metrics *metrics.Collector
}

// SetMetrics attaches an optional stats collector.
func (s *ChatService) SetMetrics(c *metrics.Collector) {
	s.metrics = c
}

// NewChatService creates a chat service.
func NewChatService(model generator, search searcher, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{model: model, search: search, logger: logger}
}

// NewSession starts a conversation with the system instructions loaded.
func (s *ChatService) NewSession() *Session {
	return &Session{
		ID: uuid.New().String(),
		messages: []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, chatSystemPrompt),
		},
	}
}

// Ask appends the question to the session, runs the tool-calling loop
// and returns the model's answer with the sources it searched.
func (s *ChatService) Ask(ctx context.Context, sess *Session, question string) (*Answer, error) {
	if question == "" {
		return nil, &InvalidArgumentError{Field: "question", Reason: "must not be empty"}
	}

	sess.messages = append(sess.messages, llms.TextParts(llms.ChatMessageTypeHuman, question))

	seen := make(map[Source]struct{})
	var sources []Source

	for i := 0; i < maxToolIterations; i++ {
		generateStart := time.Now()
		choice, err := s.model.GenerateWithTools(ctx, sess.messages, []llms.Tool{searchTool})
		if s.metrics != nil {
			s.metrics.RecordTiming(metrics.OpGenerate, time.Since(generateStart))
		}
		if err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		s.recordTokens(choice)

		if len(choice.ToolCalls) == 0 {
			sess.messages = append(sess.messages, llms.TextParts(llms.ChatMessageTypeAI, choice.Content))
			return &Answer{Text: choice.Content, Sources: sortedSources(sources)}, nil
		}

		// Echo the assistant's tool calls into the history before the
		// tool responses, as the chat protocol requires.
		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if choice.Content != "" {
			assistant.Parts = append(assistant.Parts, llms.TextContent{Text: choice.Content})
		}
		for _, tc := range choice.ToolCalls {
			assistant.Parts = append(assistant.Parts, tc)
		}
		sess.messages = append(sess.messages, assistant)

		for _, tc := range choice.ToolCalls {
			content := s.runToolCall(ctx, tc, seen, &sources)
			sess.messages = append(sess.messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       tc.FunctionCall.Name,
					Content:    content,
				}},
			})
		}
	}

	return nil, fmt.Errorf("no answer after %d tool iterations", maxToolIterations)
}

// runToolCall executes one search_letters call and returns the JSON
// payload for the tool response. Errors are reported to the model as
// text so it can rephrase or answer without results.
func (s *ChatService) runToolCall(ctx context.Context, tc llms.ToolCall, seen map[Source]struct{}, sources *[]Source) string {
	if tc.FunctionCall == nil || tc.FunctionCall.Name != searchToolName {
		return fmt.Sprintf(`{"error": %q}`, "unknown tool "+toolCallName(tc))
	}

	var args searchArgs
	if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &args); err != nil {
		return fmt.Sprintf(`{"error": %q}`, "invalid arguments: "+err.Error())
	}

	s.logger.Debug("running search tool call", "query", args.Query, "topK", args.TopK)

	response, err := s.search.Search(ctx, SearchOptions{
		Query: args.Query,
		TopK:  args.TopK,
		Year:  args.Year,
	})
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}

	for _, r := range response.Results {
		src := Source{Name: r.Source, Year: r.Year}
		if _, ok := seen[src]; !ok {
			seen[src] = struct{}{}
			*sources = append(*sources, src)
		}
	}

	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(payload)
}

// recordTokens pulls token counts out of the provider's generation
// info when present. Key names follow the langchaingo providers.
func (s *ChatService) recordTokens(choice *llms.ContentChoice) {
	if s.metrics == nil || choice.GenerationInfo == nil {
		return
	}
	input := tokenCount(choice.GenerationInfo, "PromptTokens", "input_tokens")
	output := tokenCount(choice.GenerationInfo, "CompletionTokens", "output_tokens")
	if input > 0 || output > 0 {
		s.metrics.RecordTokens(metrics.OpGenerate, input, output)
	}
}

func tokenCount(info map[string]any, keys ...string) int64 {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}

func toolCallName(tc llms.ToolCall) string {
	if tc.FunctionCall != nil {
		return tc.FunctionCall.Name
	}
	return ""
}

func sortedSources(sources []Source) []Source {
	sort.Slice(sources, func(i, j int) bool {
		if sources[i].Year != sources[j].Year {
			return sources[i].Year < sources[j].Year
		}
		return sources[i].Name < sources[j].Name
	})
	return sources
}
