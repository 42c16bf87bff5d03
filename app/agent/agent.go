package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"

	"realtychat/model"
	"realtychat/store"
	"realtychat/types"
)

const rewriteSystemPrompt = `You are a prompt engineer. Rewrite the user request into a concise semantic search query for a real-estate vector database. Be specific about property type, location, budget, size and amenities when the user states them. Do not invent details the user did not give.`

const assistantSystemPrompt = `You are a friendly real-estate assistant.
Answer user queries about properties clearly and helpfully.
If available, include relevant property image URLs (one or more) as direct links in your response.
Make sure the image URLs are separate and easy to extract.`

// Reply is the outcome of one query-pipeline run. Text has all image URLs
// stripped out; together with Images it forms the new assistant turn.
type Reply struct {
	Text    string
	Images  []string
	Matches []string
}

// Config tunes the query pipeline.
type Config struct {
	TopK          int     // matches fetched per query
	ContextBudget int     // token budget for the matched context
	RewriteTemp   float64 // sampling temperature of the rewrite call
	ReplyTemp     float64 // sampling temperature of the reply call
}

// Agent runs the query pipeline: rewrite the utterance, embed it, search the
// index, assemble the prompt with the session transcript and generate the
// reply. All collaborators are injected once at construction.
type Agent struct {
	llm      model.Completer
	embedder model.Embedder
	index    store.Indexer
	cfg      Config
	encoding *tiktoken.Tiktoken
	logger   zerolog.Logger
}

func New(llm model.Completer, embedder model.Embedder, index store.Indexer, cfg Config, logger zerolog.Logger) *Agent {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = 6000
	}
	// cl100k_base covers the chat and embedding models in use; counting is
	// advisory, so a missing encoding file just disables the budget
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn().Err(err).Msg("token encoding unavailable, context budget disabled")
	}
	return &Agent{
		llm:      llm,
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		encoding: encoding,
		logger:   logger.With().Str("component", "agent").Logger(),
	}
}

// Answer handles one user turn. Any collaborator failure is returned as is;
// the HTTP layer folds them all into a single generic error.
func (a *Agent) Answer(ctx context.Context, userText string, history []types.ChatTurn) (*Reply, error) {
	searchPrompt, err := a.rewrite(ctx, userText)
	if err != nil {
		return nil, fmt.Errorf("rewrite query: %w", err)
	}
	a.logger.Debug().Str("search_prompt", searchPrompt).Msg("query rewritten")

	vector, err := a.embedder.Embed(ctx, searchPrompt)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := a.index.Search(ctx, vector, a.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	a.logger.Debug().Int("matches", len(matches)).Msg("index searched")

	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}
	messages := a.assemble(userText, history, a.trimToBudget(texts))

	reply, err := a.llm.Complete(ctx, messages, a.cfg.ReplyTemp)
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}

	cleaned, images := ExtractImages(reply)
	return &Reply{Text: cleaned, Images: images, Matches: texts}, nil
}

func (a *Agent) rewrite(ctx context.Context, userText string) (string, error) {
	messages := []model.Message{
		{Role: model.RoleSystem, Content: rewriteSystemPrompt},
		{Role: model.RoleUser, Content: userText},
	}
	return a.llm.Complete(ctx, messages, a.cfg.RewriteTemp)
}

// assemble builds the final prompt: the assistant persona, the prior turns
// replayed as alternating user/assistant messages, and a closing user message
// carrying the original utterance plus the matched context.
func (a *Agent) assemble(userText string, history []types.ChatTurn, matches []string) []model.Message {
	messages := make([]model.Message, 0, len(history)+2)
	messages = append(messages, model.Message{Role: model.RoleSystem, Content: assistantSystemPrompt})
	for _, turn := range history {
		if turn.IsUser() {
			messages = append(messages, model.Message{Role: model.RoleUser, Content: turn.User})
		} else {
			messages = append(messages, model.Message{Role: model.RoleAssistant, Content: turn.Bot})
		}
	}
	final := fmt.Sprintf("User asked: %q\n\nTop matches:\n%s", userText, strings.Join(matches, "\n\n"))
	messages = append(messages, model.Message{Role: model.RoleUser, Content: final})

	a.logger.Info().Int("prompt_tokens", a.countTokens(messages)).Int("turns", len(history)).Msg("prompt assembled")
	return messages
}

// trimToBudget drops trailing matches once the accumulated context exceeds
// the token budget. The best matches come first, so the weakest are cut.
func (a *Agent) trimToBudget(matches []string) []string {
	if a.encoding == nil {
		return matches
	}
	total := 0
	for i, m := range matches {
		total += len(a.encoding.Encode(m, nil, nil))
		if total > a.cfg.ContextBudget {
			a.logger.Warn().Int("kept", i).Int("dropped", len(matches)-i).Msg("context budget exceeded")
			return matches[:i]
		}
	}
	return matches
}

func (a *Agent) countTokens(messages []model.Message) int {
	if a.encoding == nil {
		return 0
	}
	total := 0
	for _, m := range messages {
		total += len(a.encoding.Encode(m.Content, nil, nil))
	}
	return total
}
