package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"github.com/sonrisasaludable/frontdesk/internal/analysis/intent"
	"github.com/sonrisasaludable/frontdesk/internal/config"
	"github.com/sonrisasaludable/frontdesk/internal/logging"
	"github.com/sonrisasaludable/frontdesk/internal/model/chat"
	"github.com/sonrisasaludable/frontdesk/internal/model/clinic"
	chatservice "github.com/sonrisasaludable/frontdesk/internal/service/chat"
)

const (
	notConfiguredText     = "Sistema no configurado correctamente."
	generationErrorPrefix = "Error al procesar la consulta: "
)

var (
	ErrEmptyMessage  = errors.New("message is empty")
	ErrEmptyResponse = errors.New("model returned an empty response")
)

// Lookuper fetches clinic context for a query. It never fails; problems are
// reported inside the returned text.
type Lookuper interface {
	Lookup(ctx context.Context, query string) string
}

// Options configures how the service builds prompts.
type Options struct {
	// Mode is config.ModeFacts or config.ModeRAG.
	Mode  string
	Facts clinic.Facts
	// Knowledge is required in RAG mode.
	Knowledge Lookuper
	// Router answers recognised questions without calling the model.
	Router     *intent.Router
	JSONOutput bool
	// HistoryLimit caps replayed turns; zero replays the whole session.
	HistoryLimit int
	Logger       *logrus.Entry
}

// Answer is one assistant reply.
type Answer struct {
	Content string
	Intent  intent.Label
}

// Service encapsulates AI-powered chat functionality
type Service struct {
	sessions *chatservice.Service
	prompts  *PromptBuilder
	opts     Options
	chain    compose.Runnable[map[string]any, *schema.Message]
	log      *logrus.Entry
}

// NewService compiles the prompt → model chain around chatModel.
func NewService(ctx context.Context, chatModel model.BaseChatModel, sessions *chatservice.Service, opts Options) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if opts.Mode == "" {
		opts.Mode = config.ModeFacts
	}
	if opts.Mode == config.ModeRAG && opts.Knowledge == nil {
		return nil, errors.New("rag mode requires a knowledge lookup")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Component(logging.Discard(), "ai")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		sessions: sessions,
		prompts:  NewPromptBuilder(opts.Facts, opts.JSONOutput),
		opts:     opts,
		chain:    runnable,
		log:      opts.Logger,
	}, nil
}

// Reply answers one patient message and never fails: errors are rendered as
// user-facing text and the session is left untouched.
func (s *Service) Reply(ctx context.Context, sessionID, message string) string {
	if s == nil || s.chain == nil {
		return notConfiguredText
	}

	answer, err := s.GenerateResponse(ctx, sessionID, message)
	if err != nil {
		return generationErrorPrefix + err.Error()
	}
	return answer.Content
}

// GenerateResponse runs one exchange and records both turns on success.
func (s *Service) GenerateResponse(ctx context.Context, sessionID, message string) (Answer, error) {
	message, err := s.validate(sessionID, message)
	if err != nil {
		return Answer{}, err
	}

	if decision := s.route(message); decision.Matched() {
		answer := Answer{Content: decision.Answer, Intent: decision.Intent}
		if err := s.RecordExchange(ctx, sessionID, message, answer); err != nil {
			return Answer{}, err
		}
		s.log.WithFields(logrus.Fields{"session": sessionID, "intent": decision.Intent}).Info("answered from router")
		return answer, nil
	}

	input := s.buildChainInput(ctx, sessionID, message)
	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to run AI chain: %w", err)
	}

	answer, err := toAnswer(response)
	if err != nil {
		return Answer{}, err
	}
	if err := s.RecordExchange(ctx, sessionID, message, answer); err != nil {
		return Answer{}, err
	}

	s.log.WithFields(logrus.Fields{"session": sessionID, "mode": s.opts.Mode, "length": len(answer.Content)}).Info("generated response")
	return answer, nil
}

// StreamResponse streams the reply, calling onDelta for every non-empty
// chunk. Turns are recorded once the stream completes.
func (s *Service) StreamResponse(ctx context.Context, sessionID, message string, onDelta func(string)) (Answer, error) {
	message, err := s.validate(sessionID, message)
	if err != nil {
		return Answer{}, err
	}
	if onDelta == nil {
		onDelta = func(string) {}
	}

	if decision := s.route(message); decision.Matched() {
		answer := Answer{Content: decision.Answer, Intent: decision.Intent}
		onDelta(answer.Content)
		if err := s.RecordExchange(ctx, sessionID, message, answer); err != nil {
			return Answer{}, err
		}
		return answer, nil
	}

	input := s.buildChainInput(ctx, sessionID, message)
	stream, err := s.chain.Stream(ctx, input)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to stream AI chain output: %w", err)
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return Answer{}, fmt.Errorf("failed to receive stream chunk: %w", recvErr)
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" {
			onDelta(chunk.Content)
		}
	}

	if len(chunks) == 0 {
		return Answer{}, ErrEmptyResponse
	}
	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to concat stream chunks: %w", err)
	}

	answer, err := toAnswer(response)
	if err != nil {
		return Answer{}, err
	}
	if err := s.RecordExchange(ctx, sessionID, message, answer); err != nil {
		return Answer{}, err
	}

	s.log.WithFields(logrus.Fields{"session": sessionID, "mode": s.opts.Mode, "chunks": len(chunks)}).Info("streamed response")
	return answer, nil
}

// RecordExchange appends the user turn and the assistant turn as one pair.
func (s *Service) RecordExchange(ctx context.Context, sessionID, userMessage string, answer Answer) error {
	_, err := s.sessions.SaveExchange(ctx, sessionID,
		chat.Message{Role: chat.RoleUser, Content: userMessage},
		chat.Message{Role: chat.RoleAssistant, Content: answer.Content, Intent: string(answer.Intent)},
	)
	if err != nil {
		return fmt.Errorf("failed to save exchange: %w", err)
	}
	return nil
}

func (s *Service) validate(sessionID, message string) (string, error) {
	if s == nil || s.chain == nil {
		return "", errors.New(notConfiguredText)
	}
	if strings.TrimSpace(sessionID) == "" {
		return "", chatservice.ErrSessionIDRequired
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	return message, nil
}

func (s *Service) route(message string) intent.Decision {
	if s.opts.Router == nil {
		return intent.Decision{}
	}
	return s.opts.Router.Route(message)
}

func (s *Service) buildChainInput(ctx context.Context, sessionID, message string) map[string]any {
	transcript := s.sessions.History(ctx, sessionID)
	return map[string]any{
		"system":  s.buildSystemPrompt(ctx, message),
		"history": s.buildHistoryMessages(transcript.Messages()),
		"query":   message,
	}
}

func (s *Service) buildSystemPrompt(ctx context.Context, message string) string {
	if s.opts.Mode != config.ModeRAG {
		return s.prompts.FactsPrompt()
	}

	retrieved := s.opts.Knowledge.Lookup(ctx, message)
	return s.prompts.AgentPrompt(retrieved)
}

func (s *Service) buildHistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if limit := s.opts.HistoryLimit; limit > 0 && len(messages) > limit {
		startIdx = len(messages) - limit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Content))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Content, nil))
		}
	}

	return history
}

func toAnswer(response *schema.Message) (Answer, error) {
	if response == nil {
		return Answer{}, ErrEmptyResponse
	}
	content := ExtractOutput(response.Content)
	if content == "" {
		return Answer{}, ErrEmptyResponse
	}
	return Answer{Content: content}, nil
}
