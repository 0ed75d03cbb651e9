package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ziadkadry99/mapview/internal/llm"
)

var (
	// ErrEmptyInput is returned for blank prompts; callers drop them silently.
	ErrEmptyInput = errors.New("chat: empty input")
	// ErrNoProvider is the upstream cause when no model is configured.
	ErrNoProvider = errors.New("chat: no provider configured")
)

// UpstreamError wraps a failure of the generative-model endpoint.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("chat upstream %s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Options tune how prompts are sent to the provider.
type Options struct {
	Model        string
	SystemPrompt string
	Timeout      time.Duration
	MaxTokens    int
	Temperature  float64
	HistoryLimit int
}

// Service runs conversations against an llm.Provider and keeps their
// transcripts in a Store.
type Service struct {
	store    *Store
	provider llm.Provider
	opts     Options
	log      zerolog.Logger
}

// NewService creates a chat service. provider may be nil, in which case
// every exchange fails with ErrNoProvider.
func NewService(store *Store, provider llm.Provider, opts Options, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		provider: provider,
		opts:     opts,
		log:      log.With().Str("component", "chat").Logger(),
	}
}

// Store returns the transcript store.
func (s *Service) Store() *Store { return s.store }

// Submit records the user's prompt in the transcript, creating a
// conversation when conversationID is empty. The returned message has
// status sent until Complete resolves it.
func (s *Service) Submit(ctx context.Context, conversationID, viewerSession, content string) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyInput
	}

	if conversationID == "" {
		id, err := s.store.CreateConversation(ctx, viewerSession)
		if err != nil {
			return nil, err
		}
		conversationID = id
	} else {
		ok, err := s.store.ConversationExists(ctx, conversationID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
		}
	}

	return s.store.Append(ctx, conversationID, llm.RoleUser, content, StatusSent)
}

// Complete asks the provider for a reply to a submitted message. On
// success the reply is appended as delivered. On failure the user message
// is marked failed with the error text and an *UpstreamError is returned.
func (s *Service) Complete(ctx context.Context, userMsg *Message) (*Message, error) {
	history, err := s.store.Recent(ctx, userMsg.ConversationID, s.opts.HistoryLimit)
	if err != nil {
		return nil, err
	}

	reply, callErr := s.call(ctx, history, userMsg.Content)
	if callErr != nil {
		s.log.Warn().Err(callErr).Str("conversation", userMsg.ConversationID).Msg("chat completion failed")
		// The request context may already be gone; the failure must still be recorded.
		if err := s.store.SetStatus(context.WithoutCancel(ctx), userMsg.ID, StatusFailed, callErr.Error()); err != nil {
			return nil, err
		}
		userMsg.Status = StatusFailed
		userMsg.Error = callErr.Error()
		return nil, callErr
	}

	return s.store.Deliver(ctx, userMsg, reply)
}

// Send submits content and waits for the reply.
func (s *Service) Send(ctx context.Context, conversationID, content string) (*Message, error) {
	msg, err := s.Submit(ctx, conversationID, "", content)
	if err != nil {
		return nil, err
	}
	return s.Complete(ctx, msg)
}

func (s *Service) call(ctx context.Context, history []Message, prompt string) (string, error) {
	if s.provider == nil {
		return "", &UpstreamError{Provider: "none", Err: ErrNoProvider}
	}

	msgs := make([]llm.Message, 0, len(history)+2)
	if s.opts.SystemPrompt != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: s.opts.SystemPrompt})
	}
	for _, h := range history {
		msgs = append(msgs, llm.Message{Role: h.Role, Content: h.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: prompt})

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model:       s.opts.Model,
		Messages:    msgs,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		return "", &UpstreamError{Provider: s.provider.Name(), Err: err}
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", &UpstreamError{Provider: s.provider.Name(), Err: errors.New("empty reply")}
	}

	s.log.Debug().
		Str("provider", s.provider.Name()).
		Int("input_tokens", resp.InputTokens).
		Int("output_tokens", resp.OutputTokens).
		Dur("elapsed", time.Since(start)).
		Msg("chat completion")
	return resp.Content, nil
}
