package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/mapview/internal/db"
	"github.com/ziadkadry99/mapview/internal/llm"
)

type stubProvider struct {
	mu    sync.Mutex
	calls []llm.CompletionRequest
	reply string
	err   error
	block chan struct{}
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	block := p.block
	p.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Content: p.reply}, nil
}

func (p *stubProvider) lastRequest() llm.CompletionRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[len(p.calls)-1]
}

func setupService(t *testing.T, provider llm.Provider, opts Options) *Service {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewService(NewStore(database), provider, opts, zerolog.Nop())
}

func TestSendStoresExchange(t *testing.T) {
	p := &stubProvider{reply: "シカはせんべいが好きです"}
	svc := setupService(t, p, Options{SystemPrompt: "guide", HistoryLimit: 10})
	ctx := context.Background()

	reply, err := svc.Send(ctx, "", "what do deer eat?")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Role != llm.RoleAssistant || reply.Status != StatusDelivered || reply.Seq != 2 {
		t.Errorf("unexpected reply: %+v", reply)
	}

	msgs, err := svc.Store().Messages(ctx, reply.ConversationID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != llm.RoleUser || msgs[0].Status != StatusDelivered || msgs[0].Content != "what do deer eat?" {
		t.Errorf("unexpected user message: %+v", msgs[0])
	}

	req := p.lastRequest()
	if len(req.Messages) != 2 || req.Messages[0].Role != llm.RoleSystem || req.Messages[0].Content != "guide" {
		t.Errorf("unexpected provider request: %+v", req.Messages)
	}
}

func TestSendIncludesHistory(t *testing.T) {
	p := &stubProvider{reply: "ok"}
	svc := setupService(t, p, Options{HistoryLimit: 2})
	ctx := context.Background()

	first, err := svc.Send(ctx, "", "one")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := svc.Send(ctx, first.ConversationID, "two"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := svc.Send(ctx, first.ConversationID, "three"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// History limit 2 keeps the previous user/assistant pair only.
	req := p.lastRequest()
	var contents []string
	for _, m := range req.Messages {
		contents = append(contents, m.Content)
	}
	if strings.Join(contents, "|") != "two|ok|three" {
		t.Errorf("unexpected context: %v", contents)
	}
}

func TestSendEmptyInputIgnored(t *testing.T) {
	p := &stubProvider{reply: "ok"}
	svc := setupService(t, p, Options{})

	for _, in := range []string{"", "   ", "\n\t"} {
		_, err := svc.Send(context.Background(), "", in)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("Send(%q) error = %v, want ErrEmptyInput", in, err)
		}
	}
	if len(p.calls) != 0 {
		t.Errorf("provider should not be called, got %d calls", len(p.calls))
	}
}

func TestSendUnknownConversation(t *testing.T) {
	svc := setupService(t, &stubProvider{reply: "ok"}, Options{})
	_, err := svc.Send(context.Background(), "missing", "hello")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSendUpstreamFailure(t *testing.T) {
	p := &stubProvider{err: errors.New("503 service unavailable")}
	svc := setupService(t, p, Options{})
	ctx := context.Background()

	msg, err := svc.Submit(ctx, "", "", "hello")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	_, err = svc.Complete(ctx, msg)

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if upstream.Provider != "stub" {
		t.Errorf("provider = %q", upstream.Provider)
	}

	msgs, _ := svc.Store().Messages(ctx, msg.ConversationID)
	if len(msgs) != 1 {
		t.Fatalf("expected the user message only, got %d", len(msgs))
	}
	if msgs[0].Status != StatusFailed || !strings.Contains(msgs[0].Error, "503") {
		t.Errorf("expected failed message with error text, got %+v", msgs[0])
	}
}

func TestSendWithoutProvider(t *testing.T) {
	svc := setupService(t, nil, Options{})
	_, err := svc.Send(context.Background(), "", "hello")
	if !errors.Is(err, ErrNoProvider) {
		t.Errorf("expected ErrNoProvider, got %v", err)
	}
}

func TestSendTimeout(t *testing.T) {
	p := &stubProvider{reply: "late", block: make(chan struct{})}
	svc := setupService(t, p, Options{Timeout: 50 * time.Millisecond})

	_, err := svc.Send(context.Background(), "", "hello")
	var upstream *UpstreamError
	if !errors.As(err, &upstream) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected upstream deadline error, got %v", err)
	}
}

func setupServer(t *testing.T, svc *Service) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	RegisterRoutes(r, svc)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketPendingThenReply(t *testing.T) {
	svc := setupService(t, &stubProvider{reply: "hi there"}, Options{})
	srv := setupServer(t, svc)
	conn := dial(t, srv)

	conn.WriteJSON(wsRequest{Type: "message", Content: "hello"})

	var pending, reply wsResponse
	if err := conn.ReadJSON(&pending); err != nil {
		t.Fatalf("read pending: %v", err)
	}
	if pending.Type != "pending" || pending.Message == nil || pending.Message.Content != "hello" {
		t.Fatalf("unexpected pending event: %+v", pending)
	}
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if reply.Type != "reply" || reply.Message.Content != "hi there" {
		t.Fatalf("unexpected reply event: %+v", reply)
	}
	if reply.ConversationID != pending.ConversationID {
		t.Error("reply should belong to the pending conversation")
	}

	resp, err := http.Get(srv.URL + "/api/chat/" + reply.ConversationID + "/messages")
	if err != nil {
		t.Fatalf("GET transcript: %v", err)
	}
	defer resp.Body.Close()
	var msgs []Message
	json.NewDecoder(resp.Body).Decode(&msgs)
	if len(msgs) != 2 {
		t.Errorf("expected 2 transcript entries, got %d", len(msgs))
	}
}

func TestWebSocketFailedEvent(t *testing.T) {
	svc := setupService(t, &stubProvider{err: errors.New("boom")}, Options{})
	srv := setupServer(t, svc)
	conn := dial(t, srv)

	conn.WriteJSON(wsRequest{Type: "message", Content: "hello"})

	var pending, failed wsResponse
	conn.ReadJSON(&pending)
	if err := conn.ReadJSON(&failed); err != nil {
		t.Fatalf("read failed event: %v", err)
	}
	if failed.Type != "failed" || !strings.Contains(failed.Content, "boom") {
		t.Errorf("unexpected event: %+v", failed)
	}
	if failed.Message == nil || failed.Message.Status != StatusFailed {
		t.Errorf("failed event should carry the failed message: %+v", failed.Message)
	}
}

func TestWebSocketIgnoresBlankAndRejectsUnknown(t *testing.T) {
	svc := setupService(t, &stubProvider{reply: "ok"}, Options{})
	srv := setupServer(t, svc)
	conn := dial(t, srv)

	conn.WriteJSON(wsRequest{Type: "message", Content: "   "})
	conn.WriteJSON(wsRequest{Type: "shout", Content: "x"})

	// The blank message produces nothing; the next event is the error.
	var resp wsResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != "error" || !strings.Contains(resp.Content, "unknown message type") {
		t.Errorf("unexpected event: %+v", resp)
	}
}

func TestTranscriptNotFound(t *testing.T) {
	svc := setupService(t, &stubProvider{}, Options{})
	r := chi.NewRouter()
	RegisterRoutes(r, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/nope/messages", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestAppendConcurrentFileDB(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	store := NewStore(database)
	ctx := context.Background()

	convID, err := store.CreateConversation(ctx, "")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.Append(ctx, convID, llm.RoleUser, fmt.Sprintf("msg %d", i), StatusSent); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("Append: %v", err)
	}

	msgs, err := store.Messages(ctx, convID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != n {
		t.Fatalf("expected %d messages, got %d", n, len(msgs))
	}
	for i, m := range msgs {
		if m.Seq != i+1 {
			t.Errorf("message %d has seq %d", i, m.Seq)
		}
	}
}

func TestConcurrentRepliesFileDB(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	svc := NewService(NewStore(database), &stubProvider{reply: "ok"}, Options{HistoryLimit: 10}, zerolog.Nop())
	ctx := context.Background()

	first, err := svc.Submit(ctx, "", "", "one")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	second, err := svc.Submit(ctx, first.ConversationID, "", "two")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	var wg sync.WaitGroup
	for _, m := range []*Message{first, second} {
		wg.Add(1)
		go func(m *Message) {
			defer wg.Done()
			if _, err := svc.Complete(ctx, m); err != nil {
				t.Errorf("Complete: %v", err)
			}
		}(m)
	}
	wg.Wait()

	msgs, err := svc.Store().Messages(ctx, first.ConversationID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	for _, m := range msgs {
		if m.Status != StatusDelivered {
			t.Errorf("message %d: status %s", m.Seq, m.Status)
		}
	}
}

func TestDeliverIsAtomic(t *testing.T) {
	svc := setupService(t, nil, Options{})
	ctx := context.Background()
	store := svc.Store()

	user, err := svc.Submit(ctx, "", "", "hello")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	missing := &Message{ID: "no-such-message", ConversationID: user.ConversationID}
	if _, err := store.Deliver(ctx, missing, "reply"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	msgs, _ := store.Messages(ctx, user.ConversationID)
	if len(msgs) != 1 {
		t.Fatalf("reply stored despite failed status update: %d messages", len(msgs))
	}

	reply, err := store.Deliver(ctx, user, "reply")
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if reply.Seq != 2 || user.Status != StatusDelivered {
		t.Errorf("unexpected state: reply %+v, user status %s", reply, user.Status)
	}
}
