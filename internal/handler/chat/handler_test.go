package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/sonrisasaludable/frontdesk/internal/analysis/intent"
	aiService "github.com/sonrisasaludable/frontdesk/internal/service/ai"
	chatservice "github.com/sonrisasaludable/frontdesk/internal/service/chat"
)

type stubResponder struct {
	answer aiService.Answer
	err    error
	calls  []string
}

func (s *stubResponder) GenerateResponse(_ context.Context, sessionID, message string) (aiService.Answer, error) {
	s.calls = append(s.calls, sessionID+":"+message)
	if s.err != nil {
		return aiService.Answer{}, s.err
	}
	return s.answer, nil
}

func setupRouter(responder Responder) (*chi.Mux, *chatservice.Service) {
	chatSvc := chatservice.NewService()
	handler := New(chatSvc, responder, nil)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, chatSvc
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestCreateSession(t *testing.T) {
	r, chatSvc := setupRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/sessions", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var session struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := chatSvc.GetSession(context.Background(), session.ID); err != nil {
		t.Fatalf("created session not retrievable: %v", err)
	}
}

func TestSendMessageReturnsReply(t *testing.T) {
	responder := &stubResponder{answer: aiService.Answer{Content: "El precio de la limpieza dental es: $25.000", Intent: intent.CleaningPrice}}
	r, chatSvc := setupRouter(responder)
	session, _ := chatSvc.CreateSession(context.Background())

	resp := postJSON(r, "/sessions/"+session.ID+"/messages", map[string]string{"message": "precio limpieza"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["reply"] != "El precio de la limpieza dental es: $25.000" || body["intent"] != "cleaning_price" {
		t.Fatalf("unexpected body: %v", body)
	}
	if len(responder.calls) != 1 || responder.calls[0] != session.ID+":precio limpieza" {
		t.Fatalf("unexpected responder calls: %v", responder.calls)
	}
}

func TestSendMessageUnknownSession(t *testing.T) {
	r, _ := setupRouter(&stubResponder{})

	resp := postJSON(r, "/sessions/missing/messages", map[string]string{"message": "hola"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSendMessageEmpty(t *testing.T) {
	r, chatSvc := setupRouter(&stubResponder{err: aiService.ErrEmptyMessage})
	session, _ := chatSvc.CreateSession(context.Background())

	resp := postJSON(r, "/sessions/"+session.ID+"/messages", map[string]string{"message": "  "})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSendMessageGenerationFailure(t *testing.T) {
	r, chatSvc := setupRouter(&stubResponder{err: errors.New("upstream timeout")})
	session, _ := chatSvc.CreateSession(context.Background())

	resp := postJSON(r, "/sessions/"+session.ID+"/messages", map[string]string{"message": "hola"})
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}

func TestSendMessageInvalidBody(t *testing.T) {
	r, chatSvc := setupRouter(&stubResponder{})
	session, _ := chatSvc.CreateSession(context.Background())

	req := httptest.NewRequest(http.MethodPost, "/sessions/"+session.ID+"/messages", bytes.NewReader([]byte("{")))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSendMessageWithoutResponder(t *testing.T) {
	r, chatSvc := setupRouter(nil)
	session, _ := chatSvc.CreateSession(context.Background())

	resp := postJSON(r, "/sessions/"+session.ID+"/messages", map[string]string{"message": "hola"})
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestListMessages(t *testing.T) {
	r, chatSvc := setupRouter(nil)
	ctx := context.Background()
	session, _ := chatSvc.CreateSession(ctx)

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/messages", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/sessions/nope/messages", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
