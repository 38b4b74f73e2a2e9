package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	aiService "github.com/sonrisasaludable/frontdesk/internal/service/ai"
	chatservice "github.com/sonrisasaludable/frontdesk/internal/service/chat"
)

type stubStreamer struct {
	chunks []string
	err    error
}

func (s *stubStreamer) StreamResponse(_ context.Context, _, _ string, onDelta func(string)) (aiService.Answer, error) {
	if s.err != nil {
		return aiService.Answer{}, s.err
	}
	for _, c := range s.chunks {
		onDelta(c)
	}
	return aiService.Answer{Content: strings.Join(s.chunks, "")}, nil
}

func setup(streamer Streamer) (*chi.Mux, *chatservice.Service) {
	chatSvc := chatservice.NewService()
	handler := New(streamer, chatSvc, nil)

	r := chi.NewRouter()
	r.Get("/sessions/{sessionID}/stream", handler.HandleStream)
	return r, chatSvc
}

func readEvents(t *testing.T, body string) []StreamResponse {
	t.Helper()
	var events []StreamResponse
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev StreamResponse
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("bad event %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestHandleStreamSendsDeltas(t *testing.T) {
	r, chatSvc := setup(&stubStreamer{chunks: []string{"Abrimos ", "a las 9:00"}})
	session, _ := chatSvc.CreateSession(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/stream?message=horario", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %s", ct)
	}

	events := readEvents(t, resp.Body.String())
	var kinds []string
	for _, ev := range events {
		kinds = append(kinds, ev.Event)
	}
	if strings.Join(kinds, ",") != "start,delta,delta,message,end" {
		t.Fatalf("unexpected event sequence: %v", kinds)
	}
	if events[3].Content != "Abrimos a las 9:00" {
		t.Fatalf("unexpected final message: %q", events[3].Content)
	}
	if !events[4].Finished {
		t.Fatal("end event should be finished")
	}
}

func TestHandleStreamReportsGenerationError(t *testing.T) {
	r, chatSvc := setup(&stubStreamer{err: errors.New("model down")})
	session, _ := chatSvc.CreateSession(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/stream?message=hola", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	events := readEvents(t, resp.Body.String())
	last := events[len(events)-1]
	if last.Event != "error" || !strings.Contains(last.Error, "model down") {
		t.Fatalf("expected error event, got %+v", last)
	}
}

func TestHandleStreamUnknownSession(t *testing.T) {
	r, _ := setup(&stubStreamer{})

	req := httptest.NewRequest(http.MethodGet, "/sessions/missing/stream?message=hola", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestHandleStreamRequiresMessage(t *testing.T) {
	r, chatSvc := setup(&stubStreamer{})
	session, _ := chatSvc.CreateSession(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/stream", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
