package chat_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	model "github.com/sonrisasaludable/frontdesk/internal/model/chat"
	chat "github.com/sonrisasaludable/frontdesk/internal/service/chat"
)

func TestHistoryFirstLookupIsEmpty(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	transcript := svc.History(ctx, "unseen")
	if transcript.Len() != 0 {
		t.Fatalf("expected empty transcript, got %d turns", transcript.Len())
	}
}

func TestHistoryReturnsSameTranscript(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	first := svc.History(ctx, "conversacion_principal")
	if _, err := svc.SaveMessage(ctx, model.Message{SessionID: "conversacion_principal", Role: model.RoleUser, Content: "hola"}); err != nil {
		t.Fatalf("SaveMessage err: %v", err)
	}

	second := svc.History(ctx, "conversacion_principal")
	if first != second {
		t.Fatal("expected the same transcript instance on second lookup")
	}
	if second.Len() != 1 {
		t.Fatalf("expected 1 turn, got %d", second.Len())
	}
}

func TestSaveMessagePreservesOrder(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	contents := []string{"uno", "dos", "tres", "cuatro"}
	for i, content := range contents {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		if _, err := svc.SaveMessage(ctx, model.Message{SessionID: "s", Role: role, Content: content}); err != nil {
			t.Fatalf("SaveMessage err: %v", err)
		}
	}

	messages, err := svc.LoadTranscript(ctx, "s")
	if err != nil {
		t.Fatalf("LoadTranscript err: %v", err)
	}
	for i, msg := range messages {
		if msg.Content != contents[i] {
			t.Fatalf("turn %d: got %q want %q", i, msg.Content, contents[i])
		}
		if msg.ID == "" || msg.SessionID != "s" {
			t.Fatalf("turn %d missing id or session: %+v", i, msg)
		}
	}
}

func TestLoadTranscriptReturnsCopy(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	if _, err := svc.SaveMessage(ctx, model.Message{SessionID: "s", Role: model.RoleUser, Content: "hola"}); err != nil {
		t.Fatalf("SaveMessage err: %v", err)
	}
	messages, _ := svc.LoadTranscript(ctx, "s")
	messages[0].Content = "mutated"

	again, _ := svc.LoadTranscript(ctx, "s")
	if again[0].Content != "hola" {
		t.Fatalf("transcript mutated through returned slice: %q", again[0].Content)
	}
}

func TestSaveMessageRequiresSessionID(t *testing.T) {
	svc := chat.NewService()

	if _, err := svc.SaveMessage(context.Background(), model.Message{Content: "hola"}); !errors.Is(err, chat.ErrSessionIDRequired) {
		t.Fatalf("expected ErrSessionIDRequired, got %v", err)
	}
}

func TestServiceGetSession(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}

	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()

	if _, err := svc.GetSession(ctx, "missing"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestIdleTimeoutExpiresSessions(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	svc := chat.NewService(chat.WithExpiry(chat.IdleTimeout(10*time.Minute)), chat.WithClock(clock))
	ctx := context.Background()

	first := svc.History(ctx, "s")
	if _, err := svc.SaveMessage(ctx, model.Message{SessionID: "s", Role: model.RoleUser, Content: "hola"}); err != nil {
		t.Fatalf("SaveMessage err: %v", err)
	}

	now = now.Add(5 * time.Minute)
	if svc.History(ctx, "s") != first {
		t.Fatal("session should still be alive after 5 minutes")
	}

	now = now.Add(11 * time.Minute)
	if _, err := svc.GetSession(ctx, "s"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected expired session to be hidden, got %v", err)
	}
	fresh := svc.History(ctx, "s")
	if fresh == first || fresh.Len() != 0 {
		t.Fatal("expected a fresh empty transcript after expiry")
	}
}

func TestSweepRemovesExpiredSessions(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := chat.NewService(chat.WithExpiry(chat.PolicyFor(time.Minute)), chat.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	svc.History(ctx, "a")
	svc.History(ctx, "b")
	now = now.Add(2 * time.Minute)
	svc.History(ctx, "c")

	if removed := svc.Sweep(ctx); removed != 2 {
		t.Fatalf("expected 2 sessions swept, got %d", removed)
	}
	if _, err := svc.GetSession(ctx, "c"); err != nil {
		t.Fatalf("recent session should survive sweep: %v", err)
	}
}

func TestNeverExpireByDefault(t *testing.T) {
	if chat.PolicyFor(0).Expired(model.Session{}, time.Now().Add(24*365*time.Hour)) {
		t.Fatal("zero ttl must never expire")
	}
}

func TestSaveExchangeKeepsPairsContiguous(t *testing.T) {
	svc := chat.NewService()
	ctx := context.Background()
	const sessionID = "conversacion_principal"
	const writers = 16

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tag := fmt.Sprintf("turno %d", n)
			if _, err := svc.SaveExchange(ctx, sessionID,
				model.Message{Role: model.RoleUser, Content: tag},
				model.Message{Role: model.RoleAssistant, Content: tag},
			); err != nil {
				t.Errorf("SaveExchange err: %v", err)
			}
		}(i)
	}
	wg.Wait()

	messages := svc.History(ctx, sessionID).Messages()
	if len(messages) != 2*writers {
		t.Fatalf("expected %d turns, got %d", 2*writers, len(messages))
	}
	for i := 0; i < len(messages); i += 2 {
		user, assistant := messages[i], messages[i+1]
		if user.Role != model.RoleUser || assistant.Role != model.RoleAssistant {
			t.Fatalf("turns %d-%d out of order: %s then %s", i, i+1, user.Role, assistant.Role)
		}
		if user.Content != assistant.Content {
			t.Fatalf("exchange split at %d: %q answered by %q", i, user.Content, assistant.Content)
		}
		if user.SessionID != sessionID || user.ID == "" {
			t.Fatalf("unexpected stored message: %+v", user)
		}
	}
}

func TestSaveExchangeRequiresSessionID(t *testing.T) {
	svc := chat.NewService()
	_, err := svc.SaveExchange(context.Background(), "", model.Message{Role: model.RoleUser, Content: "hola"})
	if !errors.Is(err, chat.ErrSessionIDRequired) {
		t.Fatalf("expected ErrSessionIDRequired, got %v", err)
	}
}
