package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingResponder struct {
	mu       sync.Mutex
	messages []string
	sessions []string
	reply    string
}

func (r *recordingResponder) Reply(_ context.Context, sessionID, message string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	r.sessions = append(r.sessions, sessionID)
	return r.reply
}

func (r *recordingResponder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

func runLoop(t *testing.T, input string, responder Responder) string {
	t.Helper()
	var out bytes.Buffer
	loop := &Loop{In: strings.NewReader(input), Out: &out, Responder: responder, SessionID: "conversacion_principal"}
	require.NoError(t, loop.Run(context.Background()))
	return out.String()
}

func TestExitKeywordsStopWithoutDispatch(t *testing.T) {
	for _, keyword := range []string{"salir", "SALIR", "  Exit  ", "quit", "Quit"} {
		t.Run(keyword, func(t *testing.T) {
			responder := &recordingResponder{reply: "nunca"}
			out := runLoop(t, keyword+"\nhola\n", responder)

			assert.Empty(t, responder.calls())
			assert.Contains(t, out, GoodbyeText)
			assert.NotContains(t, out, AssistantPrefix)
		})
	}
}

func TestBlankInputRepromptsWithoutDispatch(t *testing.T) {
	responder := &recordingResponder{reply: "x"}
	out := runLoop(t, "\n   \n\t\nsalir\n", responder)

	assert.Empty(t, responder.calls())
	assert.Equal(t, 4, strings.Count(out, PatientPrompt))
}

func TestDispatchPrintsReply(t *testing.T) {
	responder := &recordingResponder{reply: "Nuestros horarios son de 9:00 a 19:00."}
	out := runLoop(t, "  ¿horario?  \nsalir\n", responder)

	assert.Equal(t, []string{"¿horario?"}, responder.calls())
	assert.Equal(t, []string{"conversacion_principal"}, responder.sessions)
	assert.Contains(t, out, AssistantPrefix+"Nuestros horarios son de 9:00 a 19:00.\n")
	assert.True(t, strings.HasSuffix(out, GoodbyeText+"\n"))
}

func TestEndOfInputExitsCleanly(t *testing.T) {
	responder := &recordingResponder{reply: "ok"}
	out := runLoop(t, "hola", responder)

	assert.Equal(t, []string{"hola"}, responder.calls())
	assert.Contains(t, out, InterruptText)
}

func TestCancelledContextSaysGoodbye(t *testing.T) {
	reader, writer := io.Pipe()
	defer writer.Close()

	var out syncBuffer
	loop := &Loop{In: reader, Out: &out, Responder: &recordingResponder{}, SessionID: "s"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancellation")
	}
	assert.Contains(t, out.String(), InterruptText)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("tty closed") }

func TestReadErrorIsReturned(t *testing.T) {
	var out bytes.Buffer
	loop := &Loop{In: failingReader{}, Out: &out, Responder: &recordingResponder{}}

	err := loop.Run(context.Background())
	assert.ErrorContains(t, err, "tty closed")
}

func TestBannerIsPrintedFirst(t *testing.T) {
	var out bytes.Buffer
	loop := &Loop{In: strings.NewReader("salir\n"), Out: &out, Responder: &recordingResponder{}, Banner: Banner("Sonrisa Saludable", "facts")}
	require.NoError(t, loop.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "SONRISA SALUDABLE")
	assert.Less(t, strings.Index(text, "SONRISA SALUDABLE"), strings.Index(text, PatientPrompt))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestReadLinesStopsWhenLoopIsDone(t *testing.T) {
	done := make(chan struct{})
	lines, errs := readLines(context.Background(), done, strings.NewReader("salir\nmás\notra\n"))

	require.Equal(t, "salir", <-lines)
	close(done)

	select {
	case err := <-errs:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reader goroutine still blocked after the loop finished")
	}
	_, open := <-lines
	assert.False(t, open)
}
