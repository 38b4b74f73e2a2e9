// Package console runs the interactive patient conversation on a terminal.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sonrisasaludable/frontdesk/internal/logging"
)

const (
	PatientPrompt   = "Patient: "
	AssistantPrefix = "Assistant: "

	GoodbyeText   = "¡Gracias por preferir Sonrisa Saludable! 😊"
	InterruptText = "¡Hasta pronto! 👋"
)

var exitKeywords = map[string]struct{}{
	"salir": {},
	"exit":  {},
	"quit":  {},
}

// Responder produces the assistant reply for one patient message.
type Responder interface {
	Reply(ctx context.Context, sessionID, message string) string
}

// Loop reads patient lines and prints assistant replies.
type Loop struct {
	In        io.Reader
	Out       io.Writer
	Responder Responder
	SessionID string
	// Banner is printed once before the first prompt.
	Banner string
	Log    *logrus.Entry
}

// IsExit reports whether input ends the conversation.
func IsExit(input string) bool {
	_, ok := exitKeywords[strings.ToLower(strings.TrimSpace(input))]
	return ok
}

// Run blocks until the patient leaves, input ends or ctx is cancelled. The
// latter two are clean exits and return nil; only a read failure is an error.
func (l *Loop) Run(ctx context.Context) error {
	log := l.Log
	if log == nil {
		log = logging.Component(logging.Discard(), "console")
	}

	done := make(chan struct{})
	defer close(done)
	lines, readErr := readLines(ctx, done, l.In)

	if l.Banner != "" {
		fmt.Fprintln(l.Out, l.Banner)
	}

	for {
		fmt.Fprint(l.Out, "\n"+PatientPrompt)

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(l.Out, "\n\n"+InterruptText)
			return nil
		case next, ok := <-lines:
			if !ok {
				fmt.Fprintln(l.Out, "\n\n"+InterruptText)
				return <-readErr
			}
			line = next
		}

		input := strings.TrimSpace(line)
		if IsExit(input) {
			fmt.Fprintln(l.Out, GoodbyeText)
			return nil
		}
		if input == "" {
			continue
		}

		fmt.Fprint(l.Out, AssistantPrefix)
		reply := l.Responder.Reply(ctx, l.SessionID, input)
		if ctx.Err() != nil {
			fmt.Fprintln(l.Out, "\n\n"+InterruptText)
			return nil
		}
		fmt.Fprintln(l.Out, reply)
		log.WithField("session", l.SessionID).Debug("turn completed")
	}
}

// readLines feeds input lines into a channel so the loop can also watch ctx.
// The channel is closed at end of input or once done is closed; the read
// error, if any, is sent on the second channel afterwards.
func readLines(ctx context.Context, done <-chan struct{}, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errs := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errs <- nil
				return
			case <-done:
				errs <- nil
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- fmt.Errorf("read input: %w", err)
			return
		}
		errs <- nil
	}()

	return lines, errs
}
