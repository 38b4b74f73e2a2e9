package chat

import (
	"time"

	"github.com/sonrisasaludable/frontdesk/internal/model/chat"
)

// ExpiryPolicy decides whether a session should be forgotten.
type ExpiryPolicy interface {
	Expired(session chat.Session, now time.Time) bool
}

// NeverExpire keeps sessions for the process lifetime.
type NeverExpire struct{}

func (NeverExpire) Expired(chat.Session, time.Time) bool { return false }

// IdleTimeout expires sessions inactive for longer than the duration.
type IdleTimeout time.Duration

func (d IdleTimeout) Expired(session chat.Session, now time.Time) bool {
	if d <= 0 {
		return false
	}
	return now.Sub(session.LastActiveAt) > time.Duration(d)
}

// PolicyFor maps a configured idle TTL onto a policy; zero never expires.
func PolicyFor(ttl time.Duration) ExpiryPolicy {
	if ttl <= 0 {
		return NeverExpire{}
	}
	return IdleTimeout(ttl)
}
