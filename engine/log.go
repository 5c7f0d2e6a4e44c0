package engine

import (
	"github.com/willibrandon/otengine/request"
	"github.com/willibrandon/otengine/vector"
)

// log is an append-only, indexed record of committed requests. An
// entry's position in the slice is its stable identity for the
// association rule; nothing relies on pointer identity.
type log struct {
	entries []request.Request
}

func (l *log) append(r request.Request) int {
	l.entries = append(l.entries, r)
	return len(l.entries) - 1
}

// LogEntries returns a defensive copy of every request committed so
// far, in commit order. Exposed for snapshot persistence.
func (e *Engine) LogEntries() []request.Request {
	return append([]request.Request(nil), e.log.entries...)
}

// requestsByUser returns the indices, in log order, of every entry
// authored by user.
func (l *log) requestsByUser(user vector.SessionID) []int {
	var out []int
	for i, r := range l.entries {
		if r.User() == user {
			out = append(out, i)
		}
	}
	return out
}

// requestByUser returns the index of the entry by user whose recorded
// vector[user] equals count, if any.
func (l *log) requestByUser(user vector.SessionID, count uint64) (int, bool) {
	for _, i := range l.requestsByUser(user) {
		if l.entries[i].Vector().Get(user) == count {
			return i, true
		}
	}
	return 0, false
}

// firstRequestByUser returns the index of the earliest entry by user,
// i.e. the one with the smallest recorded vector[user].
func (l *log) firstRequestByUser(user vector.SessionID) (int, bool) {
	indices := l.requestsByUser(user)
	if len(indices) == 0 {
		return 0, false
	}
	best := indices[0]
	for _, i := range indices[1:] {
		if l.entries[i].Vector().Get(user) < l.entries[best].Vector().Get(user) {
			best = i
		}
	}
	return best, true
}
