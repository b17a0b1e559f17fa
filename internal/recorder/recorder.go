package recorder

import "PaperTicker/internal/model"

// SessionEvent marks the start or end of a process run.
type SessionEvent struct {
	SessionID string
	Phase     string // "START" or "STOP"
	Display   string
	Note      string
}

// RefreshEvent records one operation against the panel. E-paper panels wear
// with every full refresh, so the journal keeps a count per session.
type RefreshEvent struct {
	SessionID string
	Kind      model.RefreshKind
	Outcome   model.Outcome
	Note      string
}

// Recorder persists the panel refresh journal. Prices are never stored.
type Recorder interface {
	RecordSession(evt *SessionEvent) error
	RecordRefresh(evt *RefreshEvent) error
	Close() error
}
