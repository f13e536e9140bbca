// Package store holds the in-memory state of one canvas editing session.
package store

import (
	"errors"
	"sync"
	"time"

	"studyhub-be/pkg/canvas"
)

// Status messages shown next to the editor.
const (
	StatusLoadFailed = "Unable to load your saved notes."
	StatusSaved      = "Saved"
	StatusSaveFailed = "Save failed"
)

var (
	ErrSaving  = errors.New("store: save already running")
	ErrLoading = errors.New("store: load still running")
)

// Session is one open editor. Every field is guarded by mu; callers go
// through Do or View so each canvas operation runs to completion before the
// next one starts.
type Session struct {
	ID string

	mu        sync.Mutex
	userID    string
	doc       *canvas.Document
	viewport  canvas.Viewport
	status    string
	loading   bool
	saving    bool
	epoch     uint64
	updatedAt *time.Time
	touched   time.Time
}

func NewSession(id, userID string) *Session {
	return &Session{
		ID:       id,
		userID:   userID,
		doc:      canvas.New(),
		viewport: canvas.NewViewport(),
		touched:  time.Now(),
	}
}

// State is a copy of everything a client needs to redraw the editor.
type State struct {
	SessionID string          `json:"sessionId"`
	UserID    string          `json:"userId,omitempty"`
	Snapshot  canvas.Snapshot `json:"snapshot"`
	Zoom      float64         `json:"zoom"`
	Status    string          `json:"status,omitempty"`
	Loading   bool            `json:"loading"`
	Saving    bool            `json:"saving"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// Do runs fn with exclusive access to the document and viewport.
func (s *Session) Do(fn func(doc *canvas.Document, vp *canvas.Viewport)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()
	fn(s.doc, &s.viewport)
}

func (s *Session) View() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		SessionID: s.ID,
		UserID:    s.userID,
		Snapshot:  s.doc.Serialize(),
		Zoom:      s.viewport.Zoom,
		Status:    s.status,
		Loading:   s.loading,
		Saving:    s.saving,
		UpdatedAt: s.updatedAt,
	}
}

func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) LastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// BeginLoad marks a load for userID as in flight and returns its ticket.
// Any ticket issued earlier becomes stale.
func (s *Session) BeginLoad(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.userID = userID
	s.loading = true
	s.status = ""
	return s.epoch
}

// CancelLoad invalidates any in-flight load.
func (s *Session) CancelLoad() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.loading = false
}

// Forget drops the owner and any in-flight load. The document stays as it
// is but is no longer saved anywhere.
func (s *Session) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.userID = ""
	s.loading = false
	s.updatedAt = nil
}

// FinishLoad applies a load result if ticket is still current. A nil doc
// with a nil err means nothing was stored. On failure the status says so and
// the document becomes doc when something could be recovered, a blank one
// otherwise. It reports whether the result was applied.
func (s *Session) FinishLoad(ticket uint64, doc *canvas.Document, updatedAt *time.Time, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket != s.epoch {
		return false
	}
	s.loading = false
	switch {
	case err != nil:
		s.doc = doc
		if s.doc == nil {
			s.doc = canvas.New()
		}
		s.status = StatusLoadFailed
	case doc == nil:
		s.doc = canvas.New()
	default:
		s.doc = doc
	}
	s.updatedAt = updatedAt
	return true
}

// BeginSave snapshots the document for saving. It fails while another save
// or a load is running.
func (s *Session) BeginSave() (snap canvas.Snapshot, userID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.saving:
		return canvas.Snapshot{}, "", ErrSaving
	case s.loading:
		return canvas.Snapshot{}, "", ErrLoading
	}
	s.saving = true
	s.status = ""
	return s.doc.Serialize(), s.userID, nil
}

func (s *Session) FinishSave(updatedAt *time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	if err != nil {
		s.status = StatusSaveFailed
		return
	}
	s.status = StatusSaved
	s.updatedAt = updatedAt
}

func (s *Session) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}
