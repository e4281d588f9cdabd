package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"potholytics-service/internal/comparison"
	"potholytics-service/internal/domain/pothole"
	"potholytics-service/internal/results"
	"potholytics-service/internal/upload"
)

// Session is one browser tab's workflow state. All fields are guarded by mu;
// network calls run with mu released.
type Session struct {
	ID string

	mu         sync.Mutex
	file       upload.MediaFile
	preview    *upload.Preview
	model      string
	panel      *results.Panel
	board      *comparison.Board
	processing bool
	cancel     context.CancelFunc
	stops      int
	createdAt  time.Time
	touchedAt  time.Time
}

func newSession() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		panel:     results.NewPanel(),
		board:     comparison.NewBoard(),
		createdAt: now,
		touchedAt: now,
	}
}

// beginProcessing marks the session busy and hands back the context the
// detection must run under plus the release that clears the flag.
func (s *Session) beginProcessing(parent context.Context) (context.Context, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processing {
		return nil, nil, pothole.ErrBusy
	}
	ctx, cancel := context.WithCancel(parent)
	s.processing = true
	s.cancel = cancel

	release := func() {
		cancel()
		s.mu.Lock()
		s.processing = false
		s.cancel = nil
		s.touchedAt = time.Now()
		s.mu.Unlock()
	}
	return ctx, release, nil
}

// abort cancels the in-flight detection, if there is one. Every call counts as
// a stop so multi-step workflows can notice it between steps.
func (s *Session) abort() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

func (s *Session) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

func (s *Session) Processing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing
}

type SessionView struct {
	ID         string          `json:"id"`
	Processing bool            `json:"processing"`
	Model      string          `json:"model,omitempty"`
	File       *FileView       `json:"file,omitempty"`
	Preview    *upload.Preview `json:"preview,omitempty"`
	Results    results.View    `json:"results"`
	Comparison comparison.View `json:"comparison"`
	CreatedAt  time.Time       `json:"created_at"`
}

type FileView struct {
	Name        string           `json:"name"`
	ContentType string           `json:"content_type"`
	Kind        upload.MediaKind `json:"kind"`
	Size        int              `json:"size"`
}

func (s *Session) view() SessionView {
	v := SessionView{
		ID:         s.ID,
		Processing: s.processing,
		Model:      s.model,
		Preview:    s.preview,
		Results:    s.panel.Snapshot(),
		Comparison: s.board.Snapshot(),
		CreatedAt:  s.createdAt,
	}
	if !s.file.Empty() {
		v.File = &FileView{
			Name:        s.file.Name,
			ContentType: s.file.ContentType,
			Kind:        s.file.Kind(),
			Size:        len(s.file.Data),
		}
	}
	return v
}

// SessionStore keeps live sessions and drops idle ones.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	onExpire func(id string)
}

func NewSessionStore(ttl time.Duration, onExpire func(id string)) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		onExpire: onExpire,
	}
}

func (st *SessionStore) Create() *Session {
	s := newSession()
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

func (st *SessionStore) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: session %s", pothole.ErrNotFound, id)
	}
	return s, nil
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle longer than the TTL and returns how many went.
// Busy sessions are kept.
func (st *SessionStore) Sweep(now time.Time) int {
	if st.ttl <= 0 {
		return 0
	}

	var expired []string
	st.mu.Lock()
	for id, s := range st.sessions {
		s.mu.Lock()
		idle := now.Sub(s.touchedAt) > st.ttl && !s.processing
		s.mu.Unlock()
		if idle {
			delete(st.sessions, id)
			expired = append(expired, id)
		}
	}
	st.mu.Unlock()

	if st.onExpire != nil {
		for _, id := range expired {
			st.onExpire(id)
		}
	}
	return len(expired)
}

// RunCleanup sweeps on every tick until ctx is done.
func (st *SessionStore) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			st.Sweep(now)
		}
	}
}
