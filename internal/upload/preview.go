package upload

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"potholytics-service/internal/domain/pothole"
)

// Preview is a revocable handle onto a selected file, rendered by the client
// as <img> or <video> depending on Tag.
type Preview struct {
	Handle      string    `json:"handle"`
	Kind        MediaKind `json:"kind"`
	Tag         string    `json:"tag"`
	ContentType string    `json:"content_type"`
	Name        string    `json:"name"`
	Size        int       `json:"size"`
}

// Manager issues preview handles, at most one live handle per owner. Issuing a
// new handle for an owner releases the one it supersedes.
type Manager struct {
	mu       sync.Mutex
	previews map[string]MediaFile
	byOwner  map[string]string
	log      zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		previews: make(map[string]MediaFile),
		byOwner:  make(map[string]string),
		log:      log,
	}
}

// Accept issues a preview for file. Files that are neither image nor video get
// no preview and return nil; any earlier preview of the owner is released in
// both cases since it no longer shows the selected file.
func (m *Manager) Accept(owner string, file MediaFile) *Preview {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseLocked(owner)

	kind := file.Kind()
	if kind == KindUnknown || file.Empty() {
		m.log.Debug().
			Str("owner", owner).
			Str("content_type", file.ContentType).
			Msg("no preview for non-media file")
		return nil
	}

	handle := uuid.NewString()
	m.previews[handle] = file
	m.byOwner[owner] = handle

	tag := "video"
	if kind == KindImage {
		tag = "img"
	}

	return &Preview{
		Handle:      handle,
		Kind:        kind,
		Tag:         tag,
		ContentType: file.ContentType,
		Name:        file.Name,
		Size:        len(file.Data),
	}
}

func (m *Manager) Open(handle string) (MediaFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, ok := m.previews[handle]
	if !ok {
		return MediaFile{}, fmt.Errorf("%w: preview %s", pothole.ErrNotFound, handle)
	}
	return file, nil
}

// Release drops the owner's live preview, if any.
func (m *Manager) Release(owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked(owner)
}

func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.previews)
}

func (m *Manager) releaseLocked(owner string) {
	handle, ok := m.byOwner[owner]
	if !ok {
		return
	}
	delete(m.previews, handle)
	delete(m.byOwner, owner)
	m.log.Debug().Str("owner", owner).Str("handle", handle).Msg("preview released")
}
