package exchangetest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"chat-bridge/internal/application/port/output"
	"chat-bridge/internal/domain/entity"
)

var _ output.AttachmentStagerPort = (*Stager)(nil)

// Stager writes attachments verbatim into Dir. The raw value "!!!" and the
// empty string are rejected as undecodable.
type Stager struct {
	Dir string

	mu      sync.Mutex
	staged  []string
	removed []string
}

func (s *Stager) Stage(raw string) (*entity.StagedAttachment, error) {
	if raw == "" || raw == "!!!" {
		return nil, fmt.Errorf("%w: invalid base64", entity.ErrAttachmentDecode)
	}
	f, err := os.CreateTemp(s.Dir, fmt.Sprintf("image_%d_*.png", time.Now().UnixMilli()))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if _, err := f.WriteString(raw); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.staged = append(s.staged, f.Name())
	s.mu.Unlock()
	return &entity.StagedAttachment{Path: f.Name(), Width: 1, Height: 1}, nil
}

func (s *Stager) Remove(a *entity.StagedAttachment) error {
	if a == nil {
		return nil
	}
	s.mu.Lock()
	s.removed = append(s.removed, a.Path)
	s.mu.Unlock()
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Stager) Staged() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.staged...)
}

func (s *Stager) Removed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.removed...)
}
