// Package diagnostics stores what the page looked like when an exchange
// failed in a way only the page can explain.
package diagnostics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"chat-bridge/internal/application/port/output"
	"chat-bridge/internal/domain/entity"
)

var _ output.DiagnosticsPort = (*Writer)(nil)

type Writer struct {
	dir   string
	clean *CleanConfig
}

func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create diagnostics dir: %w", err)
	}
	return &Writer{dir: dir, clean: &DefaultCleanConfig}, nil
}

// Capture writes <id>.jpg and <id>.html. Either input may
// be nil when the browser could not produce it.
func (w *Writer) Capture(ctx context.Context, exchangeID string, shot *entity.Screenshot, snap *entity.PageSnapshot) error {
	if shot == nil && snap == nil {
		return fmt.Errorf("nothing to capture for %s", exchangeID)
	}
	base := filepath.Join(w.dir, exchangeID)

	if shot != nil {
		ext := shot.Format
		if ext == "" || ext == "jpeg" {
			ext = "jpg"
		}
		if err := os.WriteFile(base+"."+ext, shot.Data, 0644); err != nil {
			return fmt.Errorf("write screenshot: %w", err)
		}
	}

	if snap != nil {
		doc := fmt.Sprintf("<!-- %s -->\n%s\n", snap.URL, CleanHTML(snap.HTML, w.clean))
		if err := os.WriteFile(base+".html", []byte(doc), 0644); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
	}
	return nil
}
