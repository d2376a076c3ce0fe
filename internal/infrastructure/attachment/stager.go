// Package attachment turns client-supplied images into temporary PNG files
// that the browser can upload.
package attachment

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chat-bridge/internal/application/port/output"
	"chat-bridge/internal/domain/entity"

	"github.com/disintegration/imaging"
)

var _ output.AttachmentStagerPort = (*Stager)(nil)

const (
	defaultMaxDimension = 4096
	defaultMaxPixels    = 64_000_000
)

type Config struct {
	// Dir holds staged files. Empty means os.TempDir().
	Dir string
	// AllowPaths accepts a path to an existing local file in place of
	// base64 data.
	AllowPaths bool
	// MaxDimension caps the longer side; larger images are scaled down.
	MaxDimension int
	// MaxPixels rejects images whose decoded size would exceed this many
	// pixels. It is checked from the header before any pixel data is read.
	MaxPixels int
}

type Stager struct {
	cfg Config
}

func NewStager(cfg Config) (*Stager, error) {
	if cfg.Dir == "" {
		cfg.Dir = os.TempDir()
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = defaultMaxDimension
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = defaultMaxPixels
	}
	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Stager{cfg: cfg}, nil
}

// Stage decodes raw and writes it as a fresh PNG. The caller owns the file
// and must pass the result to Remove.
func (s *Stager) Stage(raw string) (*entity.StagedAttachment, error) {
	data, err := s.load(raw)
	if err != nil {
		return nil, err
	}

	if err := s.checkSize(data); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: not a supported image: %v", entity.ErrAttachmentDecode, err)
	}
	img = s.fit(img)

	f, err := os.CreateTemp(s.cfg.Dir, fmt.Sprintf("image_%d_*.png", time.Now().UnixMilli()))
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}
	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("encode staged file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("close staged file: %w", err)
	}

	b := img.Bounds()
	return &entity.StagedAttachment{Path: f.Name(), Width: b.Dx(), Height: b.Dy()}, nil
}

// Remove deletes a staged file. A file that is already gone is not an error.
func (s *Stager) Remove(a *entity.StagedAttachment) error {
	if a == nil || a.Path == "" {
		return nil
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove staged file: %w", err)
	}
	return nil
}

func (s *Stager) checkSize(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: not a supported image: %v", entity.ErrAttachmentDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty image %dx%d", entity.ErrAttachmentDecode, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(s.cfg.MaxPixels) {
		return fmt.Errorf("%w: image %dx%d exceeds %d pixels", entity.ErrAttachmentDecode, cfg.Width, cfg.Height, s.cfg.MaxPixels)
	}
	return nil
}

func (s *Stager) fit(img image.Image) image.Image {
	b := img.Bounds()
	limit := s.cfg.MaxDimension
	if b.Dx() <= limit && b.Dy() <= limit {
		return img
	}
	return imaging.Fit(img, limit, limit, imaging.Lanczos)
}

func (s *Stager) load(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty image", entity.ErrAttachmentDecode)
	}

	if s.cfg.AllowPaths {
		if path, ok := localPath(raw); ok {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("%w: read %s: %v", entity.ErrAttachmentDecode, path, err)
			}
			return data, nil
		}
	}

	return decodeBase64(raw)
}

// localPath reports whether raw names an existing regular file.
func localPath(raw string) (string, bool) {
	if strings.HasPrefix(raw, "data:") || len(raw) > 4096 {
		return "", false
	}
	path := raw
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		path = filepath.Join(home, path[2:])
	}
	if !filepath.IsAbs(path) && !strings.HasPrefix(path, "./") && !strings.HasPrefix(path, "../") {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}

var encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

func decodeBase64(raw string) ([]byte, error) {
	if strings.HasPrefix(raw, "data:") {
		comma := strings.IndexByte(raw, ',')
		if comma < 0 || !strings.Contains(raw[:comma], ";base64") {
			return nil, fmt.Errorf("%w: malformed data URI", entity.ErrAttachmentDecode)
		}
		raw = raw[comma+1:]
	}
	raw = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, raw)

	for _, enc := range encodings {
		if data, err := enc.DecodeString(raw); err == nil && len(data) > 0 {
			return data, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid base64", entity.ErrAttachmentDecode)
}
