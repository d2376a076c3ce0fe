package rod

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"chat-bridge/internal/application/port/output"
	"chat-bridge/internal/domain/entity"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

var _ output.ChatSessionPort = (*SessionAdapter)(nil)

var ErrInvalidURL = errors.New("invalid URL")

const (
	defaultTimeout      = 10 * time.Second
	defaultPopupTimeout = 2 * time.Second
	defaultWidth        = 1280
	defaultHeight       = 800
	fileDialogTimeout   = 5 * time.Second
	maxScreenshotWidth  = 1024
)

type BrowserConfig struct {
	Headless bool
	// Bin is the Chrome executable. Empty means the system browser, or a
	// downloaded one when none is installed.
	Bin string
	// UserDataDir is the persistent profile holding the site login.
	UserDataDir  string
	Stealth      bool
	SlowMotion   time.Duration
	Trace        bool
	Timeout      time.Duration
	PopupTimeout time.Duration
	NoSandbox    bool
	WindowWidth  int
	WindowHeight int
	Selectors    Selectors
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:     true,
		Stealth:      true,
		Timeout:      defaultTimeout,
		PopupTimeout: defaultPopupTimeout,
		WindowWidth:  defaultWidth,
		WindowHeight: defaultHeight,
		Selectors:    DefaultSelectors(),
	}
}

type elementHandle struct {
	target entity.Target
	el     *rod.Element
}

func (h *elementHandle) Target() entity.Target { return h.target }

// SessionAdapter owns one Chrome process and the single page the bridge
// drives. It is not safe for concurrent exchanges; callers serialize.
type SessionAdapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	cfg      BrowserConfig

	lost      atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
}

func NewSessionAdapter(ctx context.Context, cfg BrowserConfig) (*SessionAdapter, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PopupTimeout <= 0 {
		cfg.PopupTimeout = defaultPopupTimeout
	}
	if cfg.WindowWidth <= 0 || cfg.WindowHeight <= 0 {
		cfg.WindowWidth, cfg.WindowHeight = defaultWidth, defaultHeight
	}
	if cfg.Selectors == nil {
		cfg.Selectors = DefaultSelectors()
	}

	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain").
		Set("disable-blink-features", "AutomationControlled").
		Set("no-default-browser-check").
		Set("disable-default-apps").
		Set("disable-extensions").
		Set("window-size", fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight))
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	} else if path, found := launcher.LookPath(); found {
		l = l.Bin(path)
	}
	if cfg.UserDataDir != "" {
		l = l.UserDataDir(cfg.UserDataDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().
		ControlURL(controlURL).
		Trace(cfg.Trace).
		SlowMotion(cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	var page *rod.Page
	if cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  cfg.WindowWidth,
		Height: cfg.WindowHeight,
	}); err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	return &SessionAdapter{
		browser:  browser,
		launcher: l,
		page:     page,
		cfg:      cfg,
	}, nil
}

// Open loads the chat site, dismisses the promotional popup if one shows up
// and clicks the middle of the page so keyboard input lands in the app.
func (s *SessionAdapter) Open(ctx context.Context, site string) error {
	if err := s.Navigate(ctx, site); err != nil {
		return err
	}

	if popup, err := s.locateWithin(ctx, entity.TargetPopupDismiss, s.cfg.PopupTimeout); err == nil {
		_ = s.Click(ctx, popup)
	}

	center := proto.Point{X: float64(s.cfg.WindowWidth) / 2, Y: float64(s.cfg.WindowHeight) / 2}
	mouse := s.page.Context(ctx).Mouse
	if err := mouse.MoveTo(center); err != nil {
		return fmt.Errorf("move mouse: %w", err)
	}
	if err := mouse.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("focus page: %w", err)
	}
	return nil
}

func (s *SessionAdapter) Navigate(ctx context.Context, rawURL string) error {
	if err := validateURL(rawURL); err != nil {
		return err
	}
	page := s.page.Context(ctx)
	if err := page.Navigate(rawURL); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait for load: %w", err)
	}
	_ = page.WaitIdle(5 * time.Second)
	return nil
}

func (s *SessionAdapter) Locate(ctx context.Context, target entity.Target) (output.ElementHandle, error) {
	return s.locateWithin(ctx, target, s.cfg.Timeout)
}

func (s *SessionAdapter) locateWithin(ctx context.Context, target entity.Target, timeout time.Duration) (*elementHandle, error) {
	selector, xpath, err := s.cfg.Selectors.resolve(target)
	if err != nil {
		return nil, err
	}

	page := s.page.Context(ctx).Timeout(timeout)
	var el *rod.Element
	if xpath {
		el, err = page.ElementX(selector)
	} else {
		el, err = page.Element(selector)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || isNotFound(err) {
			return nil, fmt.Errorf("%s (%s) within %s: %w", target, selector, timeout, entity.ErrElementNotFound)
		}
		return nil, fmt.Errorf("locate %s: %w", target, err)
	}
	return &elementHandle{target: target, el: el}, nil
}

// Count reports how many elements match target right now, without waiting.
func (s *SessionAdapter) Count(ctx context.Context, target entity.Target) (int, error) {
	selector, xpath, err := s.cfg.Selectors.resolve(target)
	if err != nil {
		return 0, err
	}

	page := s.page.Context(ctx)
	var els rod.Elements
	if xpath {
		els, err = page.ElementsX(selector)
	} else {
		els, err = page.Elements(selector)
	}
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", target, err)
	}
	return len(els), nil
}

func (s *SessionAdapter) Type(ctx context.Context, h output.ElementHandle, text string) error {
	el, err := s.element(ctx, h)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("input failed: %w", err)
	}
	return nil
}

func (s *SessionAdapter) Click(ctx context.Context, h output.ElementHandle) error {
	el, err := s.element(ctx, h)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s failed: %w", h.Target(), err)
	}
	return nil
}

func (s *SessionAdapter) PressEnter(ctx context.Context, h output.ElementHandle) error {
	el, err := s.element(ctx, h)
	if err != nil {
		return err
	}
	if err := el.Type(input.Enter); err != nil {
		return fmt.Errorf("failed to press Enter: %w", err)
	}
	return nil
}

func (s *SessionAdapter) ReadText(ctx context.Context, h output.ElementHandle) (string, error) {
	el, err := s.element(ctx, h)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("%s detached: %w", h.Target(), entity.ErrElementNotFound)
		}
		return "", fmt.Errorf("read %s: %w", h.Target(), err)
	}
	return text, nil
}

// UploadFile clicks trigger with file-chooser interception armed and hands
// path to the chooser. When no chooser opens it sets the file on the page's
// file input directly.
func (s *SessionAdapter) UploadFile(ctx context.Context, trigger output.ElementHandle, path string) error {
	dialogCtx, cancel := context.WithTimeout(ctx, fileDialogTimeout)
	defer cancel()

	setFiles, armErr := s.page.Context(dialogCtx).HandleFileDialog()
	if err := s.Click(ctx, trigger); err != nil {
		return err
	}
	if armErr == nil {
		if err := setFiles([]string{path}); err == nil {
			return nil
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	h, err := s.locateWithin(ctx, entity.TargetFileInput, s.cfg.Timeout)
	if err != nil {
		return fmt.Errorf("no file chooser and no file input: %w", err)
	}
	if err := h.el.Context(ctx).SetFiles([]string{path}); err != nil {
		return fmt.Errorf("set files: %w", err)
	}
	return nil
}

// Screenshot captures the viewport as a JPEG at most 1024px wide.
func (s *SessionAdapter) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	imgBytes, err := s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(80),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	if img.Bounds().Dx() > maxScreenshotWidth {
		img = imaging.Resize(img, maxScreenshotWidth, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}

	return &entity.Screenshot{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

func (s *SessionAdapter) Snapshot(ctx context.Context) (*entity.PageSnapshot, error) {
	page := s.page.Context(ctx)
	info, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("page info: %w", err)
	}
	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to get HTML: %w", err)
	}
	return &entity.PageSnapshot{URL: info.URL, HTML: html}, nil
}

// Ping checks that the browser still answers. A failed ping marks the
// session lost for good.
func (s *SessionAdapter) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return errors.New("session closed")
	}
	if _, err := s.page.Context(ctx).Info(); err != nil {
		if ctx.Err() == nil {
			s.lost.Store(true)
		}
		return fmt.Errorf("browser not responding: %w", err)
	}
	return nil
}

func (s *SessionAdapter) IsReady() bool {
	return !s.closed.Load() && !s.lost.Load()
}

// CurrentURL is the page address, or "" when the browser is gone.
func (s *SessionAdapter) CurrentURL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (s *SessionAdapter) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.browser != nil {
			_ = s.browser.Close()
		}
		if s.launcher != nil {
			s.launcher.Kill()
			// Cleanup deletes the user data dir, which must survive when it
			// holds the logged-in profile.
			if s.cfg.UserDataDir == "" {
				s.launcher.Cleanup()
			}
		}
	})
}

func (s *SessionAdapter) element(ctx context.Context, h output.ElementHandle) (*rod.Element, error) {
	eh, ok := h.(*elementHandle)
	if !ok || eh.el == nil {
		return nil, fmt.Errorf("foreign element handle %T", h)
	}
	return eh.el.Context(ctx), nil
}

func isNotFound(err error) bool {
	var nf *rod.ElementNotFoundError
	if errors.As(err, &nf) {
		return true
	}
	var cdpErr *cdp.Error
	return errors.As(err, &cdpErr)
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
