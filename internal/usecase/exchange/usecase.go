package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chat-bridge/internal/application/port/input"
	"chat-bridge/internal/application/port/output"
	"chat-bridge/internal/domain/entity"

	"github.com/google/uuid"
)

var _ input.Exchanger = (*UseCase)(nil)

const (
	defaultCompletionTimeout = 10 * time.Minute
	defaultUploadTimeout     = 60 * time.Second
	pingTimeout              = 5 * time.Second
	diagnosticsTimeout       = 15 * time.Second
)

type Config struct {
	CompletionTimeout time.Duration
	UploadTimeout     time.Duration
	Poll              Poller
}

func DefaultConfig() Config {
	return Config{
		CompletionTimeout: defaultCompletionTimeout,
		UploadTimeout:     defaultUploadTimeout,
		Poll:              DefaultPoller(),
	}
}

type Option func(*UseCase)

// WithDiagnostics captures a screenshot and DOM snapshot when an exchange
// times out or its response cannot be extracted.
func WithDiagnostics(d output.DiagnosticsPort) Option {
	return func(uc *UseCase) { uc.diagnostics = d }
}

// WithFatalHandler registers fn to be called once the browser session is
// found dead. The session is never reconnected.
func WithFatalHandler(fn func(error)) Option {
	return func(uc *UseCase) { uc.onFatal = fn }
}

// UseCase drives one chat exchange at a time: type the query, optionally
// upload an attachment, wait for the reply to finish and read it back.
type UseCase struct {
	session    output.ChatSessionPort
	serializer *Serializer
	detector   *CompletionDetector
	extractor  *ResponseExtractor
	stager     output.AttachmentStagerPort
	logger     output.LoggerPort
	metrics    output.MetricsPort
	cfg        Config

	diagnostics output.DiagnosticsPort
	onFatal     func(error)
}

func New(
	session output.ChatSessionPort,
	serializer *Serializer,
	stager output.AttachmentStagerPort,
	logger output.LoggerPort,
	metrics output.MetricsPort,
	cfg Config,
	opts ...Option,
) *UseCase {
	if cfg.CompletionTimeout <= 0 {
		cfg.CompletionTimeout = defaultCompletionTimeout
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = defaultUploadTimeout
	}

	uc := &UseCase{
		session:    session,
		serializer: serializer,
		detector:   NewCompletionDetector(session, cfg.Poll),
		extractor:  NewResponseExtractor(session),
		stager:     stager,
		logger:     logger,
		metrics:    metrics,
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *UseCase) Status() entity.BridgeStatus {
	return entity.BridgeStatus{
		Ready:  uc.session.IsReady(),
		Busy:   uc.serializer.Busy(),
		Queued: uc.serializer.Waiting(),
	}
}

func (uc *UseCase) Submit(ctx context.Context, req entity.QueryRequest) (*entity.ExchangeOutcome, error) {
	outcome := &entity.ExchangeOutcome{
		ID:   uuid.NewString(),
		Kind: req.Kind(),
	}
	log := uc.logger.WithFields(map[string]any{
		"exchange_id": outcome.ID,
		"kind":        string(outcome.Kind),
	})

	start := time.Now()
	response, err := uc.run(ctx, outcome.ID, req, log)
	outcome.Duration = time.Since(start)
	uc.metrics.ObserveExchange(outcome.Kind, entity.ErrorCode(err), outcome.Duration)

	if err != nil {
		outcome.Status = entity.StatusError
		outcome.Error = err.Error()
		log.Error("Exchange failed", "error", err, "code", entity.ErrorCode(err), "duration_ms", outcome.Duration.Milliseconds())
		return outcome, err
	}

	outcome.Status = entity.StatusSuccess
	outcome.Response = response
	log.Info("Exchange completed", "duration_ms", outcome.Duration.Milliseconds(), "response_len", len(response))
	return outcome, nil
}

func (uc *UseCase) run(ctx context.Context, id string, req entity.QueryRequest, log output.LoggerPort) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", entity.ErrEmptyQuery
	}

	var staged *entity.StagedAttachment
	if req.Kind() == entity.ExchangeImage {
		var err error
		staged, err = uc.stager.Stage(req.Image)
		if err != nil {
			return "", err
		}
		log.Debug("Attachment staged", "path", staged.Path, "width", staged.Width, "height", staged.Height)
		defer func() {
			if err := uc.stager.Remove(staged); err != nil {
				log.Warn("Failed to remove staged attachment", "path", staged.Path, "error", err)
			}
		}()
	}

	var response string
	err := uc.serializer.Do(ctx, func() error {
		// The page cannot be rolled back once typing starts, so the exchange
		// outlives a caller that goes away.
		exCtx := context.WithoutCancel(ctx)

		r, err := uc.exchange(exCtx, req.Text, staged, log)
		if err != nil {
			err = uc.classify(exCtx, err)
			uc.afterFailure(exCtx, id, err, log)
			return err
		}
		response = r
		return nil
	})
	return response, err
}

func (uc *UseCase) exchange(ctx context.Context, text string, staged *entity.StagedAttachment, log output.LoggerPort) (string, error) {
	if !uc.session.IsReady() {
		return "", entity.ErrSessionUnavailable
	}

	prompt, err := uc.session.Locate(ctx, entity.TargetPromptInput)
	if err != nil {
		return "", fmt.Errorf("locate prompt input: %w", err)
	}
	if err := uc.session.Click(ctx, prompt); err != nil {
		return "", fmt.Errorf("focus prompt input: %w", err)
	}
	if err := uc.session.Type(ctx, prompt, text); err != nil {
		return "", fmt.Errorf("type query: %w", err)
	}

	if staged != nil {
		if err := uc.upload(ctx, staged, log); err != nil {
			return "", err
		}
		if err := uc.session.Click(ctx, prompt); err != nil {
			return "", fmt.Errorf("refocus prompt input: %w", err)
		}
	}

	baseline, err := uc.detector.Baseline(ctx)
	if err != nil {
		return "", err
	}
	if err := uc.session.PressEnter(ctx, prompt); err != nil {
		return "", fmt.Errorf("submit query: %w", err)
	}
	log.Info("Query submitted", "baseline_turns", baseline)

	done, err := uc.detector.AwaitCompletion(ctx, baseline, uc.cfg.CompletionTimeout)
	if err != nil {
		return "", err
	}
	if !done {
		return "", fmt.Errorf("%w after %s", entity.ErrCompletionTimeout, uc.cfg.CompletionTimeout)
	}

	return uc.extractor.Extract(ctx)
}

func (uc *UseCase) upload(ctx context.Context, staged *entity.StagedAttachment, log output.LoggerPort) error {
	menu, err := uc.session.Locate(ctx, entity.TargetUploadMenu)
	if err != nil {
		return fmt.Errorf("locate upload menu: %w", err)
	}
	if err := uc.session.Click(ctx, menu); err != nil {
		return fmt.Errorf("open upload menu: %w", err)
	}

	item, err := uc.session.Locate(ctx, entity.TargetUploadFilesItem)
	if err != nil {
		return fmt.Errorf("locate upload item: %w", err)
	}
	if err := uc.session.UploadFile(ctx, item, staged.Path); err != nil {
		return fmt.Errorf("upload attachment: %w", err)
	}

	ready, err := uc.cfg.Poll.Until(ctx, uc.cfg.UploadTimeout, func(ctx context.Context) (bool, error) {
		n, err := uc.session.Count(ctx, entity.TargetUploadReady)
		return n > 0, err
	})
	if err != nil {
		return fmt.Errorf("check upload state: %w", err)
	}
	if !ready {
		return fmt.Errorf("%w after %s", entity.ErrUploadTimeout, uc.cfg.UploadTimeout)
	}

	log.Info("Attachment uploaded", "path", staged.Path)
	return nil
}

// classify turns an interaction failure into ErrSessionUnavailable when the
// browser itself no longer answers.
func (uc *UseCase) classify(ctx context.Context, err error) error {
	if errors.Is(err, entity.ErrSessionUnavailable) {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if pingErr := uc.session.Ping(pingCtx); pingErr != nil {
		return fmt.Errorf("%w: %w", entity.ErrSessionUnavailable, err)
	}
	return err
}

func (uc *UseCase) afterFailure(ctx context.Context, id string, err error, log output.LoggerPort) {
	if errors.Is(err, entity.ErrSessionUnavailable) {
		if uc.onFatal != nil {
			uc.onFatal(err)
		}
		return
	}

	if uc.diagnostics == nil {
		return
	}
	if !errors.Is(err, entity.ErrCompletionTimeout) &&
		!errors.Is(err, entity.ErrUploadTimeout) &&
		!errors.Is(err, entity.ErrExtraction) {
		return
	}

	dctx, cancel := context.WithTimeout(ctx, diagnosticsTimeout)
	defer cancel()

	shot, shotErr := uc.session.Screenshot(dctx)
	if shotErr != nil {
		log.Warn("Diagnostics screenshot failed", "error", shotErr)
	}
	snap, snapErr := uc.session.Snapshot(dctx)
	if snapErr != nil {
		log.Warn("Diagnostics snapshot failed", "error", snapErr)
	}
	if err := uc.diagnostics.Capture(dctx, id, shot, snap); err != nil {
		log.Warn("Diagnostics capture failed", "error", err)
		return
	}
	log.Info("Diagnostics captured")
}
