// Package exchangetest provides an in-memory chat session for exercising the
// exchange protocol without a browser.
package exchangetest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"chat-bridge/internal/application/port/output"
	"chat-bridge/internal/domain/entity"
)

var _ output.ChatSessionPort = (*FakeSession)(nil)

var errConnectionClosed = errors.New("websocket: close 1006 (abnormal closure)")

type handle struct {
	target entity.Target
}

func (h handle) Target() entity.Target { return h.target }

// Turn is one query bubble and the reply rendered below it.
type Turn struct {
	Query    string
	Reply    string
	Complete bool

	checks int
}

// FakeSession models a chat page with a conversation of turns. The completion
// signal it reports is scoped to the latest visible turn, like the real
// selector. Fields may be set before the session is used.
type FakeSession struct {
	// Reply produces the answer for a submitted query.
	Reply func(query string) string
	// SubmitLag is how many query-bubble counts pass before a submitted query
	// becomes visible.
	SubmitLag int
	// CompleteAfter is how many completion checks the latest turn needs.
	CompleteAfter int
	// UploadReadyAfter is how many upload-ready checks pass before the
	// attachment shows as uploaded. Negative means never.
	UploadReadyAfter int
	// DropResponse makes the response element disappear.
	DropResponse bool
	// Hold, when non-nil, withholds completion until it is closed.
	Hold chan struct{}
	// FailOn makes the named operation ("type", "click", "enter", "upload",
	// "read", "locate", "count") return the error.
	FailOn map[string]error

	mu         sync.Mutex
	dead       bool
	turns      []*Turn
	pending    *Turn
	lag        int
	draft      string
	owner      string
	uploads    []Upload
	uploadSeen int
	ops        []string
	violations []string
}

// Upload records a file handed to the session and whether it existed then.
type Upload struct {
	Path    string
	Existed bool
}

func NewFakeSession() *FakeSession {
	return &FakeSession{
		Reply:         func(query string) string { return "reply to " + query },
		CompleteAfter: 1,
		FailOn:        map[string]error{},
	}
}

// Seed appends an already completed turn, as left by an earlier exchange.
func (f *FakeSession) Seed(query, reply string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, &Turn{Query: query, Reply: reply, Complete: true})
}

// Kill makes the browser unreachable.
func (f *FakeSession) Kill() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dead = true
}

func (f *FakeSession) Turns() []Turn {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Turn, 0, len(f.turns))
	for _, t := range f.turns {
		out = append(out, *t)
	}
	return out
}

func (f *FakeSession) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func (f *FakeSession) Uploads() []Upload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Upload(nil), f.uploads...)
}

// Violations lists every time a query was typed while another exchange still
// owned the page.
func (f *FakeSession) Violations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.violations...)
}

func (f *FakeSession) guard(op string) error {
	if f.dead {
		return fmt.Errorf("%s: %w", op, errConnectionClosed)
	}
	if err := f.FailOn[op]; err != nil {
		f.owner = ""
		return err
	}
	return nil
}

func (f *FakeSession) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.guard("navigate"); err != nil {
		return err
	}
	f.ops = append(f.ops, "navigate:"+url)
	return nil
}

func (f *FakeSession) Locate(ctx context.Context, target entity.Target) (output.ElementHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.guard("locate"); err != nil {
		return nil, err
	}
	if target == entity.TargetResponseContent && (f.DropResponse || len(f.turns) == 0) {
		return nil, fmt.Errorf("%s: %w", target, entity.ErrElementNotFound)
	}
	return handle{target: target}, nil
}

func (f *FakeSession) Count(ctx context.Context, target entity.Target) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.guard("count"); err != nil {
		return 0, err
	}

	switch target {
	case entity.TargetQueryBubble:
		if f.pending != nil {
			if f.lag <= 0 {
				f.turns = append(f.turns, f.pending)
				f.pending = nil
			} else {
				f.lag--
			}
		}
		return len(f.turns), nil

	case entity.TargetCompletionSignal:
		if len(f.turns) == 0 {
			return 0, nil
		}
		latest := f.turns[len(f.turns)-1]
		if !latest.Complete && f.released() {
			latest.checks++
			if latest.checks >= f.CompleteAfter {
				latest.Complete = true
			}
		}
		if latest.Complete {
			return 1, nil
		}
		return 0, nil

	case entity.TargetUploadReady:
		if len(f.uploads) == 0 || f.UploadReadyAfter < 0 {
			return 0, nil
		}
		f.uploadSeen++
		if f.uploadSeen > f.UploadReadyAfter {
			return 1, nil
		}
		return 0, nil
	}
	return 0, nil
}

func (f *FakeSession) released() bool {
	if f.Hold == nil {
		return true
	}
	select {
	case <-f.Hold:
		return true
	default:
		return false
	}
}

func (f *FakeSession) Type(ctx context.Context, el output.ElementHandle, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.guard("type"); err != nil {
		return err
	}
	if f.owner != "" {
		f.violations = append(f.violations, fmt.Sprintf("typed %q while %q was in flight", text, f.owner))
	}
	f.owner = text
	f.draft = text
	f.ops = append(f.ops, "type:"+text)
	return nil
}

func (f *FakeSession) Click(ctx context.Context, el output.ElementHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.guard("click"); err != nil {
		return err
	}
	f.ops = append(f.ops, "click:"+string(el.Target()))
	return nil
}

func (f *FakeSession) PressEnter(ctx context.Context, el output.ElementHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.guard("enter"); err != nil {
		return err
	}
	if f.pending != nil {
		f.turns = append(f.turns, f.pending)
	}
	f.pending = &Turn{Query: f.draft, Reply: f.Reply(f.draft)}
	f.lag = f.SubmitLag
	f.draft = ""
	f.ops = append(f.ops, "enter")
	return nil
}

func (f *FakeSession) ReadText(ctx context.Context, el output.ElementHandle) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.guard("read"); err != nil {
		return "", err
	}
	if el.Target() != entity.TargetResponseContent {
		return "", nil
	}
	if f.DropResponse || len(f.turns) == 0 {
		return "", fmt.Errorf("%s: %w", el.Target(), entity.ErrElementNotFound)
	}
	latest := f.turns[len(f.turns)-1]
	f.ops = append(f.ops, "read:"+latest.Query)
	f.owner = ""
	return latest.Reply, nil
}

func (f *FakeSession) UploadFile(ctx context.Context, trigger output.ElementHandle, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, statErr := os.Stat(path)
	f.uploads = append(f.uploads, Upload{Path: path, Existed: statErr == nil})
	if err := f.guard("upload"); err != nil {
		return err
	}
	f.ops = append(f.ops, "upload")
	return nil
}

func (f *FakeSession) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dead {
		return nil, errConnectionClosed
	}
	return &entity.Screenshot{Data: []byte{0xff, 0xd8}, Format: "jpeg", Width: 1, Height: 1}, nil
}

func (f *FakeSession) Snapshot(ctx context.Context) (*entity.PageSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dead {
		return nil, errConnectionClosed
	}
	return &entity.PageSnapshot{URL: "https://chat.example/app", HTML: "<html><body></body></html>"}, nil
}

func (f *FakeSession) Ping(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dead {
		return errConnectionClosed
	}
	return nil
}

func (f *FakeSession) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.dead
}

func (f *FakeSession) Close() {
	f.Kill()
}
