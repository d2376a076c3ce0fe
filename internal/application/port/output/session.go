package output

import (
	"context"

	"chat-bridge/internal/domain/entity"
)

// ElementHandle is an opaque reference to a located UI element. Handles are
// only valid for the session that produced them.
type ElementHandle interface {
	Target() entity.Target
}

// ChatSessionPort is the single persistent browser session driving the chat
// page. It is not safe for overlapping exchanges; callers serialize access.
type ChatSessionPort interface {
	Navigate(ctx context.Context, url string) error

	// Locate waits up to the session's element timeout for target to appear.
	// A missing element yields an error wrapping entity.ErrElementNotFound.
	Locate(ctx context.Context, target entity.Target) (ElementHandle, error)
	// Count reports how many elements currently match target without waiting.
	Count(ctx context.Context, target entity.Target) (int, error)

	Type(ctx context.Context, el ElementHandle, text string) error
	Click(ctx context.Context, el ElementHandle) error
	PressEnter(ctx context.Context, el ElementHandle) error
	ReadText(ctx context.Context, el ElementHandle) (string, error)
	// UploadFile clicks trigger and feeds path to the file chooser it opens.
	UploadFile(ctx context.Context, trigger ElementHandle, path string) error

	Screenshot(ctx context.Context) (*entity.Screenshot, error)
	Snapshot(ctx context.Context) (*entity.PageSnapshot, error)

	// Ping fails when the underlying browser is gone.
	Ping(ctx context.Context) error
	IsReady() bool
	Close()
}
