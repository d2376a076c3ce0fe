package output

import "chat-bridge/internal/domain/entity"

type AttachmentStagerPort interface {
	// Stage decodes raw and writes it to a transient file. Undecodable input
	// yields an error wrapping entity.ErrAttachmentDecode.
	Stage(raw string) (*entity.StagedAttachment, error)
	Remove(a *entity.StagedAttachment) error
}
