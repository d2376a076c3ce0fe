package entity

import "time"

type ExchangeKind string

const (
	ExchangeText  ExchangeKind = "text"
	ExchangeImage ExchangeKind = "image"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// QueryRequest is one inbound query. Image carries the raw attachment as
// received (base64, data URI or a server-local path) and is empty for
// text-only exchanges.
type QueryRequest struct {
	Text  string
	Image string
}

func (q QueryRequest) Kind() ExchangeKind {
	if q.Image != "" {
		return ExchangeImage
	}
	return ExchangeText
}

// StagedAttachment is a decoded attachment written to a transient file the
// browser session can upload from.
type StagedAttachment struct {
	Path   string
	Width  int
	Height int
}

type ExchangeOutcome struct {
	ID       string
	Kind     ExchangeKind
	Status   Status
	Response string
	Error    string
	Duration time.Duration
}

// BridgeStatus is a point-in-time view used by health checks. Reading it
// never touches the browser session.
type BridgeStatus struct {
	Ready  bool
	Busy   bool
	Queued int
}
