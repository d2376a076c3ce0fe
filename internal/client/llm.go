package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// Asker is what LLM needs from a bridge client. Both Client and CompatClient
// satisfy it.
type Asker interface {
	Ask(ctx context.Context, query string) (string, error)
	AskWithImage(ctx context.Context, query, image string) (string, error)
}

var _ llms.Model = (*LLM)(nil)

// LLM lets langchaingo code use the bridged chat site as a model. The site
// keeps its own conversation, so only the last human message is sent.
type LLM struct {
	asker Asker
}

func NewLLM(asker Asker) *LLM {
	return &LLM{asker: asker}
}

func (l *LLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, l, prompt, options...)
}

func (l *LLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	text, image, err := lastHuman(messages)
	if err != nil {
		return nil, err
	}

	var reply string
	if image != "" {
		reply, err = l.asker.AskWithImage(ctx, text, image)
	} else {
		reply, err = l.asker.Ask(ctx, text)
	}
	if err != nil {
		return nil, err
	}

	if opts.StreamingFunc != nil {
		if err := opts.StreamingFunc(ctx, []byte(reply)); err != nil {
			return nil, fmt.Errorf("streaming func: %w", err)
		}
	}

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content:    reply,
			StopReason: "stop",
		}},
	}, nil
}

func lastHuman(messages []llms.MessageContent) (string, string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role != schema.ChatMessageTypeHuman {
			continue
		}

		var texts []string
		var image string
		for _, part := range m.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				texts = append(texts, p.Text)
			case llms.BinaryContent:
				if image == "" {
					image = fmt.Sprintf("data:%s;base64,%s", p.MIMEType, base64.StdEncoding.EncodeToString(p.Data))
				}
			case llms.ImageURLContent:
				if image == "" {
					image = p.URL
				}
			}
		}
		return strings.Join(texts, "\n"), image, nil
	}
	return "", "", errors.New("no human message")
}
