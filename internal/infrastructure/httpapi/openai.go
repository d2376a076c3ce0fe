package httpapi

import (
	"net/http"
	"strings"
	"time"

	"chat-bridge/internal/domain/entity"

	"github.com/sashabaranov/go-openai"
)

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, openai.ModelsList{
		Models: []openai.Model{{
			ID:      s.cfg.ModelID,
			Object:  "model",
			OwnedBy: "chat-bridge",
		}},
	})
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req openai.ChatCompletionRequest
	if err := decodeJSON(w, r, s.cfg.MaxBodyBytes, &req); err != nil {
		openaiError(w, http.StatusBadRequest, "invalid_request_error", "invalid JSON body: "+err.Error())
		return
	}
	if req.Stream {
		openaiError(w, http.StatusBadRequest, "invalid_request_error", "streaming is not supported")
		return
	}

	query, ok := lastUserMessage(req.Messages)
	if !ok {
		openaiError(w, http.StatusBadRequest, "invalid_request_error", "no user message")
		return
	}

	outcome, err := s.exchanger.Submit(r.Context(), query)
	if err != nil {
		openaiError(w, statusFor(err), entity.ErrorCode(err), messageFor(err))
		return
	}

	model := req.Model
	if model == "" {
		model = s.cfg.ModelID
	}
	jsonResponse(w, http.StatusOK, openai.ChatCompletionResponse{
		ID:      "chatcmpl-" + outcome.ID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []openai.ChatCompletionChoice{{
			Index: 0,
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: outcome.Response,
			},
			FinishReason: openai.FinishReasonStop,
		}},
	})
}

// lastUserMessage turns the final user turn into a query. The site keeps its
// own conversation, so earlier messages are not replayed.
func lastUserMessage(msgs []openai.ChatCompletionMessage) (entity.QueryRequest, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.Role != openai.ChatMessageRoleUser {
			continue
		}
		if len(m.MultiContent) == 0 {
			return entity.QueryRequest{Text: m.Content}, true
		}

		var req entity.QueryRequest
		var texts []string
		for _, part := range m.MultiContent {
			switch part.Type {
			case openai.ChatMessagePartTypeText:
				texts = append(texts, part.Text)
			case openai.ChatMessagePartTypeImageURL:
				if req.Image == "" && part.ImageURL != nil && strings.HasPrefix(part.ImageURL.URL, "data:") {
					req.Image = part.ImageURL.URL
				}
			}
		}
		req.Text = strings.Join(texts, "\n")
		return req, true
	}
	return entity.QueryRequest{}, false
}

func openaiError(w http.ResponseWriter, status int, code, message string) {
	jsonResponse(w, status, openai.ErrorResponse{
		Error: &openai.APIError{
			Code:    code,
			Message: message,
			Type:    errorType(status),
		},
	})
}

func errorType(status int) string {
	switch {
	case status == http.StatusConflict:
		return "rate_limit_error"
	case status < 500:
		return "invalid_request_error"
	default:
		return "server_error"
	}
}
