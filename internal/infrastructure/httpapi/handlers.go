package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"chat-bridge/internal/domain/entity"
)

type receiveRequest struct {
	Query string `json:"query"`
}

type imageRequest struct {
	Query string `json:"query"`
	Image string `json:"image"`
	// Links is the older form: a server-local path or a list of them.
	Links json.RawMessage `json:"links,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
	Busy   bool   `json:"busy"`
	Queued int    `json:"queued"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.exchanger.Status()
	resp := healthResponse{Status: "ok", Busy: st.Busy, Queued: st.Queued}
	if !st.Ready {
		resp.Status = "unavailable"
		jsonResponse(w, http.StatusServiceUnavailable, resp)
		return
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleReceive(w http.ResponseWriter, r *http.Request) {
	var req receiveRequest
	if err := decodeJSON(w, r, s.cfg.MaxBodyBytes, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	s.exchange(w, r, entity.QueryRequest{Text: req.Query})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if err := decodeJSON(w, r, s.cfg.MaxBodyBytes, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	image := strings.TrimSpace(req.Image)
	if image == "" {
		image = firstLink(req.Links)
	}
	if image == "" {
		errorResponse(w, http.StatusBadRequest, "No image provided")
		return
	}
	s.exchange(w, r, entity.QueryRequest{Text: req.Query, Image: image})
}

func (s *Server) exchange(w http.ResponseWriter, r *http.Request, req entity.QueryRequest) {
	outcome, err := s.exchanger.Submit(r.Context(), req)
	if err != nil {
		errorResponse(w, statusFor(err), messageFor(err))
		return
	}
	jsonResponse(w, http.StatusOK, exchangeResponse{
		Status:   string(entity.StatusSuccess),
		Response: outcome.Response,
	})
}

func firstLink(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return strings.TrimSpace(one)
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, l := range many {
			if l = strings.TrimSpace(l); l != "" {
				return l
			}
		}
	}
	return ""
}
