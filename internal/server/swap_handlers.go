package server

import (
	"net/http"
	"strings"

	"bookswap/internal/app"
	"bookswap/pkg/domain"
)

type createSwapRequest struct {
	OfferedBookID   string `json:"offeredBook"`
	RequestedBookID string `json:"requestedBook"`
	ToUserID        string `json:"toUser"`
}

func (s *Server) handleCreateSwap(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req createSwapRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	swap, err := s.app.CreateSwap(user.ID, app.CreateSwapInput{
		OfferedBookID:   req.OfferedBookID,
		RequestedBookID: req.RequestedBookID,
		ToUserID:        req.ToUserID,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, swap)
}

func (s *Server) handleIncomingSwaps(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	swaps, err := s.app.ListIncomingSwaps(r.Context(), user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, swaps)
}

func (s *Server) handleOutgoingSwaps(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	swaps, err := s.app.ListOutgoingSwaps(r.Context(), user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, swaps)
}

// handleSwapAction serves POST /api/swaps/{id}/accept and /{id}/reject.
func (s *Server) handleSwapAction(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/swaps/"), "/")
	id, action, ok := strings.Cut(rest, "/")
	if !ok || id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch action {
	case "accept":
		swap, err := s.app.AcceptSwap(r.Context(), id, user.ID)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, swap)
	case "reject":
		swap, err := s.app.RejectSwap(id, user.ID)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, swap)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}
