package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"bookswap/internal/app"
	"bookswap/pkg/domain"
)

// genreList accepts either a JSON array of strings or a single
// comma-separated string.
type genreList []string

func (g *genreList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*g = list
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*g = strings.Split(raw, ",")
	return nil
}

type updateProfileRequest struct {
	Name   string    `json:"name"`
	Phone  string    `json:"phone"`
	Genres genreList `json:"preferredGenres"`
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	notes, err := s.app.GetNotifications(user.ID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, user)
	case http.MethodPatch:
		var req updateProfileRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		updated, err := s.app.UpdateProfile(user.ID, app.ProfileInput{
			Name:   req.Name,
			Phone:  req.Phone,
			Genres: req.Genres,
		})
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	default:
		methodNotAllowed(w)
	}
}

// handleUserByID returns another user's public summary.
func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	summary, err := s.app.GetUserSummary(id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
