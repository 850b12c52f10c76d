package server

import (
	"net/http"
	"strconv"
	"strings"

	"bookswap/internal/app"
	"bookswap/pkg/domain"
)

const maxCoverBytes = 5 << 20

type bookRequest struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Condition   string `json:"condition"`
	Genre       string `json:"genre"`
	Available   *bool  `json:"available"`
}

func (in bookRequest) toInput() app.BookInput {
	return app.BookInput{
		Title:       in.Title,
		Author:      in.Author,
		Description: in.Description,
		Condition:   in.Condition,
		Genre:       in.Genre,
		Available:   in.Available,
	}
}

// handleBooks serves the public listing and authenticated creation.
func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		books, err := s.app.ListBooks(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, books)
	case http.MethodPost:
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		s.createBook(w, r, user)
	default:
		methodNotAllowed(w)
	}
}

// createBook accepts either a JSON body or multipart form data with an
// optional "cover" image part.
func (s *Server) createBook(w http.ResponseWriter, r *http.Request, user domain.User) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxCoverBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		in := app.BookInput{
			Title:       r.FormValue("title"),
			Author:      r.FormValue("author"),
			Description: r.FormValue("description"),
			Condition:   r.FormValue("condition"),
			Genre:       r.FormValue("genre"),
		}
		if raw := r.FormValue("available"); raw != "" {
			avail, err := strconv.ParseBool(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid available value")
				return
			}
			in.Available = &avail
		}
		var cover *app.CoverUpload
		if file, header, err := r.FormFile("cover"); err == nil {
			defer file.Close()
			cover = &app.CoverUpload{
				Reader:      file,
				Size:        header.Size,
				ContentType: header.Header.Get("Content-Type"),
			}
		}
		book, err := s.app.AddBook(r.Context(), user.ID, in, cover)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, book)
		return
	}

	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	book, err := s.app.AddBook(r.Context(), user.ID, req.toInput(), nil)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// handleBookByID serves /api/books/mine and /api/books/{id}.
func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/books/"), "/")
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if rest == "mine" {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		books, err := s.app.ListMyBooks(r.Context(), user.ID)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, books)
		return
	}

	switch r.Method {
	case http.MethodGet:
		book, owner, err := s.app.GetBook(r.Context(), rest)
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"book": book, "owner": owner})
	case http.MethodPut:
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req bookRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		book, err := s.app.UpdateBook(r.Context(), user.ID, rest, req.toInput())
		if err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, book)
	case http.MethodDelete:
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if err := s.app.DeleteBook(r.Context(), user.ID, rest); err != nil {
			writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "book deleted"})
	default:
		methodNotAllowed(w)
	}
}
