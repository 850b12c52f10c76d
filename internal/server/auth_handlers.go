package server

import (
	"net/http"

	"bookswap/internal/app"
	"bookswap/pkg/domain"
)

type registerRequest struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Phone    string    `json:"phone"`
	Genres   genreList `json:"preferredGenres"`
}

type registerResponse struct {
	User       domain.User `json:"user"`
	OTPPreview string      `json:"otpPreview,omitempty"`
	Message    string      `json:"message"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowAuthRate(w, r) {
		return
	}
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.app.Register(r.Context(), app.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Genres:   req.Genres,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{
		User:       res.User,
		OTPPreview: res.OTPPreview,
		Message:    "registered, check your email for the verification code",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowAuthRate(w, r) {
		return
	}
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowAuthRate(w, r) {
		return
	}
	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, token, err := s.app.VerifyEmail(req.Email, req.Code)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if token == "" {
		writeJSON(w, http.StatusOK, map[string]string{"message": "email already verified, you can log in"})
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleResendOTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowAuthRate(w, r) {
		return
	}
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	preview, verified, err := s.app.ResendOTP(r.Context(), req.Email)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	if verified {
		writeJSON(w, http.StatusOK, map[string]string{"message": "email already verified, you can log in"})
		return
	}
	resp := map[string]string{"message": "verification code sent"}
	if preview != "" {
		resp["otpPreview"] = preview
	}
	writeJSON(w, http.StatusOK, resp)
}
