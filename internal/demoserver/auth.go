package demoserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/abhisek/threatlab/internal/api"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uid, ok := s.state.byEmail[strings.ToLower(req.Email)]
	if !ok || s.state.accounts[uid].password != req.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		return
	}
	acc := s.state.accounts[uid]
	now := api.NewTime(time.Now().UTC())
	acc.user.LastLogin = &now

	writeJSON(w, http.StatusOK, api.AuthResponse{
		Message:     "Login successful",
		User:        acc.user,
		AccessToken: s.state.issueToken(uid),
		TokenType:   "bearer",
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeDetail(w, http.StatusUnprocessableEntity, "A valid email address is required")
		return
	}
	if len(req.Password) < 6 {
		writeDetail(w, http.StatusUnprocessableEntity, "Password must be at least 6 characters")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.state.byEmail[strings.ToLower(req.Email)]; exists {
		writeDetail(w, http.StatusBadRequest, "Email already registered")
		return
	}
	acc := s.state.addAccount(req.Email, req.Password, req.FirstName, req.LastName)

	writeJSON(w, http.StatusOK, api.AuthResponse{
		Message:     "User registered successfully",
		User:        acc.user,
		AccessToken: s.state.issueToken(acc.user.ID),
		TokenType:   "bearer",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		s.mu.Lock()
		delete(s.state.tokens, tok)
		s.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, api.Message{Message: "Successfully logged out"})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, api.VerifyResponse{
		Valid: true,
		User:  s.state.accounts[currentUserID(r)].user,
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.state.accounts[currentUserID(r)].user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var upd api.ProfileUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := &s.state.accounts[currentUserID(r)].user
	if upd.FirstName != nil {
		u.Profile.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.Profile.LastName = *upd.LastName
	}
	if upd.AvatarURL != nil {
		u.Profile.AvatarURL = *upd.AvatarURL
	}
	if upd.Bio != nil {
		u.Profile.Bio = *upd.Bio
	}
	if upd.Theme != nil {
		u.Preferences.Theme = *upd.Theme
	}
	if upd.Notifications != nil {
		u.Preferences.Notifications = *upd.Notifications
	}
	writeJSON(w, http.StatusOK, *u)
}
