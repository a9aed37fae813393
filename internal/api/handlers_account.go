package api

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"paperforge/internal/auth"
	"paperforge/internal/models"
	"paperforge/internal/storage"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, errInvalidJSON)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		writeErr(c, badRequest{"A valid email address is required."})
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeErr(c, badRequest{"Password must be at least 8 characters."})
		return
	}
	u := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Credits:      s.cfg.InitialCredits,
	}
	if err := s.users.Create(c.Request.Context(), &u); err != nil {
		writeErr(c, err)
		return
	}
	s.respondToken(c, http.StatusCreated, u)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, errInvalidJSON)
		return
	}
	u, err := s.users.ByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = auth.ErrInvalidCredentials
		}
		writeErr(c, err)
		return
	}
	if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
		writeErr(c, err)
		return
	}
	s.respondToken(c, http.StatusOK, u)
}

func (s *Server) respondToken(c *gin.Context, status int, u models.User) {
	token, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(status, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) handleUser(c *gin.Context) {
	u, err := s.users.ByID(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":      u.ID,
		"email":   u.Email,
		"name":    u.Name,
		"credits": u.Credits,
	})
}
