package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"paperforge/internal/models"
	"paperforge/internal/pipeline"
	"paperforge/internal/storage"
)

type sessionRequest struct {
	Title string `json:"title"`
}

type chatRequest struct {
	Message string `json:"message"`
}

// session loads a session owned by userID. Malformed ids are reported as
// not found.
func (s *Server) session(c *gin.Context, userID, sessionID string) (models.ChatSession, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return models.ChatSession{}, fmt.Errorf("session %q: %w", sessionID, storage.ErrNotFound)
	}
	return s.sessions.Get(c.Request.Context(), userID, sessionID)
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req sessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeErr(c, errInvalidJSON)
			return
		}
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "New chat"
	}
	sess := models.ChatSession{ID: uuid.NewString(), UserID: c.GetString(ctxUserID), Title: clip(title, maxSessionTitle)}
	if err := s.sessions.Create(c.Request.Context(), &sess); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (s *Server) handleListSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	list, err := s.sessions.List(c.Request.Context(), storage.SessionFilter{
		UserID: c.GetString(ctxUserID),
		Query:  c.Query("q"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list})
}

func (s *Server) handleGetSession(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	sess, err := s.session(c, userID, c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	ct := models.ContentType(c.Query("type"))
	switch ct {
	case "", models.ContentSummary, models.ContentCodeSuggestion, models.ContentChatMessage, models.ContentChatResponse:
	default:
		writeErr(c, badRequest{"Unknown message type filter."})
		return
	}
	msgs, err := s.messages.List(c.Request.Context(), storage.MessageFilter{SessionID: sess.ID, UserID: userID, ContentType: ct})
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess, "messages": msgs})
}

func (s *Server) handleRenameSession(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, errInvalidJSON)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeErr(c, badRequest{"Session title is required."})
		return
	}
	userID := c.GetString(ctxUserID)
	if _, err := s.session(c, userID, c.Param("id")); err != nil {
		writeErr(c, err)
		return
	}
	sess, err := s.sessions.Rename(c.Request.Context(), userID, c.Param("id"), clip(title, maxSessionTitle))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	userID := c.GetString(ctxUserID)
	if _, err := s.session(c, userID, c.Param("id")); err != nil {
		writeErr(c, err)
		return
	}
	if err := s.sessions.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleChatMessage(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, errInvalidJSON)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeErr(c, badRequest{"Message is required."})
		return
	}
	userID := c.GetString(ctxUserID)
	sess, err := s.session(c, userID, c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}

	job := pipeline.ChatJob{UserID: userID, SessionID: sess.ID, Question: req.Message}
	latest, err := s.messages.Latest(c.Request.Context(), sess.ID, models.ContentSummary)
	switch {
	case err == nil:
		job.Summary = latest.Content
		if latest.Paper != nil {
			job.Paper = *latest.Paper
		}
	case errors.Is(err, storage.ErrNotFound):
		job.Paper = models.PaperContent{Title: sess.Title}
	default:
		writeErr(c, err)
		return
	}

	res, err := s.pipeline.Chat(c.Request.Context(), job)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
