package api

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"paperforge/internal/document"
	"paperforge/internal/models"
	"paperforge/internal/pipeline"
	"paperforge/internal/pricing"
)

const (
	defaultPaperTitle = "Untitled paper"
	maxSessionTitle   = 120
)

type paperRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	SessionID string `json:"sessionId"`
}

func (r paperRequest) paper() (models.PaperContent, error) {
	if strings.TrimSpace(r.Content) == "" {
		return models.PaperContent{}, badRequest{"Paper content is required."}
	}
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = defaultPaperTitle
	}
	return models.PaperContent{Title: title, Content: r.Content}, nil
}

func (s *Server) handleProcessPaper(c *gin.Context) {
	var req paperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, errInvalidJSON)
		return
	}
	paper, err := req.paper()
	if err != nil {
		writeErr(c, err)
		return
	}
	ctx := c.Request.Context()
	userID := c.GetString(ctxUserID)

	created := false
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID != "" {
		if _, err := s.session(c, userID, sessionID); err != nil {
			writeErr(c, err)
			return
		}
	} else {
		sess := models.ChatSession{ID: uuid.NewString(), UserID: userID, Title: clip(paper.Title, maxSessionTitle)}
		if err := s.sessions.Create(ctx, &sess); err != nil {
			writeErr(c, err)
			return
		}
		sessionID, created = sess.ID, true
	}

	res, err := s.processor.Process(ctx, pipeline.Job{UserID: userID, SessionID: sessionID, Paper: paper})
	if err != nil {
		if created && !chargedAnything(err) {
			s.discardSession(c, userID, sessionID)
		}
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// chargedAnything reports whether a failed run left billed records behind.
func chargedAnything(err error) bool {
	var gen *pipeline.GenerationError
	return errors.As(err, &gen) && gen.Charged > 0
}

func (s *Server) discardSession(c *gin.Context, userID, sessionID string) {
	if err := s.sessions.Delete(c.Request.Context(), userID, sessionID); err != nil {
		s.logger.Warn("discard empty session failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

type costView struct {
	InputTokens  int   `json:"inputTokens"`
	OutputTokens int   `json:"assumedOutputTokens"`
	Credits      int64 `json:"credits"`
}

func toCostView(e pricing.CostEstimate) costView {
	return costView{InputTokens: e.InputTokens, OutputTokens: e.OutputTokens, Credits: e.Credits}
}

func (s *Server) handleEstimate(c *gin.Context) {
	var req paperRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, errInvalidJSON)
		return
	}
	paper, err := req.paper()
	if err != nil {
		writeErr(c, err)
		return
	}
	u, err := s.users.ByID(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		writeErr(c, err)
		return
	}
	q := s.pipeline.Quote(paper)
	c.JSON(http.StatusOK, gin.H{
		"summary":          toCostView(q.Summary),
		"code":             toCostView(q.Code),
		"total":            q.Total,
		"creditsAvailable": u.Credits,
		"sufficient":       u.Credits >= q.Total,
	})
}

func (s *Server) handleExtractDocument(c *gin.Context) {
	limit := int64(s.cfg.MaxUploadMB) << 20
	if limit <= 0 {
		limit = 32 << 20
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": gin.H{
				"code":    "PF-API-4130",
				"message": "Document exceeds the upload size limit.",
			}})
			return
		}
		writeErr(c, badRequest{"A document is required in the 'file' form field."})
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeErr(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeErr(c, err)
		return
	}

	paper, err := document.Extract(data, fh.Filename)
	if err != nil {
		s.logger.Info("document extraction failed", zap.String("filename", fh.Filename), zap.Error(err))
		writeErr(c, err)
		return
	}

	out := gin.H{"title": paper.Title, "content": paper.Content}
	if s.archiver != nil {
		key, err := s.archiver.Archive(c.Request.Context(), data, filepath.Ext(fh.Filename), fh.Header.Get("Content-Type"))
		if err != nil {
			s.logger.Error("archive upload failed", zap.String("filename", fh.Filename), zap.Error(err))
		} else {
			out["archiveKey"] = key
		}
	}
	c.JSON(http.StatusOK, out)
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
