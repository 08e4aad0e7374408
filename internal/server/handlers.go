package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hyperengineering/chronolog/internal/model"
	"github.com/hyperengineering/chronolog/internal/serverdb"
)

func (s *Server) health(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) internalError(c *gin.Context, op string, err error) {
	s.logger.Error("request failed",
		slog.String("op", op),
		slog.String("user", UserID(c)),
		slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func (s *Server) pull(c *gin.Context) {
	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := model.ParseTime(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": `Invalid "since" parameter — must be an ISO timestamp`})
			return
		}
		since = &t
	}
	resp, err := s.store.PullChangesSince(c.Request.Context(), UserID(c), since)
	if err != nil {
		s.internalError(c, "pull", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) push(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	req, err := decodeChanges(envelope["changes"])
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `Missing or invalid "changes" field`})
		return
	}

	resp, err := s.store.PushChanges(c.Request.Context(), UserID(c), req)
	if err != nil {
		s.internalError(c, "push", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// decodeChanges requires changes to be an object. Entries for unknown
// tables are kept empty so they are ignored rather than rejected.
func decodeChanges(raw json.RawMessage) (model.PushRequest, error) {
	var tables map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &tables) != nil || tables == nil {
		return model.PushRequest{}, errors.New("changes must be an object")
	}
	req := model.PushRequest{Changes: make(map[string][]model.Change, len(tables))}
	for name, list := range tables {
		if !model.IsTable(name) {
			req.Changes[name] = nil
			continue
		}
		var changes []model.Change
		if err := json.Unmarshal(list, &changes); err != nil {
			return model.PushRequest{}, fmt.Errorf("changes.%s: %w", name, err)
		}
		req.Changes[name] = changes
	}
	return req, nil
}

func (s *Server) contractsByClient(c *gin.Context) {
	contracts, err := s.store.ContractsByClient(c.Request.Context(), UserID(c))
	if err != nil {
		s.internalError(c, "contracts by client", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contracts": contracts})
}

func (s *Server) notesForContract(c *gin.Context) {
	contractID := c.Query("contractId")
	if contractID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contractId is required"})
		return
	}
	notes, err := s.store.NotesForContract(c.Request.Context(), UserID(c), contractID)
	if err != nil {
		s.internalError(c, "notes for contract", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

func (s *Server) noteByID(c *gin.Context) {
	note, err := s.store.NoteByID(c.Request.Context(), UserID(c), c.Param("id"))
	if err != nil {
		s.internalError(c, "note", err)
		return
	}
	if note == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Note not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note})
}

func (s *Server) weeklyTimeEntries(c *gin.Context) {
	raw := c.Query("weeks")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing weeks parameter"})
		return
	}
	var weekStarts []string
	for _, w := range strings.Split(raw, ",") {
		if w = strings.TrimSpace(w); w != "" {
			weekStarts = append(weekStarts, w)
		}
	}
	weeks, err := s.store.WeeklyTimeEntries(c.Request.Context(), UserID(c), weekStarts)
	if errors.Is(err, serverdb.ErrInvalidWeek) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.internalError(c, "weekly time entries", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"weeks": weeks})
}

func (s *Server) timerStatus(c *gin.Context) {
	timer, err := s.store.TimerStatus(c.Request.Context(), UserID(c))
	if err != nil {
		s.internalError(c, "timer status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"timer": timer})
}

func (s *Server) attachment(c *gin.Context) {
	f, err := s.store.Attachment(c.Request.Context(), UserID(c), c.Param("id"))
	if errors.Is(err, serverdb.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Attachment not found"})
		return
	}
	if err != nil {
		s.internalError(c, "attachment", err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": f.Filename}))
	c.Header("Content-Length", strconv.Itoa(len(f.Data)))
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	contentType := f.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, f.Data)
}
