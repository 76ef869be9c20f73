package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/imaging"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/session"
)

// ---------------------------------------------------------------------------
// POST /api/sessions/{user}/enter
// ---------------------------------------------------------------------------

func (s *Server) handleEnter(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user is required")
		return
	}

	s.sessions.Enter(user)
	writeJSON(w, http.StatusCreated, map[string]string{
		"user":  user,
		"state": "collecting",
	})
}

// ---------------------------------------------------------------------------
// POST /api/sessions/{user}/photos
// ---------------------------------------------------------------------------

func (s *Server) handleAddPhoto(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'photo' is required")
		return
	}
	defer file.Close()

	localPath, err := s.stagePhoto(file, header.Filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	info, err := imaging.Probe(localPath)
	if err != nil {
		os.Remove(localPath)
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}

	photo := model.PendingPhoto{
		LocalPath:        localPath,
		OriginalFilename: header.Filename,
		Width:            info.Width,
		Height:           info.Height,
		ReceivedAt:       model.NowRFC3339(),
	}

	count, triggered, err := s.sessions.AddPhoto(user, photo)
	if err != nil {
		os.Remove(localPath)
		switch {
		case errors.Is(err, session.ErrNotCollecting):
			writeError(w, http.StatusConflict, "intake mode is not active, enter first")
		case errors.Is(err, session.ErrAnalysisInProgress):
			writeError(w, http.StatusConflict, "analysis in progress, wait for the result")
		default:
			writeError(w, http.StatusInternalServerError, "failed to buffer photo")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"photo_count": count,
		"analyzing":   triggered,
	})
}

// stagePhoto copies the upload into the temp directory under a fresh name.
// The original filename only contributes its extension.
func (s *Server) stagePhoto(src io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".jpg"
	}
	path := filepath.Join(s.tempDir, uuid.New().String()+ext)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	return path, nil
}

// ---------------------------------------------------------------------------
// POST /api/sessions/{user}/undo
// ---------------------------------------------------------------------------

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	undone, err := s.sessions.UndoLast(r.Context(), user)
	if errors.Is(err, session.ErrNotCollecting) {
		writeError(w, http.StatusConflict, "intake mode is not active")
		return
	}
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, undone)
}

// ---------------------------------------------------------------------------
// POST /api/sessions/{user}/exit
// ---------------------------------------------------------------------------

func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	summary, err := s.sessions.Exit(user)
	if errors.Is(err, session.ErrNotCollecting) {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to exit session")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ---------------------------------------------------------------------------
// GET /api/sessions/{user}
// ---------------------------------------------------------------------------

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	status, err := s.sessions.Status(user)
	if errors.Is(err, session.ErrNotCollecting) {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ---------------------------------------------------------------------------
// GET /api/sessions/{user}/summary
// ---------------------------------------------------------------------------

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")

	summary, err := s.sessions.Summarize(user)
	if errors.Is(err, session.ErrNotCollecting) {
		writeError(w, http.StatusNotFound, "no active session")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to summarize session")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ---------------------------------------------------------------------------
// GET /api/items
// ---------------------------------------------------------------------------

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !model.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}

	items, err := s.items.ListItems(r.Context(), status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

// ---------------------------------------------------------------------------
// GET /api/items/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be numeric")
		return
	}

	item, err := s.items.GetItem(r.Context(), id)
	if errors.Is(err, model.ErrNotFound) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}
