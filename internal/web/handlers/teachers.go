package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/class-attend/internal/database"
	"github.com/kozaktomas/class-attend/internal/roster"
)

// TeacherHandler handles teacher account management.
type TeacherHandler struct {
	store database.TeacherStore
}

// NewTeacherHandler creates a teacher handler.
func NewTeacherHandler(store database.TeacherStore) *TeacherHandler {
	return &TeacherHandler{store: store}
}

// TeacherResponse is one teacher in API responses.
type TeacherResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Subject  string `json:"subject"`
}

func toTeacherResponse(t roster.Teacher) TeacherResponse {
	return TeacherResponse{ID: t.ID, Name: t.Name, Username: t.Username, Subject: t.Subject}
}

// CreateTeacherRequest registers a teacher.
type CreateTeacherRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Subject  string `json:"subject"`
}

// Create registers a new teacher.
func (h *TeacherHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTeacherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Username) == "" {
		respondError(w, http.StatusBadRequest, "name and username are required")
		return
	}

	teacher := roster.Teacher{
		Name:     strings.TrimSpace(req.Name),
		Username: strings.ToLower(strings.TrimSpace(req.Username)),
		Subject:  strings.TrimSpace(req.Subject),
	}
	id, err := h.store.CreateTeacher(r.Context(), &teacher)
	if errors.Is(err, database.ErrDuplicateUsername) {
		respondError(w, http.StatusConflict, fmt.Sprintf("teacher %s already exists", sanitizeForLog(teacher.Username)))
		return
	}
	if err != nil {
		log.Printf("creating teacher: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create teacher")
		return
	}
	teacher.ID = id
	respondJSON(w, http.StatusCreated, toTeacherResponse(teacher))
}

// List returns all teachers.
func (h *TeacherHandler) List(w http.ResponseWriter, r *http.Request) {
	teachers, err := h.store.ListTeachers(r.Context())
	if err != nil {
		log.Printf("listing teachers: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list teachers")
		return
	}

	resp := make([]TeacherResponse, 0, len(teachers))
	for _, t := range teachers {
		resp = append(resp, toTeacherResponse(t))
	}
	respondJSON(w, http.StatusOK, map[string]any{"teachers": resp})
}

// Delete removes a teacher. Attendance rows marked by the teacher go with
// them; the database cascades the delete.
func (h *TeacherHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid teacher id")
		return
	}

	teacher, err := h.store.GetTeacher(r.Context(), id)
	if err != nil {
		log.Printf("loading teacher %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to load teacher")
		return
	}
	if teacher == nil {
		respondError(w, http.StatusNotFound, "teacher not found")
		return
	}

	if err := h.store.DeleteTeacher(r.Context(), id); err != nil {
		log.Printf("deleting teacher %d: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to delete teacher")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
