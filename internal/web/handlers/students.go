package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/class-attend/internal/attendance"
	"github.com/kozaktomas/class-attend/internal/config"
	"github.com/kozaktomas/class-attend/internal/database"
	"github.com/kozaktomas/class-attend/internal/roster"
)

// StudentHandler handles roster management and enrollment.
type StudentHandler struct {
	cfg      *config.Config
	store    database.RosterWriter
	ledger   attendance.Ledger
	detector Detector
	orderer  *roster.Orderer
	index    *database.EncodingIndex
	dim      int
	warnDist float64 // enrollment near-duplicate warning distance
}

// NewStudentHandler creates a student handler.
func NewStudentHandler(cfg *config.Config, store database.RosterWriter, ledger attendance.Ledger, detector Detector, orderer *roster.Orderer, index *database.EncodingIndex) *StudentHandler {
	return &StudentHandler{
		cfg:      cfg,
		store:    store,
		ledger:   ledger,
		detector: detector,
		orderer:  orderer,
		index:    index,
		dim:      cfg.Detector.Dim,
		warnDist: cfg.Recognition.WarnDistance,
	}
}

// StudentResponse is one roster member in API responses.
type StudentResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	USN      string `json:"usn"`
	Semester int    `json:"semester"`
	Enrolled bool   `json:"enrolled"`
}

func toStudentResponse(s roster.Student) StudentResponse {
	return StudentResponse{
		ID:       s.ID,
		Name:     s.Name,
		USN:      s.USN,
		Semester: s.Semester,
		Enrolled: s.Enrolled(),
	}
}

// List returns the roster. Default ordering is flat string order;
// ?order=structured applies component-wise USN ordering with
// deprioritized cohorts last.
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.GetAll(r.Context())
	if err != nil {
		log.Printf("loading roster: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load roster")
		return
	}

	if r.URL.Query().Get("order") == "structured" {
		h.orderer.SortStructured(students)
	} else {
		h.orderer.SortFlat(students)
	}

	resp := make([]StudentResponse, 0, len(students))
	for _, s := range students {
		resp = append(resp, toStudentResponse(s))
	}
	respondJSON(w, http.StatusOK, map[string]any{"students": resp})
}

// CreateStudentRequest registers a roster member without an encoding.
type CreateStudentRequest struct {
	Name     string `json:"name"`
	USN      string `json:"usn"`
	Semester int    `json:"semester"`
}

// CreateStudentResponse is the created student, with a warning when a
// roster member already carries the same name up to accents and spacing.
type CreateStudentResponse struct {
	StudentResponse
	Warnings []string `json:"warnings,omitempty"`
}

// Create registers a new student. Enrollment happens separately.
func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.USN) == "" {
		respondError(w, http.StatusBadRequest, "name and usn are required")
		return
	}

	student := roster.Student{
		Name:     strings.TrimSpace(req.Name),
		USN:      strings.ToUpper(strings.TrimSpace(req.USN)),
		Semester: req.Semester,
	}

	var warnings []string
	if all, err := h.store.GetAll(r.Context()); err == nil {
		if dup := roster.FindSameName(all, student.Name); dup != nil {
			warnings = append(warnings, fmt.Sprintf("name matches existing student %s (%s)", dup.USN, dup.Name))
		}
	}

	id, err := h.store.CreateStudent(r.Context(), &student)
	if errors.Is(err, database.ErrDuplicateUSN) {
		respondError(w, http.StatusConflict, fmt.Sprintf("student %s already exists", sanitizeForLog(student.USN)))
		return
	}
	if err != nil {
		log.Printf("creating student: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to create student")
		return
	}
	student.ID = id
	respondJSON(w, http.StatusCreated, CreateStudentResponse{
		StudentResponse: toStudentResponse(student),
		Warnings:        warnings,
	})
}

// EnrollResponse reports a stored encoding, with a warning when the new
// encoding sits close to an already enrolled student.
type EnrollResponse struct {
	USN      string   `json:"usn"`
	Dim      int      `json:"dim"`
	Warnings []string `json:"warnings,omitempty"`
}

// Enroll stores a face encoding for a student from an uploaded photo. The
// photo must contain exactly one face; anything else is rejected so a
// bystander cannot end up as someone's reference encoding.
func (h *StudentHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	usn := strings.ToUpper(chi.URLParam(r, "usn"))

	student, err := h.store.GetByUSN(r.Context(), usn)
	if err != nil {
		log.Printf("loading student %s: %v", sanitizeForLog(usn), err)
		respondError(w, http.StatusInternalServerError, "failed to load student")
		return
	}
	if student == nil {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}

	if err := r.ParseMultipartForm(maxCaptureBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "enrollment photo is required")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(io.LimitReader(file, maxCaptureBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read enrollment photo")
		return
	}

	detection, err := h.detector.DetectFaces(r.Context(), imageData)
	if err != nil {
		log.Printf("detector: %v", err)
		respondError(w, http.StatusBadGateway, "face detection failed")
		return
	}
	if detection.FacesCount != 1 {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("expected exactly one face, got %d", detection.FacesCount))
		return
	}

	encoding := detection.Faces[0].Embedding
	if len(encoding) != h.dim {
		respondError(w, http.StatusBadGateway, fmt.Sprintf("detector returned %d-dimensional encoding, expected %d", len(encoding), h.dim))
		return
	}

	if err := h.store.SaveEncoding(r.Context(), student.ID, encoding); err != nil {
		log.Printf("saving encoding for %s: %v", sanitizeForLog(usn), err)
		respondError(w, http.StatusInternalServerError, "failed to save encoding")
		return
	}

	resp := EnrollResponse{USN: student.USN, Dim: len(encoding)}
	if h.index != nil {
		if near, dist, err := h.index.NearestOther(encoding, student.ID); err == nil && dist < h.warnDist {
			resp.Warnings = append(resp.Warnings,
				fmt.Sprintf("encoding is very close to %s (distance %.3f); verify the photo", near.USN, dist))
		}
		student.Encoding = encoding
		student.Dim = len(encoding)
		h.index.Add(student)
	}
	respondJSON(w, http.StatusOK, resp)
}

// Attendance returns one student's attendance records grouped by date,
// newest first.
func (h *StudentHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	usn := strings.ToUpper(chi.URLParam(r, "usn"))

	student, err := h.store.GetByUSN(r.Context(), usn)
	if err != nil {
		log.Printf("loading student %s: %v", sanitizeForLog(usn), err)
		respondError(w, http.StatusInternalServerError, "failed to load student")
		return
	}
	if student == nil {
		respondError(w, http.StatusNotFound, "student not found")
		return
	}

	records, err := h.ledger.Query(r.Context(), attendance.QueryFilter{StudentID: student.ID})
	if err != nil {
		log.Printf("querying attendance for %s: %v", sanitizeForLog(usn), err)
		respondError(w, http.StatusInternalServerError, "failed to query attendance")
		return
	}

	byID := map[int64]*roster.Student{student.ID: student}
	groups := groupRecordsByDate(h.cfg, records, byID, h.orderer)
	respondJSON(w, http.StatusOK, map[string]any{
		"student": toStudentResponse(*student),
		"groups":  groups,
	})
}
