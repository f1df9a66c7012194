package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kozaktomas/class-attend/internal/attendance"
	"github.com/kozaktomas/class-attend/internal/config"
	"github.com/kozaktomas/class-attend/internal/database"
	"github.com/kozaktomas/class-attend/internal/detect"
	"github.com/kozaktomas/class-attend/internal/recognize"
	"github.com/kozaktomas/class-attend/internal/roster"
)

// maxCaptureBytes limits uploaded capture images (16 MiB).
const maxCaptureBytes = 16 << 20

// Detector produces face embeddings from a capture image. Satisfied by
// *detect.Client; swapped for a fake in tests.
type Detector interface {
	DetectFaces(ctx context.Context, imageData []byte) (*detect.Detection, error)
}

// AttendanceHandler handles attendance marking and reporting.
type AttendanceHandler struct {
	cfg      *config.Config
	store    database.RosterReader
	ledger   attendance.Ledger
	matcher  *recognize.Matcher
	detector Detector
	orderer  *roster.Orderer
}

// NewAttendanceHandler creates an attendance handler.
func NewAttendanceHandler(cfg *config.Config, store database.RosterReader, ledger attendance.Ledger, matcher *recognize.Matcher, detector Detector, orderer *roster.Orderer) *AttendanceHandler {
	return &AttendanceHandler{
		cfg:      cfg,
		store:    store,
		ledger:   ledger,
		matcher:  matcher,
		detector: detector,
		orderer:  orderer,
	}
}

// RecognizeResponse reports the outcome of one capture submission.
type RecognizeResponse struct {
	CaptureID      string   `json:"capture_id"`
	FacesDetected  int      `json:"faces_detected"`
	Matched        int      `json:"matched"`
	UnmatchedFaces int      `json:"unmatched_faces"`
	CorruptEntries int      `json:"corrupt_entries,omitempty"`
	MatchedUSNs    []string `json:"matched_usns,omitempty"`
	Reconciled     bool     `json:"reconciled"`
	Present        int      `json:"present"`
	Absent         int      `json:"absent"`
	Total          int      `json:"total"`
	Warnings       []string `json:"warnings,omitempty"`
	FailedStudents []int64  `json:"failed_students,omitempty"`
}

// recognizeJSONRequest is the precomputed-embeddings variant of Recognize,
// for callers that run detection themselves.
type recognizeJSONRequest struct {
	TeacherID  int64       `json:"teacher_id"`
	Subject    string      `json:"subject"`
	Date       string      `json:"date"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Recognize marks attendance from a capture. Accepts either a multipart
// form (file + teacher_id + subject + date) whose image is sent to the
// detector service, or a JSON body carrying precomputed embeddings. A
// capture with no faces or no matches is reported as a warning and skips
// reconciliation: a failed capture must never record an Absent-only
// session.
func (h *AttendanceHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	var key attendance.SessionKey
	var embeddings [][]float32

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		var err error
		key, embeddings, err = h.parseCaptureForm(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		var req recognizeJSONRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
		key = attendance.SessionKey{TeacherID: req.TeacherID, Subject: req.Subject, Date: req.Date}
		embeddings = req.Embeddings
	}

	if err := key.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := RecognizeResponse{
		CaptureID:     uuid.NewString(),
		FacesDetected: len(embeddings),
	}

	if len(embeddings) == 0 {
		resp.Warnings = append(resp.Warnings, "no faces detected in capture")
		respondJSON(w, http.StatusOK, resp)
		return
	}

	students, err := h.store.GetAll(r.Context())
	if err != nil {
		log.Printf("loading roster: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load roster")
		return
	}

	result := h.matcher.Match(embeddings, students)
	resp.Matched = result.MatchedCount()
	resp.UnmatchedFaces = len(embeddings) - resp.Matched
	resp.CorruptEntries = result.CorruptEntries
	for _, f := range result.Faces {
		if f.Outcome == recognize.OutcomeMatched {
			resp.MatchedUSNs = append(resp.MatchedUSNs, f.USN)
		}
	}
	sort.Strings(resp.MatchedUSNs)

	if resp.Matched == 0 {
		resp.Warnings = append(resp.Warnings, "no enrolled student matched; attendance was not recorded")
		respondJSON(w, http.StatusOK, resp)
		return
	}

	ids := make([]int64, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}

	reconciler := attendance.NewReconciler(h.ledger)
	summary, err := reconciler.Reconcile(r.Context(), key, result.PresentSet(), ids)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp.Reconciled = true
	fillSummary(&resp, summary)
	log.Printf("capture %s: %d faces, %d matched, %d/%d present",
		resp.CaptureID, resp.FacesDetected, resp.Matched, resp.Present, resp.Total)
	respondJSON(w, http.StatusOK, resp)
}

// parseCaptureForm extracts the session key and detected embeddings from a
// multipart capture upload.
func (h *AttendanceHandler) parseCaptureForm(r *http.Request) (attendance.SessionKey, [][]float32, error) {
	if err := r.ParseMultipartForm(maxCaptureBytes); err != nil {
		return attendance.SessionKey{}, nil, errors.New("invalid multipart form")
	}

	teacherID, err := strconv.ParseInt(r.FormValue("teacher_id"), 10, 64)
	if err != nil {
		return attendance.SessionKey{}, nil, errors.New("teacher_id is required")
	}
	key := attendance.SessionKey{
		TeacherID: teacherID,
		Subject:   r.FormValue("subject"),
		Date:      r.FormValue("date"),
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		return attendance.SessionKey{}, nil, errors.New("capture image is required")
	}
	defer file.Close()

	imageData, err := io.ReadAll(io.LimitReader(file, maxCaptureBytes))
	if err != nil {
		return attendance.SessionKey{}, nil, errors.New("failed to read capture image")
	}

	detection, err := h.detector.DetectFaces(r.Context(), imageData)
	if err != nil {
		return attendance.SessionKey{}, nil, fmt.Errorf("detector: %w", err)
	}
	return key, detection.Embeddings(), nil
}

// ManualRequest is a roster-wide roll call supplied by the teacher.
type ManualRequest struct {
	TeacherID  int64   `json:"teacher_id"`
	Subject    string  `json:"subject"`
	Date       string  `json:"date"`
	PresentIDs []int64 `json:"present_ids"`
}

// ManualResponse reports the outcome of a manual submission.
type ManualResponse struct {
	Present        int     `json:"present"`
	Absent         int     `json:"absent"`
	Total          int     `json:"total"`
	FailedStudents []int64 `json:"failed_students,omitempty"`
}

// Manual marks attendance from a manual roll call. Every roster member
// gets a row; the present set is whatever the teacher ticked. Unlike
// Recognize, an empty roster is an error here: manually marking a class
// with no students is a mistake, not a capture failure.
func (h *AttendanceHandler) Manual(w http.ResponseWriter, r *http.Request) {
	var req ManualRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	key := attendance.SessionKey{TeacherID: req.TeacherID, Subject: req.Subject, Date: req.Date}

	students, err := h.store.GetAll(r.Context())
	if err != nil {
		log.Printf("loading roster: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load roster")
		return
	}

	ids := make([]int64, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	present := make(map[int64]bool, len(req.PresentIDs))
	for _, id := range req.PresentIDs {
		present[id] = true
	}

	reconciler := attendance.NewReconciler(h.ledger)
	summary, err := reconciler.ReconcileRequireRoster(r.Context(), key, present, ids)
	if errors.Is(err, attendance.ErrEmptyRoster) {
		respondError(w, http.StatusBadRequest, "no students in the roster")
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := ManualResponse{Present: summary.Present, Absent: summary.Absent, Total: summary.Total}
	for _, f := range summary.Failed {
		resp.FailedStudents = append(resp.FailedStudents, f.StudentID)
	}
	respondJSON(w, http.StatusOK, resp)
}

func fillSummary(resp *RecognizeResponse, summary *attendance.Summary) {
	resp.Present = summary.Present
	resp.Absent = summary.Absent
	resp.Total = summary.Total
	for _, f := range summary.Failed {
		resp.FailedStudents = append(resp.FailedStudents, f.StudentID)
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("failed to record student %d", f.StudentID))
	}
}

// ReportRow is one attendance row in a dated report group.
type ReportRow struct {
	USN     string `json:"usn"`
	Name    string `json:"name"`
	Branch  string `json:"branch,omitempty"`
	Subject string `json:"subject"`
	Status  string `json:"status"`
}

// ReportGroup is all rows for one date.
type ReportGroup struct {
	Date string      `json:"date"`
	Rows []ReportRow `json:"rows"`
}

// Report returns attendance records grouped by date (newest first), rows
// within each date in structured USN order.
func (h *AttendanceHandler) Report(w http.ResponseWriter, r *http.Request) {
	filter := attendance.QueryFilter{Date: r.URL.Query().Get("date")}
	if v := r.URL.Query().Get("teacher_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid teacher_id")
			return
		}
		filter.TeacherID = id
	}

	records, err := h.ledger.Query(r.Context(), filter)
	if err != nil {
		log.Printf("querying attendance: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to query attendance")
		return
	}

	students, err := h.store.GetAll(r.Context())
	if err != nil {
		log.Printf("loading roster: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to load roster")
		return
	}
	byID := make(map[int64]*roster.Student, len(students))
	for i := range students {
		byID[students[i].ID] = &students[i]
	}

	groups := groupRecordsByDate(h.cfg, records, byID, h.orderer)
	respondJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

// groupRecordsByDate buckets records per date, newest first, and orders
// each bucket's rows by structured USN. Branch display names come from
// the cohorts config.
func groupRecordsByDate(cfg *config.Config, records []attendance.Record, byID map[int64]*roster.Student, orderer *roster.Orderer) []ReportGroup {
	buckets := make(map[string][]ReportRow)
	var dates []string
	for _, rec := range records {
		date := rec.DateString()
		if _, ok := buckets[date]; !ok {
			dates = append(dates, date)
		}
		row := ReportRow{Subject: rec.Subject, Status: string(rec.Status)}
		if s, ok := byID[rec.StudentID]; ok {
			row.USN = s.USN
			row.Name = s.Name
			if parsed, ok := roster.ParseUSN(s.USN); ok {
				row.Branch = cfg.BranchName(parsed.SubBranch)
			}
		}
		buckets[date] = append(buckets[date], row)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	groups := make([]ReportGroup, 0, len(dates))
	for _, date := range dates {
		rows := buckets[date]
		sort.SliceStable(rows, func(i, j int) bool {
			return orderer.LessStructured(rows[i].USN, rows[j].USN)
		})
		groups = append(groups, ReportGroup{Date: date, Rows: rows})
	}
	return groups
}
