package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/class-attend/internal/database"
	"github.com/kozaktomas/class-attend/internal/database/mock"
	"github.com/kozaktomas/class-attend/internal/roster"
)

func TestTeacherHandler_Create(t *testing.T) {
	store := mock.NewTeacherStore()
	handler := NewTeacherHandler(store)

	req := jsonRequest(t, "POST", "/api/v1/teachers", CreateTeacherRequest{
		Name:     "Dr. Rao",
		Username: "RAO",
		Subject:  "DBMS",
	})
	recorder := httptest.NewRecorder()

	handler.Create(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)

	var resp TeacherResponse
	parseJSONResponse(t, recorder, &resp)

	if resp.Username != "rao" {
		t.Errorf("expected lowercased username, got %s", resp.Username)
	}
	if resp.ID == 0 {
		t.Error("expected an assigned ID")
	}
}

func TestTeacherHandler_Create_Duplicate(t *testing.T) {
	store := mock.NewTeacherStore()
	store.CreateError = database.ErrDuplicateUsername
	handler := NewTeacherHandler(store)

	req := jsonRequest(t, "POST", "/api/v1/teachers", CreateTeacherRequest{
		Name:     "Dr. Rao",
		Username: "rao",
	})
	recorder := httptest.NewRecorder()

	handler.Create(recorder, req)

	assertStatusCode(t, recorder, http.StatusConflict)
}

func TestTeacherHandler_List(t *testing.T) {
	store := mock.NewTeacherStore()
	store.AddTeacher(roster.Teacher{Name: "Dr. Rao", Username: "rao", Subject: "DBMS"})
	store.AddTeacher(roster.Teacher{Name: "Dr. Iyer", Username: "iyer", Subject: "OS"})
	handler := NewTeacherHandler(store)

	req := httptest.NewRequest("GET", "/api/v1/teachers", nil)
	recorder := httptest.NewRecorder()

	handler.List(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var resp struct {
		Teachers []TeacherResponse `json:"teachers"`
	}
	parseJSONResponse(t, recorder, &resp)

	if len(resp.Teachers) != 2 {
		t.Fatalf("expected 2 teachers, got %d", len(resp.Teachers))
	}
}

func TestTeacherHandler_Delete(t *testing.T) {
	store := mock.NewTeacherStore()
	id := store.AddTeacher(roster.Teacher{Name: "Dr. Rao", Username: "rao", Subject: "DBMS"})
	handler := NewTeacherHandler(store)

	req := httptest.NewRequest("DELETE", "/api/v1/teachers/1", nil)
	req = requestWithChiParams(req, map[string]string{"id": "1"})
	recorder := httptest.NewRecorder()

	handler.Delete(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	if got, err := store.GetTeacher(t.Context(), id); err != nil || got != nil {
		t.Errorf("expected teacher to be gone, got %+v (err %v)", got, err)
	}
}

func TestTeacherHandler_Delete_NotFound(t *testing.T) {
	handler := NewTeacherHandler(mock.NewTeacherStore())

	req := httptest.NewRequest("DELETE", "/api/v1/teachers/99", nil)
	req = requestWithChiParams(req, map[string]string{"id": "99"})
	recorder := httptest.NewRecorder()

	handler.Delete(recorder, req)

	assertStatusCode(t, recorder, http.StatusNotFound)
}
