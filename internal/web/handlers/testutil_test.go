package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/class-attend/internal/config"
	"github.com/kozaktomas/class-attend/internal/database/mock"
	"github.com/kozaktomas/class-attend/internal/detect"
	"github.com/kozaktomas/class-attend/internal/roster"
)

const testDim = 4

// testConfig returns a config with a small branch mapping for report tests.
func testConfig() *config.Config {
	return &config.Config{
		Detector:    config.DetectorConfig{Dim: testDim},
		Recognition: config.RecognitionConfig{Threshold: 0.5, WarnDistance: 0.35},
		Cohorts: config.CohortsConfig{
			DeprioritizedPrefixes: []string{"2BA20AI", "2BA22AI"},
			Branches: map[string]string{
				"CS": "Computer Science",
				"AI": "Artificial Intelligence",
			},
		},
	}
}

// fakeDetector returns a canned detection instead of calling the detector
// service.
type fakeDetector struct {
	detection *detect.Detection
	err       error
}

func (f *fakeDetector) DetectFaces(ctx context.Context, imageData []byte) (*detect.Detection, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.detection, nil
}

// detectionOf builds a detection carrying the given embeddings.
func detectionOf(embeddings ...[]float32) *detect.Detection {
	d := &detect.Detection{FacesCount: len(embeddings), Dim: testDim}
	for i, e := range embeddings {
		d.Faces = append(d.Faces, detect.Face{FaceIndex: i, Embedding: e})
	}
	return d
}

// vec builds a testDim-dimensional encoding with the first component set.
func vec(first float32) []float32 {
	v := make([]float32, testDim)
	v[0] = first
	return v
}

// seedRoster fills a mock store with three students; the first two are
// enrolled with well-separated encodings, the third has no encoding.
func seedRoster(t *testing.T, store *mock.RosterStore) (alice, bob, carol int64) {
	t.Helper()
	alice = store.AddStudent(roster.Student{Name: "Alice", USN: "1BA21CS001", Semester: 5, Encoding: vec(0), Dim: testDim})
	bob = store.AddStudent(roster.Student{Name: "Bob", USN: "1BA21CS002", Semester: 5, Encoding: vec(10), Dim: testDim})
	carol = store.AddStudent(roster.Student{Name: "Carol", USN: "1BA21CS003", Semester: 5})
	return alice, bob, carol
}

// jsonRequest creates a request with a JSON body.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest creates a multipart request with a file part and extra
// form fields.
func multipartRequest(t *testing.T, path string, fileContent []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "capture.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(fileContent)); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed to write form field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
