package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetectFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect/faces" {
			t.Errorf("path = %s, want /detect/faces", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}

		json.NewEncoder(w).Encode(Detection{
			FacesCount: 2,
			Dim:        4,
			Model:      "buffalo_l",
			Faces: []Face{
				{FaceIndex: 0, Embedding: []float32{1, 0, 0, 0}, BBox: []float64{1, 2, 3, 4}, DetScore: 0.99},
				{FaceIndex: 1, Embedding: []float32{0, 1, 0, 0}, BBox: []float64{5, 6, 7, 8}, DetScore: 0.97},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	det, err := client.DetectFaces(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0})
	if err != nil {
		t.Fatalf("DetectFaces: %v", err)
	}

	if det.FacesCount != 2 || len(det.Faces) != 2 {
		t.Errorf("faces = %d/%d, want 2", det.FacesCount, len(det.Faces))
	}
	embs := det.Embeddings()
	if len(embs) != 2 || embs[1][1] != 1 {
		t.Errorf("Embeddings() = %v", embs)
	}
}

func TestDetectFacesZeroFaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Detection{FacesCount: 0, Dim: 4})
	}))
	defer server.Close()

	det, err := NewClient(server.URL).DetectFaces(context.Background(), []byte("not really an image"))
	if err != nil {
		t.Fatalf("zero faces must not be an error: %v", err)
	}
	if det.FacesCount != 0 || len(det.Faces) != 0 {
		t.Errorf("detection = %+v, want empty", det)
	}
}

func TestDetectFacesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	if _, err := NewClient(server.URL).DetectFaces(context.Background(), []byte("img")); err == nil {
		t.Fatal("expected error on HTTP 500")
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0, 0, 0}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"short", []byte{0x01}, "application/octet-stream"},
		{"unknown", []byte("plaintext"), "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.want {
				t.Errorf("detectMIMEType = %q, want %q", got, tt.want)
			}
		})
	}
}
