package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.html")
	if err := os.WriteFile(path, []byte("<html><body>hi</body></html>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := New(time.Second).Load(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), "hi") {
		t.Errorf("unexpected data: %q", data)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := New(time.Second).Load(context.Background(), filepath.Join(t.TempDir(), "absent.html"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>remote</body></html>"))
	}))
	defer srv.Close()

	data, err := New(time.Second).Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(data), "remote") {
		t.Errorf("unexpected data: %q", data)
	}
}

func TestLoad_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(time.Second).Load(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error does not carry status: %v", err)
	}
}

func TestParseHTMLAndBody(t *testing.T) {
	doc, err := ParseHTML([]byte("<html><head><title>t</title></head><body><p>content</p></body></html>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := Body(doc)
	if body == nil {
		t.Fatal("body not found")
	}
	if body.FirstChild == nil || body.FirstChild.Data != "p" {
		t.Errorf("unexpected body structure")
	}
}
