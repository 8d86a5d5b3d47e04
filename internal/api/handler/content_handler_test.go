package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/matjarly/dispatch-core/internal/pkg/retry"
)

type stubGenerator struct {
	lastPrompt string
	text       string
	err        error
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func TestContentHandler_Describe(t *testing.T) {
	gen := &stubGenerator{text: "A sleek insulated bottle that keeps drinks cold."}
	h := NewContentHandler(gen)

	c, rec := newGeoContext(t, http.MethodPost, "/v1/content/description",
		`{"name":"Steel Bottle","category":"kitchen","keywords":"insulated, 1L"}`)
	if err := h.Describe(c); err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp describeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Description != gen.text {
		t.Fatalf("unexpected description: %s", resp.Description)
	}
	for _, want := range []string{"Steel Bottle", "kitchen", "insulated, 1L"} {
		if !strings.Contains(gen.lastPrompt, want) {
			t.Fatalf("prompt missing %q: %s", want, gen.lastPrompt)
		}
	}
}

func TestContentHandler_Describe_MissingName(t *testing.T) {
	h := NewContentHandler(&stubGenerator{})

	c, _ := newGeoContext(t, http.MethodPost, "/v1/content/description", `{"category":"kitchen"}`)
	err := h.Describe(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestContentHandler_Describe_BusyPropagates(t *testing.T) {
	h := NewContentHandler(&stubGenerator{err: retry.ErrBusy})

	c, _ := newGeoContext(t, http.MethodPost, "/v1/content/description", `{"name":"Bottle"}`)
	err := h.Describe(c)
	if err != retry.ErrBusy {
		t.Fatalf("expected ErrBusy to propagate to the error handler, got %v", err)
	}
}
