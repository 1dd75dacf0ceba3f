package endpoint

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type greetParams struct {
	Name string `query:"name"`
}

func greet(w http.ResponseWriter, r *http.Request, p greetParams) (Renderer, error) {
	if p.Name == "" {
		return nil, Error(http.StatusBadRequest, "name required", nil)
	}
	if p.Name == "crash" {
		return nil, errors.New("internal detail")
	}
	return &JSONRenderer{Value: map[string]string{"hello": p.Name}}, nil
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantCode int
		wantBody string
	}{
		{"ok", "/?name=%3Cann%3E", http.StatusOK, `{"hello":"<ann>"}` + "\n"},
		{"endpoint error", "/", http.StatusBadRequest, "name required\n"},
		{"plain error", "/?name=crash", http.StatusInternalServerError, "internal detail\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Handler(greet).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if rec.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestProcessors(t *testing.T) {
	var order []string
	record := func(name string) Processor {
		return ProcessorFunc(func(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
			order = append(order, name)
			w.Header().Set("X-"+name, "1")
			return next(w, r)
		})
	}
	rec := httptest.NewRecorder()
	HandleFunc(greet, record("A"), record("B"))(rec, httptest.NewRequest(http.MethodGet, "/?name=x", nil))

	if strings.Join(order, ",") != "A,B" {
		t.Errorf("expected order A,B, got %v", order)
	}
	if rec.Header().Get("X-A") != "1" || rec.Header().Get("X-B") != "1" {
		t.Errorf("processor headers missing: %v", rec.Header())
	}
}

func TestProcessorShortCircuit(t *testing.T) {
	deny := ProcessorFunc(func(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
		return Error(http.StatusForbidden, "", nil)
	})
	rec := httptest.NewRecorder()
	Handler(func(w http.ResponseWriter, r *http.Request, _ struct{}) (Renderer, error) {
		t.Error("endpoint ran after short-circuit")
		return &NoContentRenderer{}, nil
	}, deny).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Forbidden") {
		t.Errorf("expected status text body, got %q", rec.Body.String())
	}
}

func TestNilRendererAndProcessor(t *testing.T) {
	nilRenderer := func(w http.ResponseWriter, r *http.Request, _ struct{}) (Renderer, error) { return nil, nil }

	rec := httptest.NewRecorder()
	Handler(nilRenderer).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("nil renderer: expected 500, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	Handler(nilRenderer, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("nil processor: expected 500, got %d", rec.Code)
	}
}

func TestError(t *testing.T) {
	inner := Error(http.StatusNotFound, "missing", nil)
	if got := Error(http.StatusInternalServerError, "outer", inner); got != inner {
		t.Errorf("expected existing EndpointError to be returned unchanged, got %v", got)
	}
	cause := errors.New("cause")
	err := Error(http.StatusBadGateway, "", cause)
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
	if err.Error() != "Bad Gateway: cause" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestRenderers(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := (&NoContentRenderer{}).Render(rec, nil); err != nil || rec.Code != http.StatusNoContent {
		t.Errorf("NoContentRenderer: %d, %v", rec.Code, err)
	}

	rec = httptest.NewRecorder()
	if err := (&StringRenderer{Body: "ok"}).Render(rec, nil); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("StringRenderer: %d %q %q", rec.Code, rec.Body.String(), rec.Header().Get("Content-Type"))
	}

	rec = httptest.NewRecorder()
	if err := (&JSONRenderer{Status: http.StatusCreated, Value: []int{1}}).Render(rec, nil); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated || rec.Body.String() != "[1]\n" || rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("JSONRenderer: %d %q %q", rec.Code, rec.Body.String(), rec.Header().Get("Content-Type"))
	}
}
