package endpoint

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type textUpper string

func (t *textUpper) UnmarshalText(b []byte) error {
	*t = textUpper(strings.ToUpper(string(b)))
	return nil
}

type Pagination struct {
	Page  int  `query:"page"`
	Limit *int `query:"limit"`
}

type decodeParams struct {
	Q       string    `query:"q"`
	N       int       `query:"n"`
	Ok      bool      `query:"ok"`
	Ratio   float64   `query:"ratio"`
	Tags    []string  `query:"tag"`
	Upper   textUpper `query:"upper"`
	Trace   string    `header:"X-Trace"`
	Accepts []string  `header:"Accept"`
	Skip    string    `query:"-"`
	Pagination
}

func TestUnmarshal_QueryHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?q=hello&n=7&ok=true&ratio=0.5&tag=a&tag=b&upper=abc&page=2&limit=10&-=x", nil)
	req.Header.Set("X-Trace", "t1")
	req.Header.Add("Accept", "a/b")
	req.Header.Add("Accept", "c/d")

	var p decodeParams
	if err := Unmarshal(req, &p); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if p.Q != "hello" || p.N != 7 || !p.Ok || p.Ratio != 0.5 {
		t.Fatalf("unexpected scalars: %+v", p)
	}
	if len(p.Tags) != 2 || p.Tags[0] != "a" || p.Tags[1] != "b" {
		t.Fatalf("expected tags [a b], got %v", p.Tags)
	}
	if p.Upper != "ABC" {
		t.Fatalf("expected Upper %q, got %q", "ABC", p.Upper)
	}
	if p.Trace != "t1" || len(p.Accepts) != 2 {
		t.Fatalf("unexpected headers: %q %v", p.Trace, p.Accepts)
	}
	if p.Skip != "" {
		t.Fatalf("expected Skip empty, got %q", p.Skip)
	}
	if p.Page != 2 || p.Limit == nil || *p.Limit != 10 {
		t.Fatalf("unexpected embedded fields: %+v", p.Pagination)
	}
}

func TestUnmarshal_Body(t *testing.T) {
	type rawBody struct {
		Body []byte `body:""`
	}
	type stringBody struct {
		Body string `body:""`
	}
	type jsonBody struct {
		Body struct {
			Name string `json:"name"`
		} `body:""`
	}

	var raw rawBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "text/plain")
	if err := Unmarshal(req, &raw); err != nil || string(raw.Body) != "not json" {
		t.Fatalf("raw body: %q, %v", raw.Body, err)
	}

	var s stringBody
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("hello"))
	if err := Unmarshal(req, &s); err != nil || s.Body != "hello" {
		t.Fatalf("string body: %q, %v", s.Body, err)
	}

	var j jsonBody
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ann"}`))
	req.Header.Set("Content-Type", "application/json")
	if err := Unmarshal(req, &j); err != nil || j.Body.Name != "ann" {
		t.Fatalf("json body: %+v, %v", j.Body, err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ann"}`))
	req.Header.Set("Content-Type", "text/plain")
	wantStatus(t, Unmarshal(req, &j), http.StatusUnsupportedMediaType)
}

func TestUnmarshal_Limits(t *testing.T) {
	type limited struct {
		Body []byte `body:"" maxLength:"4"`
		Q    string `query:"q" maxLength:"2"`
	}

	var p limited
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("12345"))
	wantStatus(t, Unmarshal(req, &p), http.StatusRequestEntityTooLarge)

	req = httptest.NewRequest(http.MethodPost, "/?q=abc", strings.NewReader("1234"))
	wantStatus(t, Unmarshal(req, &p), http.StatusBadRequest)
}

func TestUnmarshal_Errors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?n=abc", nil)

	var p decodeParams
	wantStatus(t, Unmarshal(req, &p), http.StatusBadRequest)

	var notPtr decodeParams
	wantStatus(t, Unmarshal(req, notPtr), http.StatusInternalServerError)

	var n int
	wantStatus(t, Unmarshal(req, &n), http.StatusInternalServerError)

	type twoBodies struct {
		A []byte `body:""`
		B []byte `body:""`
	}
	wantStatus(t, Unmarshal(req, &twoBodies{}), http.StatusInternalServerError)

	type twoSources struct {
		A string `query:"a" header:"a"`
	}
	wantStatus(t, Unmarshal(req, &twoSources{}), http.StatusInternalServerError)
}

func TestIsJSON(t *testing.T) {
	tests := map[string]bool{
		"application/json":                true,
		"Application/JSON; charset=utf-8": true,
		"application/problem+json":        true,
		"text/plain":                      false,
		"":                                false,
	}
	for ct, want := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		if got := IsJSON(req); got != want {
			t.Errorf("IsJSON(%q) = %v, want %v", ct, got, want)
		}
	}
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	var ee *EndpointError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *EndpointError, got %v", err)
	}
	if ee.Status != status {
		t.Fatalf("expected status %d, got %d (%v)", status, ee.Status, err)
	}
}
