package proxy

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"

	"github.com/mbvlabs/linkpulse/internal/logger"
)

const page = "<html><head><title>Inbox</title></head><body>ok</body></html>"

func htmlResponse(status int, body []byte, encoding string) *http.Response {
	h := http.Header{
		"Content-Type":   []string{"text/html; charset=utf-8"},
		"Content-Length": []string{strconv.Itoa(len(body))},
	}
	if encoding != "" {
		h.Set("Content-Encoding", encoding)
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    httptest.NewRequest(http.MethodGet, "http://example.com", nil),
	}
}

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading body failed: %v", err)
	}
	return string(b)
}

func TestNewServerRejectsRelativeURL(t *testing.T) {
	if _, err := NewServer("/dashboard", nil); err == nil {
		t.Fatal("expected relative dashboard url to be rejected")
	}
}

func TestModifyResponseInjectsPlain(t *testing.T) {
	ps := &Server{}
	resp := htmlResponse(http.StatusOK, []byte(page), "")

	if err := ps.modifyResponse(resp); err != nil {
		t.Fatalf("modifyResponse returned error: %v", err)
	}

	body := readAll(t, resp.Body)
	if !strings.Contains(body, WidgetScript) {
		t.Fatal("expected widget in response body")
	}
	if got := resp.Header.Get("Content-Length"); got != strconv.Itoa(len(body)) {
		t.Fatalf("expected content-length %d, got %q", len(body), got)
	}
}

func TestModifyResponseInjectsGzip(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte(page))
	gw.Close()

	ps := &Server{}
	resp := htmlResponse(http.StatusOK, buf.Bytes(), "gzip")
	if err := ps.modifyResponse(resp); err != nil {
		t.Fatalf("modifyResponse returned error: %v", err)
	}

	gr, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.Fatalf("response is not gzip: %v", err)
	}
	if body := readAll(t, gr); !strings.Contains(body, WidgetScript) {
		t.Fatal("expected widget in decompressed body")
	}
}

func TestModifyResponseInjectsBrotli(t *testing.T) {
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	bw.Write([]byte(page))
	bw.Close()

	ps := &Server{}
	resp := htmlResponse(http.StatusOK, buf.Bytes(), "br")
	if err := ps.modifyResponse(resp); err != nil {
		t.Fatalf("modifyResponse returned error: %v", err)
	}

	if body := readAll(t, brotli.NewReader(resp.Body)); !strings.Contains(body, WidgetScript) {
		t.Fatal("expected widget in decompressed body")
	}
}

func TestModifyResponseSkipsUnknownEncoding(t *testing.T) {
	ps := &Server{}
	resp := htmlResponse(http.StatusOK, []byte(page), "deflate")
	if err := ps.modifyResponse(resp); err != nil {
		t.Fatalf("modifyResponse returned error: %v", err)
	}
	if body := readAll(t, resp.Body); body != page {
		t.Fatalf("expected body unchanged, got %q", body)
	}
}

func TestModifyResponseSkipsNonHTML(t *testing.T) {
	ps := &Server{}
	resp := htmlResponse(http.StatusOK, []byte(`{"ok":true}`), "")
	resp.Header.Set("Content-Type", "application/json")

	if err := ps.modifyResponse(resp); err != nil {
		t.Fatalf("modifyResponse returned error: %v", err)
	}
	if body := readAll(t, resp.Body); body != `{"ok":true}` {
		t.Fatalf("expected JSON untouched, got %q", body)
	}
}

func TestModifyResponseSkipsInjectionForHEAD(t *testing.T) {
	ps := &Server{}
	resp := htmlResponse(http.StatusOK, []byte(page), "")
	resp.Request = httptest.NewRequest(http.MethodHead, "http://example.com", nil)

	if err := ps.modifyResponse(resp); err != nil {
		t.Fatalf("modifyResponse returned error: %v", err)
	}
	if body := readAll(t, resp.Body); body != page {
		t.Fatalf("expected HEAD response to remain unchanged, got %q", body)
	}
	if got := resp.Header.Get("Content-Length"); got != strconv.Itoa(len(page)) {
		t.Fatalf("expected content-length unchanged, got %q", got)
	}
}

func TestModifyResponseSkipsBodylessStatuses(t *testing.T) {
	for _, status := range []int{http.StatusNoContent, http.StatusNotModified} {
		ps := &Server{}
		resp := htmlResponse(status, []byte(page), "")
		if err := ps.modifyResponse(resp); err != nil {
			t.Fatalf("modifyResponse returned error: %v", err)
		}
		if body := readAll(t, resp.Body); body != page {
			t.Fatalf("expected %d response to remain unchanged, got %q", status, body)
		}
	}
}

func TestHandlerRoutesAPIAndProxiesDashboard(t *testing.T) {
	dashboard := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, page)
	}))
	defer dashboard.Close()

	ps, err := NewServer(dashboard.URL, logger.Noop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "api")
	})
	isAPI := func(r *http.Request) bool { return strings.HasPrefix(r.URL.Path, "/api/") }

	front := httptest.NewServer(ps.Handler(api, isAPI))
	defer front.Close()

	resp, err := http.Get(front.URL + "/api/connection")
	if err != nil {
		t.Fatal(err)
	}
	if body := readAll(t, resp.Body); body != "api" {
		t.Fatalf("expected api handler, got %q", body)
	}
	resp.Body.Close()

	resp, err = http.Get(front.URL + "/inbox")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if body := readAll(t, resp.Body); !strings.Contains(body, WidgetScript) {
		t.Fatal("expected proxied dashboard page with widget")
	}
}

func TestHandlerDashboardDown(t *testing.T) {
	dashboard := httptest.NewServer(http.NotFoundHandler())
	url := dashboard.URL
	dashboard.Close()

	log := logger.NewBufferLogger()
	ps, err := NewServer(url, log)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	rec := httptest.NewRecorder()
	ps.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !log.HasLevel("warn") {
		t.Fatal("expected warning to be logged")
	}
}
