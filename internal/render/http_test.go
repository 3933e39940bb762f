package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/FranksOps/sitehunt/internal/fingerprint"
)

func newTestHTTP(t *testing.T, timeout time.Duration) *HTTP {
	t.Helper()
	h, err := NewHTTP(HTTPConfig{Timeout: timeout, Fingerprint: fingerprint.ProfileGo}, nil)
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	return h
}

func TestHTTP_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "TestBrowser/1.0" {
			t.Errorf("expected User-Agent TestBrowser/1.0, got %q", got)
		}
		if r.Header.Get("Accept-Language") == "" {
			t.Errorf("expected default Accept-Language header")
		}
		w.Header().Set("X-Test", "true")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer ts.Close()

	page, err := newTestHTTP(t, 5*time.Second).Render(context.Background(), Request{
		URL:       ts.URL,
		UserAgent: "TestBrowser/1.0",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if page.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", page.StatusCode)
	}
	if page.HTML != "<html>ok</html>" {
		t.Errorf("unexpected body %q", page.HTML)
	}
	if page.Headers.Get("X-Test") != "true" {
		t.Errorf("expected X-Test header, got %v", page.Headers)
	}
	if page.Duration == 0 {
		t.Errorf("expected non-zero duration")
	}
}

func TestHTTP_ErrorStatusIsAPage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("denied"))
	}))
	defer ts.Close()

	page, err := newTestHTTP(t, 5*time.Second).Render(context.Background(), Request{URL: ts.URL})
	if err != nil {
		t.Fatalf("expected page for 403, got error %v", err)
	}
	if page.StatusCode != http.StatusForbidden || page.HTML != "denied" {
		t.Errorf("unexpected page: %d %q", page.StatusCode, page.HTML)
	}
}

func TestHTTP_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer ts.Close()

	if _, err := newTestHTTP(t, 10*time.Millisecond).Render(context.Background(), Request{URL: ts.URL}); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestHTTP_Proxy(t *testing.T) {
	var proxied string
	proxyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied = r.URL.String()
		w.WriteHeader(http.StatusTeapot)
	}))
	defer proxyServer.Close()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	proxyURL, _ := url.Parse(proxyServer.URL)
	page, err := newTestHTTP(t, 5*time.Second).Render(context.Background(), Request{
		URL:   target.URL + "/search",
		Proxy: proxyURL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.StatusCode != http.StatusTeapot {
		t.Errorf("expected request to go through proxy (418), got %d", page.StatusCode)
	}
	if proxied != target.URL+"/search" {
		t.Errorf("expected absolute target URL at proxy, got %q", proxied)
	}
}

func TestRendererFunc(t *testing.T) {
	var r Renderer = RendererFunc(func(ctx context.Context, req Request) (*Page, error) {
		return &Page{URL: req.URL, HTML: "stub"}, nil
	})
	page, err := r.Render(context.Background(), Request{URL: "http://x"})
	if err != nil || page.HTML != "stub" || page.URL != "http://x" {
		t.Errorf("unexpected result %+v, %v", page, err)
	}
}

func TestHTTP_ChromeProfileOverHTTP2(t *testing.T) {
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>" + r.Proto + "</html>"))
	}))
	ts.EnableHTTP2 = true
	ts.StartTLS()
	defer ts.Close()

	h, err := NewHTTP(HTTPConfig{Timeout: 5 * time.Second, InsecureSkipVerify: true}, nil)
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}

	for i := 0; i < 2; i++ {
		page, err := h.Render(context.Background(), Request{URL: ts.URL})
		if err != nil {
			t.Fatalf("render %d: %v", i, err)
		}
		if page.StatusCode != http.StatusOK || page.HTML != "<html>HTTP/2.0</html>" {
			t.Errorf("render %d: got %d %q", i, page.StatusCode, page.HTML)
		}
	}
}
