package fingerprint

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTransport_Profiles(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	for _, p := range Profiles() {
		t.Run(string(p), func(t *testing.T) {
			rt, err := Transport(p, Options{InsecureSkipVerify: true})
			if err != nil {
				t.Fatalf("unexpected error creating transport for %s: %v", p, err)
			}

			client := &http.Client{Transport: rt}
			defer client.CloseIdleConnections()

			for i := 0; i < 2; i++ {
				resp, err := client.Get(ts.URL)
				if err != nil {
					t.Fatalf("request %d failed for profile %s: %v", i, p, err)
				}
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					t.Errorf("expected 200 OK, got %d for profile %s", resp.StatusCode, p)
				}
				if resp.ProtoMajor != 1 {
					t.Errorf("expected HTTP/1.x from an h1-only server, got %s", resp.Proto)
				}
			}
		})
	}
}

func TestTransport_HTTP2Server(t *testing.T) {
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Proto", r.Proto)
		io.WriteString(w, "<html>ok</html>")
	}))
	ts.EnableHTTP2 = true
	ts.StartTLS()
	defer ts.Close()

	browserProfiles := []Profile{ProfileChrome, ProfileFirefox, ProfileSafari}
	for _, p := range append(browserProfiles, ProfileGo, ProfileRandom) {
		t.Run(string(p), func(t *testing.T) {
			rt, err := Transport(p, Options{InsecureSkipVerify: true})
			if err != nil {
				t.Fatalf("transport: %v", err)
			}
			client := &http.Client{Transport: rt}
			defer client.CloseIdleConnections()

			for i := 0; i < 3; i++ {
				resp, err := client.Get(ts.URL + "/page")
				if err != nil {
					t.Fatalf("request %d: %v", i, err)
				}
				body, err := io.ReadAll(resp.Body)
				resp.Body.Close()
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				if string(body) != "<html>ok</html>" {
					t.Errorf("unexpected body %q", body)
				}
				if resp.Header.Get("X-Proto") != resp.Proto {
					t.Errorf("server saw %s, client saw %s", resp.Header.Get("X-Proto"), resp.Proto)
				}
				if p != ProfileGo && p != ProfileRandom && resp.ProtoMajor != 2 {
					t.Errorf("expected h2 for %s, got %s", p, resp.Proto)
				}
			}
		})
	}
}

func TestTransport_UnknownProfile(t *testing.T) {
	_, err := Transport(Profile("unknown_browser"), Options{})
	if err == nil {
		t.Fatal("expected error for unknown profile, got nil")
	}
	if err.Error() != `fingerprint: unknown profile "unknown_browser"` {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestParseProfile(t *testing.T) {
	tests := []struct {
		in      string
		want    Profile
		wantErr bool
	}{
		{"", ProfileChrome, false},
		{"Firefox", ProfileFirefox, false},
		{" go ", ProfileGo, false},
		{"netscape", "", true},
	}
	for _, tt := range tests {
		got, err := ParseProfile(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseProfile(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseProfile(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
