package fingerprint

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestTransport_Profiles(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	profiles := []Profile{
		ProfileChrome,
		ProfileFirefox,
		ProfileSafari,
		ProfileGo,
		ProfileRandom,
	}

	for _, p := range profiles {
		t.Run(string(p), func(t *testing.T) {
			rt, err := Transport(Options{Profile: p, InsecureSkipVerify: true})
			if err != nil {
				t.Fatalf("unexpected error creating transport for %s: %v", p, err)
			}

			tr, ok := rt.(*http.Transport)
			if !ok {
				t.Fatalf("expected *http.Transport, got %T", rt)
			}
			if p != ProfileGo && tr.DialTLSContext == nil {
				t.Fatalf("expected DialTLSContext for uTLS profile %s", p)
			}

			client := &http.Client{Transport: tr}
			resp, err := client.Get(ts.URL)
			if err != nil {
				t.Fatalf("request failed for profile %s: %v", p, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected 200 OK, got %d for profile %s", resp.StatusCode, p)
			}
		})
	}
}

func TestTransport_H2ServerFallsBackToHTTP1(t *testing.T) {
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ProtoMajor != 1 {
			t.Errorf("expected HTTP/1.x, got %s", r.Proto)
		}
		w.WriteHeader(http.StatusOK)
	}))
	ts.EnableHTTP2 = true
	ts.StartTLS()
	defer ts.Close()

	for _, p := range []Profile{ProfileChrome, ProfileFirefox, ProfileRandom} {
		t.Run(string(p), func(t *testing.T) {
			rt, err := Transport(Options{Profile: p, InsecureSkipVerify: true})
			if err != nil {
				t.Fatalf("unexpected error creating transport for %s: %v", p, err)
			}
			client := &http.Client{Transport: rt}
			defer client.CloseIdleConnections()

			// several handshakes, since randomized hellos differ per connection
			for i := 0; i < 5; i++ {
				req, _ := http.NewRequest(http.MethodGet, ts.URL, nil)
				req.Close = true
				resp, err := client.Do(req)
				if err != nil {
					t.Fatalf("request %d failed for profile %s: %v", i, p, err)
				}
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					t.Errorf("expected 200 OK, got %d for profile %s", resp.StatusCode, p)
				}
			}
		})
	}
}

func TestTransport_Proxy(t *testing.T) {
	proxyURL, _ := url.Parse("http://127.0.0.1:3128")
	rt, err := Transport(Options{
		Profile: ProfileGo,
		Proxy:   http.ProxyURL(proxyURL),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, "https://html.duckduckgo.com/html/", nil)
	got, err := rt.(*http.Transport).Proxy(req)
	if err != nil {
		t.Fatalf("unexpected proxy error: %v", err)
	}
	if got.String() != proxyURL.String() {
		t.Errorf("expected proxy %s, got %s", proxyURL, got)
	}
}

func TestTransport_UnknownProfile(t *testing.T) {
	_, err := Transport(Options{Profile: Profile("unknown_browser")})
	if err == nil {
		t.Fatal("expected error for unknown profile, got nil")
	}
	if err.Error() != `unknown tls profile "unknown_browser"` {
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
		{"Chrome", ProfileChrome, false},
		{"go", ProfileGo, false},
		{"random", ProfileRandom, false},
		{"netscape", "", true},
	}
	for _, tt := range tests {
		got, err := ParseProfile(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseProfile(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseProfile(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
