package web

import (
	"net/http"
	"strings"
	"testing"

	"github.com/justestif/fanlink/internal/fanlink"
)

func TestFanLinkPage(t *testing.T) {
	fl := sampleFanLink("owner-1", "midnight-drive")
	env := newTestEnv(t, fl)

	for _, path := range []string{"/link/midnight-drive", "/l/midnight-drive"} {
		t.Run(path, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, path, "", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}

			body := rec.Body.String()
			for _, want := range []string{
				"Midnight Drive",
				"The Example",
				"/link/midnight-drive/go/spotify",
				"/link/midnight-drive/go/apple_music",
				"/link/midnight-drive/go/deezer",
				fanlink.DefaultButtonText,
				`class="public"`,
			} {
				if !strings.Contains(body, want) {
					t.Errorf("page missing %q", want)
				}
			}
			if strings.Contains(body, "/auth/logout") {
				t.Error("public page should not render the owner header")
			}
		})
	}

	if got := len(env.events.recorded()); got != 2 {
		t.Errorf("recorded events = %d, want 2", got)
	}
}

func TestFanLinkPage_Appearance(t *testing.T) {
	fl := sampleFanLink("owner-1", "styled")
	fl.Appearance = fanlink.Appearance{
		BackgroundImage: "https://img.example/bg.jpg",
		ButtonText:      "Listen",
	}
	env := newTestEnv(t, fl)

	body := env.do(t, http.MethodGet, "/link/styled", "", nil).Body.String()
	if !strings.Contains(body, "https://img.example/bg.jpg") {
		t.Error("page should use the background image")
	}
	if !strings.Contains(body, "Listen") {
		t.Error("page should use the custom button text")
	}
}

func TestFanLinkPage_NotFound(t *testing.T) {
	env := newTestEnv(t, sampleFanLink("owner-1", "exists"))

	rec := env.do(t, http.MethodGet, "/link/missing", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if !strings.Contains(rec.Body.String(), "Link Not Found") {
		t.Error("not found page missing heading")
	}
	if got := len(env.events.recorded()); got != 0 {
		t.Errorf("recorded events = %d, want 0", got)
	}
}

func TestFanLinkPage_LookupFailureShowsNotFound(t *testing.T) {
	env := newTestEnv(t, sampleFanLink("owner-1", "exists"))
	env.fanLinks.err = &fanlink.TransientError{Op: "match slug", Err: http.ErrHandlerTimeout}

	rec := env.do(t, http.MethodGet, "/link/exists", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGoToPlatform(t *testing.T) {
	fl := sampleFanLink("owner-1", "midnight-drive")
	env := newTestEnv(t, fl)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantTarget string
	}{
		{
			name:       "streaming link",
			path:       "/link/midnight-drive/go/spotify",
			wantStatus: http.StatusFound,
			wantTarget: "https://open.spotify.com/track/abc",
		},
		{
			name:       "pre-save fallback",
			path:       "/link/midnight-drive/go/deezer",
			wantStatus: http.StatusFound,
			wantTarget: "https://deezer.example/presave",
		},
		{
			name:       "platform without link",
			path:       "/link/midnight-drive/go/tidal",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown slug",
			path:       "/link/nope/go/spotify",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, tt.path, "", nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantTarget != "" {
				if loc := rec.Header().Get("Location"); loc != tt.wantTarget {
					t.Errorf("Location = %q, want %q", loc, tt.wantTarget)
				}
			}
		})
	}

	events := env.events.recorded()
	if len(events) != 2 {
		t.Fatalf("recorded events = %d, want 2", len(events))
	}
	if events[0].kind != "click" || events[0].platform != fanlink.Spotify {
		t.Errorf("first event = %+v, want spotify click", events[0])
	}
}

func TestBuildFanLinkPage_PreSaveSkipsStreamingPlatforms(t *testing.T) {
	fl := sampleFanLink("owner-1", "x")
	fl.PreSaveLinks = map[fanlink.Platform]string{
		fanlink.Tidal:   "https://tidal.example/presave",
		fanlink.Spotify: "https://spotify.example/presave",
		fanlink.Deezer:  "https://deezer.example/presave",
	}

	data := buildFanLinkPage(fl, "/link/x")

	if len(data.Buttons) != 2 {
		t.Fatalf("buttons = %d, want 2", len(data.Buttons))
	}
	var got []fanlink.Platform
	for _, b := range data.PreSave {
		got = append(got, b.Platform)
	}
	want := []fanlink.Platform{fanlink.Deezer, fanlink.Tidal}
	if len(got) != len(want) {
		t.Fatalf("pre-save platforms = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pre-save[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if !data.Public {
		t.Error("fan link page data should be public")
	}
}
