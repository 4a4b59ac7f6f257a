package commands

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/diogo/sydney/internal/browser"
	"github.com/diogo/sydney/internal/config"
	"github.com/diogo/sydney/internal/transcript"
)

func TestResolvePersona(t *testing.T) {
	setupHome(t)

	tests := []struct {
		name       string
		flag       string
		configured string
		want       string
		wantErr    bool
	}{
		{name: "flag wins", flag: "analyst", configured: "writer", want: "analyst"},
		{name: "configured", configured: "writer", want: "writer"},
		{name: "default", want: config.DefaultPersonaName},
		{name: "unknown", flag: "ghost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Persona = tt.configured

			p, err := resolvePersona(tt.flag, cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolvePersona() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Name != tt.want {
				t.Errorf("persona = %s, want %s", p.Name, tt.want)
			}
		})
	}
}

func TestOpenTranscript(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "chat.txt")
	text := "[user](#message)\nkept\n\n"
	if err := os.WriteFile(existing, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	pirate := &config.Persona{Name: "pirate", Instructions: "Talk like a pirate."}

	tests := []struct {
		name    string
		path    string
		persona *config.Persona
		want    string
	}{
		{name: "no path", want: transcript.DefaultContext},
		{name: "persona instructions", persona: pirate, want: transcript.ContextFor("Talk like a pirate.")},
		{name: "empty instructions", persona: &config.Persona{Name: "bing"}, want: ""},
		{name: "existing file", path: existing, persona: pirate, want: text},
		{name: "missing file starts fresh", path: filepath.Join(dir, "new.txt"), persona: pirate, want: transcript.ContextFor("Talk like a pirate.")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := openTranscript(tt.path, tt.persona)
			if err != nil {
				t.Fatalf("openTranscript() error = %v", err)
			}
			if got := tr.String(); got != tt.want {
				t.Errorf("transcript = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := openTranscript(dir, nil); err == nil {
		t.Error("a directory should not load as a transcript")
	}
}

func TestLoadCookies(t *testing.T) {
	logger := log.New(os.Stderr)
	logger.SetLevel(log.FatalLevel)

	browserCookies := config.NewCookies(map[string]string{config.RequiredCookie: "from-browser"})

	tests := []struct {
		name       string
		saved      bool
		refresh    bool
		result     *browser.ExtractResult
		extractErr error
		want       string
		wantErr    string
		wantCalls  int
	}{
		{name: "saved cookies", saved: true, refresh: true, want: "token"},
		{name: "nothing saved without refresh", wantErr: "no cookies found"},
		{
			name:      "browser fallback",
			refresh:   true,
			result:    &browser.ExtractResult{Cookies: browserCookies, BrowserName: "firefox"},
			want:      "from-browser",
			wantCalls: 1,
		},
		{name: "browser fails", refresh: true, extractErr: errors.New("locked"), wantErr: "locked", wantCalls: 1},
		{
			name:      "browser has no session",
			refresh:   true,
			result:    &browser.ExtractResult{Cookies: config.NewCookies(nil)},
			wantErr:   config.RequiredCookie,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupHome(t)
			if tt.saved {
				saveTestCookies(t)
			}
			f := &fakeDeps{extractResult: tt.result, extractErr: tt.extractErr}
			withFakeDeps(t, f)

			cookies, err := loadCookies(t.Context(), browser.BrowserFirefox, tt.refresh, logger)
			if len(f.extracted) != tt.wantCalls {
				t.Errorf("browser reads = %d, want %d", len(f.extracted), tt.wantCalls)
			}
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("loadCookies() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadCookies() error = %v", err)
			}
			if got := cookies.Get(config.RequiredCookie); got != tt.want {
				t.Errorf("_U = %q, want %q", got, tt.want)
			}
			if tt.wantCalls > 0 {
				saved, err := config.LoadCookies()
				if err != nil || saved.Get(config.RequiredCookie) != tt.want {
					t.Errorf("browser cookies should be saved, got %v, %v", saved, err)
				}
			}
		})
	}
}

func TestNewClientDialer(t *testing.T) {
	setupHome(t)
	logger := log.New(os.Stderr)
	logger.SetLevel(log.FatalLevel)

	if _, _, err := newClientDialer(t.Context(), config.DefaultConfig(), logger); err == nil {
		t.Error("expected an error without cookies")
	}

	saveTestCookies(t)
	cfg := config.DefaultConfig()
	cfg.Proxy = "socks5://127.0.0.1:1080"
	dialer, release, err := newClientDialer(t.Context(), cfg, logger)
	if err != nil {
		t.Fatalf("newClientDialer() error = %v", err)
	}
	defer release()
	if dialer == nil {
		t.Error("dialer is nil")
	}
}

func TestOpenHistory(t *testing.T) {
	home := setupHome(t)

	store, err := openHistory(config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".sydney", "history"); store.Dir() != want {
		t.Errorf("dir = %s, want %s", store.Dir(), want)
	}

	cfg := config.DefaultConfig()
	cfg.HistoryDir = filepath.Join(t.TempDir(), "elsewhere")
	store, err = openHistory(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if store.Dir() != cfg.HistoryDir {
		t.Errorf("dir = %s, want %s", store.Dir(), cfg.HistoryDir)
	}
}

func TestDefaultDependencies(t *testing.T) {
	if deps == nil {
		t.Fatal("deps should be set at package init")
	}
	d := NewDependencies()
	if d.NewDialer == nil || d.RunChat == nil || d.RunHistorySelector == nil || d.ExtractCookies == nil || d.Clipboard == nil {
		t.Errorf("NewDependencies() left a field nil: %+v", d)
	}
}
