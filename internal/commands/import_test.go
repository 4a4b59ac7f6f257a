package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diogo/sydney/internal/config"
)

func TestImportCookiesCmd_Structure(t *testing.T) {
	if importCookiesCmd.Use != "import-cookies <path>" {
		t.Errorf("Expected use 'import-cookies <path>', got %s", importCookiesCmd.Use)
	}
	if importCookiesCmd.Args == nil {
		t.Error("Args validation should be configured")
	}
}

func TestRunImportCookies(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		noFile    bool
		wantErr   string
		wantNames []string
	}{
		{
			name:      "dict format",
			content:   `{"_U": "token", "MUID": "abc"}`,
			wantNames: []string{"MUID", "_U"},
		},
		{
			name: "browser export keeps bing cookies only",
			content: `[
				{"name": "_U", "value": "token", "domain": ".bing.com"},
				{"name": "SRCHHPGUSR", "value": "x", "domain": "www.bing.com"},
				{"name": "NID", "value": "y", "domain": ".google.com"}
			]`,
			wantNames: []string{"SRCHHPGUSR", "_U"},
		},
		{name: "missing _U", content: `{"MUID": "abc"}`, wantErr: config.RequiredCookie},
		{name: "not json", content: `cookies please`, wantErr: "invalid cookies format"},
		{name: "file not found", noFile: true, wantErr: "source file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupHome(t)

			src := filepath.Join(t.TempDir(), "cookies.json")
			if !tt.noFile {
				if err := os.WriteFile(src, []byte(tt.content), 0o600); err != nil {
					t.Fatal(err)
				}
			}

			cmd, out, _ := newTestCmd("")
			err := runImportCookies(cmd, src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("runImportCookies() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("runImportCookies() error = %v", err)
			}

			saved, err := config.LoadCookies()
			if err != nil {
				t.Fatal(err)
			}
			if got := saved.Names(); strings.Join(got, ",") != strings.Join(tt.wantNames, ",") {
				t.Errorf("saved cookies = %v, want %v", got, tt.wantNames)
			}
			if !strings.Contains(out.String(), "Imported") {
				t.Errorf("output = %q", out.String())
			}
		})
	}
}
