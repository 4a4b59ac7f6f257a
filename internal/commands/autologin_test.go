package commands

import (
	"errors"
	"strings"
	"testing"

	"github.com/diogo/sydney/internal/browser"
	"github.com/diogo/sydney/internal/config"
)

func TestAutoLoginCommand(t *testing.T) {
	if autoLoginCmd.Use != "auto-login" {
		t.Errorf("Expected use 'auto-login', got %s", autoLoginCmd.Use)
	}
	flag := autoLoginCmd.Flags().Lookup("browser")
	if flag == nil {
		t.Fatal("browser flag not found")
	}
	if flag.DefValue != "auto" {
		t.Errorf("browser default = %q, want auto", flag.DefValue)
	}
	if autoLoginCmd.Flags().Lookup("list") == nil {
		t.Error("list flag not found")
	}
}

func TestRunAutoLogin(t *testing.T) {
	tests := []struct {
		name    string
		browser string
		result  *browser.ExtractResult
		err     error
		wantErr string
	}{
		{
			name:    "saves valid cookies",
			browser: "firefox",
			result: &browser.ExtractResult{
				Cookies:     config.NewCookies(map[string]string{config.RequiredCookie: "abcdefghijklmnopqrstuvwxyz", "MUID": "m"}),
				BrowserName: "firefox",
			},
		},
		{name: "unknown browser", browser: "netscape", wantErr: "netscape"},
		{name: "extraction fails", browser: "chrome", err: errors.New("database is locked"), wantErr: "database is locked"},
		{
			name:    "missing required cookie",
			browser: "auto",
			result: &browser.ExtractResult{
				Cookies:     config.NewCookies(map[string]string{"MUID": "m"}),
				BrowserName: "edge",
			},
			wantErr: config.RequiredCookie,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupHome(t)
			f := &fakeDeps{extractResult: tt.result, extractErr: tt.err}
			withFakeDeps(t, f)

			cmd, out, _ := newTestCmd("")
			err := runAutoLogin(cmd, tt.browser)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("runAutoLogin() error = %v, want %q", err, tt.wantErr)
				}
				if _, err := config.LoadCookies(); err == nil {
					t.Error("no cookies should be saved on failure")
				}
				return
			}
			if err != nil {
				t.Fatalf("runAutoLogin() error = %v", err)
			}

			if len(f.extracted) != 1 || f.extracted[0] != browser.SupportedBrowser(tt.browser) {
				t.Errorf("extracted from %v", f.extracted)
			}
			saved, err := config.LoadCookies()
			if err != nil {
				t.Fatal(err)
			}
			if saved.Get(config.RequiredCookie) != "abcdefghijklmnopqrstuvwxyz" {
				t.Error("required cookie not saved")
			}
			got := out.String()
			if !strings.Contains(got, "Successfully extracted 2 cookies from firefox") {
				t.Errorf("output:\n%s", got)
			}
			if strings.Contains(got, "abcdefghijklmnopqrstuvwxyz") {
				t.Error("the cookie value should be truncated")
			}
		})
	}
}

func TestTruncateValue(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"abcdefghijkl", 4, "abcd"},
		{"", 3, ""},
	}
	for _, tt := range tests {
		if got := truncateValue(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateValue(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestSupportedBrowsersHelp(t *testing.T) {
	help := SupportedBrowsersHelp()
	for _, b := range browser.AllSupportedBrowsers() {
		if !strings.Contains(help, string(b)) {
			t.Errorf("help %q missing %s", help, b)
		}
	}
}
