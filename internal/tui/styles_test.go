package tui

import (
	"fmt"
	"strings"
	"testing"

	apierrors "github.com/diogo/sydney/internal/errors"
	"github.com/diogo/sydney/internal/render"
)

func TestFormatError(t *testing.T) {
	statusErr := apierrors.NewAuthError("https://www.bing.com/turing/conversation/create", "")
	statusErr.HTTPStatus = 401

	tests := []struct {
		name    string
		err     error
		want    []string
		notWant []string
	}{
		{
			name: "nil",
			err:  nil,
		},
		{
			name:    "auth",
			err:     statusErr,
			want:    []string{"✗", "authentication failed", "HTTP Status: 401", "auto-login"},
			notWant: []string{"!"},
		},
		{
			name: "throttled",
			err:  apierrors.NewThrottledError("too many requests"),
			want: []string{"✗", "Wait a while"},
		},
		{
			name:    "revoked is a warning",
			err:     apierrors.NewRevokedError("offensive"),
			want:    []string{"! ", "rephrasing"},
			notWant: []string{"✗"},
		},
		{
			name: "wrapped empty response",
			err:  fmt.Errorf("exchange: %w", apierrors.NewEmptyResponseError("no text")),
			want: []string{"/reset"},
		},
		{
			name:    "plain",
			err:     fmt.Errorf("something odd"),
			want:    []string{"✗ something odd"},
			notWant: []string{"Hint", "HTTP Status"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatError(tt.err)
			if tt.err == nil {
				if got != "" {
					t.Errorf("FormatError(nil) = %q", got)
				}
				return
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("FormatError() missing %q in %q", w, got)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("FormatError() should not contain %q: %q", w, got)
				}
			}
		})
	}
}

func TestApplyMarkdownStyle(t *testing.T) {
	t.Cleanup(func() { ApplyMarkdownStyle(render.StyleDark) })

	ApplyMarkdownStyle(render.StyleDracula)
	if colorPrimary != render.GetTUITheme().Primary {
		t.Errorf("colorPrimary = %v, want %v", colorPrimary, render.GetTUITheme().Primary)
	}
	dracula := colorPrimary

	ApplyMarkdownStyle(render.StyleLight)
	if colorPrimary == dracula {
		t.Error("style change should update the palette")
	}

	// unknown styles fall back to a usable palette
	ApplyMarkdownStyle("no-such-style")
	if colorPrimary == "" {
		t.Error("fallback palette should not be empty")
	}
}
