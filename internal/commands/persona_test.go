package commands

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diogo/sydney/internal/config"
)

func stubPersonaForm(t *testing.T, fn func(p *config.Persona) error) *int {
	t.Helper()
	calls := 0
	old := runPersonaForm
	runPersonaForm = func(in io.Reader, out io.Writer, p *config.Persona) error {
		calls++
		return fn(p)
	}
	t.Cleanup(func() { runPersonaForm = old })
	return &calls
}

func TestPersonaCommand(t *testing.T) {
	expected := []string{"list", "show", "add", "edit", "delete", "default"}
	for _, sub := range expected {
		found := false
		for _, cmd := range personaCmd.Commands() {
			if cmd.Name() == sub {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Subcommand %s not found", sub)
		}
	}
}

func TestRunPersonaList(t *testing.T) {
	setupHome(t)

	cmd, out, _ := newTestCmd("")
	if err := runPersonaList(cmd, nil); err != nil {
		t.Fatal(err)
	}
	got := out.String()
	for _, name := range []string{"sydney", "bing", "writer", "analyst", "tutor"} {
		if !strings.Contains(got, name) {
			t.Errorf("list missing %s:\n%s", name, got)
		}
	}
	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "sydney") && !strings.Contains(line, "✓") {
			t.Errorf("sydney should be marked as default: %q", line)
		}
		if strings.HasPrefix(line, "writer") && !strings.Contains(line, "creative") {
			t.Errorf("writer should show its style: %q", line)
		}
	}
}

func TestRunPersonaShow(t *testing.T) {
	setupHome(t)

	cmd, out, _ := newTestCmd("")
	if err := runPersonaShow(cmd, []string{"analyst"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Preferred Style: precise") {
		t.Errorf("show output:\n%s", out.String())
	}

	cmd, out, _ = newTestCmd("")
	if err := runPersonaShow(cmd, []string{"bing"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Instructions: (none)") {
		t.Errorf("bing has no instructions:\n%s", out.String())
	}

	cmd, _, _ = newTestCmd("")
	if err := runPersonaShow(cmd, []string{"ghost"}); err == nil {
		t.Error("expected an error for an unknown persona")
	}
}

func TestRunPersonaAdd_Flags(t *testing.T) {
	setupHome(t)
	calls := stubPersonaForm(t, func(*config.Persona) error { return nil })

	cmd, out := personaTestCmd("")
	_ = cmd.Flags().Set("description", "Speaks like a pirate")
	_ = cmd.Flags().Set("instructions", "  Answer like a pirate.  ")
	_ = cmd.Flags().Set("style", "Creative")

	if err := runPersonaAdd(cmd, []string{"pirate"}); err != nil {
		t.Fatal(err)
	}
	if *calls != 0 {
		t.Error("the form should not run when instructions are given")
	}
	if !strings.Contains(out.String(), "created") {
		t.Errorf("output = %q", out.String())
	}

	p, err := config.GetPersona("pirate")
	if err != nil {
		t.Fatal(err)
	}
	want := config.Persona{Name: "pirate", Description: "Speaks like a pirate", Instructions: "Answer like a pirate.", Style: "creative"}
	if *p != want {
		t.Errorf("persona = %+v, want %+v", *p, want)
	}

	cmd, _ = personaTestCmd("")
	_ = cmd.Flags().Set("instructions", "again")
	if err := runPersonaAdd(cmd, []string{"pirate"}); err == nil {
		t.Error("expected an error for a duplicate persona")
	}
}

func TestRunPersonaAdd_InstructionsFile(t *testing.T) {
	setupHome(t)

	path := filepath.Join(t.TempDir(), "instructions.md")
	if err := os.WriteFile(path, []byte("Be terse.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd, _ := personaTestCmd("")
	_ = cmd.Flags().Set("instructions-file", path)
	if err := runPersonaAdd(cmd, []string{"terse"}); err != nil {
		t.Fatal(err)
	}
	p, err := config.GetPersona("terse")
	if err != nil {
		t.Fatal(err)
	}
	if p.Instructions != "Be terse." {
		t.Errorf("instructions = %q", p.Instructions)
	}
}

func TestRunPersonaAdd_Form(t *testing.T) {
	setupHome(t)
	calls := stubPersonaForm(t, func(p *config.Persona) error {
		p.Description = " From the form "
		p.Instructions = "Formed instructions\n"
		return nil
	})

	cmd, _ := personaTestCmd("")
	if err := runPersonaAdd(cmd, []string{"formed"}); err != nil {
		t.Fatal(err)
	}
	if *calls != 1 {
		t.Errorf("form calls = %d, want 1", *calls)
	}
	p, err := config.GetPersona("formed")
	if err != nil {
		t.Fatal(err)
	}
	if p.Description != "From the form" || p.Instructions != "Formed instructions" {
		t.Errorf("persona = %+v", *p)
	}
}

func TestRunPersonaAdd_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		persona string
		style   string
		formErr error
	}{
		{name: "bad name", persona: "has space"},
		{name: "unknown style", persona: "styled", style: "loud"},
		{name: "form aborted", persona: "aborted", formErr: errors.New("user aborted")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupHome(t)
			stubPersonaForm(t, func(*config.Persona) error { return tt.formErr })

			cmd, _ := personaTestCmd("")
			if tt.formErr == nil {
				_ = cmd.Flags().Set("instructions", "x")
			}
			if tt.style != "" {
				_ = cmd.Flags().Set("style", tt.style)
			}
			if err := runPersonaAdd(cmd, []string{tt.persona}); err == nil {
				t.Fatal("expected an error")
			}
			if _, err := config.GetPersona(tt.persona); err == nil {
				t.Error("persona should not be saved")
			}
		})
	}
}

func TestRunPersonaEdit(t *testing.T) {
	setupHome(t)
	calls := stubPersonaForm(t, func(p *config.Persona) error {
		p.Description = "edited in form"
		return nil
	})

	cmd, _ := personaTestCmd("")
	_ = cmd.Flags().Set("style", "balanced")
	if err := runPersonaEdit(cmd, []string{"tutor"}); err != nil {
		t.Fatal(err)
	}
	if *calls != 0 {
		t.Error("the form should not run when a field flag is set")
	}
	p, _ := config.GetPersona("tutor")
	if p.Style != "balanced" || p.Instructions == "" {
		t.Errorf("persona = %+v", *p)
	}

	cmd, _ = personaTestCmd("")
	if err := runPersonaEdit(cmd, []string{"tutor"}); err != nil {
		t.Fatal(err)
	}
	if *calls != 1 {
		t.Error("the form should run without field flags")
	}
	p, _ = config.GetPersona("tutor")
	if p.Description != "edited in form" {
		t.Errorf("description = %q", p.Description)
	}
}

func TestRunPersonaDeleteAndDefault(t *testing.T) {
	setupHome(t)
	if err := config.AddPersona(config.Persona{Name: "pirate", Instructions: "Arr."}); err != nil {
		t.Fatal(err)
	}

	cmd, out, _ := newTestCmd("")
	if err := runPersonaSetDefault(cmd, []string{"pirate"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "pirate") {
		t.Errorf("output = %q", out.String())
	}
	p, err := config.GetDefaultPersona()
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "pirate" {
		t.Errorf("default = %s, want pirate", p.Name)
	}

	cmd, _, _ = newTestCmd("")
	if err := runPersonaDelete(cmd, []string{"pirate"}); err != nil {
		t.Fatal(err)
	}
	if _, err := config.GetPersona("pirate"); err == nil {
		t.Error("pirate should be gone")
	}
	p, err = config.GetDefaultPersona()
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != config.DefaultPersonaName {
		t.Errorf("deleting the default should fall back to %s, got %s", config.DefaultPersonaName, p.Name)
	}

	cmd, _, _ = newTestCmd("")
	if err := runPersonaDelete(cmd, []string{config.DefaultPersonaName}); err == nil {
		t.Error("the sydney persona cannot be deleted")
	}
	cmd, _, _ = newTestCmd("")
	if err := runPersonaSetDefault(cmd, []string{"ghost"}); err == nil {
		t.Error("expected an error for an unknown persona")
	}
}
