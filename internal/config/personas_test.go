package config

import (
	"strings"
	"testing"

	"github.com/diogo/sydney/internal/transcript"
)

func TestDefaultPersonas(t *testing.T) {
	personas := DefaultPersonas()

	if len(personas) < 3 {
		t.Errorf("expected at least 3 default personas, got %d", len(personas))
	}

	var sydney *Persona
	for i := range personas {
		if personas[i].Name == DefaultPersonaName {
			sydney = &personas[i]
		}
		if personas[i].Description == "" {
			t.Errorf("persona %s has empty description", personas[i].Name)
		}
		if err := ValidatePersona(personas[i]); err != nil {
			t.Errorf("default persona %s is invalid: %v", personas[i].Name, err)
		}
	}

	if sydney == nil {
		t.Fatal("sydney persona not found")
	}
	if transcript.ContextFor(sydney.Instructions) != transcript.DefaultContext {
		t.Error("sydney persona should produce the default context")
	}
}

func TestMergePersonas(t *testing.T) {
	defaults := []Persona{
		{Name: "sydney", Description: "Default"},
		{Name: "writer", Description: "Writer"},
	}

	custom := []Persona{
		{Name: "writer", Description: "Custom Writer"}, // Override
		{Name: "mybot", Description: "My Bot"},         // New
	}

	result := mergePersonas(defaults, custom)

	if len(result) != 3 {
		t.Errorf("expected 3 personas, got %d", len(result))
	}
	if result[1].Description != "Custom Writer" {
		t.Error("writer persona should be overridden in place")
	}
	if result[2].Name != "mybot" {
		t.Error("mybot persona should be appended")
	}
}

func TestMergePersonas_EmptyCustom(t *testing.T) {
	defaults := DefaultPersonas()
	result := mergePersonas(defaults, nil)

	if len(result) != len(defaults) {
		t.Error("empty custom should return defaults")
	}
}

func TestLoadPersonas_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	config, err := LoadPersonas()
	if err != nil {
		t.Fatalf("LoadPersonas failed: %v", err)
	}
	if config.DefaultPersona != DefaultPersonaName {
		t.Errorf("expected default persona %q, got %q", DefaultPersonaName, config.DefaultPersona)
	}
	if len(config.Personas) != len(DefaultPersonas()) {
		t.Errorf("expected default personas, got %d", len(config.Personas))
	}
}

func TestAddGetUpdateDeletePersona(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p := Persona{Name: "pirate", Description: "Talks like a pirate", Instructions: "Arr."}
	if err := AddPersona(p); err != nil {
		t.Fatalf("AddPersona failed: %v", err)
	}
	if err := AddPersona(p); err == nil {
		t.Error("adding a duplicate should fail")
	}

	got, err := GetPersona("pirate")
	if err != nil {
		t.Fatalf("GetPersona failed: %v", err)
	}
	if got.Instructions != "Arr." {
		t.Errorf("unexpected instructions %q", got.Instructions)
	}

	p.Instructions = "Arr, matey."
	if err := UpdatePersona(p); err != nil {
		t.Fatalf("UpdatePersona failed: %v", err)
	}
	got, _ = GetPersona("pirate")
	if got.Instructions != "Arr, matey." {
		t.Errorf("update not persisted, got %q", got.Instructions)
	}

	if err := SetDefaultPersona("pirate"); err != nil {
		t.Fatalf("SetDefaultPersona failed: %v", err)
	}
	def, err := GetDefaultPersona()
	if err != nil || def.Name != "pirate" {
		t.Fatalf("GetDefaultPersona = %v, %v", def, err)
	}

	if err := DeletePersona("pirate"); err != nil {
		t.Fatalf("DeletePersona failed: %v", err)
	}
	if _, err := GetPersona("pirate"); err == nil {
		t.Error("deleted persona still found")
	}
	def, err = GetDefaultPersona()
	if err != nil || def.Name != DefaultPersonaName {
		t.Errorf("default should fall back to %s, got %v, %v", DefaultPersonaName, def, err)
	}
}

func TestPersonaErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := GetPersona("missing"); err == nil {
		t.Error("GetPersona should fail for unknown names")
	}
	if err := UpdatePersona(Persona{Name: "missing"}); err == nil {
		t.Error("UpdatePersona should fail for unknown names")
	}
	if err := DeletePersona("missing"); err == nil {
		t.Error("DeletePersona should fail for unknown names")
	}
	if err := DeletePersona(DefaultPersonaName); err == nil {
		t.Error("the sydney persona cannot be deleted")
	}
	if err := SetDefaultPersona("missing"); err == nil {
		t.Error("SetDefaultPersona should fail for unknown names")
	}
}

func TestListPersonaNames(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	names, err := ListPersonaNames()
	if err != nil {
		t.Fatalf("ListPersonaNames failed: %v", err)
	}
	if len(names) == 0 || names[0] != DefaultPersonaName {
		t.Errorf("unexpected names %v", names)
	}
}

func TestValidatePersona(t *testing.T) {
	tests := []struct {
		name    string
		persona Persona
		wantErr string
	}{
		{"valid", Persona{Name: "ok-name_1"}, ""},
		{"empty name", Persona{}, "name is required"},
		{"bad chars", Persona{Name: "has space"}, "alphanumeric"},
		{"long name", Persona{Name: strings.Repeat("a", MaxNameLength+1)}, "name too long"},
		{"long description", Persona{Name: "x", Description: strings.Repeat("d", MaxDescriptionLength+1)}, "description too long"},
		{"long instructions", Persona{Name: "x", Instructions: strings.Repeat("i", MaxInstructionLength+1)}, "instructions too long"},
		{"unknown style", Persona{Name: "x", Style: "funky"}, "unknown style"},
		{"known style", Persona{Name: "x", Style: "precise"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePersona(tt.persona)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
