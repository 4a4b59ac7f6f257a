package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/diogo/sydney/internal/transcript"
)

// Persona is a named system instruction that opens a fresh transcript
type Persona struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Instructions string `json:"instructions"`
	Style        string `json:"style,omitempty"` // Preferred conversation style (optional)
}

// PersonaConfig stores all personas
type PersonaConfig struct {
	Personas       []Persona `json:"personas"`
	DefaultPersona string    `json:"default_persona,omitempty"`
}

// DefaultPersonaName is the persona used when none is configured
const DefaultPersonaName = "sydney"

// DefaultPersonas returns pre-configured personas
func DefaultPersonas() []Persona {
	return []Persona{
		{
			Name:         DefaultPersonaName,
			Description:  "Sydney, unfiltered Bing chat",
			Instructions: transcript.SydneyInstructions,
		},
		{
			Name:         "bing",
			Description:  "No system instructions",
			Instructions: "",
		},
		{
			Name:        "writer",
			Description: "Sydney as a fiction co-author",
			Style:       "creative",
			Instructions: "You're Sydney, co-writing fiction with the user. Keep their voice and tense, " +
				"continue scenes rather than summarizing them, and offer two or three directions when the story stalls.",
		},
		{
			Name:        "analyst",
			Description: "Sydney answering with sources and numbers",
			Style:       "precise",
			Instructions: "You're Sydney, acting as a research analyst. Search before answering, " +
				"cite the pages you used, put figures in tables, and say plainly when the sources disagree.",
		},
		{
			Name:        "tutor",
			Description: "Sydney explaining step by step",
			Instructions: "You're Sydney, tutoring the user. Explain one idea at a time with a small example, " +
				"ask a short question to check understanding before moving on, and match the level of the question.",
		},
	}
}

// GetPersonasPath returns the path to the personas file
func GetPersonasPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "personas.json"), nil
}

// LoadPersonas loads the persona configuration
func LoadPersonas() (*PersonaConfig, error) {
	path, err := GetPersonasPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if file doesn't exist
			return &PersonaConfig{
				Personas:       DefaultPersonas(),
				DefaultPersona: DefaultPersonaName,
			}, nil
		}
		return nil, fmt.Errorf("failed to read personas: %w", err)
	}

	var config PersonaConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse personas: %w", err)
	}

	// Merge with defaults (keep user customizations)
	config.Personas = mergePersonas(DefaultPersonas(), config.Personas)

	return &config, nil
}

// SavePersonas saves the persona configuration
func SavePersonas(config *PersonaConfig) error {
	path, err := GetPersonasPath()
	if err != nil {
		return err
	}

	// Ensure config directory exists
	if _, err := EnsureConfigDir(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal personas: %w", err)
	}

	// Use 0o600 for user data (personas may contain private instructions)
	return os.WriteFile(path, data, 0o600)
}

func findPersona(personas []Persona, name string) int {
	return slices.IndexFunc(personas, func(p Persona) bool { return p.Name == name })
}

// editPersonas loads personas.json, applies edit and saves the result
func editPersonas(edit func(*PersonaConfig) error) error {
	pc, err := LoadPersonas()
	if err != nil {
		return err
	}
	if err := edit(pc); err != nil {
		return err
	}
	return SavePersonas(pc)
}

// GetPersona returns a persona by name
func GetPersona(name string) (*Persona, error) {
	pc, err := LoadPersonas()
	if err != nil {
		return nil, err
	}
	i := findPersona(pc.Personas, name)
	if i < 0 {
		return nil, fmt.Errorf("persona '%s' not found", name)
	}
	p := pc.Personas[i]
	return &p, nil
}

// ListPersonaNames returns the names of all personas
func ListPersonaNames() ([]string, error) {
	pc, err := LoadPersonas()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pc.Personas))
	for _, p := range pc.Personas {
		names = append(names, p.Name)
	}
	return names, nil
}

// AddPersona stores a new persona; the name must be unused
func AddPersona(persona Persona) error {
	return editPersonas(func(pc *PersonaConfig) error {
		if findPersona(pc.Personas, persona.Name) >= 0 {
			return fmt.Errorf("persona '%s' already exists", persona.Name)
		}
		pc.Personas = append(pc.Personas, persona)
		return nil
	})
}

// UpdatePersona replaces the stored persona with the same name
func UpdatePersona(persona Persona) error {
	return editPersonas(func(pc *PersonaConfig) error {
		i := findPersona(pc.Personas, persona.Name)
		if i < 0 {
			return fmt.Errorf("persona '%s' not found", persona.Name)
		}
		pc.Personas[i] = persona
		return nil
	})
}

// DeletePersona removes a persona. Deleting the current default resets it
// to sydney, which itself cannot be deleted.
func DeletePersona(name string) error {
	if name == DefaultPersonaName {
		return fmt.Errorf("cannot delete the %s persona", DefaultPersonaName)
	}
	return editPersonas(func(pc *PersonaConfig) error {
		i := findPersona(pc.Personas, name)
		if i < 0 {
			return fmt.Errorf("persona '%s' not found", name)
		}
		pc.Personas = slices.Delete(pc.Personas, i, i+1)
		if pc.DefaultPersona == name {
			pc.DefaultPersona = DefaultPersonaName
		}
		return nil
	})
}

// SetDefaultPersona makes name the persona new sessions start with
func SetDefaultPersona(name string) error {
	return editPersonas(func(pc *PersonaConfig) error {
		if findPersona(pc.Personas, name) < 0 {
			return fmt.Errorf("persona '%s' not found", name)
		}
		pc.DefaultPersona = name
		return nil
	})
}

// GetDefaultPersona returns the default persona
func GetDefaultPersona() (*Persona, error) {
	pc, err := LoadPersonas()
	if err != nil {
		return nil, err
	}
	name := pc.DefaultPersona
	if name == "" {
		name = DefaultPersonaName
	}
	return GetPersona(name)
}

// mergePersonas overlays custom personas on the built-ins: same-named
// entries replace the built-in in place, new names are appended.
func mergePersonas(defaults, custom []Persona) []Persona {
	result := slices.Clone(defaults)
	for _, cp := range custom {
		if i := findPersona(result, cp.Name); i >= 0 {
			result[i] = cp
		} else {
			result = append(result, cp)
		}
	}
	return result
}

// Validation constants
const (
	MaxNameLength        = 50
	MaxDescriptionLength = 200
	MaxInstructionLength = 32 * 1024 // 32KB
	MinNameLength        = 1
)

// ValidatePersona validates a persona's fields
func ValidatePersona(p Persona) error {
	fieldErrors := make(map[string]string)

	// Validate name
	if p.Name == "" {
		fieldErrors["name"] = "name is required"
	} else if len(p.Name) > MaxNameLength {
		fieldErrors["name"] = fmt.Sprintf("name too long (max %d characters)", MaxNameLength)
	} else if !isValidPersonaName(p.Name) {
		fieldErrors["name"] = "name must contain only alphanumeric characters, underscores, and hyphens"
	}

	// Validate description (optional but has max length)
	if len(p.Description) > MaxDescriptionLength {
		fieldErrors["description"] = fmt.Sprintf("description too long (max %d characters)", MaxDescriptionLength)
	}

	if len(p.Instructions) > MaxInstructionLength {
		fieldErrors["instructions"] = fmt.Sprintf("instructions too long (max %d characters)", MaxInstructionLength)
	}

	if p.Style != "" && !isKnownStyle(p.Style) {
		fieldErrors["style"] = fmt.Sprintf("unknown style %q", p.Style)
	}

	if len(fieldErrors) > 0 {
		return fmt.Errorf("validation failed: %v", fieldErrors)
	}

	return nil
}

// isValidPersonaName checks if a persona name contains only valid characters
func isValidPersonaName(name string) bool {
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-') {
			return false
		}
	}
	return true
}

func isKnownStyle(style string) bool {
	return slices.Contains(AvailableStyles(), style)
}
