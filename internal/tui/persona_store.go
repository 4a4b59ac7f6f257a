package tui

import "github.com/diogo/sydney/internal/config"

// PersonaStore looks up the personas /reset can switch to.
// This abstraction enables testing with mock implementations.
type PersonaStore interface {
	// List returns all available personas
	List() ([]config.Persona, error)

	// Get retrieves a persona by name
	Get(name string) (*config.Persona, error)

	// GetDefault returns the default persona
	GetDefault() (*config.Persona, error)
}

// personaStoreAdapter wraps the config functions to implement PersonaStore
type personaStoreAdapter struct{}

// NewPersonaStore creates a new PersonaStore backed by the config package
func NewPersonaStore() PersonaStore {
	return &personaStoreAdapter{}
}

// List returns all personas
func (s *personaStoreAdapter) List() ([]config.Persona, error) {
	cfg, err := config.LoadPersonas()
	if err != nil {
		return nil, err
	}
	return cfg.Personas, nil
}

// Get retrieves a persona by name
func (s *personaStoreAdapter) Get(name string) (*config.Persona, error) {
	return config.GetPersona(name)
}

// GetDefault returns the default persona
func (s *personaStoreAdapter) GetDefault() (*config.Persona, error) {
	return config.GetDefaultPersona()
}
