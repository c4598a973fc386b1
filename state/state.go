// Package state persists small user toggles written by the CLI and read by
// the daemon, such as the "Don't Show Again" reminder opt-out.
package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/grovetools/arcade/pkg/paths"
	"gopkg.in/yaml.v3"
)

// Keys understood by the daemon.
const (
	KeySessionNotifications = "notifications.session"
	KeyStartReminders       = "notifications.start_reminder"
)

// State is the persisted key-value map stored in state.yml.
type State map[string]interface{}

// Path returns the location of the state file.
func Path() string {
	return paths.StatePath()
}

// Load loads the state from the state file.
// Returns an empty state if the file doesn't exist.
func Load() (State, error) {
	return LoadFrom(Path())
}

// LoadFrom loads state from an explicit path.
func LoadFrom(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(State), nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}
	if state == nil {
		state = make(State)
	}
	return state, nil
}

// Save saves the state to the state file.
func Save(state State) error {
	return SaveTo(Path(), state)
}

// SaveTo writes state to an explicit path.
func SaveTo(path string, state State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// Get retrieves a value from the state by key.
func Get(key string) (interface{}, bool, error) {
	state, err := Load()
	if err != nil {
		return nil, false, err
	}
	val, ok := state[key]
	return val, ok, nil
}

// GetString returns "" when the key is missing or not a string.
func GetString(key string) (string, error) {
	val, ok, err := Get(key)
	if err != nil || !ok {
		return "", err
	}
	str, _ := val.(string)
	return str, nil
}

// Bool returns the boolean stored under key, or def when the key is
// missing or holds another type.
func (s State) Bool(key string, def bool) bool {
	if b, ok := s[key].(bool); ok {
		return b
	}
	return def
}

// Set sets a value in the state.
func Set(key string, value interface{}) error {
	state, err := Load()
	if err != nil {
		return err
	}
	state[key] = value
	return Save(state)
}

// Delete removes a key from the state.
func Delete(key string) error {
	state, err := Load()
	if err != nil {
		return err
	}
	delete(state, key)
	return Save(state)
}
