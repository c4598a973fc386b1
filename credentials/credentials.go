// Package credentials stores the Slack ID and API key used to talk to the
// session service. The file is YAML with 0600 permissions.
package credentials

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/arcade/errors"
	"github.com/grovetools/arcade/pkg/arcade"
	"github.com/grovetools/arcade/pkg/paths"
	"gopkg.in/yaml.v3"
)

var (
	slackIDPattern = regexp.MustCompile(`^[A-Z0-9]{5,}$`)
	apiKeyPattern  = regexp.MustCompile(`^[a-z0-9-]{36}$`)
)

// Store reads and writes a single credential file.
type Store struct {
	path string
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Default returns the Store at the standard credentials location.
func Default() *Store {
	return NewStore(paths.CredentialsPath())
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the saved credential. A missing file yields an empty
// credential and no error.
func (s *Store) Load() (arcade.Credential, error) {
	var cred arcade.Credential
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return cred, nil
		}
		return cred, errors.Wrap(err, errors.ErrCodeInternal, "failed to read credentials").
			WithDetail("path", s.path)
	}
	var file credentialFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cred, errors.Wrap(err, errors.ErrCodeInternal, "failed to parse credentials").
			WithDetail("path", s.path)
	}
	return arcade.Credential{ID: file.ID, APIKey: file.APIKey}, nil
}

// Save writes cred, replacing any existing file.
func (s *Store) Save(cred arcade.Credential) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return errors.Wrap(err, errors.ErrCodePermissionDenied, "failed to create credentials directory")
	}
	data, err := yaml.Marshal(credentialFile{ID: cred.ID, APIKey: cred.APIKey})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to encode credentials")
	}

	// Write to a temp file first so a crash never leaves a truncated file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return errors.Wrap(err, errors.ErrCodePermissionDenied, "failed to write credentials").
			WithDetail("path", s.path)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(err, errors.ErrCodePermissionDenied, "failed to write credentials").
			WithDetail("path", s.path)
	}
	return nil
}

// Clear deletes the credential file. Clearing an absent file is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrCodePermissionDenied, "failed to remove credentials").
			WithDetail("path", s.path)
	}
	return nil
}

// credentialFile is the on-disk form. arcade.Credential hides the key from
// JSON, so the file uses its own struct.
type credentialFile struct {
	ID     string `yaml:"id"`
	APIKey string `yaml:"api_key"`
}

// ValidateID checks a Slack member ID such as "U04QD71QWS0".
func ValidateID(id string) error {
	if !slackIDPattern.MatchString(strings.TrimSpace(id)) {
		return errors.InvalidInput("slack ID", "must be at least 5 upper-case letters or digits")
	}
	return nil
}

// ValidateAPIKey checks the 36 character key format issued by the service.
func ValidateAPIKey(key string) error {
	if !apiKeyPattern.MatchString(strings.TrimSpace(key)) {
		return errors.InvalidInput("API key", "must be 36 lower-case letters, digits or dashes")
	}
	return nil
}
