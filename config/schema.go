package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
)

// GenerateSchema reflects the Config struct into a JSON Schema. Unknown
// top-level keys are allowed so extension sections such as "logging" pass.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		Anonymous:                 true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	schema := r.Reflect(&Config{})
	schema.Title = "Arcade Configuration"
	schema.Description = "Schema for arcade.yml and arcade.toml."
	schema.AdditionalProperties = nil

	return json.MarshalIndent(schema, "", "  ")
}

// SchemaValidator validates raw configuration documents against the
// generated schema.
type SchemaValidator struct {
	schema *validator.Schema
}

var (
	compiledOnce sync.Once
	compiled     *validator.Schema
	compileErr   error
)

// NewSchemaValidator returns a validator for the Config schema. The schema
// is compiled once per process.
func NewSchemaValidator() (*SchemaValidator, error) {
	compiledOnce.Do(func() {
		data, err := GenerateSchema()
		if err != nil {
			compileErr = fmt.Errorf("failed to generate schema: %w", err)
			return
		}
		compiler := validator.NewCompiler()
		if err := compiler.AddResource("arcade.schema.json", bytes.NewReader(data)); err != nil {
			compileErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("arcade.schema.json")
	})
	if compileErr != nil {
		return nil, compileErr
	}
	return &SchemaValidator{schema: compiled}, nil
}

// Validate checks a JSON-compatible document (maps, slices, float64, string,
// bool) against the schema.
func (v *SchemaValidator) Validate(doc interface{}) error {
	if err := v.schema.Validate(doc); err != nil {
		if validationErr, ok := err.(*validator.ValidationError); ok {
			var messages []string
			collectErrors(validationErr, &messages)
			return fmt.Errorf("schema validation failed:\n%s", strings.Join(messages, "\n"))
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// collectErrors flattens the validation error tree into leaf messages.
func collectErrors(err *validator.ValidationError, messages *[]string) {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		*messages = append(*messages, fmt.Sprintf("  - %s: %s", location, err.Message))
		return
	}
	for _, cause := range err.Causes {
		collectErrors(cause, messages)
	}
}
