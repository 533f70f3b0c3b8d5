package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	santhosh "github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaResource = "dock.schema.json"

// GenerateSchema reflects the JSON Schema for dock.yml from the Config
// struct. Unknown top-level sections are allowed so extensions such as
// `logging` can live in the same file.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	schema := r.Reflect(&Config{})
	schema.Title = "Dock Configuration"
	schema.Description = "Schema for dock.yml / dock.toml."

	return json.MarshalIndent(schema, "", "  ")
}

// SchemaValidator validates raw configuration documents against the
// generated schema.
type SchemaValidator struct {
	schema *santhosh.Schema
}

var (
	compiledOnce   sync.Once
	compiledSchema *santhosh.Schema
	compileErr     error
)

// NewSchemaValidator returns a validator backed by the compiled schema.
// The schema is generated and compiled once per process.
func NewSchemaValidator() (*SchemaValidator, error) {
	compiledOnce.Do(func() {
		data, err := GenerateSchema()
		if err != nil {
			compileErr = fmt.Errorf("failed to generate schema: %w", err)
			return
		}

		compiler := santhosh.NewCompiler()
		if err := compiler.AddResource(schemaResource, bytes.NewReader(data)); err != nil {
			compileErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}

		compiledSchema, compileErr = compiler.Compile(schemaResource)
		if compileErr != nil {
			compileErr = fmt.Errorf("failed to compile schema: %w", compileErr)
		}
	})
	if compileErr != nil {
		return nil, compileErr
	}
	return &SchemaValidator{schema: compiledSchema}, nil
}

// Validate checks a decoded document. The value is round-tripped through
// JSON first so YAML/TOML scalar types line up with JSON Schema types.
func (v *SchemaValidator) Validate(doc interface{}) error {
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config to JSON for validation: %w", err)
	}

	var dataToValidate interface{}
	if err := json.Unmarshal(jsonData, &dataToValidate); err != nil {
		return fmt.Errorf("failed to unmarshal JSON for validation: %w", err)
	}

	if err := v.schema.Validate(dataToValidate); err != nil {
		if validationErr, ok := err.(*santhosh.ValidationError); ok {
			var messages []string
			collectErrors(validationErr, &messages)
			return fmt.Errorf("schema validation failed:\n%s", strings.Join(messages, "\n"))
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}

// collectErrors recursively collects all validation errors into a slice
func collectErrors(err *santhosh.ValidationError, messages *[]string) {
	if err.InstanceLocation != "" {
		*messages = append(*messages, fmt.Sprintf("- %s: %s", err.InstanceLocation, err.Message))
	}
	for _, cause := range err.Causes {
		collectErrors(cause, messages)
	}
}
