// Package definition loads serialized graph definitions from JSON or YAML
// and compiles them into runnable graphs, resolving action names through a
// factory registry and condition expressions through the embedded
// expression engines.
package definition

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/actiongraph/actiongraph/pkg/schema"
)

// ParseJSON decodes a JSON graph definition.
func ParseJSON(data []byte) (*schema.GraphDefinition, error) {
	var def schema.GraphDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "invalid JSON graph definition").WithCause(err)
	}
	return &def, nil
}

// ParseYAML decodes a YAML graph definition.
func ParseYAML(data []byte) (*schema.GraphDefinition, error) {
	var def schema.GraphDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "invalid YAML graph definition").WithCause(err)
	}
	return &def, nil
}

// Parse decodes a graph definition, detecting the format: documents whose
// first non-space byte is '{' are treated as JSON, everything else as YAML.
func Parse(data []byte) (*schema.GraphDefinition, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return ParseJSON(data)
	}
	return ParseYAML(data)
}

// LoadFile reads and decodes a definition file. The format follows the
// extension: .json is JSON, .yaml and .yml are YAML.
func LoadFile(path string) (*schema.GraphDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "read definition file: %s", err.Error()).WithCause(err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}
