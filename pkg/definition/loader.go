package definition

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/TencentBlueKing/bamboo-engine-sub001/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Formats accepted by Parse.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Parse decodes a definition from YAML or JSON bytes.
func Parse(data []byte, format string) (*Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: payload is empty", ErrInvalidDefinition)
	}

	var raw map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %v", ErrInvalidDefinition, err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("%w: decode json: %v", ErrInvalidDefinition, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidDefinition, format)
	}
	return Decode(raw)
}

// Decode maps a loosely typed document onto a Definition. A scalar next is
// accepted as a one-element list; unknown keys are rejected.
func Decode(raw map[string]any) (*Definition, error) {
	var def Definition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &def,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	return &def, nil
}

// Load reads a definition from r.
func Load(r io.Reader, format string) (*Definition, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	return Parse(content, format)
}

// LoadFile reads a definition file, picking the format from its extension.
func LoadFile(path string) (*Definition, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition %s: %w", path, err)
	}
	def, err := Parse(content, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// FormatOf maps .yaml, .yml and .json paths to their format.
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unsupported file extension %q", ErrInvalidDefinition, filepath.Ext(path))
}

type varSpec struct {
	Type       string `mapstructure:"type"`
	Value      any    `mapstructure:"value"`
	CustomType string `mapstructure:"custom_type"`
}

// decodeVars turns input maps into vars. A map value carrying a "type" key
// is a full var; anything else is a plain value.
func decodeVars(raw map[string]any) (map[string]domain.Var, error) {
	vars := make(map[string]domain.Var, len(raw))
	for key, v := range raw {
		m, ok := v.(map[string]any)
		if _, typed := m["type"]; !ok || !typed {
			vars[key] = domain.Var{Type: domain.VarPlain, Value: v}
			continue
		}
		var spec varSpec
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &spec, ErrorUnused: true})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(m); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		switch spec.Type {
		case domain.VarPlain, domain.VarSplice, domain.VarLazy:
		default:
			return nil, fmt.Errorf("%s: unknown var type %q", key, spec.Type)
		}
		vars[key] = domain.Var{Type: spec.Type, Value: spec.Value, CustomType: spec.CustomType}
	}
	return vars, nil
}
