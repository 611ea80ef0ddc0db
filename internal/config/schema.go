package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// stackSchema is the JSON schema for stackctl.yaml. YAML documents are
// converted to JSON before validation.
const stackSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "version": {"type": "integer", "minimum": 0, "maximum": 0},
    "envTemplate": {"type": "string", "minLength": 1},
    "envFile": {"type": "string", "minLength": 1},
    "composeFile": {"type": "string", "minLength": 1},
    "trackingUrl": {"type": "string", "minLength": 1},
    "tracingUrl": {"type": "string", "minLength": 1},
    "httpChecks": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["name", "url"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "url": {"type": "string", "minLength": 1}
        }
      }
    },
    "postgresChecks": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["name", "host", "port", "userVar", "passwordVar", "databaseVar"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "host": {"type": "string", "minLength": 1},
          "port": {"type": "integer", "minimum": 1, "maximum": 65535},
          "userVar": {"type": "string", "minLength": 1},
          "passwordVar": {"type": "string", "minLength": 1},
          "databaseVar": {"type": "string", "minLength": 1},
          "defaultUser": {"type": "string"},
          "defaultDatabase": {"type": "string"}
        }
      }
    }
  }
}`

// validateSchema checks raw YAML config bytes against the stackctl schema
func validateSchema(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	jsonData, err := json.Marshal(normalizeYAML(doc))
	if err != nil {
		return fmt.Errorf("failed to marshal config for validation: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(stackSchema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errorMessages []string
		for _, desc := range result.Errors() {
			errorMessages = append(errorMessages, desc.String())
		}
		return fmt.Errorf("schema validation failed:\n  - %s", strings.Join(errorMessages, "\n  - "))
	}

	return nil
}

// normalizeYAML converts map[interface{}]interface{} trees that yaml may
// produce into map[string]interface{} so they survive json.Marshal.
func normalizeYAML(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, item := range val {
			val[k] = normalizeYAML(item)
		}
		return val
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[fmt.Sprintf("%v", k)] = normalizeYAML(item)
		}
		return out
	case []interface{}:
		for i, item := range val {
			val[i] = normalizeYAML(item)
		}
		return val
	default:
		return v
	}
}
