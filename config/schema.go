package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/wildparky/pflow/errors"
)

// Schema is the JSON Schema every network document must satisfy before
// semantic validation
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "pflow network",
  "type": "object",
  "additionalProperties": false,
  "required": ["components"],
  "definitions": {
    "portRef": {
      "type": "string",
      "pattern": "^[^.\\s]+\\.[^.\\s\\[\\]]+(\\[[0-9]+\\])?$"
    }
  },
  "properties": {
    "version": {"type": "string"},
    "network": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "name": {"type": "string", "minLength": 1},
        "capacity": {"type": "integer", "minimum": 0},
        "policy": {"type": "string"},
        "shutdown_timeout": {"type": "string"}
      }
    },
    "components": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "additionalProperties": false,
        "required": ["type"],
        "properties": {
          "type": {"type": "string", "minLength": 1},
          "config": {"type": ["object", "null"]}
        }
      }
    },
    "connections": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["from", "to"],
        "properties": {
          "from": {"$ref": "#/definitions/portRef"},
          "to": {"$ref": "#/definitions/portRef"},
          "capacity": {"type": "integer", "minimum": 0}
        }
      }
    },
    "initials": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["value", "to"],
        "properties": {
          "value": {},
          "to": {"$ref": "#/definitions/portRef"}
        }
      }
    },
    "logging": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "level": {"enum": ["debug", "info", "warn", "error"]},
        "format": {"enum": ["text", "json"]}
      }
    },
    "metrics": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"},
        "port": {"type": "integer", "minimum": 0, "maximum": 65535},
        "path": {"type": "string", "pattern": "^/"}
      }
    },
    "nats": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "url": {"type": "string"}
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(Schema))
})

// ValidateSchema checks a JSON document against Schema. Every violation is
// reported in one error.
func ValidateSchema(doc []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return errors.WrapFatal(err, "Schema", "ValidateSchema", "compile schema")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return errors.WrapInvalid(err, "Schema", "ValidateSchema", "load document")
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.WrapInvalid(
		fmt.Errorf("%w: %s", errors.ErrInvalidConfig, strings.Join(msgs, "; ")),
		"Schema", "ValidateSchema", "schema validation")
}
