// Package schema holds the JSON Schema documents that describe the
// machine-readable output of gopatch.
package schema

import "encoding/json"

// ReportSchemaVersion is bumped whenever the report layout changes in a way
// consumers can observe.
const ReportSchemaVersion = 1

const reportSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "gopatch report",
  "type": "object",
  "additionalProperties": false,
  "required": ["version", "ok", "mode", "dialect", "errors", "warnings", "diagnostics", "files", "stats"],
  "properties": {
    "version": {"type": "integer", "const": 1},
    "ok": {"type": "boolean"},
    "mode": {"type": "string", "enum": ["apply", "revert", "check", "diffstat", "dry-run"]},
    "dialect": {"type": "string", "enum": ["plain", "git", "svn", "hg"]},
    "errors": {"type": "integer", "minimum": 0},
    "warnings": {"type": "integer", "minimum": 0},
    "diagnostics": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["severity", "line", "message"],
        "properties": {
          "severity": {"type": "string", "enum": ["warning", "error"]},
          "line": {"type": "integer", "minimum": 0},
          "message": {"type": "string"}
        }
      }
    },
    "files": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["source", "target", "type", "hunks"],
        "properties": {
          "source": {"type": "string"},
          "target": {"type": "string"},
          "type": {"type": "string", "enum": ["plain", "git", "svn", "hg"]},
          "hunks": {"type": "integer", "minimum": 0}
        }
      }
    },
    "stats": {
      "type": "object",
      "additionalProperties": false,
      "required": ["files", "insertions", "deletions", "bytes"],
      "properties": {
        "files": {
          "type": "array",
          "items": {
            "type": "object",
            "additionalProperties": false,
            "required": ["name", "insertions", "deletions"],
            "properties": {
              "name": {"type": "string"},
              "insertions": {"type": "integer", "minimum": 0},
              "deletions": {"type": "integer", "minimum": 0}
            }
          }
        },
        "insertions": {"type": "integer", "minimum": 0},
        "deletions": {"type": "integer", "minimum": 0},
        "bytes": {"type": "integer"}
      }
    },
    "results": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["status", "path"],
        "properties": {
          "status": {"type": "string", "enum": ["M", "A", "D"]},
          "path": {"type": "string", "minLength": 1}
        }
      }
    },
    "checks": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["path", "applicability"],
        "properties": {
          "path": {"type": "string", "minLength": 1},
          "applicability": {"type": "string", "enum": ["indeterminate", "not applicable", "applicable"]},
          "patched": {"type": "boolean"}
        }
      }
    },
    "preview": {"type": "string"},
    "error": {
      "type": "object",
      "additionalProperties": false,
      "required": ["message"],
      "properties": {
        "code": {"type": "string"},
        "path": {"type": "string"},
        "message": {"type": "string", "minLength": 1}
      }
    }
  }
}`

// ReportSchema returns the JSON Schema for the --json report as a generic
// map, ready for gojsonschema.NewGoLoader.
func ReportSchema() (map[string]any, error) {
	var schema map[string]any
	if err := json.Unmarshal([]byte(reportSchemaJSON), &schema); err != nil {
		return nil, err
	}
	return schema, nil
}
