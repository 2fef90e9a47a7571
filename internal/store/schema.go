// Package store persists the versioned per-user settings record. Reads are
// defensive: anything malformed degrades to documented defaults, never an
// error the daemon has to die on.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mindwell/companion/internal/domain"
)

// settingsSchema validates a persisted record before it is trusted. Shape
// only; semantic floors (minimum durations) are enforced by the timer
// engines at the configuration boundary.
const settingsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "whitelist", "pomodoro", "eyeCare"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "whitelist": {"type": "array", "items": {"type": "string"}},
    "focusModeEnabled": {"type": "boolean"},
    "dimInsteadOfBlock": {"type": "boolean"},
    "customAlertText": {"type": "string"},
    "customAlertImage": {"type": "string"},
    "pomodoro": {"$ref": "#/$defs/timer"},
    "eyeCare": {"$ref": "#/$defs/timer"},
    "hydration": {"$ref": "#/$defs/reminder"},
    "posture": {"$ref": "#/$defs/reminder"}
  },
  "$defs": {
    "timer": {
      "type": "object",
      "required": ["workDurationSec", "restDurationSec"],
      "properties": {
        "phase": {"enum": ["work", "rest"]},
        "running": {"type": "boolean"},
        "elapsedSec": {"type": "integer", "minimum": 0},
        "workDurationSec": {"type": "integer", "minimum": 1},
        "restDurationSec": {"type": "integer", "minimum": 1},
        "progressPercent": {"type": "number"}
      }
    },
    "reminder": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "timeLeftSec": {"type": "integer"},
        "intervalSec": {"type": "integer"}
      }
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("settings.schema.json", settingsSchema)

// decodeRecord validates raw JSON against the settings schema and decodes it.
func decodeRecord(raw []byte) (*domain.SettingsRecord, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("settings not valid JSON: %w", err)
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("settings failed schema validation: %w", err)
	}

	var rec domain.SettingsRecord
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("settings decode: %w", err)
	}
	normalizeRecord(&rec)
	return &rec, nil
}

// normalizeRecord restores invariants a hand-edited file may have broken:
// essential whitelist entries are always present and defaults fill empty
// alert text.
func normalizeRecord(rec *domain.SettingsRecord) {
	for _, e := range domain.EssentialWhitelist {
		found := false
		for _, w := range rec.Whitelist {
			if w == e {
				found = true
				break
			}
		}
		if !found {
			rec.Whitelist = append(rec.Whitelist, e)
		}
	}
	if rec.CustomAlertText == "" {
		rec.CustomAlertText = domain.DefaultAlertText
	}
	if rec.Pomodoro.Phase == "" {
		rec.Pomodoro.Phase = domain.PhaseWork
	}
	if rec.EyeCare.Phase == "" {
		rec.EyeCare.Phase = domain.PhaseWork
	}
}

func encodeRecord(rec *domain.SettingsRecord) ([]byte, error) {
	return json.MarshalIndent(rec, "", "  ")
}
