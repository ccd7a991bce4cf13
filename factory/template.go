/*
Package factory provides JSON to Go leave template conversion.

PURPOSE:
  HR tooling has written leave templates in three shapes over time. The
  factory accepts any mix of them and produces a leave.Template; the
  leave package then flattens it with Template.Rules().

JSON SCHEMA:
  {
    "id": "tmpl-standard",
    "name": "Standard",
    "leaveTypes": [
      {"type": "Casual", "limit": 2, "carryForward": true},
      {"type": "Sick Leave", "days": 10}
    ],
    "limits": {"Earned": 15},
    "maternityLimit": 90
  }

  Any top-level numeric field ending in "Limit" is an ad-hoc limit.

USAGE:
  tmpl, err := factory.ParseTemplate(data)
  store.SaveTemplate(ctx, tmpl)

SEE ALSO:
  - leave/template.go: Rules() adapter and first-match lookup
  - store/sqlite: stores templates as this JSON
*/
package factory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/warp/leave-engine/leave"
)

// ErrInvalidTemplate is returned for templates that can't be parsed.
var ErrInvalidTemplate = errors.New("invalid leave template")

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// TemplateJSON is the JSON representation of a leave template, minus the
// ad-hoc "<name>Limit" fields which are collected separately.
type TemplateJSON struct {
	ID         string             `json:"id,omitempty"`
	Name       string             `json:"name"`
	LeaveTypes []LeaveTypeJSON    `json:"leaveTypes,omitempty"`
	Limits     map[string]float64 `json:"limits,omitempty"`
}

// LeaveTypeJSON is one entry of the leaveTypes array.
type LeaveTypeJSON struct {
	Type         string   `json:"type"`
	Days         *float64 `json:"days,omitempty"`
	Limit        *float64 `json:"limit,omitempty"`
	CarryForward bool     `json:"carryForward,omitempty"`
}

var knownFields = map[string]bool{"id": true, "_id": true, "name": true, "leaveTypes": true, "limits": true}

const limitSuffix = "Limit"

// =============================================================================
// PARSING
// =============================================================================

// ParseTemplate parses template JSON in any of the supported shapes.
func ParseTemplate(data []byte) (*leave.Template, error) {
	var tj TemplateJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	tmpl := FromJSON(tj)
	if tmpl.ID == "" {
		if v, ok := raw["_id"]; ok {
			_ = json.Unmarshal(v, &tmpl.ID)
		}
	}

	for key, value := range raw {
		if knownFields[key] || !strings.HasSuffix(key, limitSuffix) || key == limitSuffix {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			continue
		}
		var limit float64
		if err := json.Unmarshal(value, &limit); err != nil {
			return nil, fmt.Errorf("%w: field %q must be a number", ErrInvalidTemplate, key)
		}
		if tmpl.Fields == nil {
			tmpl.Fields = make(map[string]float64)
		}
		tmpl.Fields[key] = limit
	}

	if err := Validate(tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// FromJSON converts the structured part of a template.
func FromJSON(tj TemplateJSON) *leave.Template {
	tmpl := &leave.Template{
		ID:     tj.ID,
		Name:   tj.Name,
		Limits: tj.Limits,
	}
	for _, lt := range tj.LeaveTypes {
		tmpl.LeaveTypes = append(tmpl.LeaveTypes, leave.TemplateLeaveType{
			Type:         strings.TrimSpace(lt.Type),
			Days:         lt.Days,
			Limit:        lt.Limit,
			CarryForward: lt.CarryForward,
		})
	}
	return tmpl
}

// Validate rejects negative limits and unnamed leave types.
func Validate(tmpl *leave.Template) error {
	for i, lt := range tmpl.LeaveTypes {
		if lt.Type == "" {
			return fmt.Errorf("%w: leaveTypes[%d] has no type", ErrInvalidTemplate, i)
		}
		if (lt.Days != nil && *lt.Days < 0) || (lt.Limit != nil && *lt.Limit < 0) {
			return fmt.Errorf("%w: %s has a negative limit", ErrInvalidTemplate, lt.Type)
		}
	}
	for name, v := range tmpl.Limits {
		if v < 0 {
			return fmt.Errorf("%w: %s has a negative limit", ErrInvalidTemplate, name)
		}
	}
	for name, v := range tmpl.Fields {
		if v < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidTemplate, name)
		}
	}
	return nil
}

// =============================================================================
// ENCODING
// =============================================================================

// MarshalTemplate encodes a template back into the JSON schema, with ad-hoc
// fields at the top level.
func MarshalTemplate(tmpl *leave.Template) ([]byte, error) {
	tj := ToJSON(tmpl)
	out := map[string]any{"name": tj.Name}
	if tj.ID != "" {
		out["id"] = tj.ID
	}
	if len(tj.LeaveTypes) > 0 {
		out["leaveTypes"] = tj.LeaveTypes
	}
	if len(tj.Limits) > 0 {
		out["limits"] = tj.Limits
	}

	fields := make([]string, 0, len(tmpl.Fields))
	for k := range tmpl.Fields {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	for _, k := range fields {
		if !knownFields[k] {
			out[k] = tmpl.Fields[k]
		}
	}
	return json.Marshal(out)
}

// ToJSON converts the structured part of a template.
func ToJSON(tmpl *leave.Template) TemplateJSON {
	tj := TemplateJSON{ID: tmpl.ID, Name: tmpl.Name, Limits: tmpl.Limits}
	for _, lt := range tmpl.LeaveTypes {
		tj.LeaveTypes = append(tj.LeaveTypes, LeaveTypeJSON{
			Type:         lt.Type,
			Days:         lt.Days,
			Limit:        lt.Limit,
			CarryForward: lt.CarryForward,
		})
	}
	return tj
}
