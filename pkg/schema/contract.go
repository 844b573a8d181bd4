package schema

import (
	"encoding/json"
	"math"
	"sort"
)

// SlotType is the JSON type of a context slot.
type SlotType string

const (
	SlotAny     SlotType = ""
	SlotString  SlotType = "string"
	SlotNumber  SlotType = "number"
	SlotInteger SlotType = "integer"
	SlotBoolean SlotType = "boolean"
	SlotObject  SlotType = "object"
	SlotArray   SlotType = "array"
)

// Matches reports whether v is a value of the slot type. Both JSON-decoded
// values (float64, map[string]any, []any) and Go-native ones are accepted.
func (t SlotType) Matches(v any) bool {
	if v == nil {
		return false
	}
	switch t {
	case SlotAny:
		return true
	case SlotString:
		_, ok := v.(string)
		return ok
	case SlotBoolean:
		_, ok := v.(bool)
		return ok
	case SlotNumber:
		_, ok := number(v)
		return ok
	case SlotInteger:
		f, ok := number(v)
		return ok && f == math.Trunc(f)
	case SlotObject:
		_, ok := v.(map[string]any)
		return ok
	case SlotArray:
		switch v.(type) {
		case []any, []string, []map[string]any:
			return true
		}
		return false
	default:
		return false
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Slot names one context key a behavior reads or writes.
type Slot struct {
	Key      string   `json:"key"`
	Type     SlotType `json:"type,omitempty"`
	Required bool     `json:"required,omitempty"`
}

// Contract declares the context slots a behavior type depends on and produces,
// plus an optional CEL gate evaluated before every invocation.
type Contract struct {
	Reads     []Slot `json:"reads,omitempty"`
	Writes    []Slot `json:"writes,omitempty"`
	Condition string `json:"condition,omitempty"`
}

// RequiredReads returns the reads a behavior cannot run without.
func (c Contract) RequiredReads() []Slot {
	var out []Slot
	for _, s := range c.Reads {
		if s.Required {
			out = append(out, s)
		}
	}
	return out
}

// WriteKeys returns the sorted keys of every declared write.
func (c Contract) WriteKeys() []string {
	keys := make([]string, 0, len(c.Writes))
	for _, s := range c.Writes {
		keys = append(keys, s.Key)
	}
	sort.Strings(keys)
	return keys
}

// MissingReads lists the required reads absent from data or of the wrong type,
// as human-readable problems in declaration order.
func (c Contract) MissingReads(data map[string]any) []string {
	var problems []string
	for _, s := range c.RequiredReads() {
		v, ok := data[s.Key]
		switch {
		case !ok || v == nil:
			problems = append(problems, "missing required context key "+s.Key)
		case !s.Type.Matches(v):
			problems = append(problems, "context key "+s.Key+" must be of type "+string(s.Type))
		}
	}
	return problems
}

// WriteSchema renders the declared writes as a JSON Schema object. Undeclared
// keys are rejected so a result cannot drift from its contract.
func (c Contract) WriteSchema() json.RawMessage {
	props := make(map[string]any, len(c.Writes))
	required := []string{}
	for _, s := range c.Writes {
		prop := map[string]any{}
		if s.Type != SlotAny {
			prop["type"] = string(s.Type)
		}
		props[s.Key] = prop
		if s.Required {
			required = append(required, s.Key)
		}
	}
	sort.Strings(required)

	doc := map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
	b, _ := json.Marshal(doc)
	return b
}
