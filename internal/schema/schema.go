// Package schema validates and repairs structured documents produced by the
// completion capability. It is the single place that absorbs the
// unreliability of LLM output: every other component can assume well-typed
// documents. Repair is mechanical and deterministic: the same malformed
// document and version always yield the same repaired document and the same
// error list.
package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Schema versions for miner and evaluator documents. Version 1 used a flat
// single-evidence shape per claim; version 2 carries an evidence_spans array.
const (
	Version1 = 1
	Version2 = 2

	CurrentVersion = Version2
)

// Kind selects the field contract to validate against.
type Kind string

const (
	KindExtraction Kind = "extraction"
	KindEvaluation Kind = "evaluation"
)

// FieldError describes one validation failure. Repaired failures are still
// reported so callers can decide whether to accept, log, or discard.
type FieldError struct {
	Path     string `json:"path"`
	Rule     string `json:"rule"`
	Detail   string `json:"detail"`
	Repaired bool   `json:"repaired"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Path, e.Rule, e.Detail)
}

// ValidateAndRepair validates doc against the field contract for its kind and
// declared version, migrating older versions forward and repairing what it
// can. It returns the best-effort repaired document, whether the document is
// fully valid after repair, and every error found (including repaired ones).
func ValidateAndRepair(doc map[string]any, kind Kind, version int) (map[string]any, bool, []FieldError) {
	if doc == nil {
		return map[string]any{}, false, []FieldError{{
			Path: "$", Rule: "required", Detail: "document is nil",
		}}
	}

	out := deepCopy(doc)
	var errs []FieldError

	if version < CurrentVersion {
		out, errs = migrate(out, kind, version, errs)
	}
	out["schema_version"] = CurrentVersion

	switch kind {
	case KindExtraction:
		errs = validateExtraction(out, errs)
	case KindEvaluation:
		errs = validateEvaluation(out, errs)
	default:
		errs = append(errs, FieldError{
			Path: "$", Rule: "kind", Detail: fmt.Sprintf("unknown document kind %q", kind),
		})
	}

	valid := true
	for _, e := range errs {
		if !e.Repaired {
			valid = false
			break
		}
	}
	return out, valid, errs
}

// deepCopy clones a JSON-shaped document so repair never mutates the
// caller's copy.
func deepCopy(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		out[k] = copyValue(val)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopy(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// --- coercion helpers ---

// asString coerces near-miss scalar types to string.
func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// asFloat coerces near-miss numeric types (including numeric strings) to
// float64.
func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// asInt coerces near-miss numeric types to int, rejecting fractions.
func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// asSlice coerces a value to []any, wrapping a lone map or string so that
// producers emitting a single object where an array is expected still
// validate.
func asSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case map[string]any, string:
		return []any{t}, true
	default:
		return nil, false
	}
}

// asStringSlice coerces to []string, dropping non-string members.
func asStringSlice(v any) ([]string, bool) {
	items, ok := asSlice(v)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, sok := asString(it); sok {
			out = append(out, s)
		}
	}
	return out, true
}

// clamp01 bounds a score to [0, 1].
func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
