package schema

import "fmt"

// migrate restructures an older-version document into the current shape.
// Each version transition has an explicit migration; unknown versions are
// reported and the document passed through for best-effort validation.
func migrate(doc map[string]any, kind Kind, from int, errs []FieldError) (map[string]any, []FieldError) {
	switch from {
	case Version1:
		if kind == KindExtraction {
			doc, errs = migrateExtractionV1(doc, errs)
		}
		// Evaluation documents did not change shape between v1 and v2;
		// conditional requiredness is enforced by validation either way.
		return doc, errs
	default:
		return doc, append(errs, FieldError{
			Path: "schema_version", Rule: "version",
			Detail:   fmt.Sprintf("no migration from version %d; validating as current", from),
			Repaired: true,
		})
	}
}

// migrateExtractionV1 lifts the v1 flat single-evidence claim shape
// (segment_id/quote/t0/t1 inline on the claim) into the v2 evidence_spans
// array.
func migrateExtractionV1(doc map[string]any, errs []FieldError) (map[string]any, []FieldError) {
	items, ok := asSlice(doc["claims"])
	if !ok {
		return doc, errs
	}
	for i, item := range items {
		claim, cok := item.(map[string]any)
		if !cok {
			continue
		}
		if _, has := claim["evidence_spans"]; has {
			continue
		}
		span := map[string]any{}
		for _, key := range []string{"segment_id", "quote", "t0", "t1", "context", "context_type"} {
			if v, present := claim[key]; present {
				span[key] = v
				delete(claim, key)
			}
		}
		if len(span) > 0 {
			claim["evidence_spans"] = []any{span}
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("claims[%d]", i), Rule: "migration",
				Detail: "v1 flat evidence restructured into evidence_spans", Repaired: true,
			})
		}
	}
	doc["claims"] = items
	return doc, errs
}
