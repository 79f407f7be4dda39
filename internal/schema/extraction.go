package schema

import "fmt"

var claimTypes = map[string]bool{
	"factual":    true,
	"causal":     true,
	"normative":  true,
	"forecast":   true,
	"definition": true,
}

// validateExtraction enforces the miner document contract: claims each with
// at least one evidence span, jargon with definitions, people with mentions,
// concepts with evidence. Entries missing uncorrectable required fields are
// removed from the repaired document and reported.
func validateExtraction(doc map[string]any, errs []FieldError) []FieldError {
	errs = validateClaims(doc, errs)
	errs = validateJargon(doc, errs)
	errs = validatePeople(doc, errs)
	errs = validateConcepts(doc, errs)
	return errs
}

func validateClaims(doc map[string]any, errs []FieldError) []FieldError {
	raw, present := doc["claims"]
	if !present {
		doc["claims"] = []any{}
		errs = append(errs, FieldError{
			Path: "claims", Rule: "required", Detail: "missing; defaulted to empty list", Repaired: true,
		})
		return errs
	}
	items, ok := asSlice(raw)
	if !ok {
		doc["claims"] = []any{}
		errs = append(errs, FieldError{
			Path: "claims", Rule: "type", Detail: "not an array",
		})
		return errs
	}

	kept := make([]any, 0, len(items))
	for i, item := range items {
		claim, cok := item.(map[string]any)
		if !cok {
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("claims[%d]", i), Rule: "type", Detail: "not an object; dropped",
			})
			continue
		}

		text, tok := asString(claim["text"])
		if !tok || text == "" {
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("claims[%d].text", i), Rule: "required", Detail: "missing or empty; claim dropped",
			})
			continue
		}
		claim["text"] = text

		if ct, cok := asString(claim["claim_type"]); cok && claimTypes[ct] {
			claim["claim_type"] = ct
		} else {
			claim["claim_type"] = "factual"
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("claims[%d].claim_type", i), Rule: "enum", Detail: "missing or unknown; defaulted to factual", Repaired: true,
			})
		}

		if conf, cok := asFloat(claim["confidence"]); cok {
			claim["confidence"] = clamp01(conf)
		} else {
			claim["confidence"] = 0.5
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("claims[%d].confidence", i), Rule: "type", Detail: "missing or non-numeric; defaulted to 0.5", Repaired: true,
			})
		}

		spans, serrs := validateSpans(claim, i)
		errs = append(errs, serrs...)
		if len(spans) == 0 {
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("claims[%d].evidence_spans", i), Rule: "min_items", Detail: "claim has no usable evidence span; claim dropped",
			})
			continue
		}
		claim["evidence_spans"] = spans
		kept = append(kept, claim)
	}
	doc["claims"] = kept
	return errs
}

// validateSpans checks a claim's evidence_spans array, repairing coercible
// fields and dropping spans missing segment_id or quote.
func validateSpans(claim map[string]any, claimIdx int) ([]any, []FieldError) {
	var errs []FieldError
	items, ok := asSlice(claim["evidence_spans"])
	if !ok {
		return nil, []FieldError{{
			Path: fmt.Sprintf("claims[%d].evidence_spans", claimIdx), Rule: "type", Detail: "missing or not an array",
		}}
	}

	kept := make([]any, 0, len(items))
	for j, item := range items {
		span, sok := item.(map[string]any)
		if !sok {
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("claims[%d].evidence_spans[%d]", claimIdx, j), Rule: "type", Detail: "not an object; dropped",
			})
			continue
		}
		segID, idok := asString(span["segment_id"])
		quote, qok := asString(span["quote"])
		if !idok || segID == "" || !qok || quote == "" {
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("claims[%d].evidence_spans[%d]", claimIdx, j), Rule: "required", Detail: "segment_id and quote are required; span dropped",
			})
			continue
		}
		span["segment_id"] = segID
		span["quote"] = quote
		for _, key := range []string{"t0", "t1"} {
			if f, fok := asFloat(span[key]); fok {
				span[key] = f
			} else {
				span[key] = float64(0)
				errs = append(errs, FieldError{
					Path: fmt.Sprintf("claims[%d].evidence_spans[%d].%s", claimIdx, j, key), Rule: "type", Detail: "missing or non-numeric; defaulted to 0", Repaired: true,
				})
			}
		}
		kept = append(kept, span)
	}
	return kept, errs
}

func validateJargon(doc map[string]any, errs []FieldError) []FieldError {
	items, ok := asSlice(doc["jargon"])
	if !ok {
		doc["jargon"] = []any{}
		return errs
	}
	kept := make([]any, 0, len(items))
	for i, item := range items {
		term, tok := item.(map[string]any)
		if !tok {
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("jargon[%d]", i), Rule: "type", Detail: "not an object; dropped",
			})
			continue
		}
		name, nok := asString(term["term"])
		def, dok := asString(term["definition"])
		if !nok || name == "" || !dok || def == "" {
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("jargon[%d]", i), Rule: "required", Detail: "term and definition are required; entry dropped",
			})
			continue
		}
		term["term"] = name
		term["definition"] = def
		if dom, domok := asString(term["domain"]); domok && dom != "" {
			term["domain"] = dom
		} else {
			term["domain"] = "general"
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("jargon[%d].domain", i), Rule: "required", Detail: "missing; defaulted to general", Repaired: true,
			})
		}
		kept = append(kept, term)
	}
	doc["jargon"] = kept
	return errs
}

func validatePeople(doc map[string]any, errs []FieldError) []FieldError {
	items, ok := asSlice(doc["people"])
	if !ok {
		doc["people"] = []any{}
		return errs
	}
	kept := make([]any, 0, len(items))
	for i, item := range items {
		person, pok := item.(map[string]any)
		if !pok {
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("people[%d]", i), Rule: "type", Detail: "not an object; dropped",
			})
			continue
		}
		name, nok := asString(person["name"])
		if !nok || name == "" {
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("people[%d].name", i), Rule: "required", Detail: "missing; entry dropped",
			})
			continue
		}
		person["name"] = name
		if et, eok := asString(person["entity_type"]); eok && et != "" {
			person["entity_type"] = et
		} else {
			person["entity_type"] = "referenced"
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("people[%d].entity_type", i), Rule: "required", Detail: "missing; defaulted to referenced", Repaired: true,
			})
		}
		if conf, cok := asFloat(person["confidence"]); cok {
			person["confidence"] = clamp01(conf)
		} else {
			person["confidence"] = 0.5
		}
		mentions, mok := asSlice(person["mentions"])
		if !mok || len(mentions) == 0 {
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("people[%d].mentions", i), Rule: "min_items", Detail: "at least one mention record required; entry dropped",
			})
			continue
		}
		person["mentions"] = mentions
		kept = append(kept, person)
	}
	doc["people"] = kept
	return errs
}

func validateConcepts(doc map[string]any, errs []FieldError) []FieldError {
	items, ok := asSlice(doc["concepts"])
	if !ok {
		doc["concepts"] = []any{}
		return errs
	}
	kept := make([]any, 0, len(items))
	for i, item := range items {
		concept, cok := item.(map[string]any)
		if !cok {
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("concepts[%d]", i), Rule: "type", Detail: "not an object; dropped",
			})
			continue
		}
		name, nok := asString(concept["name"])
		if !nok || name == "" {
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("concepts[%d].name", i), Rule: "required", Detail: "missing; entry dropped",
			})
			continue
		}
		concept["name"] = name
		if aliases, aok := asStringSlice(concept["aliases"]); aok {
			out := make([]any, len(aliases))
			for k, a := range aliases {
				out[k] = a
			}
			concept["aliases"] = out
		} else {
			concept["aliases"] = []any{}
		}
		kept = append(kept, concept)
	}
	doc["concepts"] = kept
	return errs
}
