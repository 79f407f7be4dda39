package schema

import "fmt"

// SentinelRank is injected when an accepted evaluation is missing its rank.
// The evaluator sorts sentinel-ranked claims after explicitly ranked ones
// rather than failing the document.
const SentinelRank = -1

var decisions = map[string]bool{
	"accept": true,
	"reject": true,
	"merge":  true,
	"split":  true,
}

// validateEvaluation enforces the evaluator document contract. Requiredness
// is conditional on the decision: rank and scores apply only to accepted
// claims, rejection_reason only to rejected ones. A reject with no rank is
// valid as-is; an accept with no rank gets the sentinel, never a hard
// failure.
func validateEvaluation(doc map[string]any, errs []FieldError) []FieldError {
	raw, present := doc["evaluations"]
	if !present {
		doc["evaluations"] = []any{}
		errs = append(errs, FieldError{
			Path: "evaluations", Rule: "required", Detail: "missing; defaulted to empty list", Repaired: true,
		})
		return errs
	}
	items, ok := asSlice(raw)
	if !ok {
		doc["evaluations"] = []any{}
		errs = append(errs, FieldError{
			Path: "evaluations", Rule: "type", Detail: "not an array",
		})
		return errs
	}

	kept := make([]any, 0, len(items))
	for i, item := range items {
		ev, eok := item.(map[string]any)
		if !eok {
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("evaluations[%d]", i), Rule: "type", Detail: "not an object; dropped",
			})
			continue
		}

		idx, iok := asInt(ev["claim_index"])
		if !iok || idx < 0 {
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("evaluations[%d].claim_index", i), Rule: "required", Detail: "missing or not a non-negative integer; entry dropped",
			})
			continue
		}
		ev["claim_index"] = float64(idx)

		decision, dok := asString(ev["decision"])
		if !dok || !decisions[decision] {
			errs = append(errs, FieldError{
				Path: fmt.Sprintf("evaluations[%d].decision", i), Rule: "enum", Detail: "missing or unknown; defaulted to reject", Repaired: true,
			})
			decision = "reject"
		}
		ev["decision"] = decision

		switch decision {
		case "accept":
			if rank, rok := asInt(ev["rank"]); rok && rank >= 0 {
				ev["rank"] = float64(rank)
			} else {
				ev["rank"] = float64(SentinelRank)
				errs = append(errs, FieldError{
					Path: fmt.Sprintf("evaluations[%d].rank", i), Rule: "conditional_required", Detail: "accepted claim missing rank; sentinel injected", Repaired: true,
				})
			}
			for _, key := range []string{"importance", "novelty", "confidence"} {
				if f, fok := asFloat(ev[key]); fok {
					ev[key] = clamp01(f)
				} else {
					ev[key] = 0.5
					errs = append(errs, FieldError{
						Path: fmt.Sprintf("evaluations[%d].%s", i, key), Rule: "type", Detail: "missing or non-numeric; defaulted to 0.5", Repaired: true,
					})
				}
			}
		case "reject":
			if reason, rok := asString(ev["rejection_reason"]); rok && reason != "" {
				ev["rejection_reason"] = reason
			} else {
				ev["rejection_reason"] = "unspecified"
				errs = append(errs, FieldError{
					Path: fmt.Sprintf("evaluations[%d].rejection_reason", i), Rule: "conditional_required", Detail: "rejected claim missing reason; defaulted", Repaired: true,
				})
			}
		case "merge":
			if target, tok := asInt(ev["merge_with"]); tok && target >= 0 {
				ev["merge_with"] = float64(target)
			} else {
				// A merge without a target cannot be applied; demote to reject.
				ev["decision"] = "reject"
				ev["rejection_reason"] = "merge target missing"
				errs = append(errs, FieldError{
					Path: fmt.Sprintf("evaluations[%d].merge_with", i), Rule: "conditional_required", Detail: "merge missing target; demoted to reject", Repaired: true,
				})
			}
		}

		kept = append(kept, ev)
	}
	doc["evaluations"] = kept
	return errs
}
