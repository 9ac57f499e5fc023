package webhook

import "encoding/json"

// Variant tags which shape the upstream response matched. Workflow engines in
// the wild return any of these; the decode resolves them once at the boundary
// instead of shape-sniffing at call sites.
type Variant string

const (
	VariantOutput   Variant = "output"
	VariantAnalysis Variant = "analysis"
	VariantText     Variant = "text"
	VariantRaw      Variant = "raw"
)

// Result is the decoded webhook response.
type Result struct {
	Variant Variant `json:"variant"`
	Content string  `json:"content"`
}

type outputEnvelope struct {
	Output   *string `json:"output"`
	Analysis *string `json:"analysis"`
}

// Decode resolves an upstream response body into a tagged Result. Match
// order: array-of-objects-with-output, object-with-output,
// object-with-analysis, bare JSON string, then the raw body as the defined
// fallback variant.
func Decode(body []byte) Result {
	var list []outputEnvelope
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 && list[0].Output != nil {
		return Result{Variant: VariantOutput, Content: *list[0].Output}
	}

	var env outputEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Output != nil {
			return Result{Variant: VariantOutput, Content: *env.Output}
		}
		if env.Analysis != nil {
			return Result{Variant: VariantAnalysis, Content: *env.Analysis}
		}
	}

	var s string
	if err := json.Unmarshal(body, &s); err == nil {
		return Result{Variant: VariantText, Content: s}
	}

	return Result{Variant: VariantRaw, Content: string(body)}
}
