package domain

// Effect is the outcome of an authorization decision or of a single rule.
type Effect string

const (
	EffectPermit Effect = "permit"
	EffectDeny   Effect = "deny"
)

// RequiredAction is a step-up requirement attached to a permit.
type RequiredAction string

const (
	RequiredActionNone     RequiredAction = ""
	RequiredActionMFA      RequiredAction = "mfa"
	RequiredActionApproval RequiredAction = "approval"
)

// DecisionRequest describes one access attempt. Attribute maps hold values as
// decoded from JSON: strings, float64 numbers, bools, and slices thereof.
// Environment attributes arrive from the edge (network zone, geo country,
// device compliance, risk score); the evaluator never looks them up itself.
type DecisionRequest struct {
	SubjectID             string
	SubjectAttributes     map[string]any
	Action                string
	ResourceType          string
	ResourceID            string
	ResourceAttributes    map[string]any
	EnvironmentAttributes map[string]any
}

// ResourcePath joins resource type and id into the slash path that HCL and
// ABAC resource patterns match against.
func (r *DecisionRequest) ResourcePath() string {
	if r.ResourceID == "" {
		return r.ResourceType
	}
	return r.ResourceType + "/" + r.ResourceID
}

// Decision is the evaluator's verdict. Reasons name the rules that produced
// it; a deny must not reveal whether the resource exists. Obligations carry
// advisory constraints for the caller, such as columns to mask.
type Decision struct {
	Effect         Effect
	Reasons        []string
	RequiredAction RequiredAction
	Obligations    map[string]any
}

// Permitted reports whether the decision allows the operation outright,
// with no outstanding step-up requirement.
func (d *Decision) Permitted() bool {
	return d.Effect == EffectPermit && d.RequiredAction == RequiredActionNone
}
