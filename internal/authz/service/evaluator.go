// Package service implements the policy evaluation engines (RBAC, ABAC, HCL
// path-capability, context) and the normative combination algorithm that
// merges their verdicts into one decision.
package service

import (
	"fmt"
	"sort"

	authzDomain "github.com/usphq/usp/internal/authz/domain"
)

// ruleMatch is one matched rule, tagged with the fields the tie-break needs.
type ruleMatch struct {
	effect   authzDomain.Effect
	priority int
	policyID string
	reason   string
}

// Evaluator combines policies per the platform's fixed algorithm:
// context denies short-circuit, then deny-effect rules, then permit-effect
// rules, then default deny. Deny beats permit; ties within an effect resolve
// by higher priority, then lexicographic policy id.
type Evaluator struct {
	riskMFAThreshold  int
	riskDenyThreshold int
}

// NewEvaluator creates an evaluator with the platform risk thresholds, used
// when a context policy does not carry its own.
func NewEvaluator(riskMFAThreshold, riskDenyThreshold int) *Evaluator {
	return &Evaluator{
		riskMFAThreshold:  riskMFAThreshold,
		riskDenyThreshold: riskDenyThreshold,
	}
}

// Evaluate runs the combination algorithm over the active policies. It never
// returns an error: an unreadable policy body denies (context) or is skipped
// (rule policies), since bodies are validated at write time.
func (e *Evaluator) Evaluate(policies []*authzDomain.Policy, req *authzDomain.DecisionRequest) *authzDomain.Decision {
	requiredAction := authzDomain.RequiredActionNone
	var matches []ruleMatch

	for _, policy := range sortPolicies(policies) {
		if !policy.Active {
			continue
		}

		switch policy.Type {
		case authzDomain.PolicyTypeContext:
			outcome := e.evaluateContext(policy, req)
			if outcome.deny {
				return &authzDomain.Decision{
					Effect:  authzDomain.EffectDeny,
					Reasons: outcome.reasons,
				}
			}
			requiredAction = strongerAction(requiredAction, outcome.requiredAction)

		case authzDomain.PolicyTypeRBAC:
			matches = append(matches, evaluateRBAC(policy, req)...)

		case authzDomain.PolicyTypeABAC:
			matches = append(matches, evaluateABAC(policy, req)...)

		case authzDomain.PolicyTypeHCL:
			matches = append(matches, evaluateHCL(policy, req)...)
		}
	}

	sortMatches(matches)

	for _, m := range matches {
		if m.effect == authzDomain.EffectDeny {
			return &authzDomain.Decision{
				Effect:  authzDomain.EffectDeny,
				Reasons: []string{m.reason},
			}
		}
	}

	if len(matches) > 0 {
		return &authzDomain.Decision{
			Effect:         authzDomain.EffectPermit,
			Reasons:        []string{matches[0].reason},
			RequiredAction: requiredAction,
		}
	}

	return &authzDomain.Decision{
		Effect:  authzDomain.EffectDeny,
		Reasons: []string{"no matching policy"},
	}
}

// evaluateContext parses and evaluates one context policy, failing closed on
// an unreadable body.
func (e *Evaluator) evaluateContext(policy *authzDomain.Policy, req *authzDomain.DecisionRequest) contextOutcome {
	doc, err := parseContextDocument(policy.Body)
	if err != nil {
		return contextOutcome{
			deny:    true,
			reasons: []string{fmt.Sprintf("context policy %q is unreadable", policy.ID)},
		}
	}
	return evaluateContextDocument(policy.ID, doc, req, e.riskMFAThreshold, e.riskDenyThreshold)
}

// ValidateBody checks that body parses as a policy of the given type. Called
// at write time so evaluation never sees a malformed body.
func ValidateBody(policyType authzDomain.PolicyType, body []byte) error {
	switch policyType {
	case authzDomain.PolicyTypeRBAC:
		_, err := parseRBACDocument(body)
		return err
	case authzDomain.PolicyTypeABAC:
		_, err := parseABACDocument(body)
		return err
	case authzDomain.PolicyTypeHCL:
		_, err := parseHCLDocument(body)
		return err
	case authzDomain.PolicyTypeContext:
		_, err := parseContextDocument(body)
		return err
	}
	return authzDomain.ErrPolicyTypeInvalid
}

// sortPolicies orders by higher priority then lexicographic id, so evaluation
// order is deterministic and context reasons are stable.
func sortPolicies(policies []*authzDomain.Policy) []*authzDomain.Policy {
	sorted := make([]*authzDomain.Policy, len(policies))
	copy(sorted, policies)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// sortMatches orders deny before permit, then higher priority, then
// lexicographic policy id.
func sortMatches(matches []ruleMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].effect != matches[j].effect {
			return matches[i].effect == authzDomain.EffectDeny
		}
		if matches[i].priority != matches[j].priority {
			return matches[i].priority > matches[j].priority
		}
		return matches[i].policyID < matches[j].policyID
	})
}

// strongerAction keeps the more demanding step-up requirement.
func strongerAction(a, b authzDomain.RequiredAction) authzDomain.RequiredAction {
	if a == authzDomain.RequiredActionApproval || b == authzDomain.RequiredActionApproval {
		return authzDomain.RequiredActionApproval
	}
	if a == authzDomain.RequiredActionMFA || b == authzDomain.RequiredActionMFA {
		return authzDomain.RequiredActionMFA
	}
	return authzDomain.RequiredActionNone
}
