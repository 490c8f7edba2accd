package dto

import (
	"encoding/json"
	"time"

	authzDomain "github.com/usphq/usp/internal/authz/domain"
)

// PolicyResponse represents one stored policy.
type PolicyResponse struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Priority  int             `json:"priority"`
	Active    bool            `json:"active"`
	Body      json.RawMessage `json:"body"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ListPoliciesResponse holds every policy ordered by id.
type ListPoliciesResponse struct {
	Policies []PolicyResponse `json:"policies"`
}

// DecisionResponse is the verdict for one check request.
type DecisionResponse struct {
	Effect         string   `json:"effect"`
	Reasons        []string `json:"reasons"`
	RequiredAction string   `json:"required_action,omitempty"`
}

// MapPolicyToResponse maps a policy.
func MapPolicyToResponse(policy *authzDomain.Policy) *PolicyResponse {
	return &PolicyResponse{
		ID:        policy.ID,
		Type:      string(policy.Type),
		Priority:  policy.Priority,
		Active:    policy.Active,
		Body:      json.RawMessage(policy.Body),
		CreatedAt: policy.CreatedAt,
		UpdatedAt: policy.UpdatedAt,
	}
}

// MapPoliciesToResponse maps a policy list.
func MapPoliciesToResponse(policies []*authzDomain.Policy) *ListPoliciesResponse {
	out := &ListPoliciesResponse{Policies: make([]PolicyResponse, 0, len(policies))}
	for _, p := range policies {
		out.Policies = append(out.Policies, *MapPolicyToResponse(p))
	}
	return out
}

// MapDecisionToResponse maps an evaluation verdict.
func MapDecisionToResponse(decision *authzDomain.Decision) *DecisionResponse {
	return &DecisionResponse{
		Effect:         string(decision.Effect),
		Reasons:        decision.Reasons,
		RequiredAction: string(decision.RequiredAction),
	}
}
