// Package dto provides data transfer objects for the policy and decision API.
package dto

import (
	"encoding/json"

	validation "github.com/jellydator/validation"

	authzDomain "github.com/usphq/usp/internal/authz/domain"
)

// CreatePolicyRequest contains the parameters for creating a policy. The
// policy id comes from the URL; Active defaults to true when omitted.
type CreatePolicyRequest struct {
	Type     string          `json:"type"`
	Priority int             `json:"priority"`
	Active   *bool           `json:"active,omitempty"`
	Body     json.RawMessage `json:"body"`
}

// Validate checks if the create policy request is valid.
func (r *CreatePolicyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required, validation.By(validPolicyType)),
		validation.Field(&r.Body, validation.Required),
	)
}

// IsActive resolves the Active default.
func (r *CreatePolicyRequest) IsActive() bool {
	if r.Active == nil {
		return true
	}
	return *r.Active
}

func validPolicyType(value any) error {
	policyType, _ := value.(string)
	if !authzDomain.PolicyType(policyType).Valid() {
		return validation.NewError("validation_policy_type", "must be a supported policy type")
	}
	return nil
}

// UpdatePolicyRequest carries the mutable policy fields; omitted fields are
// left unchanged. The type is immutable.
type UpdatePolicyRequest struct {
	Priority *int            `json:"priority,omitempty"`
	Active   *bool           `json:"active,omitempty"`
	Body     json.RawMessage `json:"body,omitempty"`
}

// Validate checks if the update policy request carries at least one change.
func (r *UpdatePolicyRequest) Validate() error {
	if r.Priority == nil && r.Active == nil && r.Body == nil {
		return validation.Errors{
			"priority": validation.NewError("validation_empty_update", "at least one field must be provided"),
		}.Filter()
	}
	return nil
}

// CheckSubject identifies the subject of a decision request.
type CheckSubject struct {
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// CheckResource identifies the resource of a decision request.
type CheckResource struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// CheckRequest carries a full decision request for the check endpoint.
type CheckRequest struct {
	Subject     CheckSubject   `json:"subject"`
	Action      string         `json:"action"`
	Resource    CheckResource  `json:"resource"`
	Environment map[string]any `json:"environment,omitempty"`
}

// Validate checks if the check request is valid.
func (r *CheckRequest) Validate() error {
	return validation.Errors{
		"subject.id":    validation.Validate(r.Subject.ID, validation.Required),
		"action":        validation.Validate(r.Action, validation.Required),
		"resource.type": validation.Validate(r.Resource.Type, validation.Required),
	}.Filter()
}

// ToDecisionRequest maps the request onto the evaluator's attribute model.
func (r *CheckRequest) ToDecisionRequest() *authzDomain.DecisionRequest {
	subjectAttrs := r.Subject.Attributes
	if subjectAttrs == nil {
		subjectAttrs = map[string]any{}
	}
	resourceAttrs := r.Resource.Attributes
	if resourceAttrs == nil {
		resourceAttrs = map[string]any{}
	}
	environment := r.Environment
	if environment == nil {
		environment = map[string]any{}
	}

	return &authzDomain.DecisionRequest{
		SubjectID:             r.Subject.ID,
		SubjectAttributes:     subjectAttrs,
		Action:                r.Action,
		ResourceType:          r.Resource.Type,
		ResourceID:            r.Resource.ID,
		ResourceAttributes:    resourceAttrs,
		EnvironmentAttributes: environment,
	}
}
