package service

import (
	"encoding/json"
	"fmt"

	"github.com/ryanuber/go-glob"

	authzDomain "github.com/usphq/usp/internal/authz/domain"
	apperrors "github.com/usphq/usp/internal/errors"
)

// rbacDocument is the JSON body of an RBAC policy: roles mapped to
// `resource:action` permissions with glob wildcards. Effect defaults to
// permit; a deny-effect policy revokes the listed combinations.
type rbacDocument struct {
	Effect string              `json:"effect,omitempty"`
	Roles  map[string][]string `json:"roles"`
}

func parseRBACDocument(body []byte) (*rbacDocument, error) {
	var doc rbacDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, err.Error())
	}
	if doc.Effect == "" {
		doc.Effect = string(authzDomain.EffectPermit)
	}
	if doc.Effect != string(authzDomain.EffectPermit) && doc.Effect != string(authzDomain.EffectDeny) {
		return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, "effect must be permit or deny")
	}
	if len(doc.Roles) == 0 {
		return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, "roles cannot be empty")
	}
	for role, permissions := range doc.Roles {
		if role == "" {
			return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, "role name cannot be empty")
		}
		if len(permissions) == 0 {
			return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, "role permissions cannot be empty")
		}
	}
	return &doc, nil
}

// evaluateRBAC matches the subject's roles against the policy's permission
// grants. The permission target is `resource_type:action`.
func evaluateRBAC(policy *authzDomain.Policy, req *authzDomain.DecisionRequest) []ruleMatch {
	doc, err := parseRBACDocument(policy.Body)
	if err != nil {
		return nil
	}

	target := req.ResourceType + ":" + req.Action
	subjectRoles := attrStrings(req.SubjectAttributes["roles"])

	var matches []ruleMatch
	for _, role := range subjectRoles {
		permissions, ok := doc.Roles[role]
		if !ok {
			continue
		}
		for _, permission := range permissions {
			if glob.Glob(permission, target) {
				matches = append(matches, ruleMatch{
					effect:   authzDomain.Effect(doc.Effect),
					priority: policy.Priority,
					policyID: policy.ID,
					reason:   fmt.Sprintf("rbac policy %q: role %q matches %q", policy.ID, role, permission),
				})
			}
		}
	}
	return matches
}
