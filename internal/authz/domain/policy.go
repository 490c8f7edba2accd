// Package domain defines the authorization entities: stored policies and the
// decision request/response pair the evaluator operates on.
package domain

import (
	"regexp"
	"time"
)

// PolicyType selects the evaluation engine a policy body is written for.
type PolicyType string

const (
	// PolicyTypeRBAC maps roles to resource:action permissions.
	PolicyTypeRBAC PolicyType = "rbac"
	// PolicyTypeABAC holds JSON rules with attribute conditions.
	PolicyTypeABAC PolicyType = "abac"
	// PolicyTypeHCL holds path-capability bodies in HCL.
	PolicyTypeHCL PolicyType = "hcl"
	// PolicyTypeContext holds environmental constraints: time, geo, network,
	// device, risk.
	PolicyTypeContext PolicyType = "context"
)

// PolicyTypes lists every supported policy type.
var PolicyTypes = []PolicyType{PolicyTypeRBAC, PolicyTypeABAC, PolicyTypeHCL, PolicyTypeContext}

// Valid reports whether the policy type is supported.
func (t PolicyType) Valid() bool {
	switch t {
	case PolicyTypeRBAC, PolicyTypeABAC, PolicyTypeHCL, PolicyTypeContext:
		return true
	}
	return false
}

// MaxPolicyBodySize caps policy bodies at 16KB.
const MaxPolicyBodySize = 16 * 1024

// MaxPolicyIDLength caps policy identifiers.
const MaxPolicyIDLength = 128

var policyIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidPolicyID reports whether id is usable as a policy identifier: leading
// alphanumeric, then alphanumerics, dots, underscores and hyphens.
func ValidPolicyID(id string) bool {
	if id == "" || len(id) > MaxPolicyIDLength {
		return false
	}
	return policyIDPattern.MatchString(id)
}

// Policy is one stored authorization policy. ID is the caller-chosen
// identifier and the lexicographic tie-breaker between rules of equal
// priority. Body is the raw policy source: JSON for rbac/abac/context, HCL
// for hcl.
type Policy struct {
	ID        string
	Type      PolicyType
	Priority  int
	Active    bool
	Body      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}
