package service

import (
	"encoding/json"
	"fmt"
	"strings"

	sockaddr "github.com/hashicorp/go-sockaddr"
	"github.com/ryanuber/go-glob"

	authzDomain "github.com/usphq/usp/internal/authz/domain"
	apperrors "github.com/usphq/usp/internal/errors"
)

// abacCondition is one attribute test. The attribute name is the map key in
// the rule; Op selects the comparison and Value its right-hand side.
type abacCondition struct {
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// abacRule is one JSON rule: effect plus action/resource globs plus zero or
// more conditions that must all hold.
type abacRule struct {
	Effect     string                   `json:"effect"`
	Action     string                   `json:"action"`
	Resource   string                   `json:"resource"`
	Conditions map[string]abacCondition `json:"conditions,omitempty"`
}

type abacDocument struct {
	Rules []abacRule `json:"rules"`
}

var abacOperators = map[string]bool{
	"eq": true, "ne": true, "in": true,
	"gt": true, "ge": true, "lt": true, "le": true,
	"contains": true, "cidr-in": true,
}

func parseABACDocument(body []byte) (*abacDocument, error) {
	var doc abacDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, err.Error())
	}
	if len(doc.Rules) == 0 {
		return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, "rules cannot be empty")
	}
	for i, rule := range doc.Rules {
		if rule.Effect != string(authzDomain.EffectPermit) && rule.Effect != string(authzDomain.EffectDeny) {
			return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, fmt.Sprintf("rule %d: effect must be permit or deny", i))
		}
		if rule.Action == "" || rule.Resource == "" {
			return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, fmt.Sprintf("rule %d: action and resource are required", i))
		}
		for attr, condition := range rule.Conditions {
			if attr == "" {
				return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, fmt.Sprintf("rule %d: condition attribute cannot be empty", i))
			}
			if !abacOperators[condition.Op] {
				return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, fmt.Sprintf("rule %d: unknown operator %q", i, condition.Op))
			}
			if condition.Op == "cidr-in" {
				for _, cidr := range conditionValueStrings(condition.Value) {
					if _, err := sockaddr.NewSockAddr(cidr); err != nil {
						return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, fmt.Sprintf("rule %d: invalid cidr %q", i, cidr))
					}
				}
			}
		}
	}
	return &doc, nil
}

// evaluateABAC matches every rule whose action/resource globs hit and whose
// conditions all hold. A condition on a missing attribute is false.
func evaluateABAC(policy *authzDomain.Policy, req *authzDomain.DecisionRequest) []ruleMatch {
	doc, err := parseABACDocument(policy.Body)
	if err != nil {
		return nil
	}

	resourcePath := req.ResourcePath()

	var matches []ruleMatch
	for _, rule := range doc.Rules {
		if !glob.Glob(rule.Action, req.Action) || !glob.Glob(rule.Resource, resourcePath) {
			continue
		}
		if !conditionsHold(rule.Conditions, req) {
			continue
		}
		matches = append(matches, ruleMatch{
			effect:   authzDomain.Effect(rule.Effect),
			priority: policy.Priority,
			policyID: policy.ID,
			reason:   fmt.Sprintf("abac policy %q: %s rule for %s on %s", policy.ID, rule.Effect, rule.Action, rule.Resource),
		})
	}
	return matches
}

func conditionsHold(conditions map[string]abacCondition, req *authzDomain.DecisionRequest) bool {
	for attr, condition := range conditions {
		value, ok := lookupAttribute(req, attr)
		if !ok {
			return false
		}
		if !conditionHolds(condition, value) {
			return false
		}
	}
	return true
}

func conditionHolds(condition abacCondition, value any) bool {
	switch condition.Op {
	case "eq":
		return valuesEqual(value, condition.Value)

	case "ne":
		return !valuesEqual(value, condition.Value)

	case "in":
		for _, candidate := range conditionValueList(condition.Value) {
			if valuesEqual(value, candidate) {
				return true
			}
		}
		return false

	case "gt", "ge", "lt", "le":
		left, okLeft := attrNumber(value)
		right, okRight := attrNumber(condition.Value)
		if !okLeft || !okRight {
			return false
		}
		switch condition.Op {
		case "gt":
			return left > right
		case "ge":
			return left >= right
		case "lt":
			return left < right
		default:
			return left <= right
		}

	case "contains":
		if s, ok := attrString(value); ok {
			want, ok := attrString(condition.Value)
			return ok && strings.Contains(s, want)
		}
		for _, item := range conditionValueList(value) {
			if valuesEqual(item, condition.Value) {
				return true
			}
		}
		return false

	case "cidr-in":
		ip, ok := attrString(value)
		if !ok {
			return false
		}
		ipAddr, err := sockaddr.NewSockAddr(ip)
		if err != nil {
			return false
		}
		for _, cidr := range conditionValueStrings(condition.Value) {
			cidrAddr, err := sockaddr.NewSockAddr(cidr)
			if err != nil {
				continue
			}
			if cidrAddr.Contains(ipAddr) {
				return true
			}
		}
		return false
	}
	return false
}

// valuesEqual compares numerically when both sides are numbers, otherwise by
// direct equality. This makes 5 and 5.0 equal regardless of how the request
// was decoded.
func valuesEqual(a, b any) bool {
	if an, ok := attrNumber(a); ok {
		if bn, ok := attrNumber(b); ok {
			return an == bn
		}
		return false
	}
	return a == b
}

func conditionValueList(v any) []any {
	switch list := v.(type) {
	case []any:
		return list
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out
	}
	return nil
}

func conditionValueStrings(v any) []string {
	if s, ok := v.(string); ok {
		return []string{s}
	}
	return attrStrings(v)
}
