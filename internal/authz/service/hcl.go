package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-secure-stdlib/strutil"
	"github.com/hashicorp/hcl"

	authzDomain "github.com/usphq/usp/internal/authz/domain"
	apperrors "github.com/usphq/usp/internal/errors"
)

// hclPathRules is the body of one `path "<pattern>" { ... }` block.
type hclPathRules struct {
	Capabilities       []string `hcl:"capabilities"`
	RequiredParameters []string `hcl:"required_parameters"`
}

// hclDocument is a decoded path-capability policy.
type hclDocument struct {
	Path map[string][]hclPathRules `hcl:"path"`
}

var hclCapabilities = map[string]bool{
	"create": true, "read": true, "update": true,
	"delete": true, "list": true, "sudo": true, "deny": true,
}

// templatePattern matches ${subject.<field>} placeholders in path patterns.
var templatePattern = regexp.MustCompile(`\$\{subject\.([a-zA-Z0-9_]+)\}`)

func parseHCLDocument(body []byte) (*hclDocument, error) {
	var doc hclDocument
	if err := hcl.Decode(&doc, string(body)); err != nil {
		return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, err.Error())
	}
	if len(doc.Path) == 0 {
		return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, "policy must define at least one path block")
	}
	for pattern, blocks := range doc.Path {
		if pattern == "" {
			return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, "path pattern cannot be empty")
		}
		for _, block := range blocks {
			if len(block.Capabilities) == 0 {
				return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, fmt.Sprintf("path %q: capabilities cannot be empty", pattern))
			}
			for _, capability := range block.Capabilities {
				if !hclCapabilities[capability] {
					return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, fmt.Sprintf("path %q: unknown capability %q", pattern, capability))
				}
			}
		}
	}
	return &doc, nil
}

// evaluateHCL matches the request path against every path block. A block with
// the deny capability produces a deny match regardless of action; otherwise
// the action must be one of the capabilities (sudo covers all) and every
// required parameter must be present on the request.
func evaluateHCL(policy *authzDomain.Policy, req *authzDomain.DecisionRequest) []ruleMatch {
	doc, err := parseHCLDocument(policy.Body)
	if err != nil {
		return nil
	}

	requestPath := req.ResourcePath()

	var matches []ruleMatch
	for pattern, blocks := range doc.Path {
		resolved, ok := resolvePathTemplate(pattern, req)
		if !ok || !matchPath(resolved, requestPath) {
			continue
		}
		for _, block := range blocks {
			if strutil.StrListContains(block.Capabilities, "deny") {
				matches = append(matches, ruleMatch{
					effect:   authzDomain.EffectDeny,
					priority: policy.Priority,
					policyID: policy.ID,
					reason:   fmt.Sprintf("hcl policy %q: path %q denies", policy.ID, pattern),
				})
				continue
			}
			if !capabilityCovers(block.Capabilities, req.Action) {
				continue
			}
			if !parametersPresent(block.RequiredParameters, req.ResourceAttributes) {
				continue
			}
			matches = append(matches, ruleMatch{
				effect:   authzDomain.EffectPermit,
				priority: policy.Priority,
				policyID: policy.ID,
				reason:   fmt.Sprintf("hcl policy %q: path %q grants %q", policy.ID, pattern, req.Action),
			})
		}
	}
	return matches
}

// resolvePathTemplate substitutes ${subject.<field>} placeholders. A
// placeholder naming a missing or non-string attribute makes the whole
// pattern unmatched rather than matching literally.
func resolvePathTemplate(pattern string, req *authzDomain.DecisionRequest) (string, bool) {
	missing := false
	resolved := templatePattern.ReplaceAllStringFunc(pattern, func(placeholder string) string {
		field := templatePattern.FindStringSubmatch(placeholder)[1]
		value, ok := lookupAttribute(req, "subject."+field)
		if !ok {
			missing = true
			return placeholder
		}
		s, ok := attrString(value)
		if !ok {
			missing = true
			return placeholder
		}
		return s
	})
	if missing {
		return "", false
	}
	return resolved, true
}

// matchPath matches a slash path against a pattern where `*` matches exactly
// one segment and `+` matches any run of one or more segments.
func matchPath(pattern, path string) bool {
	return matchSegments(strings.Split(pattern, "/"), strings.Split(path, "/"))
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) == 0 {
		return len(path) == 0
	}
	if pattern[0] == "+" {
		for skip := 1; skip <= len(path); skip++ {
			if matchSegments(pattern[1:], path[skip:]) {
				return true
			}
		}
		return false
	}
	if len(path) == 0 {
		return false
	}
	if pattern[0] == "*" || pattern[0] == path[0] {
		return matchSegments(pattern[1:], path[1:])
	}
	return false
}

// capabilityCovers reports whether the action is granted; sudo grants every
// action.
func capabilityCovers(capabilities []string, action string) bool {
	return strutil.StrListContains(capabilities, action) || strutil.StrListContains(capabilities, "sudo")
}

func parametersPresent(required []string, attributes map[string]any) bool {
	for _, parameter := range required {
		if _, ok := attributes[parameter]; !ok {
			return false
		}
	}
	return true
}
