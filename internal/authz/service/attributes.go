package service

import (
	authzDomain "github.com/usphq/usp/internal/authz/domain"
)

// lookupAttribute resolves a dotted attribute reference against the request.
// Recognized prefixes are "subject.", "resource." and "environment."; a bare
// name defaults to the subject map. "subject.id" resolves to the subject id
// itself. A missing attribute returns false, which makes the condition that
// references it false rather than negatively true.
func lookupAttribute(req *authzDomain.DecisionRequest, name string) (any, bool) {
	const (
		subjectPrefix     = "subject."
		resourcePrefix    = "resource."
		environmentPrefix = "environment."
	)

	switch {
	case name == "subject.id":
		return req.SubjectID, true
	case len(name) > len(subjectPrefix) && name[:len(subjectPrefix)] == subjectPrefix:
		v, ok := req.SubjectAttributes[name[len(subjectPrefix):]]
		return v, ok
	case len(name) > len(resourcePrefix) && name[:len(resourcePrefix)] == resourcePrefix:
		v, ok := req.ResourceAttributes[name[len(resourcePrefix):]]
		return v, ok
	case len(name) > len(environmentPrefix) && name[:len(environmentPrefix)] == environmentPrefix:
		v, ok := req.EnvironmentAttributes[name[len(environmentPrefix):]]
		return v, ok
	}

	v, ok := req.SubjectAttributes[name]
	return v, ok
}

// attrString coerces an attribute value to a string.
func attrString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// attrNumber coerces an attribute value to a float64. JSON numbers decode as
// float64; native ints appear when the request was built in process.
func attrNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// attrBool coerces an attribute value to a bool.
func attrBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// attrStrings coerces an attribute value to a string slice, accepting both
// []string and the []any form JSON decoding produces.
func attrStrings(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	case string:
		return []string{s}
	}
	return nil
}
