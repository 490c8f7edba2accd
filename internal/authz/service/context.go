package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	authzDomain "github.com/usphq/usp/internal/authz/domain"
	apperrors "github.com/usphq/usp/internal/errors"
)

// contextOutcome is the verdict of one context policy: a deny short-circuits
// the whole evaluation, a step-up requirement annotates a later permit.
type contextOutcome struct {
	deny           bool
	reasons        []string
	requiredAction authzDomain.RequiredAction
}

// contextTimeWindow is one allowed window: days of week plus a local-time
// interval. An interval with start after end wraps past midnight.
type contextTimeWindow struct {
	Days  []string `json:"days"`
	Start string   `json:"start"`
	End   string   `json:"end"`
}

// contextAllowDeny is an allow/deny pair of value lists. Deny wins; a
// non-empty allow list requires membership.
type contextAllowDeny struct {
	Allow []string `json:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty"`
}

// contextRisk overrides the platform risk thresholds for this policy.
type contextRisk struct {
	MFAThreshold  *int `json:"mfa_threshold,omitempty"`
	DenyThreshold *int `json:"deny_threshold,omitempty"`
}

// contextDocument is the JSON body of a context policy.
type contextDocument struct {
	TimeWindows             []contextTimeWindow `json:"time_windows,omitempty"`
	Geo                     *contextAllowDeny   `json:"geo,omitempty"`
	Network                 *contextAllowDeny   `json:"network,omitempty"`
	RequireDeviceCompliance bool                `json:"require_device_compliance,omitempty"`
	RequireApproval         bool                `json:"require_approval,omitempty"`
	Risk                    *contextRisk        `json:"risk,omitempty"`
	ImpossibleTravel        bool                `json:"impossible_travel,omitempty"`
}

var validDays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

func parseContextDocument(body []byte) (*contextDocument, error) {
	var doc contextDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, err.Error())
	}
	for i, window := range doc.TimeWindows {
		if len(window.Days) == 0 {
			return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, fmt.Sprintf("time window %d: days cannot be empty", i))
		}
		for _, day := range window.Days {
			if _, ok := validDays[strings.ToLower(day)]; !ok {
				return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, fmt.Sprintf("time window %d: unknown day %q", i, day))
			}
		}
		if _, err := time.Parse("15:04", window.Start); err != nil {
			return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, fmt.Sprintf("time window %d: invalid start %q", i, window.Start))
		}
		if _, err := time.Parse("15:04", window.End); err != nil {
			return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, fmt.Sprintf("time window %d: invalid end %q", i, window.End))
		}
	}
	if doc.Risk != nil {
		for _, threshold := range []*int{doc.Risk.MFAThreshold, doc.Risk.DenyThreshold} {
			if threshold != nil && (*threshold < 0 || *threshold > 100) {
				return nil, apperrors.Wrap(authzDomain.ErrPolicyBodyInvalid, "risk thresholds must be between 0 and 100")
			}
		}
	}
	return &doc, nil
}

// evaluateContextDocument checks every environmental constraint. Constraints
// on absent attributes fail closed when the policy names an allow list or a
// hard requirement, since absence cannot prove compliance.
func evaluateContextDocument(
	policyID string,
	doc *contextDocument,
	req *authzDomain.DecisionRequest,
	defaultMFAThreshold, defaultDenyThreshold int,
) contextOutcome {
	outcome := contextOutcome{requiredAction: authzDomain.RequiredActionNone}
	deny := func(reason string) {
		outcome.deny = true
		outcome.reasons = append(outcome.reasons, fmt.Sprintf("context policy %q: %s", policyID, reason))
	}

	if len(doc.TimeWindows) > 0 && !withinAnyWindow(doc.TimeWindows, requestTime(req)) {
		deny("outside allowed time window")
	}

	if doc.Geo != nil {
		checkAllowDeny(doc.Geo, req, "geo", "country", deny)
	}
	if doc.Network != nil {
		checkAllowDeny(doc.Network, req, "network_zone", "network zone", deny)
	}

	if doc.RequireDeviceCompliance {
		compliant, ok := attrBool(req.EnvironmentAttributes["device_compliant"])
		if !ok || !compliant {
			deny("device compliance required")
		}
	}

	if doc.ImpossibleTravel {
		if flagged, ok := attrBool(req.EnvironmentAttributes["impossible_travel"]); ok && flagged {
			deny("impossible travel detected")
		}
	}

	mfaThreshold, denyThreshold := defaultMFAThreshold, defaultDenyThreshold
	if doc.Risk != nil {
		if doc.Risk.MFAThreshold != nil {
			mfaThreshold = *doc.Risk.MFAThreshold
		}
		if doc.Risk.DenyThreshold != nil {
			denyThreshold = *doc.Risk.DenyThreshold
		}
	}
	if score, ok := attrNumber(req.EnvironmentAttributes["risk_score"]); ok {
		switch {
		case score >= float64(denyThreshold):
			deny(fmt.Sprintf("risk score %.0f above critical threshold", score))
		case score >= float64(mfaThreshold):
			outcome.requiredAction = strongerAction(outcome.requiredAction, authzDomain.RequiredActionMFA)
		}
	}

	if doc.RequireApproval {
		outcome.requiredAction = strongerAction(outcome.requiredAction, authzDomain.RequiredActionApproval)
	}

	return outcome
}

// requestTime reads the evaluation instant from the environment ("now",
// RFC3339) so decisions are reproducible, falling back to the wall clock.
func requestTime(req *authzDomain.DecisionRequest) time.Time {
	if raw, ok := attrString(req.EnvironmentAttributes["now"]); ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func withinAnyWindow(windows []contextTimeWindow, now time.Time) bool {
	for _, window := range windows {
		if windowContains(window, now) {
			return true
		}
	}
	return false
}

func windowContains(window contextTimeWindow, now time.Time) bool {
	dayMatches := false
	for _, day := range window.Days {
		if weekday, ok := validDays[strings.ToLower(day)]; ok && weekday == now.Weekday() {
			dayMatches = true
			break
		}
	}
	if !dayMatches {
		return false
	}

	minutes := now.Hour()*60 + now.Minute()
	start := parseMinutes(window.Start)
	end := parseMinutes(window.End)
	if start <= end {
		return minutes >= start && minutes <= end
	}
	// Wraps past midnight.
	return minutes >= start || minutes <= end
}

func parseMinutes(clock string) int {
	t, _ := time.Parse("15:04", clock)
	return t.Hour()*60 + t.Minute()
}

// checkAllowDeny applies a deny list then an allow list to one environment
// attribute. A missing attribute with a non-empty allow list denies.
func checkAllowDeny(
	lists *contextAllowDeny,
	req *authzDomain.DecisionRequest,
	attribute, label string,
	deny func(string),
) {
	value, ok := attrString(req.EnvironmentAttributes[attribute])
	if !ok {
		if len(lists.Allow) > 0 {
			deny(fmt.Sprintf("%s unknown but an allow list is configured", label))
		}
		return
	}
	for _, denied := range lists.Deny {
		if strings.EqualFold(value, denied) {
			deny(fmt.Sprintf("%s %q is denied", label, value))
			return
		}
	}
	if len(lists.Allow) > 0 {
		for _, allowed := range lists.Allow {
			if strings.EqualFold(value, allowed) {
				return
			}
		}
		deny(fmt.Sprintf("%s %q is not in the allow list", label, value))
	}
}
