// Package decision implements the one-time Pending to terminal transition:
// acceptance with per-course delivery fan-out, or rejection with a recorded
// reason.
package decision

import (
	"strings"

	"medleave/internal/leave"
	dErrors "medleave/pkg/domain-errors"
)

// minReasonLength is the shortest rejection reason accepted after trimming.
const minReasonLength = 10

// effectiveRange resolves the range an acceptance applies to: the reviewer's
// override when given, the submitted range otherwise. An override must be a
// valid range in its own right.
func effectiveRange(req *leave.LeaveRequest, overrideStart, overrideEnd string) (leave.DateRange, error) {
	if overrideStart == "" && overrideEnd == "" {
		return req.Range(), nil
	}
	if overrideStart == "" || overrideEnd == "" {
		return leave.DateRange{}, dErrors.NewReason(dErrors.CodeUnprocessable, leave.ReasonInvalidRange,
			"override requires both start and end dates")
	}
	rng, err := leave.NewDateRange(overrideStart, overrideEnd)
	if err != nil {
		return leave.DateRange{}, dErrors.NewReason(dErrors.CodeUnprocessable, leave.ReasonInvalidRange,
			"invalid override range: "+err.Error())
	}
	return rng, nil
}

// validateReason normalizes and checks a rejection reason. The trimmed form
// is what gets persisted.
func validateReason(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < minReasonLength {
		return "", dErrors.NewReason(dErrors.CodeBadRequest, leave.ReasonMissingReason,
			"rejection requires a reason of at least 10 characters")
	}
	return trimmed, nil
}

// hasHashedEvidence reports whether at least one evidence row carries a
// content hash. Acceptance without verifiable evidence is refused.
func hasHashedEvidence(evs []*leave.Evidence) bool {
	for _, ev := range evs {
		if ev.SHA256 != "" {
			return true
		}
	}
	return false
}
