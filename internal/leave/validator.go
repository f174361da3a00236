package leave

import (
	id "medleave/pkg/domain"
	dErrors "medleave/pkg/domain-errors"
)

// Reason tokens surfaced verbatim to clients on business-rule conflicts.
const (
	ReasonOverlappingDates  = "overlapping_dates"
	ReasonDuplicateEvidence = "duplicate_evidence"
	ReasonIllegalTransition = "illegal_transition"
	ReasonMissingEvidence   = "missing_evidence"
	ReasonInvalidRange      = "invalid_range"
	ReasonOverlap           = "overlap"
	ReasonMissingReason     = "missing_reason"
)

// CheckNoOverlap rejects a requested range that shares any day with one of
// the student's existing active requests. Pure; callers run it inside the
// same transaction scope as the subsequent insert.
func CheckNoOverlap(requested DateRange, existing []*LeaveRequest) error {
	for _, other := range existing {
		if requested.Overlaps(other.Range()) {
			return dErrors.NewReason(dErrors.CodeConflict, ReasonOverlappingDates,
				"requested range overlaps request "+other.ID.String())
		}
	}
	return nil
}

// CheckNoOverlapExcluding is the re-validation rule at decision time: the
// effective range is checked against the student's other Accepted requests
// only, excluding the request being decided.
func CheckNoOverlapExcluding(requested DateRange, existing []*LeaveRequest, self id.RequestID) error {
	for _, other := range existing {
		if other.ID == self {
			continue
		}
		if requested.Overlaps(other.Range()) {
			return dErrors.NewReason(dErrors.CodeUnprocessable, ReasonOverlap,
				"effective range overlaps accepted request "+other.ID.String())
		}
	}
	return nil
}

// DuplicateEvidenceError builds the conflict returned when a student submits
// a document they already own, referencing the prior request.
func DuplicateEvidenceError(existing *Evidence) error {
	return dErrors.NewReason(dErrors.CodeConflict, ReasonDuplicateEvidence,
		"identical evidence already submitted with request "+existing.RequestID.String())
}
