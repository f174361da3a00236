package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medleave/internal/leave"
	id "medleave/pkg/domain"
	dErrors "medleave/pkg/domain-errors"
)

func TestEffectiveRange(t *testing.T) {
	req := &leave.LeaveRequest{
		ID:        id.NewRequestID(),
		StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
	}

	t.Run("no override keeps the submitted range", func(t *testing.T) {
		rng, err := effectiveRange(req, "", "")
		require.NoError(t, err)
		assert.Equal(t, req.Range(), rng)
	})

	t.Run("override replaces the range", func(t *testing.T) {
		rng, err := effectiveRange(req, "2025-03-02", "2025-03-04")
		require.NoError(t, err)
		assert.Equal(t, "2025-03-02", leave.FormatDate(rng.Start))
		assert.Equal(t, "2025-03-04", leave.FormatDate(rng.End))
	})

	t.Run("half an override is rejected", func(t *testing.T) {
		_, err := effectiveRange(req, "2025-03-02", "")
		require.Error(t, err)
		assert.Equal(t, leave.ReasonInvalidRange, dErrors.ReasonOf(err))
	})

	t.Run("inverted override is rejected", func(t *testing.T) {
		_, err := effectiveRange(req, "2025-03-04", "2025-03-02")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnprocessable))
		assert.Equal(t, leave.ReasonInvalidRange, dErrors.ReasonOf(err))
	})

	t.Run("override over ninety days is rejected", func(t *testing.T) {
		_, err := effectiveRange(req, "2025-01-01", "2025-06-01")
		require.Error(t, err)
		assert.Equal(t, leave.ReasonInvalidRange, dErrors.ReasonOf(err))
	})
}

func TestValidateReason(t *testing.T) {
	t.Run("trims and keeps a sufficient reason", func(t *testing.T) {
		reason, err := validateReason("  certificate is not legible  ")
		require.NoError(t, err)
		assert.Equal(t, "certificate is not legible", reason)
	})

	for name, raw := range map[string]string{
		"empty":                "",
		"whitespace only":      "   \t  ",
		"short after trimming": "  too bad  ",
		"nine characters":      "nine char",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := validateReason(raw)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
			assert.Equal(t, leave.ReasonMissingReason, dErrors.ReasonOf(err))
		})
	}
}

func TestHasHashedEvidence(t *testing.T) {
	assert.False(t, hasHashedEvidence(nil))
	assert.False(t, hasHashedEvidence([]*leave.Evidence{{SHA256: ""}}))
	assert.True(t, hasHashedEvidence([]*leave.Evidence{{SHA256: ""}, {SHA256: "abc123"}}))
}
