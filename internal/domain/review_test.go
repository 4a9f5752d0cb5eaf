package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"campus_coffee/internal/domain"
)

func TestWithApprovalCount(t *testing.T) {
	cases := []struct {
		name     string
		in       domain.Review
		count    int
		min      int
		want     int
		approved bool
	}{
		{"below threshold", domain.Review{}, 2, 3, 2, false},
		{"at threshold", domain.Review{}, 3, 3, 3, true},
		{"above threshold", domain.Review{}, 7, 3, 7, true},
		{"stale flag is overwritten", domain.Review{Approved: true}, 0, 3, 0, false},
		{"negative count clamps to zero", domain.Review{}, -4, 1, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.WithApprovalCount(tc.count, tc.min)
			assert.Equal(t, tc.want, got.ApprovalCount)
			assert.Equal(t, tc.approved, got.Approved)
		})
	}
}

func TestErrorTaxonomy(t *testing.T) {
	assert.True(t, errors.Is(domain.ErrDuplicateReview, domain.ErrValidation))
	assert.True(t, errors.Is(domain.ErrSelfApproval, domain.ErrValidation))
	assert.False(t, errors.Is(domain.ErrSelfApproval, domain.ErrNotFound))

	err := domain.NotFound(domain.KindReview, 12)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "review 12: not found", err.Error())

	assert.ErrorIs(t, domain.Invalid("text must not be empty"), domain.ErrValidation)
}

func TestIsNew(t *testing.T) {
	assert.True(t, domain.Review{}.IsNew())
	assert.False(t, domain.Review{ID: 1}.IsNew())
	assert.True(t, domain.User{}.IsNew())
	assert.False(t, domain.Pos{ID: 3}.IsNew())
}
