package domain

import "time"

type Review struct {
	ID            int64 // 0 until persisted
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PosID         int64
	AuthorID      int64
	Pos           *Pos  // resolved lazily, may be nil
	Author        *User // resolved lazily, may be nil
	Text          string
	ApprovalCount int
	Approved      bool // derived from ApprovalCount, see WithApprovalCount
}

func (r Review) GetID() int64 { return r.ID }
func (r Review) IsNew() bool  { return r.ID == 0 }

// WithApprovalCount returns a copy carrying count and the approval flag derived
// from it. Approved is never taken from anywhere else.
func (r Review) WithApprovalCount(count, minApprovals int) Review {
	if count < 0 {
		count = 0
	}
	r.ApprovalCount = count
	r.Approved = IsApproved(count, minApprovals)
	return r
}

// IsApproved reports whether count meets the approval threshold.
func IsApproved(count, minApprovals int) bool {
	return count >= minApprovals
}
