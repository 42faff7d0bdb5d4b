package model

import (
	"time"
)

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

const (
	ProposalTypeProposal  = "proposal"
	ProposalTypeAmendment = "amendment"
)

const (
	MeetingTypePublic        = "public"
	MeetingTypePrivate       = "private"
	MeetingTypeExtraordinary = "extraordinary"
)

type Initiative struct {
	ID             int64      `db:"id" json:"id"`
	Title          string     `db:"title" json:"title"`
	Description    string     `db:"description" json:"description"`
	Content        string     `db:"content" json:"content"`
	ParishID       int64      `db:"parish_id" json:"parish_id"`
	Status         string     `db:"status" json:"status"`
	SubmissionDate *time.Time `db:"submission_date" json:"submission_date"`
	VoteDate       *time.Time `db:"vote_date" json:"vote_date"`
	CreatedBy      int64      `db:"created_by" json:"created_by"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
	ProposalNumber *string    `db:"proposal_number" json:"proposal_number"`
	ProposalType   *string    `db:"proposal_type" json:"proposal_type"`
	MeetingNumber  *string    `db:"meeting_number" json:"meeting_number"`
	MeetingDate    *string    `db:"meeting_date" json:"meeting_date"` // YYYY-MM-DD
	MeetingType    *string    `db:"meeting_type" json:"meeting_type"`
	MeetingNotes   *string    `db:"meeting_notes" json:"meeting_notes"`
	ProposalLink   *string    `db:"proposal_link" json:"proposal_link"`
	CoverImage     *string    `db:"cover_image" json:"cover_image"`

	// Joined columns
	ParishName     string  `db:"parish_name" json:"parish_name"`
	ParishCode     string  `db:"parish_code" json:"parish_code"`
	CreatedByEmail *string `db:"created_by_email" json:"created_by_email,omitempty"`

	// Loaded separately
	Tags      []*Tag      `db:"-" json:"tags"`
	Votes     []*Vote     `db:"-" json:"votes,omitempty"`
	Documents []*Document `db:"-" json:"documents,omitempty"`
}

func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// LeavesDraft reports whether moving from one status to another is the
// first transition out of draft, which stamps the submission date.
func LeavesDraft(from, to string) bool {
	return from == StatusDraft && (to == StatusSubmitted || to == StatusApproved)
}
