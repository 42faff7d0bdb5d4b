package model

import (
	"time"
)

const (
	VoteFavor      = "favor"
	VoteAgainst    = "against"
	VoteAbstention = "abstention"
)

type Vote struct {
	ID           int64     `db:"id" json:"id"`
	InitiativeID int64     `db:"initiative_id" json:"initiative_id"`
	VoterName    string    `db:"voter_name" json:"voter_name"`
	Vote         string    `db:"vote" json:"vote"`
	Notes        *string   `db:"notes" json:"notes"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

func ValidVote(v string) bool {
	return v == VoteFavor || v == VoteAgainst || v == VoteAbstention
}
