// Package tally derives the outcome of an initiative from its recorded votes.
package tally

import (
	"math"

	"github.com/portalautarca/portal/internal/model"
)

const (
	StatusPending   = "pending"
	StatusUnanimous = "unanimous"
	StatusMajority  = "majority"
	StatusRejected  = "rejected"
)

type Result struct {
	Status    string `json:"status"`
	Label     string `json:"label"`
	ClassName string `json:"className"`
}

type Stats struct {
	Favor             int `json:"favor"`
	Against           int `json:"against"`
	Abstention        int `json:"abstention"`
	Total             int `json:"total"`
	FavorPercent      int `json:"favorPercentage"`
	AgainstPercent    int `json:"againstPercentage"`
	AbstentionPercent int `json:"abstentionPercentage"`
}

var results = map[string]Result{
	StatusPending:   {StatusPending, "Em votação", "bg-yellow-100 text-yellow-800"},
	StatusUnanimous: {StatusUnanimous, "Aprovada por unanimidade", "bg-green-100 text-green-800"},
	StatusMajority:  {StatusMajority, "Aprovada por maioria", "bg-blue-100 text-blue-800"},
	StatusRejected:  {StatusRejected, "Rejeitada", "bg-red-100 text-red-800"},
}

// Tally classifies a vote list. Abstentions count towards the total, so a
// majority needs strictly more than half of all votes cast in favour.
func Tally(votes []*model.Vote) Result {
	if len(votes) == 0 {
		return results[StatusPending]
	}

	favor := 0
	for _, v := range votes {
		if v.Vote == model.VoteFavor {
			favor++
		}
	}

	switch {
	case favor == len(votes):
		return results[StatusUnanimous]
	case favor*2 > len(votes):
		return results[StatusMajority]
	default:
		return results[StatusRejected]
	}
}

// Statistics counts votes per kind. Percentages are rounded independently
// and may not add up to 100.
func Statistics(votes []*model.Vote) Stats {
	var s Stats
	for _, v := range votes {
		switch v.Vote {
		case model.VoteFavor:
			s.Favor++
		case model.VoteAgainst:
			s.Against++
		case model.VoteAbstention:
			s.Abstention++
		}
	}
	s.Total = len(votes)

	s.FavorPercent = percent(s.Favor, s.Total)
	s.AgainstPercent = percent(s.Against, s.Total)
	s.AbstentionPercent = percent(s.Abstention, s.Total)
	return s
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) * 100 / float64(total)))
}
