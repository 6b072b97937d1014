// Package qualify scores ad-campaign leads against the campaign's customer
// batch before they enter generic allocation.
package qualify

import (
	"fmt"
	"strings"

	"leadrouter_backend/internal/allocation/repository"
)

// Component weights. Branch and territory carry the decision; capacity and
// required fields round out the score.
const (
	branchWeight    = 30
	territoryWeight = 30
	capacityWeight  = 20
	fieldsWeight    = 20
)

// Result is the outcome of scoring one lead against one batch.
type Result struct {
	Qualified bool
	Score     int
	Reasons   []string
}

// Scorer qualifies leads for a campaign batch.
type Scorer struct {
	keywords KeywordTable
}

// NewScorer creates a scorer. A nil table falls back to DefaultKeywords.
func NewScorer(keywords KeywordTable) *Scorer {
	if keywords == nil {
		keywords = DefaultKeywords
	}
	return &Scorer{keywords: keywords}
}

// Score evaluates a lead against the batch it was submitted for. A lead
// qualifies when branch, territory and capacity all pass; missing required
// fields lower the score but do not disqualify on their own.
func (s *Scorer) Score(lead repository.Lead, batch repository.CustomerBatch) Result {
	var result Result

	branch := s.branchMatches(lead.Category, batch.Category)
	if branch {
		result.Score += branchWeight
	} else {
		result.Reasons = append(result.Reasons, fmt.Sprintf("category %q does not match batch category %q", lead.Category, batch.Category))
	}

	territoryOK := false
	if lead.HasCoordinate() {
		match := batch.Territory.Match(*lead.Coordinate)
		territoryOK = match.Matches
	}
	if territoryOK {
		result.Score += territoryWeight
	} else {
		result.Reasons = append(result.Reasons, "lead location is outside the batch territory")
	}

	capacity := batch.IsActive && !batch.IsCompleted && batch.CurrentCount < batch.TotalCapacity
	if capacity {
		result.Score += capacityWeight
	} else {
		result.Reasons = append(result.Reasons, "batch has no remaining capacity")
	}

	if missing := missingFields(lead); len(missing) == 0 {
		result.Score += fieldsWeight
	} else {
		result.Reasons = append(result.Reasons, "missing fields: "+strings.Join(missing, ", "))
	}

	result.Qualified = branch && territoryOK && capacity
	return result
}

// branchMatches compares the lead's category to the batch's, mapping
// free-text values through the keyword table first.
func (s *Scorer) branchMatches(leadCategory, batchCategory string) bool {
	lc := strings.ToLower(strings.TrimSpace(leadCategory))
	bc := strings.ToLower(strings.TrimSpace(batchCategory))
	if lc == "" || bc == "" {
		return false
	}
	if lc == bc {
		return true
	}
	return s.keywords.Match(lc) == bc
}

// missingFields checks the completeness bar: a name, a usable contact method
// and a postal code.
func missingFields(lead repository.Lead) []string {
	var missing []string

	if strings.TrimSpace(lead.FirstName) == "" && strings.TrimSpace(lead.LastName) == "" {
		missing = append(missing, "name")
	}
	if !hasContact(lead) {
		missing = append(missing, "contact")
	}
	if strings.TrimSpace(lead.ZipCode) == "" {
		missing = append(missing, "postal code")
	}
	return missing
}

func hasContact(lead repository.Lead) bool {
	if strings.Contains(lead.Email, "@") {
		return true
	}
	digits := 0
	for _, r := range lead.Phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 8
}
