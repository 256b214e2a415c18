package service

import "certo/internal/model"

// IsEligible reports whether p may take part in survey. Every requirement tag
// must be satisfied; a survey without requirements admits everyone. Segmentation
// tags play no part here. A nil participant holds no credentials.
func IsEligible(survey *model.Survey, p *model.Participant) bool {
	return len(MissingRequirements(survey, p)) == 0
}

// MissingRequirements lists the requirement tags p does not satisfy, in survey order.
// Unrecognised tags can never be satisfied.
func MissingRequirements(survey *model.Survey, p *model.Participant) []string {
	var missing []string
	for _, tag := range survey.Requirements {
		if !satisfies(p, tag) {
			missing = append(missing, tag)
		}
	}
	return missing
}

func satisfies(p *model.Participant, tag string) bool {
	if p == nil {
		return false
	}
	switch tag {
	case model.RequirementWorldID:
		return p.WorldIDVerified
	case model.RequirementQuarkID:
		return p.QuarkIDVerified
	default:
		return false
	}
}
