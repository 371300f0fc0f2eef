package content

import (
	"sort"

	"linkedin-pipeline/internal/domain"
	"linkedin-pipeline/internal/usecase/scoring"
)

// ApprovalThreshold — порог составной оценки, с которого кандидат
// допускается к планированию.
const ApprovalThreshold = 40.0

// Релевантность для кандидатов без тренда (пользовательская тема).
const customTopicRelevance = 0.5

// Review аннотирует кандидатов составной оценкой и признаком одобрения,
// затем устойчиво сортирует их по убыванию оценки. Никаких побочных
// эффектов за пределами аннотации.
func Review(candidates []domain.ContentCandidate) []domain.ContentCandidate {
	for i := range candidates {
		relevance := customTopicRelevance
		if candidates[i].Trend != nil {
			relevance = candidates[i].Trend.RelevanceScore
		}
		candidates[i].CompositeScore = scoring.CompositeScore(candidates[i].ReadabilityScore, candidates[i].EngagementScore, relevance)
		candidates[i].Approved = candidates[i].CompositeScore >= ApprovalThreshold
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CompositeScore > candidates[j].CompositeScore
	})
	return candidates
}

// ApprovedCount возвращает число одобренных кандидатов.
func ApprovedCount(candidates []domain.ContentCandidate) int {
	n := 0
	for _, c := range candidates {
		if c.Approved {
			n++
		}
	}
	return n
}
