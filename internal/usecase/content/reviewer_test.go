package content

import (
	"testing"

	"linkedin-pipeline/internal/domain"
)

func TestReviewAnnotatesAndSorts(t *testing.T) {
	strong := domain.Trend{ID: 1, Topic: "AI", RelevanceScore: 0.9}
	weak := domain.Trend{ID: 2, Topic: "Misc", RelevanceScore: 0.1}

	candidates := []domain.ContentCandidate{
		{Trend: &weak, ReadabilityScore: 10, EngagementScore: 0.1},
		{Trend: &strong, ReadabilityScore: 80, EngagementScore: 0.8},
	}

	reviewed := Review(candidates)
	if reviewed[0].Trend.ID != 1 {
		t.Fatalf("сильный кандидат должен быть первым после сортировки")
	}
	// 80*0.3 + 0.8*100*0.4 + 0.9*100*0.3 = 24 + 32 + 27 = 83
	if reviewed[0].CompositeScore < 82.9 || reviewed[0].CompositeScore > 83.1 {
		t.Fatalf("ожидали составную оценку около 83, получили %v", reviewed[0].CompositeScore)
	}
	if !reviewed[0].Approved {
		t.Fatalf("кандидат с оценкой выше порога должен быть одобрен")
	}
	// 10*0.3 + 0.1*100*0.4 + 0.1*100*0.3 = 3 + 4 + 3 = 10
	if reviewed[1].Approved {
		t.Fatalf("кандидат с оценкой ниже порога не должен быть одобрен")
	}
}

func TestReviewUsesNeutralRelevanceWithoutTrend(t *testing.T) {
	candidates := []domain.ContentCandidate{
		{Trend: nil, ReadabilityScore: 50, EngagementScore: 0.5},
	}
	reviewed := Review(candidates)
	// 50*0.3 + 0.5*100*0.4 + 0.5*100*0.3 = 15 + 20 + 15 = 50
	if reviewed[0].CompositeScore < 49.9 || reviewed[0].CompositeScore > 50.1 {
		t.Fatalf("без тренда релевантность считается нейтральной, получили %v", reviewed[0].CompositeScore)
	}
	if !reviewed[0].Approved {
		t.Fatalf("оценка 50 выше порога %v, кандидат должен быть одобрен", ApprovalThreshold)
	}
}

func TestReviewApprovalBoundary(t *testing.T) {
	border := domain.Trend{ID: 1, RelevanceScore: 0.4}
	below := domain.Trend{ID: 2, RelevanceScore: 0.4}

	// 40*0.3 + 0.4*100*0.4 + 0.4*100*0.3 = 12 + 16 + 12 = ровно 40
	candidates := []domain.ContentCandidate{
		{Trend: &border, ReadabilityScore: 40, EngagementScore: 0.4},
		{Trend: &below, ReadabilityScore: 40, EngagementScore: 0.39999},
	}
	reviewed := Review(candidates)

	var onBorder, underBorder domain.ContentCandidate
	for _, c := range reviewed {
		switch c.Trend.ID {
		case 1:
			onBorder = c
		case 2:
			underBorder = c
		}
	}

	if onBorder.CompositeScore != ApprovalThreshold {
		t.Fatalf("ожидали составную оценку ровно %v, получили %v", ApprovalThreshold, onBorder.CompositeScore)
	}
	if !onBorder.Approved {
		t.Fatalf("оценка ровно на пороге должна одобряться")
	}
	if underBorder.CompositeScore >= ApprovalThreshold {
		t.Fatalf("оценка второго кандидата должна быть ниже порога, получили %v", underBorder.CompositeScore)
	}
	if underBorder.Approved {
		t.Fatalf("оценка чуть ниже порога не должна одобряться")
	}
}

func TestReviewStableForEqualScores(t *testing.T) {
	a := domain.Trend{ID: 1, RelevanceScore: 0.5}
	b := domain.Trend{ID: 2, RelevanceScore: 0.5}
	candidates := []domain.ContentCandidate{
		{Trend: &a, ReadabilityScore: 50, EngagementScore: 0.5},
		{Trend: &b, ReadabilityScore: 50, EngagementScore: 0.5},
	}
	reviewed := Review(candidates)
	if reviewed[0].Trend.ID != 1 || reviewed[1].Trend.ID != 2 {
		t.Fatalf("при равных оценках порядок должен сохраняться")
	}
}

func TestApprovedCount(t *testing.T) {
	candidates := []domain.ContentCandidate{
		{Approved: true},
		{Approved: false},
		{Approved: true},
	}
	if got := ApprovedCount(candidates); got != 2 {
		t.Fatalf("ожидали 2 одобренных, получили %d", got)
	}
	if got := ApprovedCount(nil); got != 0 {
		t.Fatalf("пустой список должен давать 0, получили %d", got)
	}
}
