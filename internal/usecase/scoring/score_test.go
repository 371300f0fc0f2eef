package scoring

import (
	"math"
	"strings"
	"testing"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBlendRelevance(t *testing.T) {
	cases := []struct {
		name     string
		llm      float64
		mentions int
		want     float64
	}{
		{"частота насыщается на пяти упоминаниях", 0.9, 5, 0.93},
		{"одно упоминание", 0.9, 1, 0.69},
		{"два упоминания", 0.4, 2, 0.40},
		{"ноль упоминаний", 1.0, 0, 0.70},
		{"десять упоминаний считаются как пять", 0.9, 10, 0.93},
	}
	for _, tc := range cases {
		got := BlendRelevance(tc.llm, tc.mentions)
		if !approxEqual(got, tc.want) {
			t.Fatalf("%s: ожидали %.4f, получили %.4f", tc.name, tc.want, got)
		}
	}
}

func TestBlendRelevanceStaysInRange(t *testing.T) {
	for _, llm := range []float64{-1, 0, 0.5, 1, 2} {
		for _, mentions := range []int{0, 1, 5, 100} {
			got := BlendRelevance(llm, mentions)
			if got < 0 || got > 1 {
				t.Fatalf("оценка вышла за [0,1]: llm=%v mentions=%d got=%v", llm, mentions, got)
			}
		}
	}
}

func TestEngagementHeuristicShortPlainText(t *testing.T) {
	got := EngagementHeuristic("Plain statement without features.")
	if !approxEqual(got, 0.4) {
		t.Fatalf("ожидали 0.4 для короткого текста без признаков, получили %v", got)
	}
}

func TestEngagementHeuristicAllFeatures(t *testing.T) {
	body := "What do you think about this tip?\n\nTeams should implement it early.\n" +
		strings.Repeat("Deep analysis of the rollout. ", 30)
	if n := len([]rune(body)); n < 800 || n > 2000 {
		t.Fatalf("текст теста должен попадать в диапазон [800,2000], длина %d", n)
	}
	got := EngagementHeuristic(body)
	if !approxEqual(got, 1.0) {
		t.Fatalf("ожидали 1.0 после насыщения всех признаков, получили %v", got)
	}
}

func TestEngagementHeuristicQuestionOnly(t *testing.T) {
	body := strings.Repeat("Neutral sentence here. ", 25) + "Right?"
	if n := len([]rune(body)); n < 500 || n >= 800 {
		t.Fatalf("текст теста должен быть между 500 и 800, длина %d", n)
	}
	got := EngagementHeuristic(body)
	if !approxEqual(got, 0.65) {
		t.Fatalf("ожидали 0.65 (база плюс вопрос), получили %v", got)
	}
}

func TestCompositeScoreWeights(t *testing.T) {
	got := CompositeScore(100, 1.0, 1.0)
	if !approxEqual(got, 100) {
		t.Fatalf("максимальные входы должны давать 100, получили %v", got)
	}
	got = CompositeScore(0, 0, 0)
	if !approxEqual(got, 0) {
		t.Fatalf("нулевые входы должны давать 0, получили %v", got)
	}
	got = CompositeScore(80, 0.5, 0.9)
	if !approxEqual(got, 24+20+27) {
		t.Fatalf("ожидали 71, получили %v", got)
	}
}

func TestCompositeScoreMonotonic(t *testing.T) {
	base := CompositeScore(50, 0.5, 0.5)
	if CompositeScore(60, 0.5, 0.5) <= base {
		t.Fatalf("рост читабельности должен повышать оценку")
	}
	if CompositeScore(50, 0.6, 0.5) <= base {
		t.Fatalf("рост вовлечённости должен повышать оценку")
	}
	if CompositeScore(50, 0.5, 0.6) <= base {
		t.Fatalf("рост релевантности должен повышать оценку")
	}
}
