package schedule

import "time"

// Фиксированные часы публикации (UTC): пики активности LinkedIn.
var defaultHours = []int{8, 12, 17}

const jitterStep = 30 * time.Minute

// Planner распределяет публикации по фиксированным дневным слотам.
type Planner struct {
	hours []int
}

// NewPlanner создаёт планировщик. Пустой список часов заменяется
// набором по умолчанию {8, 12, 17}.
func NewPlanner(hours []int) *Planner {
	if len(hours) == 0 {
		hours = defaultHours
	}
	return &Planner{hours: hours}
}

// PlanTimes возвращает ровно n временных меток публикации. Ротация
// начинается с первого слота строго позже now; исчерпание дневного
// набора переносит ротацию на следующий день. Джиттер index*30min
// гарантирует попарную различимость; результат монотонно не убывает
// и всегда строго в будущем относительно now.
func (p *Planner) PlanTimes(now time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	now = now.UTC()

	slot := 0
	day := 0
	for slot < len(p.hours) && now.Hour() >= p.hours[slot] {
		slot++
	}
	if slot == len(p.hours) {
		slot = 0
		day = 1
	}

	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		at := time.Date(now.Year(), now.Month(), now.Day(), p.hours[slot], 0, 0, 0, time.UTC)
		at = at.AddDate(0, 0, day).Add(time.Duration(i) * jitterStep)
		out = append(out, at)

		slot++
		if slot == len(p.hours) {
			slot = 0
			day++
		}
	}
	return out
}
