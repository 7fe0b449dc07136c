// Package classday вычисляет дату ближайшего занятия.
//
// Правило задаётся набором дней недели, в которые проходят занятия. Для
// каждого дня недели заранее вычисляется смещение до ближайшего дня занятий,
// поэтому Next это чистая функция от входной даты.
package classday

import (
	"errors"
	"time"
)

// ErrNoClassDays возвращается, если правило не содержит ни одного дня.
var ErrNoClassDays = errors.New("classday: at least one class weekday is required")

// DefaultDays - занятия по понедельникам, средам и пятницам.
var DefaultDays = []time.Weekday{time.Monday, time.Wednesday, time.Friday}

// Rule - таблица смещений «день недели → дней до занятия».
type Rule struct {
	days    []time.Weekday
	offsets [7]int
}

// NewRule строит таблицу смещений для указанных дней занятий.
func NewRule(days []time.Weekday) (*Rule, error) {
	var isClass [7]bool
	uniq := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			return nil, errors.New("classday: weekday out of range")
		}
		if !isClass[d] {
			isClass[d] = true
			uniq = append(uniq, d)
		}
	}
	if len(uniq) == 0 {
		return nil, ErrNoClassDays
	}

	r := &Rule{days: uniq}
	for wd := 0; wd < 7; wd++ {
		for off := 0; off < 7; off++ {
			if isClass[(wd+off)%7] {
				r.offsets[wd] = off
				break
			}
		}
	}
	return r, nil
}

// DefaultRule возвращает правило для расписания по умолчанию.
func DefaultRule() *Rule {
	r, _ := NewRule(DefaultDays)
	return r
}

// Days возвращает дни занятий.
func (r *Rule) Days() []time.Weekday {
	out := make([]time.Weekday, len(r.days))
	copy(out, r.days)
	return out
}

// Offset возвращает число дней от указанного дня недели до ближайшего занятия.
func (r *Rule) Offset(wd time.Weekday) int {
	return r.offsets[wd]
}

// IsClassDay проверяет, проходит ли занятие в этот день недели.
func (r *Rule) IsClassDay(wd time.Weekday) bool {
	return r.offsets[wd] == 0
}

// Next возвращает дату ближайшего занятия начиная с today включительно.
// Время суток и часовой пояс сохраняются; используется AddDate, поэтому
// переход на летнее время не сдвигает дату.
func (r *Rule) Next(today time.Time) time.Time {
	return today.AddDate(0, 0, r.offsets[today.Weekday()])
}

// NextSessionDate - Next для правила по умолчанию.
func NextSessionDate(today time.Time) time.Time {
	return DefaultRule().Next(today)
}
