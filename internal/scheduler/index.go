// Package scheduler answers calendar questions over resolved elements: which
// elements fall on a day, and whether a time slot is free.
package scheduler

import (
	"sort"
	"time"

	"github.com/example/shared-calendar/internal/domain"
)

// Index groups elements by the start of their display interval:
// year, month, day, hour, minute.
type Index map[int]MonthSlots

// MonthSlots maps months of one year.
type MonthSlots map[time.Month]DaySlots

// DaySlots maps days of one month.
type DaySlots map[int]HourSlots

// HourSlots maps hours of one day.
type HourSlots map[int]MinuteSlots

// MinuteSlots maps minutes of one hour to the elements starting then.
type MinuteSlots map[int][]*domain.Element

// BuildIndex indexes elements by their display start in its own location.
func BuildIndex(elements []*domain.Element) Index {
	return BuildIndexIn(nil, elements)
}

// BuildIndexIn indexes elements by their display start converted to loc.
// A nil loc keeps each start's own location. Elements sharing a minute are
// ordered by start and then id, so the result does not depend on input order.
func BuildIndexIn(loc *time.Location, elements []*domain.Element) Index {
	idx := make(Index)
	for _, element := range elements {
		if element == nil {
			continue
		}
		start := element.DisplayInterval().Start
		if loc != nil {
			start = start.In(loc)
		}

		months, ok := idx[start.Year()]
		if !ok {
			months = make(MonthSlots)
			idx[start.Year()] = months
		}
		days, ok := months[start.Month()]
		if !ok {
			days = make(DaySlots)
			months[start.Month()] = days
		}
		hours, ok := days[start.Day()]
		if !ok {
			hours = make(HourSlots)
			days[start.Day()] = hours
		}
		minutes, ok := hours[start.Hour()]
		if !ok {
			minutes = make(MinuteSlots)
			hours[start.Hour()] = minutes
		}
		minutes[start.Minute()] = append(minutes[start.Minute()], element)
	}

	for _, months := range idx {
		for _, days := range months {
			for _, hours := range days {
				for _, minutes := range hours {
					for _, list := range minutes {
						sortElements(list)
					}
				}
			}
		}
	}
	return idx
}

// Month returns the days of a month, or nil when nothing falls in it.
func (idx Index) Month(year int, month time.Month) DaySlots {
	return idx[year][month]
}

// Day returns the hours of the given date, or nil when nothing falls on it.
func (idx Index) Day(date time.Time) HourSlots {
	return idx[date.Year()][date.Month()][date.Day()]
}

// ElementsOn flattens the given date in start order.
func (idx Index) ElementsOn(date time.Time) []*domain.Element {
	return idx.Day(date).Elements()
}

// Elements flattens a day in start order.
func (h HourSlots) Elements() []*domain.Element {
	var out []*domain.Element
	for _, hour := range sortedKeys(h) {
		minutes := h[hour]
		for _, minute := range sortedKeys(minutes) {
			out = append(out, minutes[minute]...)
		}
	}
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortElements(list []*domain.Element) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].DisplayInterval().Start, list[j].DisplayInterval().Start
		if !a.Equal(b) {
			return a.Before(b)
		}
		return list[i].ID() < list[j].ID()
	})
}
