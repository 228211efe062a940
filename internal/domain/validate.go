package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxTitleLength bounds schedule and element titles.
	MaxTitleLength = 50
	// MaxDescriptionLength bounds schedule and element descriptions.
	MaxDescriptionLength = 500
)

// TimeLayout is the layout used for datetimes inside records.
const TimeLayout = time.RFC3339

func validateID(field, id string, v *ValidationError) {
	if strings.TrimSpace(id) == "" {
		v.Add(field, "id is required")
	}
}

func validateRequired(field, value string, v *ValidationError) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, field+" is required")
	}
}

func validateTitle(title string, v *ValidationError) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		v.Add("title", "title is required")
		return
	}
	if utf8.RuneCountInString(trimmed) > MaxTitleLength {
		v.Add("title", fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	}
}

func validateDescription(description *string, v *ValidationError) {
	if description == nil {
		return
	}
	if utf8.RuneCountInString(*description) > MaxDescriptionLength {
		v.Add("description", fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}
}

func validateIDList(field string, ids []string, requireOne bool, v *ValidationError) {
	if requireOne && len(ids) == 0 {
		v.Add(field, "at least one id is required")
		return
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			v.Add(field, "ids must not be blank")
			return
		}
	}
}

func validateTime(field string, t time.Time, v *ValidationError) {
	if t.IsZero() {
		v.Add(field, field+" is required")
		return
	}
	if year := t.Year(); year < 0 || year > 9999 {
		v.Add(field, fmt.Sprintf("year must be between 0000 and 9999, got %d", year))
	}
}

func cloneDescription(description *string) *string {
	if description == nil {
		return nil
	}
	copied := *description
	return &copied
}

func cloneStrings(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}

// uniqueStrings keeps the first occurrence of each value, preserving order.
func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

func removeString(values []string, target string) ([]string, bool) {
	result := make([]string, 0, len(values))
	removed := false
	for _, value := range values {
		if value == target {
			removed = true
			continue
		}
		result = append(result, value)
	}
	return result, removed
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}

func formatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

func descriptionValue(description *string) any {
	if description == nil {
		return nil
	}
	return *description
}
