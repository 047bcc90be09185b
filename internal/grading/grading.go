// Package grading classifies assignment submissions.
package grading

import "time"

type Status string

const (
	StatusGraded    Status = "graded"
	StatusLate      Status = "late"
	StatusSubmitted Status = "submitted"
	StatusPending   Status = "pending"
)

const day = 24 * time.Hour

type Classification struct {
	Status   Status `json:"status"`
	LateDays int    `json:"lateDays"`
}

// Classify derives the display status of a submission. A grade wins over
// lateness; lateness is counted in started days past the due date.
func Classify(submittedAt *time.Time, due time.Time, grade *int) Classification {
	if grade != nil {
		return Classification{Status: StatusGraded}
	}
	if submittedAt == nil {
		return Classification{Status: StatusPending}
	}
	if submittedAt.After(due) {
		return Classification{Status: StatusLate, LateDays: LateDays(*submittedAt, due)}
	}
	return Classification{Status: StatusSubmitted}
}

// LateDays is ceil((submitted - due) / 24h), and zero when on time.
func LateDays(submitted, due time.Time) int {
	diff := submitted.Sub(due)
	if diff <= 0 {
		return 0
	}
	days := int(diff / day)
	if diff%day != 0 {
		days++
	}
	return days
}

// ValidGrade reports whether g is an accepted grade.
func ValidGrade(g int) bool {
	return g >= 0 && g <= 100
}
