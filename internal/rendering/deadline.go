package rendering

import (
	"fmt"
	"time"

	"github.com/jonathan/job-digest/internal/types"
)

// Deadline is the display form of an application deadline.
type Deadline struct {
	Date string // "~26년 03월 31일", "상시채용" or "마감일 미정"
	DDay string // "(D-3)", "(오늘마감)", "(마감)" or ""
}

// DeadlineInfo describes deadline relative to today. Both are compared as
// calendar dates.
func DeadlineInfo(deadline *time.Time, today time.Time) Deadline {
	if deadline == nil {
		return Deadline{Date: "마감일 미정"}
	}
	if types.IsRollingDeadline(*deadline) {
		return Deadline{Date: "상시채용"}
	}

	d := civilDate(*deadline)
	daysLeft := daysBetween(civilDate(today), d)
	info := Deadline{Date: d.Format("~06년 01월 02일")}
	switch {
	case daysLeft < 0:
		info.DDay = "(마감)"
	case daysLeft == 0:
		info.DDay = "(오늘마감)"
	default:
		info.DDay = fmt.Sprintf("(D-%d)", daysLeft)
	}
	return info
}

// WeekLabel returns the "M월 W주차" label, counting weeks from the 1st.
func WeekLabel(now time.Time) string {
	return fmt.Sprintf("%d월 %d주차", int(now.Month()), (now.Day()-1)/7+1)
}

// FormatDate returns now as YYYY.MM.DD.
func FormatDate(now time.Time) string {
	return now.Format("2006.01.02")
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts calendar days from a to b. Both must be UTC midnights.
func daysBetween(a, b time.Time) int {
	return int((b.Unix() - a.Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60
