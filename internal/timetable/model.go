// Package timetable defines the canonical timetable model served by the API
// and the validation rules the scraped data must satisfy before it is
// returned to callers.
package timetable

import (
	"fmt"
	"regexp"

	"github.com/glasirfo/glasir-api-go/internal/errors"
)

// FormatVersion is the wire format version of TimetableData.
const FormatVersion = 2

var (
	isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe    = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// StudentInfo echoes who the timetable belongs to.
type StudentInfo struct {
	StudentName string `json:"studentName"`
	Class       string `json:"class"`
}

// WeekInfo describes the calendar placement of a scraped week. All fields
// are optional: an empty upstream week may carry no usable week metadata.
type WeekInfo struct {
	WeekNumber int    `json:"weekNumber,omitempty"`
	StartDate  string `json:"startDate,omitempty"`
	EndDate    string `json:"endDate,omitempty"`
	Year       int    `json:"year,omitempty"`
	WeekKey    string `json:"weekKey,omitempty"`
}

// Lesson is one scheduled event in a week.
type Lesson struct {
	Title           string  `json:"title"`
	Level           string  `json:"level,omitempty"`
	Year            string  `json:"year,omitempty"`
	Date            string  `json:"date,omitempty"`
	DayOfWeek       string  `json:"dayOfWeek,omitempty"`
	Teacher         string  `json:"teacher"`
	TeacherShort    string  `json:"teacherShort"`
	Location        string  `json:"location"`
	TimeSlot        string  `json:"timeSlot"`
	StartTime       string  `json:"startTime,omitempty"`
	EndTime         string  `json:"endTime,omitempty"`
	TimeRange       string  `json:"timeRange"`
	Cancelled       bool    `json:"cancelled"`
	LessonID        string  `json:"lessonId,omitempty"`
	Description     *string `json:"description,omitempty"`
	HasHomeworkNote bool    `json:"hasHomeworkNote"`
}

// TimetableData is one week of timetable data as served on the wire.
type TimetableData struct {
	StudentInfo   StudentInfo `json:"studentInfo"`
	WeekInfo      *WeekInfo   `json:"weekInfo,omitempty"`
	Events        []Lesson    `json:"events"`
	FormatVersion int         `json:"formatVersion"`
}

// WeekNumber returns the week number, or 0 when week metadata is missing.
// Used for batch ordering: weeks without a number sort last.
func (t *TimetableData) WeekNumber() int {
	if t.WeekInfo == nil {
		return 0
	}
	return t.WeekInfo.WeekNumber
}

// Validate checks the week metadata. Fields are individually optional but
// must be well-formed when present. WeekKey is computed when absent and
// both year and week number are known.
func (w *WeekInfo) Validate() error {
	if w.WeekNumber != 0 && (w.WeekNumber < 1 || w.WeekNumber > 53) {
		return errors.NewValidationError("weekNumber",
			fmt.Sprintf("must be in [1, 53], got %d", w.WeekNumber))
	}
	if w.StartDate != "" && !isoDateRe.MatchString(w.StartDate) {
		return errors.NewValidationError("startDate",
			fmt.Sprintf("must match YYYY-MM-DD, got %q", w.StartDate))
	}
	if w.EndDate != "" && !isoDateRe.MatchString(w.EndDate) {
		return errors.NewValidationError("endDate",
			fmt.Sprintf("must match YYYY-MM-DD, got %q", w.EndDate))
	}
	if w.WeekKey == "" && w.Year != 0 && w.WeekNumber != 0 {
		w.WeekKey = WeekKey(w.Year, w.WeekNumber)
	}
	return nil
}

// Validate checks a single lesson.
func (l *Lesson) Validate() error {
	if l.Date != "" && !isoDateRe.MatchString(l.Date) {
		return errors.NewValidationError("date",
			fmt.Sprintf("must match YYYY-MM-DD, got %q", l.Date))
	}
	if l.StartTime != "" && !timeRe.MatchString(l.StartTime) {
		return errors.NewValidationError("startTime",
			fmt.Sprintf("must match HH:MM, got %q", l.StartTime))
	}
	if l.EndTime != "" && !timeRe.MatchString(l.EndTime) {
		return errors.NewValidationError("endTime",
			fmt.Sprintf("must match HH:MM, got %q", l.EndTime))
	}
	return nil
}

// Validate checks the whole payload and computes derived fields.
func (t *TimetableData) Validate() error {
	if t.FormatVersion != FormatVersion {
		return errors.NewValidationError("formatVersion",
			fmt.Sprintf("must be %d, got %d", FormatVersion, t.FormatVersion))
	}
	if t.WeekInfo != nil {
		if err := t.WeekInfo.Validate(); err != nil {
			return err
		}
	}
	for i := range t.Events {
		if err := t.Events[i].Validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}
