package timetable

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ISODate is the wire date layout.
const ISODate = "2006-01-02"

// dayNames maps Faroese day names to their English equivalents.
var dayNames = map[string]string{
	"Mánadagur":    "Monday",
	"Týsdagur":     "Tuesday",
	"Mikudagur":    "Wednesday",
	"Hósdagur":     "Thursday",
	"Fríggjadagur": "Friday",
	"Leygardagur":  "Saturday",
	"Sunnudagur":   "Sunday",
}

// EnglishDay translates a Faroese day name. Unknown names are returned as-is.
func EnglishDay(faroese string) string {
	if en, ok := dayNames[faroese]; ok {
		return en
	}
	return faroese
}

// KnownDay reports whether the given name is a recognized Faroese day name.
func KnownDay(faroese string) bool {
	_, ok := dayNames[faroese]
	return ok
}

var academicYearRe = regexp.MustCompile(`^(\d{2})(\d{2})$`)

// FormatAcademicYear turns a four-digit code "YYZZ" into "20YY-20ZZ" when
// ZZ is the year after YY ("2425" -> "2024-2025"). Any other input is
// returned unchanged.
func FormatAcademicYear(code string) string {
	m := academicYearRe.FindStringSubmatch(code)
	if m == nil {
		return code
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	if second != first+1 {
		return code
	}
	return fmt.Sprintf("20%s-20%s", m[1], m[2])
}

// WeekKey formats the "YYYY-Www" identifier for a week.
func WeekKey(year, weekNumber int) string {
	return fmt.Sprintf("%d-W%02d", year, weekNumber)
}

// Date parsing patterns, tried in order.
var (
	dottedFullRe  = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`) // DD.MM.YYYY
	dottedShortRe = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})$`)          // DD.MM
	isoRe         = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)       // YYYY-MM-DD
	slashShortRe  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})$`)           // DD/MM
	slashYearRe   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})-(\d{4})$`)   // DD/MM-YYYY
)

// ParseDate parses the date forms the upstream emits (DD.MM.YYYY, DD.MM,
// YYYY-MM-DD, DD/MM, DD/MM-YYYY) and returns the ISO form. defaultYear
// fills in the year for the forms that omit it.
func ParseDate(s string, defaultYear int) (string, error) {
	s = strings.TrimSpace(s)

	var day, month, year int
	switch {
	case dottedFullRe.MatchString(s):
		m := dottedFullRe.FindStringSubmatch(s)
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
	case dottedShortRe.MatchString(s):
		m := dottedShortRe.FindStringSubmatch(s)
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		year = defaultYear
	case isoRe.MatchString(s):
		m := isoRe.FindStringSubmatch(s)
		year, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		day, _ = strconv.Atoi(m[3])
	case slashYearRe.MatchString(s):
		m := slashYearRe.FindStringSubmatch(s)
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
	case slashShortRe.MatchString(s):
		m := slashShortRe.FindStringSubmatch(s)
		day, _ = strconv.Atoi(m[1])
		month, _ = strconv.Atoi(m[2])
		year = defaultYear
	default:
		return "", fmt.Errorf("unrecognized date %q", s)
	}

	if year == 0 {
		year = time.Now().Year()
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range components; reject inputs that moved.
	if t.Day() != day || int(t.Month()) != month {
		return "", fmt.Errorf("invalid calendar date %q", s)
	}
	return t.Format(ISODate), nil
}

// ISOWeek returns the ISO year and week number of an ISO-formatted date.
func ISOWeek(isoDate string) (year, week int, err error) {
	t, err := time.Parse(ISODate, isoDate)
	if err != nil {
		return 0, 0, err
	}
	year, week = t.ISOWeek()
	return year, week, nil
}
