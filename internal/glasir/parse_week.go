package glasir

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/glasirfo/glasir-api-go/internal/errors"
	"github.com/glasirfo/glasir-api-go/internal/stringutil"
	"github.com/glasirfo/glasir-api-go/internal/timetable"
)

// studentInfoMarker labels the cell that carries the student echo line.
const studentInfoMarker = "Næmingatímatalva"

// noLessonPhrases mean the week exists but has nothing scheduled; their
// presence turns a missing timetable table into an empty-week success.
var noLessonPhrases = []string{
	"ongi skeið",
	"frídagur",
	"eingin undirvísing",
}

// cancelledClasses mark a lesson cell as cancelled.
var cancelledClasses = map[string]bool{
	"lektionslinje_lesson1":         true,
	"lektionslinje_lesson2":         true,
	"lektionslinje_lesson3":         true,
	"lektionslinje_lesson4":         true,
	"lektionslinje_lesson5":         true,
	"lektionslinje_lesson7":         true,
	"lektionslinje_lesson10":        true,
	"lektionslinje_lessoncancelled": true,
}

var (
	lessonClassRe = regexp.MustCompile(`^lektionslinje_lesson\d+$`)
	dayHeaderRe   = regexp.MustCompile(`^(\S+)\s+(\d{1,2}/\d{1,2})$`)
	weekNumberRe  = regexp.MustCompile(`Vika\s+(\d+)`)
	dateRangeRe   = regexp.MustCompile(`(\d{1,2}\.\d{1,2}\.\d{4})\s*-\s*(\d{1,2}\.\d{1,2}\.\d{4})`)
	studentLineRe = regexp.MustCompile(studentInfoMarker + `\s*:\s*([^,]+),\s*(\S+)`)

	// Degraded layouts inline the whole day into prose. Best-effort only.
	inlineDayRe    = regexp.MustCompile(`(Mánadagur|Týsdagur|Mikudagur|Hósdagur|Fríggjadagur|Leygardagur|Sunnudagur)\s+(\d{1,2}/\d{1,2})`)
	inlineLessonRe = regexp.MustCompile(`(\S+-\S+-\S+-\S+)\s+([A-ZÁÐÍÓÚÝÆØ]{2,4})\s+st\.?\s*(\S+)`)
)

// timeSlots maps starting column ranges to slot number and times.
var timeSlots = []struct {
	fromCol, toCol int
	slot           string
	start, end     string
}{
	{2, 25, "1", "08:10", "09:40"},
	{26, 50, "2", "10:05", "11:35"},
	{51, 71, "3", "12:10", "13:40"},
	{72, 90, "4", "13:55", "15:25"},
	{91, 111, "5", "15:30", "17:00"},
	{112, 131, "6", "17:15", "18:45"},
}

// Week parse outcomes, recorded in metrics.
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeDegraded = "degraded"
)

// WeekResult is a parsed week page plus everything the orchestrator needs
// for the homework phase.
type WeekResult struct {
	Data              timetable.TimetableData
	HomeworkLessonIDs []string
	Warnings          []string
	Outcome           string
}

// ParseWeek turns one week page into the canonical model. A page without
// the timetable table is ErrNoTimetable unless it carries an explicit
// "no lessons" phrase, which is an empty-week success.
func ParseWeek(html string, teachers map[string]string) (*WeekResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse week page: %w", errors.ErrUpstreamProtocol)
	}

	result := &WeekResult{
		Data: timetable.TimetableData{
			Events:        []timetable.Lesson{},
			FormatVersion: timetable.FormatVersion,
		},
		HomeworkLessonIDs: []string{},
		Outcome:           OutcomeOK,
	}

	name, class, studentRaw := parseStudentInfo(doc)
	result.Data.StudentInfo = timetable.StudentInfo{StudentName: name, Class: class}
	result.Data.WeekInfo = parseWeekInfo(doc, html)

	table := doc.Find("table.time_8_16").First()
	if table.Length() == 0 {
		lower := strings.ToLower(html)
		for _, phrase := range noLessonPhrases {
			if strings.Contains(lower, phrase) {
				result.Outcome = OutcomeEmpty
				return result, nil
			}
		}
		return nil, fmt.Errorf("timetable table missing: %w", errors.ErrNoTimetable)
	}

	// Day dates carry no year; fill from the calendar year of the week's
	// start date (not the ISO-week year, which differs at year boundaries).
	defaultYear := 0
	if wi := result.Data.WeekInfo; wi != nil && wi.StartDate != "" {
		if t, err := time.Parse(timetable.ISODate, wi.StartDate); err == nil {
			defaultYear = t.Year()
		}
	}
	if defaultYear == 0 {
		defaultYear = time.Now().Year()
	}

	parseLessonRows(table, teachers, defaultYear, result)

	if len(result.Data.Events) == 0 && inlineDayRe.MatchString(studentRaw) {
		parseInlineFallback(studentRaw, teachers, defaultYear, result)
		if len(result.Data.Events) > 0 {
			result.Outcome = OutcomeDegraded
			result.Warnings = append(result.Warnings, "events recovered from inline day markers")
		}
	}

	if len(result.Data.Events) == 0 && result.Outcome == OutcomeOK {
		result.Outcome = OutcomeEmpty
	}
	return result, nil
}

// parseStudentInfo extracts the student echo line. Returns the raw prefix
// text as well, which the degraded-layout fallback scans.
func parseStudentInfo(doc *goquery.Document) (name, class, raw string) {
	// The marker bubbles up through every enclosing cell; the last match
	// in document order is the innermost one.
	var cell *goquery.Selection
	doc.Find("td").Each(func(_ int, td *goquery.Selection) {
		if strings.Contains(td.Text(), studentInfoMarker) {
			cell = td
		}
	})
	if cell == nil {
		return "", "", ""
	}

	// Only the prefix up to the first nested table belongs to the echo line.
	var b strings.Builder
	for _, node := range cell.Contents().Nodes {
		if node.Type == html.ElementNode && node.Data == "table" {
			break
		}
		b.WriteString(nodeText(node))
	}
	raw = stringutil.CollapseSpaces(b.String())

	if m := studentLineRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), raw
	}

	// Degenerate fallback: split on ':' then ','.
	if _, rest, ok := strings.Cut(raw, ":"); ok {
		if n, c, ok := strings.Cut(rest, ","); ok {
			fields := strings.Fields(c)
			if len(fields) > 0 {
				return strings.TrimSpace(n), fields[0], raw
			}
			return strings.TrimSpace(n), "", raw
		}
	}
	return "", "", raw
}

// nodeText collects the text content of a node subtree.
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(nodeText(child))
	}
	return b.String()
}

// parseWeekInfo assembles the optional calendar metadata.
func parseWeekInfo(doc *goquery.Document, html string) *timetable.WeekInfo {
	info := &timetable.WeekInfo{}

	if m := weekNumberRe.FindStringSubmatch(doc.Find("a.UgeKnapValgt").First().Text()); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			info.WeekNumber = n
		}
	}

	if m := dateRangeRe.FindStringSubmatch(html); m != nil {
		if start, err := timetable.ParseDate(m[1], 0); err == nil {
			info.StartDate = start
		}
		if end, err := timetable.ParseDate(m[2], 0); err == nil {
			info.EndDate = end
		}
	}

	// Year is the ISO-week year, so weekKey stays consistent for weeks
	// spanning a calendar year boundary.
	if info.StartDate != "" {
		if year, week, err := timetable.ISOWeek(info.StartDate); err == nil {
			info.Year = year
			if info.WeekNumber == 0 {
				info.WeekNumber = week
			}
		}
	}

	if info.WeekNumber == 0 && info.StartDate == "" && info.EndDate == "" && info.Year == 0 {
		return nil
	}
	return info
}

// parseLessonRows walks the timetable rows, tracking the running day
// context and the column position of every cell.
func parseLessonRows(table *goquery.Selection, teachers map[string]string, defaultYear int, result *WeekResult) {
	currentDay := ""
	currentDate := ""

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() == 0 {
			return
		}

		first := cells.Eq(0)
		firstText := stringutil.CollapseSpaces(first.Text())
		if hasAnyClass(first, "lektionslinje_1", "lektionslinje_1_aktuel") {
			m := dayHeaderRe.FindStringSubmatch(firstText)
			if m != nil && timetable.KnownDay(m[1]) {
				currentDay = m[1]
				currentDate = m[2]
			} else {
				// A header cell that fails to parse invalidates the day
				// context; rows are skipped until the next valid header.
				currentDay = ""
				currentDate = ""
			}
		}
		if currentDay == "" {
			return // rows above the first day header carry no lessons
		}

		col := 1
		cells.Each(func(i int, cell *goquery.Selection) {
			colspan := cellColspan(cell)
			defer func() { col += colspan }()
			if i == 0 {
				return // day header or spacer, never a lesson
			}
			if !isLessonCell(cell) {
				return
			}
			lesson, warning := parseLessonCell(cell, col, colspan, currentDay, currentDate, teachers, defaultYear)
			if warning != "" {
				result.Warnings = append(result.Warnings, warning)
				return
			}
			if lesson.HasHomeworkNote && lesson.LessonID != "" {
				result.HomeworkLessonIDs = append(result.HomeworkLessonIDs, lesson.LessonID)
			}
			result.Data.Events = append(result.Data.Events, *lesson)
		})
	})
}

// parseLessonCell builds one Lesson from a lesson cell. Returns a warning
// instead of a lesson when the cell lacks the three required anchors.
func parseLessonCell(cell *goquery.Selection, startCol, colspan int, day, datePart string, teachers map[string]string, defaultYear int) (*timetable.Lesson, string) {
	anchors := cell.Find("a")
	if anchors.Length() < 3 {
		return nil, fmt.Sprintf("lesson cell on %s %s has %d anchors, want 3", day, datePart, anchors.Length())
	}

	subjectRaw := stringutil.CollapseSpaces(anchors.Eq(0).Text())
	teacherShort := stringutil.CollapseSpaces(anchors.Eq(1).Text())
	room := stringutil.CollapseSpaces(anchors.Eq(2).Text())
	room = strings.TrimSpace(strings.TrimPrefix(room, "st."))

	subject, level, yearCode := splitSubjectCode(subjectRaw)

	lesson := &timetable.Lesson{
		Title:        subject,
		Level:        level,
		Teacher:      TeacherName(teachers, teacherShort),
		TeacherShort: teacherShort,
		Location:     room,
		DayOfWeek:    timetable.EnglishDay(day),
		Cancelled:    isCancelledCell(cell),
	}
	if yearCode != "" {
		lesson.Year = timetable.FormatAcademicYear(yearCode)
	}

	if date, err := timetable.ParseDate(datePart, defaultYear); err == nil {
		lesson.Date = date
	}

	if colspan >= 90 {
		lesson.TimeSlot = "All day"
		lesson.TimeRange = "08:10-15:25"
		lesson.StartTime = "08:10"
		lesson.EndTime = "15:25"
	} else {
		lesson.TimeSlot, lesson.StartTime, lesson.EndTime = slotForColumn(startCol)
		if lesson.StartTime != "" {
			lesson.TimeRange = lesson.StartTime + "-" + lesson.EndTime
		} else {
			lesson.TimeRange = "N/A"
		}
	}

	cell.Find("span[id]").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		id, _ := span.Attr("id")
		if strings.HasPrefix(id, "MyWindow") && strings.HasSuffix(id, "Main") {
			lesson.LessonID = strings.TrimSuffix(strings.TrimPrefix(id, "MyWindow"), "Main")
			return false
		}
		return true
	})

	cell.Find("input[type=image]").EachWithBreak(func(_ int, input *goquery.Selection) bool {
		if src, _ := input.Attr("src"); strings.Contains(src, "note.gif") {
			lesson.HasHomeworkNote = true
			return false
		}
		return true
	})

	return lesson, ""
}

// splitSubjectCode decodes the dash-separated subject anchor text.
func splitSubjectCode(raw string) (subject, level, yearCode string) {
	parts := strings.Split(raw, "-")
	switch {
	case parts[0] == "Várroynd" && len(parts) >= 5:
		return parts[0] + "-" + parts[1], parts[2], parts[4]
	case len(parts) >= 4:
		return parts[0], parts[1], parts[3]
	default:
		return raw, "", ""
	}
}

// slotForColumn maps a starting column to slot number and times.
func slotForColumn(col int) (slot, start, end string) {
	for _, s := range timeSlots {
		if col >= s.fromCol && col <= s.toCol {
			return s.slot, s.start, s.end
		}
	}
	return "N/A", "", ""
}

// parseInlineFallback recovers events from prose-style degraded layouts
// where day markers and lesson descriptors are inlined into the student
// info text.
func parseInlineFallback(raw string, teachers map[string]string, defaultYear int, result *WeekResult) {
	dayMatches := inlineDayRe.FindAllStringSubmatchIndex(raw, -1)
	for i, dm := range dayMatches {
		day := raw[dm[2]:dm[3]]
		datePart := raw[dm[4]:dm[5]]

		segmentEnd := len(raw)
		if i+1 < len(dayMatches) {
			segmentEnd = dayMatches[i+1][0]
		}
		segment := raw[dm[1]:segmentEnd]

		for _, lm := range inlineLessonRe.FindAllStringSubmatch(segment, -1) {
			subject, level, yearCode := splitSubjectCode(lm[1])
			lesson := timetable.Lesson{
				Title:        subject,
				Level:        level,
				Teacher:      TeacherName(teachers, lm[2]),
				TeacherShort: lm[2],
				Location:     lm[3],
				DayOfWeek:    timetable.EnglishDay(day),
				TimeSlot:     "N/A",
				TimeRange:    "N/A",
			}
			if yearCode != "" {
				lesson.Year = timetable.FormatAcademicYear(yearCode)
			}
			if date, err := timetable.ParseDate(datePart, defaultYear); err == nil {
				lesson.Date = date
			}
			result.Data.Events = append(result.Data.Events, lesson)
		}
	}
}

func hasAnyClass(sel *goquery.Selection, classes ...string) bool {
	attr, _ := sel.Attr("class")
	for _, have := range strings.Fields(attr) {
		for _, want := range classes {
			if have == want {
				return true
			}
		}
	}
	return false
}

func isLessonCell(cell *goquery.Selection) bool {
	attr, _ := cell.Attr("class")
	for _, class := range strings.Fields(attr) {
		if lessonClassRe.MatchString(class) {
			return true
		}
	}
	return false
}

func isCancelledCell(cell *goquery.Selection) bool {
	attr, _ := cell.Attr("class")
	for _, class := range strings.Fields(attr) {
		if cancelledClasses[class] {
			return true
		}
	}
	return false
}

func cellColspan(cell *goquery.Selection) int {
	if raw, ok := cell.Attr("colspan"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n > 0 {
			return n
		}
	}
	return 1
}
