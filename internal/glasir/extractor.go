package glasir

import (
	"context"
	"net/url"
	"strconv"
)

// Upstream endpoint paths.
const (
	teachersPath = "/i/teachers.asp"
	weekPath     = "/i/udvalg.asp"
	homeworkPath = "/i/note.asp"
)

// formFname is a fixed marker the upstream expects in every form post.
const formFname = "Henry"

// FetchWeekHTML posts the week query for one offset and returns the raw
// HTML week page.
func (c *Client) FetchWeekHTML(ctx context.Context, sess *Session, studentID string, offset int, rep Reporter) (string, error) {
	form := url.Values{
		"fname": {formFname},
		"q":     {"stude"},
		"v":     {strconv.Itoa(offset)},
		"lname": {sess.Lname()},
		"timex": {sess.MintTimer()},
		"id":    {studentID},
	}
	return c.PostForm(ctx, "udvalg", weekPath, form, sess.CookieHeader(), rep)
}

// FetchHomeworkHTML posts the homework query for one lesson and returns the
// raw HTML snippet.
func (c *Client) FetchHomeworkHTML(ctx context.Context, sess *Session, lessonID string, rep Reporter) (string, error) {
	form := url.Values{
		"fname":      {formFname},
		"q":          {lessonID},
		"MyFunktion": {"ReadNotesToLessonWithLessonRID"},
		"lname":      {sess.Lname()},
		"timer":      {sess.MintTimer()},
	}
	return c.PostForm(ctx, "note", homeworkPath, form, sess.CookieHeader(), rep)
}

// FetchTeachersHTML posts the teacher roster query and returns the raw
// HTML list.
func (c *Client) FetchTeachersHTML(ctx context.Context, sess *Session) (string, error) {
	form := url.Values{
		"fname": {formFname},
		"lname": {sess.Lname()},
		"timer": {sess.MintTimer()},
	}
	return c.PostForm(ctx, "teachers", teachersPath, form, sess.CookieHeader(), nil)
}
