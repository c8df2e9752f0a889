// Package glasir talks to the Glasir timetable site: session bootstrap,
// the pooled HTTP transport with retries, and the HTML parsers that turn
// the site's markup into the canonical timetable model.
package glasir

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glasirfo/glasir-api-go/internal/errors"
)

// basePagePath is the timetable landing page used for bootstrap and
// offset discovery.
const basePagePath = "/132n/"

// lnamePatterns are tried in order against the base page HTML; the first
// match wins. The token shows up in several places depending on how the
// page was rendered.
var lnamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`lname=([^&"'\s]+)`),
	regexp.MustCompile(`xmlhttp\.send\("[^"]*lname=([^&"'\s]+)"`),
	regexp.MustCompile(`MyUpdate\('[^']*','[^']*','[^']*',\d+,(\d+)\)`),
	regexp.MustCompile(`name=['"]lname['"]\s*value=['"]([^'"]+)['"]`),
}

// Session carries the per-request upstream state: the caller's cookies and
// the lname token scraped from the base page. Timers minted through it are
// monotonically non-decreasing.
type Session struct {
	cookieHeader string
	lname        string

	mu        sync.Mutex
	lastTimer int64
}

// CookieHeader returns the Cookie header value sent upstream.
func (s *Session) CookieHeader() string {
	return s.cookieHeader
}

// Lname returns the session token. Stable for the session's lifetime.
func (s *Session) Lname() string {
	return s.lname
}

// MintTimer returns the current epoch milliseconds as a decimal string.
// Consecutive mints never go backwards, even if the wall clock does.
func (s *Session) MintTimer() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < s.lastTimer {
		now = s.lastTimer
	}
	s.lastTimer = now
	return strconv.FormatInt(now, 10)
}

// ParseCookies splits a raw Cookie header into name/value pairs. Pairs are
// separated by semicolons; whitespace around each pair is trimmed; pairs
// without '=' are dropped. An empty result is an input error.
func ParseCookies(raw string) (map[string]string, error) {
	cookies := make(map[string]string)
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cookies[name] = strings.TrimSpace(value)
	}
	if len(cookies) == 0 {
		return nil, errors.NewValidationError("cookie", "no name=value pairs found")
	}
	return cookies, nil
}

// ExtractLname pulls the session token out of the base page HTML. The
// patterns are tried in a fixed order; a captured value containing a comma
// is truncated at the first comma.
func ExtractLname(html string) (string, error) {
	for _, re := range lnamePatterns {
		if m := re.FindStringSubmatch(html); m != nil {
			value := m[1]
			if i := strings.IndexByte(value, ','); i >= 0 {
				value = value[:i]
			}
			if value != "" {
				return value, nil
			}
		}
	}
	return "", fmt.Errorf("session parameter missing: %w", errors.ErrUpstreamProtocol)
}

// Bootstrap establishes a Session from a raw cookie header: it validates
// the cookies, fetches the base page without following redirects (a
// redirect to the login page means the cookies are dead), and extracts the
// lname token.
func (c *Client) Bootstrap(ctx context.Context, rawCookies string) (*Session, error) {
	if _, err := ParseCookies(rawCookies); err != nil {
		return nil, err
	}

	body, err := c.Get(ctx, "base", basePagePath, rawCookies)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	lname, err := ExtractLname(body)
	if err != nil {
		return nil, err
	}

	return &Session{cookieHeader: rawCookies, lname: lname}, nil
}
