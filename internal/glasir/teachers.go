package glasir

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/singleflight"

	"github.com/glasirfo/glasir-api-go/internal/logger"
	"github.com/glasirfo/glasir-api-go/internal/metrics"
)

// Fallback patterns for teacher rosters rendered without a <select>:
// "Full Name ( <a ...>INIT</a> )" and "Full Name ( INIT )".
var (
	teacherLinkRe  = regexp.MustCompile(`([^<>]+?)\s*\(\s*<a[^>]*>([A-ZÁÐÍÓÚÝÆØ]{2,4})</a>\s*\)`)
	teacherPlainRe = regexp.MustCompile(`([^<>()]+?)\s*\(\s*([A-ZÁÐÍÓÚÝÆØ]{2,4})\s*\)`)
)

// ParseTeacherMap extracts the initials -> full name mapping from the
// teacher roster HTML. The <select> options are authoritative; the regex
// scans only fill in when no options parse.
func ParseTeacherMap(html string) map[string]string {
	teachers := make(map[string]string)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		doc.Find("select option").Each(func(_ int, opt *goquery.Selection) {
			initials, _ := opt.Attr("value")
			initials = strings.TrimSpace(initials)
			if initials == "" || initials == "-1" {
				return
			}
			name := strings.TrimSpace(opt.Text())
			if name != "" {
				teachers[initials] = name
			}
		})
	}
	if len(teachers) > 0 {
		return teachers
	}

	for _, re := range []*regexp.Regexp{teacherLinkRe, teacherPlainRe} {
		for _, m := range re.FindAllStringSubmatch(html, -1) {
			name := strings.TrimSpace(m[1])
			initials := strings.TrimSpace(m[2])
			if name == "" || initials == "" {
				continue
			}
			if _, exists := teachers[initials]; !exists {
				teachers[initials] = name
			}
		}
	}
	return teachers
}

// TeacherName resolves initials through the map, falling back to the
// initials themselves when the roster does not know them.
func TeacherName(teachers map[string]string, initials string) string {
	if name, ok := teachers[initials]; ok {
		return name
	}
	return initials
}

// TeacherCache is a process-wide single-slot TTL cache for the teacher
// map. The roster is identical for every session of the same school, so
// one slot is enough; singleflight collapses concurrent refreshes.
type TeacherCache struct {
	ttl     time.Duration
	log     *logger.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	cached    map[string]string
	fetchedAt time.Time

	sf singleflight.Group
}

// NewTeacherCache creates an empty cache with the given TTL.
func NewTeacherCache(ttl time.Duration, log *logger.Logger, m *metrics.Metrics) *TeacherCache {
	return &TeacherCache{
		ttl:     ttl,
		log:     log.WithModule("teacher_cache"),
		metrics: m,
	}
}

// Map returns the teacher map, fetching and caching it on expiry. A roster
// that fails to parse is cached as an empty map for the TTL so a broken
// upstream page is not re-fetched per lesson; a transport failure is not
// cached, and the empty map is returned for this call only.
func (tc *TeacherCache) Map(ctx context.Context, client *Client, sess *Session) map[string]string {
	return tc.MapWithTTL(ctx, client, sess, tc.ttl)
}

// MapWithTTL is Map with a caller-chosen freshness window, for requests
// that override the cache TTL. The stored entry and its fetch time are
// shared; only the freshness judgment differs.
func (tc *TeacherCache) MapWithTTL(ctx context.Context, client *Client, sess *Session, ttl time.Duration) map[string]string {
	if ttl <= 0 {
		ttl = tc.ttl
	}

	tc.mu.Lock()
	if tc.cached != nil && time.Since(tc.fetchedAt) < ttl {
		cached := tc.cached
		tc.mu.Unlock()
		tc.metrics.RecordCacheHit("teacher_map")
		return cached
	}
	tc.mu.Unlock()
	tc.metrics.RecordCacheMiss("teacher_map")

	v, _, shared := tc.sf.Do("teacher_map", func() (any, error) {
		html, err := client.FetchTeachersHTML(ctx, sess)
		if err != nil {
			tc.log.WithError(err).Warn("teacher roster fetch failed, continuing with initials only")
			return map[string]string{}, nil
		}

		teachers := ParseTeacherMap(html)
		if len(teachers) == 0 {
			tc.log.Warn("teacher roster parsed to an empty map")
		}

		tc.mu.Lock()
		tc.cached = teachers
		tc.fetchedAt = time.Now()
		tc.mu.Unlock()
		return teachers, nil
	})
	if shared {
		tc.metrics.RecordSingleflightDedup("teacher_map")
	}
	return v.(map[string]string)
}
