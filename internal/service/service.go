// Package service orchestrates the per-request extraction pipeline:
// session bootstrap, teacher map priming, the bounded week fan-out, the
// per-week homework fan-out, merge, validation, and final ordering.
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/glasirfo/glasir-api-go/internal/config"
	"github.com/glasirfo/glasir-api-go/internal/errors"
	"github.com/glasirfo/glasir-api-go/internal/glasir"
	"github.com/glasirfo/glasir-api-go/internal/logger"
	"github.com/glasirfo/glasir-api-go/internal/metrics"
	"github.com/glasirfo/glasir-api-go/internal/ratelimit"
	"github.com/glasirfo/glasir-api-go/internal/sliceutil"
	"github.com/glasirfo/glasir-api-go/internal/timetable"
)

// Service is the extraction orchestrator. One instance serves all requests;
// per-request state (session, limiters) lives in a request value.
type Service struct {
	cfg      *config.Config
	client   *glasir.Client
	teachers *glasir.TeacherCache
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// New creates the orchestrator.
func New(cfg *config.Config, client *glasir.Client, teachers *glasir.TeacherCache, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		cfg:      cfg,
		client:   client,
		teachers: teachers,
		log:      log.WithModule("service"),
		metrics:  m,
	}
}

// request carries the per-request extraction state. The session and the
// limiters never outlive the inbound request.
type request struct {
	client   *glasir.Client
	sess     *glasir.Session
	teachers map[string]string
	weekLim  *ratelimit.AdaptiveLimiter
	hwLim    *ratelimit.AdaptiveLimiter
}

// prepare validates options, bootstraps the session, primes the teacher
// map, and builds the two fan-out limiters.
func (s *Service) prepare(ctx context.Context, cookies string, opts Options) (*request, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	client := s.client
	if opts.RequestTimeoutSec > 0 || opts.MaxRetries > 0 || opts.BackoffFactor > 0 {
		backoff := opts.BackoffFactor
		if backoff == 0 {
			backoff = -1 // keep the configured default
		}
		client = client.WithRetryPolicy(opts.requestTimeout(), opts.MaxRetries, backoff)
	}

	sess, err := client.Bootstrap(ctx, cookies)
	if err != nil {
		return nil, err
	}

	teachers := s.teachers.MapWithTTL(ctx, client, sess, opts.teacherTTL())

	weekLim, hwLim, err := s.buildLimiters(opts)
	if err != nil {
		return nil, err
	}

	return &request{
		client:   client,
		sess:     sess,
		teachers: teachers,
		weekLim:  weekLim,
		hwLim:    hwLim,
	}, nil
}

func (s *Service) buildLimiters(opts Options) (weekLim, hwLim *ratelimit.AdaptiveLimiter, err error) {
	if opts.ForceMaxConcurrency {
		weekLim, err = ratelimit.New(config.WeekFetchForced, config.WeekFetchMin, config.WeekFetchForced,
			ratelimit.Disabled())
		if err != nil {
			return nil, nil, err
		}
		hwLim, err = ratelimit.New(config.HomeworkFetchForced, config.HomeworkFetchMin, config.HomeworkFetchForced,
			ratelimit.Disabled())
		if err != nil {
			return nil, nil, err
		}
		return weekLim, hwLim, nil
	}

	weekInitial := opts.WeekFetchInitial
	if weekInitial == 0 {
		weekInitial = s.cfg.WeekFetchInitial
	}
	hwInitial := opts.HomeworkFetchInitial
	if hwInitial == 0 {
		hwInitial = s.cfg.HomeworkFetchInitial
	}

	weekLim, err = ratelimit.New(float64(weekInitial), config.WeekFetchMin, config.WeekFetchMax)
	if err != nil {
		return nil, nil, err
	}
	hwLim, err = ratelimit.New(float64(hwInitial), config.HomeworkFetchMin, config.HomeworkFetchMax)
	if err != nil {
		return nil, nil, err
	}
	return weekLim, hwLim, nil
}

// Week extracts a single offset. Unlike the batch operations, its failure
// surfaces directly to the caller.
func (s *Service) Week(ctx context.Context, cookies, studentID string, offset int, opts Options) (*timetable.TimetableData, error) {
	start := time.Now()
	req, err := s.prepare(ctx, cookies, opts)
	if err != nil {
		return nil, err
	}

	data, err := s.fetchWeek(ctx, req, studentID, offset)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordExtraction("single", time.Since(start).Seconds())
	return data, nil
}

// Weeks extracts the given offsets concurrently. Individual offset failures
// are dropped with a warning; the batch fails only when bootstrap fails.
func (s *Service) Weeks(ctx context.Context, cookies, studentID string, offsets []int, opts Options) ([]timetable.TimetableData, error) {
	start := time.Now()
	req, err := s.prepare(ctx, cookies, opts)
	if err != nil {
		return nil, err
	}

	results := s.fetchBatch(ctx, req, studentID, offsets)
	s.metrics.RecordExtraction("batch", time.Since(start).Seconds())
	return results, nil
}

// AllWeeks discovers every navigable offset from the current week page and
// extracts them all. With forwardOnly set, only offsets >= 0 are fetched.
func (s *Service) AllWeeks(ctx context.Context, cookies, studentID string, forwardOnly bool, opts Options) ([]timetable.TimetableData, error) {
	start := time.Now()
	req, err := s.prepare(ctx, cookies, opts)
	if err != nil {
		return nil, err
	}

	offsets, err := s.discoverOffsets(ctx, req, studentID)
	if err != nil {
		return nil, err
	}
	if forwardOnly {
		forward := offsets[:0]
		for _, offset := range offsets {
			if offset >= 0 {
				forward = append(forward, offset)
			}
		}
		offsets = forward
	}

	results := s.fetchBatch(ctx, req, studentID, offsets)
	s.metrics.RecordExtraction("batch", time.Since(start).Seconds())
	return results, nil
}

// AvailableOffsets reports which week offsets the upstream can navigate to
// for this student.
func (s *Service) AvailableOffsets(ctx context.Context, cookies, studentID string, opts Options) ([]int, error) {
	req, err := s.prepare(ctx, cookies, opts)
	if err != nil {
		return nil, err
	}
	return s.discoverOffsets(ctx, req, studentID)
}

// discoverOffsets fetches the current week page and reads the navigation
// anchors off it.
func (s *Service) discoverOffsets(ctx context.Context, req *request, studentID string) ([]int, error) {
	html, err := req.client.FetchWeekHTML(ctx, req.sess, studentID, 0, req.weekLim)
	if err != nil {
		return nil, err
	}
	offsets := glasir.ParseOffsets(html)
	if len(offsets) == 0 {
		return nil, fmt.Errorf("no week offsets discovered: %w", errors.ErrUpstreamProtocol)
	}
	return offsets, nil
}

// fetchBatch runs the bounded week fan-out and returns the surviving
// results sorted by week number. Failed offsets are summarized in one
// warning, aggregated by error category.
func (s *Service) fetchBatch(ctx context.Context, req *request, studentID string, offsets []int) []timetable.TimetableData {
	slots := make([]*timetable.TimetableData, len(offsets))
	failures := make([]error, len(offsets))

	waited := runBounded(ctx, req.weekLim, len(offsets), func(i int) {
		data, err := s.fetchWeek(ctx, req, studentID, offsets[i])
		if err != nil {
			failures[i] = err
			return
		}
		slots[i] = data
	})
	s.metrics.RecordLimiterWait("week_fetch", waited.Seconds())

	byCategory := make(map[string]int)
	dropped := 0
	for i, err := range failures {
		if err == nil {
			continue
		}
		dropped++
		byCategory[errors.Category(err)]++
		s.log.WithError(err).Warn("offset dropped from batch", "offset", offsets[i])
	}
	if dropped > 0 {
		s.log.Warn("batch completed with dropped offsets",
			"requested", len(offsets), "dropped", dropped, "failures", fmt.Sprint(byCategory))
	}

	results := make([]timetable.TimetableData, 0, len(offsets))
	for _, slot := range slots {
		if slot != nil {
			results = append(results, *slot)
		}
	}

	// Weeks without a parsed week number sort after the numbered ones.
	sort.SliceStable(results, func(i, j int) bool {
		wi, wj := results[i].WeekNumber(), results[j].WeekNumber()
		if wj == 0 {
			return wi != 0
		}
		if wi == 0 {
			return false
		}
		return wi < wj
	})
	return results
}

// fetchWeek runs the full pipeline for one offset: week page fetch, parse,
// homework fan-out, merge, validate.
func (s *Service) fetchWeek(ctx context.Context, req *request, studentID string, offset int) (*timetable.TimetableData, error) {
	html, err := req.client.FetchWeekHTML(ctx, req.sess, studentID, offset, req.weekLim)
	s.metrics.SetLimiterLevel("week_fetch", req.weekLim.Snapshot().Raw)
	if err != nil {
		return nil, err
	}

	parsed, err := glasir.ParseWeek(html, req.teachers)
	if err != nil {
		s.metrics.RecordWeekParsed("error")
		return nil, err
	}
	s.metrics.RecordWeekParsed(parsed.Outcome)
	for _, warning := range parsed.Warnings {
		s.log.Warn("week parse warning", "offset", offset, "warning", warning)
	}

	ids := sliceutil.Deduplicate(parsed.HomeworkLessonIDs, func(id string) string { return id })
	if len(ids) > 0 {
		s.mergeHomework(ctx, req, parsed, ids)
	}

	if err := parsed.Data.Validate(); err != nil {
		return nil, err
	}
	return &parsed.Data, nil
}

// mergeHomework fetches homework for the noted lessons and writes the
// Markdown into the matching events.
func (s *Service) mergeHomework(ctx context.Context, req *request, parsed *glasir.WeekResult, ids []string) {
	homework := make(map[string]string, len(ids))
	var mu sync.Mutex

	waited := runBounded(ctx, req.hwLim, len(ids), func(i int) {
		page, err := req.client.FetchHomeworkHTML(ctx, req.sess, ids[i], req.hwLim)
		if err != nil {
			s.log.WithError(err).Warn("homework fetch failed", "lessonId", ids[i])
			return
		}
		for id, markdown := range glasir.ParseHomework(page) {
			mu.Lock()
			homework[id] = markdown
			mu.Unlock()
		}
	})
	s.metrics.RecordLimiterWait("homework_fetch", waited.Seconds())
	s.metrics.SetLimiterLevel("homework_fetch", req.hwLim.Snapshot().Raw)

	events := parsed.Data.Events
	for i := range events {
		if !events[i].HasHomeworkNote || events[i].LessonID == "" {
			continue
		}
		if markdown, ok := homework[events[i].LessonID]; ok {
			description := markdown
			events[i].Description = &description
		}
	}
}
