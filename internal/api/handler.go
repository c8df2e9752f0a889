// Package api binds the timetable routes to the extraction orchestrator.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/glasirfo/glasir-api-go/internal/errors"
	"github.com/glasirfo/glasir-api-go/internal/logger"
	"github.com/glasirfo/glasir-api-go/internal/metrics"
	"github.com/glasirfo/glasir-api-go/internal/service"
	"github.com/glasirfo/glasir-api-go/internal/stringutil"
	"github.com/glasirfo/glasir-api-go/internal/timetable"
)

// Extractor is the orchestrator surface the handlers need.
type Extractor interface {
	Week(ctx context.Context, cookies, studentID string, offset int, opts service.Options) (*timetable.TimetableData, error)
	Weeks(ctx context.Context, cookies, studentID string, offsets []int, opts service.Options) ([]timetable.TimetableData, error)
	AllWeeks(ctx context.Context, cookies, studentID string, forwardOnly bool, opts service.Options) ([]timetable.TimetableData, error)
}

// Handler serves the timetable routes.
type Handler struct {
	extractor Extractor
	log       *logger.Logger
	metrics   *metrics.Metrics
}

// NewHandler creates the route handler.
func NewHandler(extractor Extractor, log *logger.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		extractor: extractor,
		log:       log.WithModule("api"),
		metrics:   m,
	}
}

// Register mounts the timetable routes. Gin cannot host a static segment
// and a parameter at the same position, so "all", "current_forward", and
// signed offsets share the :offset parameter and are dispatched on value.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/profiles/:username/weeks/:offset", h.getWeeks)
	r.GET("/profiles/:username/weeks/:offset/:count", h.getForwardWeeks)
}

// optionKeys are the recognized query parameters. Anything else is
// rejected so typos fail loudly instead of silently using defaults.
var optionKeys = map[string]bool{
	"student_id":             true,
	"force_max_concurrency":  true,
	"week_fetch_initial":     true,
	"homework_fetch_initial": true,
	"teacher_cache_ttl_sec":  true,
	"request_timeout_sec":    true,
	"max_retries":            true,
	"backoff_factor":         true,
}

// requestInputs are the validated per-request inputs shared by all routes.
type requestInputs struct {
	cookies   string
	studentID string
	opts      service.Options
}

func parseInputs(c *gin.Context) (requestInputs, error) {
	var in requestInputs

	for key := range c.Request.URL.Query() {
		if !optionKeys[key] {
			return in, errors.NewValidationError(key, "unknown option")
		}
	}

	in.cookies = c.GetHeader("Cookie")
	if in.cookies == "" {
		return in, errors.NewValidationError("Cookie", "header is required")
	}
	in.studentID = c.Query("student_id")
	if in.studentID == "" {
		return in, errors.NewValidationError("student_id", "query parameter is required")
	}

	var err error
	if raw := c.Query("force_max_concurrency"); raw != "" {
		if in.opts.ForceMaxConcurrency, err = strconv.ParseBool(raw); err != nil {
			return in, errors.NewValidationError("force_max_concurrency", "must be a boolean")
		}
	}
	if in.opts.WeekFetchInitial, err = intOption(c, "week_fetch_initial"); err != nil {
		return in, err
	}
	if in.opts.HomeworkFetchInitial, err = intOption(c, "homework_fetch_initial"); err != nil {
		return in, err
	}
	if in.opts.TeacherCacheTTLSec, err = intOption(c, "teacher_cache_ttl_sec"); err != nil {
		return in, err
	}
	if in.opts.MaxRetries, err = intOption(c, "max_retries"); err != nil {
		return in, err
	}
	if in.opts.RequestTimeoutSec, err = floatOption(c, "request_timeout_sec"); err != nil {
		return in, err
	}
	if in.opts.BackoffFactor, err = floatOption(c, "backoff_factor"); err != nil {
		return in, err
	}

	if err := in.opts.Validate(); err != nil {
		return in, err
	}
	return in, nil
}

func intOption(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewValidationError(key, "must be an integer")
	}
	return n, nil
}

func floatOption(c *gin.Context, key string) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.NewValidationError(key, "must be a number")
	}
	return f, nil
}

// getWeeks serves /profiles/:username/weeks/:offset where :offset is a
// signed integer, "all", or "current_forward".
func (h *Handler) getWeeks(c *gin.Context) {
	const route = "/profiles/:username/weeks/:offset"

	in, err := parseInputs(c)
	if err != nil {
		h.respondError(c, route, err)
		return
	}
	ctx := c.Request.Context()

	switch selector := c.Param("offset"); selector {
	case "all":
		results, err := h.extractor.AllWeeks(ctx, in.cookies, in.studentID, false, in.opts)
		h.respondList(c, route, results, err)

	case "current_forward":
		results, err := h.extractor.AllWeeks(ctx, in.cookies, in.studentID, true, in.opts)
		h.respondList(c, route, results, err)

	case "forward":
		h.respondError(c, route, errors.NewValidationError("count", "forward requires a count segment"))

	default:
		if !stringutil.IsSignedNumeric(selector) {
			h.respondError(c, route, errors.NewValidationError("offset", "must be a signed integer"))
			return
		}
		offset, _ := strconv.Atoi(selector)
		data, err := h.extractor.Week(ctx, in.cookies, in.studentID, offset, in.opts)
		if err != nil {
			h.respondError(c, route, err)
			return
		}
		h.metrics.RecordAPIRequest(route, "200")
		c.JSON(http.StatusOK, data)
	}
}

// getForwardWeeks serves /profiles/:username/weeks/forward/:count, fetching
// offsets 0..count inclusive.
func (h *Handler) getForwardWeeks(c *gin.Context) {
	const route = "/profiles/:username/weeks/forward/:count"

	if c.Param("offset") != "forward" {
		h.respondError(c, route, errors.NewValidationError("offset", "unknown selector"))
		return
	}

	in, err := parseInputs(c)
	if err != nil {
		h.respondError(c, route, err)
		return
	}

	countParam := c.Param("count")
	if !stringutil.IsSignedNumeric(countParam) {
		h.respondError(c, route, errors.NewValidationError("count", "must be an integer"))
		return
	}
	count, _ := strconv.Atoi(countParam)
	if count < 0 {
		h.respondError(c, route, errors.NewValidationError("count", "cannot be negative"))
		return
	}

	offsets := make([]int, 0, count+1)
	for offset := 0; offset <= count; offset++ {
		offsets = append(offsets, offset)
	}

	results, err := h.extractor.Weeks(c.Request.Context(), in.cookies, in.studentID, offsets, in.opts)
	h.respondList(c, route, results, err)
}

func (h *Handler) respondList(c *gin.Context, route string, results []timetable.TimetableData, err error) {
	if err != nil {
		h.respondError(c, route, err)
		return
	}
	if results == nil {
		results = []timetable.TimetableData{}
	}
	h.metrics.RecordAPIRequest(route, "200")
	c.JSON(http.StatusOK, results)
}

func (h *Handler) respondError(c *gin.Context, route string, err error) {
	status := errors.HTTPStatus(err)
	category := errors.Category(err)

	message := err.Error()
	if category == "internal_error" {
		// Internals stay in the logs.
		message = "internal server error"
		h.log.WithError(err).WithContext(c.Request.Context()).Error("request failed")
	}

	h.metrics.RecordAPIRequest(route, strconv.Itoa(status))
	h.metrics.RecordHTTPError(category)
	c.JSON(status, gin.H{"category": category, "message": message})
}
