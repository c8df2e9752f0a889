package glasir

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/glasirfo/glasir-api-go/internal/logger"
	"github.com/glasirfo/glasir-api-go/internal/metrics"
)

const teacherSelectHTML = `
<select name="laerer">
  <option value="-1">Vel lærara</option>
  <option value="BIJ">Brynjálvur I. Johansen</option>
  <option value="JOH">Jógvan Olsen Hansen</option>
  <option value="">skip me</option>
</select>`

func TestParseTeacherMap_Select(t *testing.T) {
	teachers := ParseTeacherMap(teacherSelectHTML)

	if len(teachers) != 2 {
		t.Fatalf("parsed %d teachers, want 2: %v", len(teachers), teachers)
	}
	if teachers["BIJ"] != "Brynjálvur I. Johansen" {
		t.Errorf("BIJ = %q", teachers["BIJ"])
	}
	if teachers["JOH"] != "Jógvan Olsen Hansen" {
		t.Errorf("JOH = %q", teachers["JOH"])
	}
}

func TestParseTeacherMap_RegexFallback(t *testing.T) {
	html := `<div>
		Brynjálvur I. Johansen ( <a href="#">BIJ</a> )<br>
		Eyðun Gaard ( EG )<br>
	</div>`

	teachers := ParseTeacherMap(html)
	if teachers["BIJ"] != "Brynjálvur I. Johansen" {
		t.Errorf("BIJ = %q, want link-form match", teachers["BIJ"])
	}
	if teachers["EG"] != "Eyðun Gaard" {
		t.Errorf("EG = %q, want plain-form match", teachers["EG"])
	}
}

func TestParseTeacherMap_Unparseable(t *testing.T) {
	teachers := ParseTeacherMap("<html><body>nothing here</body></html>")
	if len(teachers) != 0 {
		t.Errorf("expected empty map, got %v", teachers)
	}
}

func TestTeacherName_IdentityFallback(t *testing.T) {
	teachers := map[string]string{"BIJ": "Brynjálvur I. Johansen"}

	if got := TeacherName(teachers, "BIJ"); got != "Brynjálvur I. Johansen" {
		t.Errorf("TeacherName(BIJ) = %q", got)
	}
	if got := TeacherName(teachers, "XX"); got != "XX" {
		t.Errorf("TeacherName(XX) = %q, want identity fallback", got)
	}
}

func TestTeacherCache_FetchesOnceWithinTTL(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, teacherSelectHTML)
	}))
	defer srv.Close()

	log := logger.NewWithWriter("error", io.Discard)
	m := metrics.New(prometheus.NewRegistry())
	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second, MaxRetries: 1}, log, m)
	cache := NewTeacherCache(time.Hour, log, m)
	sess := &Session{cookieHeader: "a=1", lname: "Ford62860"}

	first := cache.Map(context.Background(), client, sess)
	second := cache.Map(context.Background(), client, sess)

	if calls.Load() != 1 {
		t.Errorf("upstream fetched %d times within TTL, want 1", calls.Load())
	}
	if first["BIJ"] != "Brynjálvur I. Johansen" || second["BIJ"] != "Brynjálvur I. Johansen" {
		t.Errorf("cache returned wrong maps: %v / %v", first, second)
	}
}

func TestTeacherCache_RefetchesAfterTTL(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, teacherSelectHTML)
	}))
	defer srv.Close()

	log := logger.NewWithWriter("error", io.Discard)
	m := metrics.New(prometheus.NewRegistry())
	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second, MaxRetries: 1}, log, m)
	cache := NewTeacherCache(time.Millisecond, log, m)
	sess := &Session{cookieHeader: "a=1", lname: "Ford62860"}

	cache.Map(context.Background(), client, sess)
	time.Sleep(5 * time.Millisecond)
	cache.Map(context.Background(), client, sess)

	if calls.Load() != 2 {
		t.Errorf("upstream fetched %d times across TTL expiry, want 2", calls.Load())
	}
}

func TestTeacherCache_PerRequestTTLOverride(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, teacherSelectHTML)
	}))
	defer srv.Close()

	log := logger.NewWithWriter("error", io.Discard)
	m := metrics.New(prometheus.NewRegistry())
	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second, MaxRetries: 1}, log, m)
	cache := NewTeacherCache(time.Hour, log, m)
	sess := &Session{cookieHeader: "a=1", lname: "Ford62860"}

	cache.Map(context.Background(), client, sess)
	time.Sleep(5 * time.Millisecond)

	// A request demanding fresher data than the default TTL refetches.
	cache.MapWithTTL(context.Background(), client, sess, time.Millisecond)
	if calls.Load() != 2 {
		t.Errorf("upstream fetched %d times, want 2 with tightened TTL", calls.Load())
	}

	// A zero override falls back to the cache default.
	cache.MapWithTTL(context.Background(), client, sess, 0)
	if calls.Load() != 2 {
		t.Errorf("upstream fetched %d times, want still 2 under default TTL", calls.Load())
	}
}

func TestTeacherCache_FetchFailureNotCached(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, teacherSelectHTML)
	}))
	defer srv.Close()

	log := logger.NewWithWriter("error", io.Discard)
	m := metrics.New(prometheus.NewRegistry())
	client := NewClient(ClientConfig{BaseURL: srv.URL, Timeout: 5 * time.Second, MaxRetries: 1}, log, m)
	cache := NewTeacherCache(time.Hour, log, m)
	sess := &Session{cookieHeader: "a=1", lname: "Ford62860"}

	first := cache.Map(context.Background(), client, sess)
	if len(first) != 0 {
		t.Errorf("failed fetch should yield empty map, got %v", first)
	}

	second := cache.Map(context.Background(), client, sess)
	if second["BIJ"] != "Brynjálvur I. Johansen" {
		t.Errorf("second call should refetch after failure, got %v", second)
	}
}
