package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// Recorder aggregates in-memory counters and gauges for HTTP requests, video
// lifecycle events, engagement activity, and authentication outcomes. It
// coordinates concurrent writers via a RWMutex while exposing an atomic gauge
// for uploads in flight.
type Recorder struct {
	mu               sync.RWMutex
	requestCount     map[requestLabel]uint64
	requestDuration  map[requestLabel]time.Duration
	videoEvents      map[string]uint64
	engagementEvents map[string]uint64
	authEvents       map[string]uint64
	uploadBytes      uint64
	activeUploads    atomic.Int64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers can
// immediately record metrics without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:     make(map[requestLabel]uint64),
		requestDuration:  make(map[requestLabel]time.Duration),
		videoEvents:      make(map[string]uint64),
		engagementEvents: make(map[string]uint64),
		authEvents:       make(map[string]uint64),
	}
}

// Default returns the singleton Recorder instance shared across helper
// functions for packages that do not require custom instrumentation pipelines.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest normalizes the request label set and accumulates totals for
// request count and cumulative duration by HTTP method, normalized path, and
// status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// ObserveVideoEvent records a video lifecycle event keyed by event name
// (e.g., "upload", "view", "publish", "unpublish", "delete").
func (r *Recorder) ObserveVideoEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.videoEvents[normalized]++
	r.mu.Unlock()
}

// ObserveEngagement records an engagement event keyed by event name
// (e.g., "like", "unlike", "comment", "tweet", "subscribe", "unsubscribe").
func (r *Recorder) ObserveEngagement(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.engagementEvents[normalized]++
	r.mu.Unlock()
}

// ObserveAuthEvent records an authentication outcome keyed by event name
// (e.g., "register", "login", "login_failure", "logout").
func (r *Recorder) ObserveAuthEvent(event string) {
	normalized := normalizeName(event)
	r.mu.Lock()
	r.authEvents[normalized]++
	r.mu.Unlock()
}

// UploadStarted increments the gauge of uploads currently in flight.
func (r *Recorder) UploadStarted() {
	r.activeUploads.Add(1)
}

// UploadFinished records the final size of a completed upload and decrements
// the in-flight gauge, guarding against negative counts when updates race.
func (r *Recorder) UploadFinished(bytes int64) {
	if bytes > 0 {
		r.mu.Lock()
		r.uploadBytes += uint64(bytes)
		r.mu.Unlock()
	}
	r.decrementGauge(&r.activeUploads)
}

// ActiveUploads exposes the current gauge of uploads in flight.
func (r *Recorder) ActiveUploads() int64 {
	return r.activeUploads.Load()
}

// VideoEventCounts returns a copy of the video lifecycle counters for testing
// and reporting purposes.
func (r *Recorder) VideoEventCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]uint64, len(r.videoEvents))
	for k, v := range r.videoEvents {
		counts[k] = v
	}
	return counts
}

// EngagementCounts returns a copy of the engagement counters.
func (r *Recorder) EngagementCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]uint64, len(r.engagementEvents))
	for k, v := range r.engagementEvents {
		counts[k] = v
	}
	return counts
}

// Reset clears all counters and gauges on the recorder. It is intended for
// test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.videoEvents = make(map[string]uint64)
	r.engagementEvents = make(map[string]uint64)
	r.authEvents = make(map[string]uint64)
	r.uploadBytes = 0
	r.activeUploads.Store(0)
}

// Handler exposes the Recorder as an http.Handler that writes Prometheus text
// exposition data with the appropriate content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the Recorder's metrics in Prometheus text format, sorting label
// sets to provide stable output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	videoEvents := sortedKeys(r.videoEvents)
	engagementEvents := sortedKeys(r.engagementEvents)
	authEvents := sortedKeys(r.authEvents)

	fmt.Fprintln(w, "# HELP vidtube_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE vidtube_http_requests_total counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "vidtube_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP vidtube_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE vidtube_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		duration := r.requestDuration[label].Seconds()
		fmt.Fprintf(w, "vidtube_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, duration)
	}

	fmt.Fprintln(w, "# HELP vidtube_http_request_duration_seconds_count Total number of observations for request durations")
	fmt.Fprintln(w, "# TYPE vidtube_http_request_duration_seconds_count counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "vidtube_http_request_duration_seconds_count{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP vidtube_video_events_total Video lifecycle events by type")
	fmt.Fprintln(w, "# TYPE vidtube_video_events_total counter")
	for _, event := range videoEvents {
		fmt.Fprintf(w, "vidtube_video_events_total{event=\"%s\"} %d\n", event, r.videoEvents[event])
	}

	fmt.Fprintln(w, "# HELP vidtube_engagement_events_total Engagement events by type")
	fmt.Fprintln(w, "# TYPE vidtube_engagement_events_total counter")
	for _, event := range engagementEvents {
		fmt.Fprintf(w, "vidtube_engagement_events_total{event=\"%s\"} %d\n", event, r.engagementEvents[event])
	}

	fmt.Fprintln(w, "# HELP vidtube_auth_events_total Authentication events by type")
	fmt.Fprintln(w, "# TYPE vidtube_auth_events_total counter")
	for _, event := range authEvents {
		fmt.Fprintf(w, "vidtube_auth_events_total{event=\"%s\"} %d\n", event, r.authEvents[event])
	}

	fmt.Fprintln(w, "# HELP vidtube_upload_bytes_total Total bytes accepted through video uploads")
	fmt.Fprintln(w, "# TYPE vidtube_upload_bytes_total counter")
	fmt.Fprintf(w, "vidtube_upload_bytes_total %d\n", r.uploadBytes)

	fmt.Fprintln(w, "# HELP vidtube_active_uploads Current number of uploads in flight")
	fmt.Fprintln(w, "# TYPE vidtube_active_uploads gauge")
	fmt.Fprintf(w, "vidtube_active_uploads %d\n", r.activeUploads.Load())
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if looksLikeIdentifier(part) {
			parts[i] = ":id"
			continue
		}
	}
	normalized := strings.Join(parts, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasSuffix(normalized, "/") && len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if len(segment) >= 16 {
		return true
	}
	digitCount := 0
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			digitCount++
		}
	}
	return digitCount >= 3
}

func (r *Recorder) decrementGauge(gauge *atomic.Int64) {
	for {
		current := gauge.Load()
		if current <= 0 {
			return
		}
		if gauge.CompareAndSwap(current, current-1) {
			return
		}
	}
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// ObserveRequest is a helper on the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// ObserveVideoEvent records a video lifecycle event on the default recorder.
func ObserveVideoEvent(event string) {
	defaultRecorder.ObserveVideoEvent(event)
}

// ObserveEngagement records an engagement event on the default recorder.
func ObserveEngagement(event string) {
	defaultRecorder.ObserveEngagement(event)
}

// ObserveAuthEvent records an authentication event on the default recorder.
func ObserveAuthEvent(event string) {
	defaultRecorder.ObserveAuthEvent(event)
}

// Handler exposes the default recorder as an HTTP handler.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
