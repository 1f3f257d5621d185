package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/iconidentify/upclip/internal/domain"
	"github.com/iconidentify/upclip/internal/service"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 200
)

// EventHandler serves the pipeline activity log.
type EventHandler struct {
	eventSvc  *service.EventService
	logger    *slog.Logger
	keepalive time.Duration
}

// NewEventHandler creates a new event handler.
func NewEventHandler(eventSvc *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		eventSvc:  eventSvc,
		logger:    logger,
		keepalive: 30 * time.Second,
	}
}

// EventListResponse contains paginated event list.
type EventListResponse struct {
	Events  []domain.Event `json:"events"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	HasMore bool           `json:"has_more"`
}

// RecentEventsResponse wraps the events array for the UI.
type RecentEventsResponse struct {
	Events []domain.Event `json:"events"`
}

// EventStatsResponse contains event service statistics.
type EventStatsResponse struct {
	Total          int            `json:"total"`
	BySeverity     map[string]int `json:"by_severity"`
	ByCategory     map[string]int `json:"by_category"`
	BufferSize     int            `json:"buffer_size"`
	BufferUsed     int            `json:"buffer_used"`
	SSESubscribers int            `json:"sse_subscribers"`
	SQLiteEnabled  bool           `json:"sqlite_enabled"`
	Sinks          int            `json:"sinks"`
}

// parseLimit reads a positive limit capped at maxEventLimit.
func parseLimit(q url.Values) int {
	n, err := strconv.Atoi(q.Get("limit"))
	if err != nil || n <= 0 {
		return defaultEventLimit
	}
	return min(n, maxEventLimit)
}

func parseTime(q url.Values, key string) *time.Time {
	t, err := time.Parse(time.RFC3339, q.Get(key))
	if err != nil {
		return nil
	}
	return &t
}

// parseEventQuery builds a query from the List parameters. Unparsable
// values are ignored.
func parseEventQuery(q url.Values) domain.EventQuery {
	query := domain.EventQuery{
		Limit: parseLimit(q),
		Filter: domain.EventFilter{
			Source:     q.Get("source"),
			SearchText: q.Get("search"),
			StartTime:  parseTime(q, "start_time"),
			EndTime:    parseTime(q, "end_time"),
		},
	}
	if o, err := strconv.Atoi(q.Get("offset")); err == nil && o > 0 {
		query.Offset = o
	}
	if sev := q.Get("severity"); sev != "" {
		severity := domain.EventSeverity(sev)
		query.Filter.Severity = &severity
	}
	if cat := q.Get("category"); cat != "" {
		category := domain.EventCategory(cat)
		query.Filter.Category = &category
	}
	return query
}

// List handles GET /api/v1/events
// Filters: severity, category, source, search, start_time and end_time
// (RFC3339). Paging: limit (default 50, max 200) and offset. With
// historical=true the SQLite history is queried instead of the ring buffer.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := parseEventQuery(q)

	run := h.eventSvc.Query
	if q.Get("historical") == "true" {
		run = h.eventSvc.QueryHistorical
	}
	result, err := run(r.Context(), query)
	if err != nil {
		h.logger.Error("failed to query events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query events")
		return
	}

	events := result.Events
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, EventListResponse{
		Events:  events,
		Total:   result.Total,
		Limit:   query.Limit,
		Offset:  query.Offset,
		HasMore: result.HasMore,
	})
}

// Recent handles GET /api/v1/events/recent
func (h *EventHandler) Recent(w http.ResponseWriter, r *http.Request) {
	events := h.eventSvc.GetRecent(parseLimit(r.URL.Query()))
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, RecentEventsResponse{Events: events})
}

// Stats handles GET /api/v1/events/stats
// Counts cover the in-memory buffer.
func (h *EventHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.eventSvc.Stats()
	events := h.eventSvc.GetRecent(stats.BufferSize)

	resp := EventStatsResponse{
		Total:          len(events),
		BySeverity:     make(map[string]int, len(eventSeverities)),
		ByCategory:     make(map[string]int, len(domain.EventCategories)),
		BufferSize:     stats.BufferSize,
		BufferUsed:     stats.BufferUsed,
		SSESubscribers: stats.SSESubscribers,
		SQLiteEnabled:  stats.SQLiteEnabled,
		Sinks:          stats.Sinks,
	}
	for _, s := range eventSeverities {
		resp.BySeverity[string(s)] = 0
	}
	for _, c := range domain.EventCategories {
		resp.ByCategory[string(c)] = 0
	}
	for _, e := range events {
		resp.BySeverity[string(e.Severity)]++
		resp.ByCategory[string(e.Category)]++
	}

	writeJSON(w, http.StatusOK, resp)
}

// Stream handles GET /api/v1/events/stream
// Server-Sent Events: a "connected" event, then one "event" per emitted
// event, with comment keepalives in between.
func (h *EventHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// The stream outlives the server's WriteTimeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("cannot clear write deadline", "error", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	subID, eventCh := h.eventSvc.Subscribe()
	defer h.eventSvc.Unsubscribe(subID)

	h.logger.Debug("SSE client connected", "subscriber_id", subID, "remote_addr", r.RemoteAddr)

	fmt.Fprintf(w, "event: connected\ndata: {\"subscriber_id\": %d}\n\n", subID)
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("SSE client disconnected", "subscriber_id", subID)
			return

		case event, ok := <-eventCh:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn("failed to serialize event", "event_id", event.ID, "error", err)
				continue
			}
			fmt.Fprintf(w, "event: event\ndata: %s\n\n", data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

var eventSeverities = []domain.EventSeverity{
	domain.EventSeverityInfo,
	domain.EventSeverityWarning,
	domain.EventSeverityError,
	domain.EventSeveritySuccess,
}

// Categories handles GET /api/v1/events/categories
func (h *EventHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories := make([]string, 0, len(domain.EventCategories))
	for _, c := range domain.EventCategories {
		categories = append(categories, string(c))
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": categories})
}

// Severities handles GET /api/v1/events/severities
func (h *EventHandler) Severities(w http.ResponseWriter, r *http.Request) {
	severities := make([]string, 0, len(eventSeverities))
	for _, s := range eventSeverities {
		severities = append(severities, string(s))
	}
	writeJSON(w, http.StatusOK, map[string][]string{"severities": severities})
}
