package handlers

import (
	"html/template"
	"net/http"

	"studydeck/internal/activity"
)

// ActivityHandler serves the daily activity page and API
type ActivityHandler struct {
	tracker    *activity.Tracker
	middleware *Middleware
	templates  *template.Template
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(tracker *activity.Tracker, middleware *Middleware, templates *template.Template) *ActivityHandler {
	return &ActivityHandler{tracker: tracker, middleware: middleware, templates: templates}
}

func pageFilter(r *http.Request) string {
	if page := r.URL.Query().Get("page"); page != "" {
		return page
	}
	return activity.AllPages
}

// ShowActivity displays the histogram and per-subject totals
func (h *ActivityHandler) ShowActivity(w http.ResponseWriter, r *http.Request) {
	filter := pageFilter(r)
	data := struct {
		Page
		Filter    string
		Pages     []string
		Histogram []activity.Point
		Summaries []activity.PageSummary
	}{
		Page:      Page{Title: "Activity", CSRFToken: h.middleware.CSRFToken(r)},
		Filter:    filter,
		Pages:     h.tracker.Pages(),
		Histogram: h.tracker.Histogram(filter),
		Summaries: h.tracker.Summaries(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "activity.tmpl", data); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error rendering activity template", err)
	}
}

// ClearActivity forgets all counters and returns to the activity page
func (h *ActivityHandler) ClearActivity(w http.ResponseWriter, r *http.Request) {
	h.tracker.ClearAll()
	http.Redirect(w, r, "/activity", http.StatusSeeOther)
}

// GetActivity returns records, histogram and summaries as JSON
func (h *ActivityHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	filter := pageFilter(r)
	respondWithJSON(w, http.StatusOK, map[string]any{
		"page":      filter,
		"records":   h.tracker.List(),
		"histogram": h.tracker.Histogram(filter),
		"summaries": h.tracker.Summaries(),
	})
}

// DeleteActivity forgets all counters
func (h *ActivityHandler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	h.tracker.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}
