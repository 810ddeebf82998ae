package handlers

import (
	"html/template"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// StartupStep is one initialisation step shown while the server warms up
type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

// StartupStatus is a snapshot of initialisation progress
type StartupStatus struct {
	Ready    bool          `json:"ready"`
	Current  string        `json:"current"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
}

// Startup tracks initialisation so requests arriving early get a progress
// page instead of an empty deck
type Startup struct {
	mu      sync.RWMutex
	ready   bool
	current string
	steps   []StartupStep
	log     logrus.FieldLogger
}

// NewStartup creates a tracker for the named steps
func NewStartup(logger logrus.FieldLogger, steps ...string) *Startup {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Startup{current: "Initializing...", log: logger}
	for _, name := range steps {
		s.steps = append(s.steps, StartupStep{Name: name})
	}
	return s
}

// Begin records the step in progress
func (s *Startup) Begin(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = step
	s.log.WithField("step", step).Info("startup step")
}

// Complete marks a step as done
func (s *Startup) Complete(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.steps {
		if s.steps[i].Name == step {
			s.steps[i].Completed = true
			break
		}
	}
}

// MarkReady marks the server as fully initialized
func (s *Startup) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	s.current = "Server ready"
	for i := range s.steps {
		s.steps[i].Completed = true
	}
}

// Ready returns whether the server is fully initialized
func (s *Startup) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Status returns a snapshot of the progress
func (s *Startup) Status() StartupStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := StartupStatus{Ready: s.ready, Current: s.current, Steps: append([]StartupStep(nil), s.steps...)}
	if s.ready {
		status.Progress = 100
		return status
	}
	if len(s.steps) > 0 {
		completed := 0
		for _, step := range s.steps {
			if step.Completed {
				completed++
			}
		}
		status.Progress = completed * 100 / len(s.steps)
	}
	return status
}

// Gate sends requests to the startup page until the server is ready.
// API and health requests get 503 instead.
func (s *Startup) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Ready() || r.URL.Path == "/startup" || r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			respondWithJSONError(w, http.StatusServiceUnavailable, "Server is starting")
			return
		}
		http.Redirect(w, r, "/startup", http.StatusSeeOther)
	})
}

// StartupHandler serves the startup and health endpoints
type StartupHandler struct {
	startup   *Startup
	templates *template.Template
}

// NewStartupHandler creates a new startup handler
func NewStartupHandler(startup *Startup, templates *template.Template) *StartupHandler {
	return &StartupHandler{startup: startup, templates: templates}
}

// ShowStartupStatus displays the startup status page
func (h *StartupHandler) ShowStartupStatus(w http.ResponseWriter, r *http.Request) {
	status := h.startup.Status()
	if status.Ready {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := struct {
		Page
		Status StartupStatus
	}{Page: Page{Title: "Starting up", Refresh: 2}, Status: status}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "startup.tmpl", data); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error rendering startup template", err)
	}
}

// Health reports readiness as JSON
func (h *StartupHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.startup.Status()
	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	respondWithJSON(w, code, status)
}
