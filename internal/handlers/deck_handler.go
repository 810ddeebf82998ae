package handlers

import (
	"encoding/json"
	"html/template"
	"io"
	"net/http"

	"github.com/samber/lo"

	"studydeck/internal/subjects"
	"studydeck/internal/view"
)

const maxSettingsBody = 64 << 10

// DeckHandler serves the deck pages and the deck API
type DeckHandler struct {
	registry   *subjects.Registry
	visits     *view.Visits
	middleware *Middleware
	templates  *template.Template
}

// NewDeckHandler creates a new deck handler
func NewDeckHandler(registry *subjects.Registry, visits *view.Visits, middleware *Middleware, templates *template.Template) *DeckHandler {
	return &DeckHandler{
		registry:   registry,
		visits:     visits,
		middleware: middleware,
		templates:  templates,
	}
}

// DeckSummary is one entry of the deck list
type DeckSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// DeckViewData is the data of the deck page
type DeckViewData struct {
	Page
	State view.State
}

// ShowIndex lists the available subjects
func (h *DeckHandler) ShowIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := struct {
		Page
		Subjects []subjects.Subject
	}{Page: Page{Title: "Subjects"}, Subjects: h.registry.List()}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "index.tmpl", data); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error rendering index template", err)
	}
}

// ShowDeck displays the current card of a deck
func (h *DeckHandler) ShowDeck(w http.ResponseWriter, r *http.Request) {
	c, ok := h.visits.Get(GetVisitFromContext(r.Context()), r.PathValue("deck"))
	if !ok {
		http.Error(w, ErrUnknownDeck, http.StatusNotFound)
		return
	}

	state := c.State()
	data := DeckViewData{
		Page:  Page{Title: state.Title, CSRFToken: h.middleware.CSRFToken(r)},
		State: state,
	}
	if state.Loading || state.Pending {
		data.Refresh = 1
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "deck.tmpl", data); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error rendering deck template", err)
	}
}

// SubmitAction handles the card and settings forms of the deck page
func (h *DeckHandler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	deckID := r.PathValue("deck")
	visitID := GetVisitFromContext(r.Context())
	action := r.PathValue("action")

	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	if action == "leave" {
		h.visits.Leave(visitID, deckID)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	c, ok := h.visits.Get(visitID, deckID)
	if !ok {
		http.Error(w, ErrUnknownDeck, http.StatusNotFound)
		return
	}

	if action == "settings" {
		c.UpdateSettings(settingsFromForm(r, c.State().Options))
	} else if _, ok := apply(c, action); !ok {
		http.Error(w, ErrUnknownAction, http.StatusNotFound)
		return
	}

	http.Redirect(w, r, "/decks/"+deckID, http.StatusSeeOther)
}

// ListDecks returns the available decks
func (h *DeckHandler) ListDecks(w http.ResponseWriter, r *http.Request) {
	decks := lo.Map(h.registry.List(), func(s subjects.Subject, _ int) DeckSummary {
		return DeckSummary{ID: s.ID, Title: s.Title, Description: s.Description}
	})
	respondWithJSON(w, http.StatusOK, decks)
}

// GetDeck returns the deck state for the visit
func (h *DeckHandler) GetDeck(w http.ResponseWriter, r *http.Request) {
	c, ok := h.visits.Get(GetVisitFromContext(r.Context()), r.PathValue("deck"))
	if !ok {
		respondWithJSONError(w, http.StatusNotFound, ErrUnknownDeck)
		return
	}
	respondWithJSON(w, http.StatusOK, c.State())
}

// PerformAction applies a card action and returns the new state
func (h *DeckHandler) PerformAction(w http.ResponseWriter, r *http.Request) {
	c, ok := h.visits.Get(GetVisitFromContext(r.Context()), r.PathValue("deck"))
	if !ok {
		respondWithJSONError(w, http.StatusNotFound, ErrUnknownDeck)
		return
	}

	state, ok := apply(c, r.PathValue("action"))
	if !ok {
		respondWithJSONError(w, http.StatusNotFound, ErrUnknownAction)
		return
	}
	respondWithJSON(w, http.StatusOK, state)
}

// UpdateSettings merges a JSON settings object into the deck's settings
func (h *DeckHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	c, ok := h.visits.Get(GetVisitFromContext(r.Context()), r.PathValue("deck"))
	if !ok {
		respondWithJSONError(w, http.StatusNotFound, ErrUnknownDeck)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSettingsBody))
	if err != nil {
		respondWithJSONError(w, http.StatusBadRequest, ErrInvalidJSON)
		return
	}
	var patch map[string]json.RawMessage
	if err := json.Unmarshal(body, &patch); err != nil {
		respondWithJSONError(w, http.StatusBadRequest, ErrInvalidJSON)
		return
	}

	respondWithJSON(w, http.StatusOK, c.UpdateSettings(patch))
}

// LeaveDeck closes the visit's view of a deck, discarding any pending advance
func (h *DeckHandler) LeaveDeck(w http.ResponseWriter, r *http.Request) {
	h.visits.Leave(GetVisitFromContext(r.Context()), r.PathValue("deck"))
	w.WriteHeader(http.StatusNoContent)
}

// SessionToken returns the CSRF token API clients send with changes
func (h *DeckHandler) SessionToken(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"csrfToken": h.middleware.CSRFToken(r)})
}

func apply(c view.Controller, action string) (view.State, bool) {
	switch action {
	case "flip":
		return c.Flip(), true
	case "correct":
		return c.Correct(), true
	case "incorrect":
		return c.Incorrect(), true
	case "next":
		return c.Next(), true
	case "reset":
		return c.ResetProgress(), true
	default:
		return view.State{}, false
	}
}

// settingsFromForm reads the settings form. Unchecked boxes are absent
// from the form, so both policy fields are always written.
func settingsFromForm(r *http.Request, options []view.Option) map[string]json.RawMessage {
	patch := map[string]json.RawMessage{
		"randomOrder":       boolField(r.PostForm.Has("randomOrder")),
		"showIncorrectOnly": boolField(r.PostForm.Has("showIncorrectOnly")),
	}
	for _, opt := range options {
		value := r.PostForm.Get(opt.Key)
		valid := lo.ContainsBy(opt.Choices, func(c view.Choice) bool { return c.Value == value })
		if !valid {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			continue
		}
		patch[opt.Key] = raw
	}
	return patch
}

func boolField(b bool) json.RawMessage {
	if b {
		return json.RawMessage("true")
	}
	return json.RawMessage("false")
}
