package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"
)

// Router bundles the handlers the HTTP routes dispatch to
type Router struct {
	Middleware *Middleware
	Decks      *DeckHandler
	Activity   *ActivityHandler
	Startup    *StartupHandler
	Gate       *Startup
	Log        logrus.FieldLogger
}

// Handler builds the route table
func (rt *Router) Handler() http.Handler {
	m := rt.Middleware
	mux := http.NewServeMux()

	// Health and startup
	mux.HandleFunc("GET /healthz", rt.Startup.Health)
	mux.HandleFunc("GET /startup", rt.Startup.ShowStartupStatus)

	// Pages
	mux.HandleFunc("GET /", m.Visit(rt.Decks.ShowIndex))
	mux.HandleFunc("GET /decks/{deck}", m.Visit(rt.Decks.ShowDeck))
	mux.HandleFunc("POST /decks/{deck}/{action}", m.RateLimit(m.Visit(m.CSRFProtect(rt.Decks.SubmitAction))))
	mux.HandleFunc("GET /activity", m.Visit(rt.Activity.ShowActivity))
	mux.HandleFunc("POST /activity/clear", m.Visit(m.CSRFProtect(rt.Activity.ClearActivity)))

	// API
	mux.HandleFunc("GET /api/session", m.Visit(rt.Decks.SessionToken))
	mux.HandleFunc("GET /api/decks", rt.Decks.ListDecks)
	mux.HandleFunc("GET /api/decks/{deck}", m.Visit(rt.Decks.GetDeck))
	mux.HandleFunc("POST /api/decks/{deck}/{action}", m.RateLimit(m.Visit(m.CSRFProtect(rt.Decks.PerformAction))))
	mux.HandleFunc("PUT /api/decks/{deck}/settings", m.RateLimit(m.Visit(m.CSRFProtect(rt.Decks.UpdateSettings))))
	mux.HandleFunc("DELETE /api/decks/{deck}", m.Visit(m.CSRFProtect(rt.Decks.LeaveDeck)))
	mux.HandleFunc("GET /api/activity", rt.Activity.GetActivity)
	mux.HandleFunc("DELETE /api/activity", m.Visit(m.CSRFProtect(rt.Activity.DeleteActivity)))

	var handler http.Handler = mux
	if rt.Gate != nil {
		handler = rt.Gate.Gate(handler)
	}
	logger := rt.Log
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return Logging(logger)(handler)
}
