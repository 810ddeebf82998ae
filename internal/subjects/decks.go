package subjects

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"studydeck/internal/deck"
	"studydeck/internal/progress"
	"studydeck/internal/view"
)

// Event is a history card
type Event struct {
	ID          progress.ItemID `json:"id"`
	Event       string          `json:"event"`
	Year        string          `json:"year"`
	Description string          `json:"description"`
}

// History is the dates-and-events deck
func History() Subject {
	return define(view.Config[Event]{
		DeckID:   "history",
		Title:    "History",
		Defaults: defaults(nil),
		Session:  deck.Options[Event]{ID: func(e Event) progress.ItemID { return e.ID }},
		Render: func(e Event, _ deck.Settings) view.Card {
			back := "**" + e.Year + "**"
			if e.Description != "" {
				back += "\n\n" + e.Description
			}
			return view.Card{Front: "When did this happen?\n\n" + e.Event, Back: back}
		},
	}, "Key events and when they happened")
}

// Country is a geography card
type Country struct {
	ID        progress.ItemID `json:"id"`
	Country   string          `json:"country"`
	Capital   string          `json:"capital"`
	Continent string          `json:"continent"`
}

const (
	countryToCapital = "countryToCapital"
	capitalToCountry = "capitalToCountry"
)

// Geography asks for capitals, or for countries when reversed
func Geography() Subject {
	return define(view.Config[Country]{
		DeckID:   "geography",
		Title:    "Geography",
		Defaults: defaults(map[string]string{"direction": countryToCapital}),
		Options: []view.Option{{
			Key:   "direction",
			Label: "Card direction",
			Choices: []view.Choice{
				{Value: countryToCapital, Label: "Country → capital"},
				{Value: capitalToCountry, Label: "Capital → country"},
			},
		}},
		Session: deck.Options[Country]{ID: func(c Country) progress.ItemID { return c.ID }},
		Render: func(c Country, s deck.Settings) view.Card {
			if s.String("direction", countryToCapital) == capitalToCountry {
				return view.Card{Front: "Which country has the capital **" + c.Capital + "**?", Back: c.Country}
			}
			front := "What is the capital of **" + c.Country + "**?"
			if c.Continent != "" {
				front += "\n\n_" + c.Continent + "_"
			}
			return view.Card{Front: front, Back: c.Capital}
		},
	}, "Countries and their capitals")
}

// Question is a civics card
type Question struct {
	ID       progress.ItemID `json:"id"`
	Question string          `json:"question"`
	Answer   string          `json:"answer"`
	Category string          `json:"category"`
}

const allCategories = "all"

var civicsCategories = []string{"government", "rights", "history", "symbols"}

// civicsFilter restricts the deck to one category before the incorrect-only
// rule applies
func civicsFilter(items []Question, s deck.Settings, p progress.Progress, id deck.IDFunc[Question]) []Question {
	category := s.String("category", allCategories)
	if category != allCategories {
		items = lo.Filter(items, func(q Question, _ int) bool {
			return strings.EqualFold(q.Category, category)
		})
	}
	return deck.DefaultFilter(items, s, p, id)
}

// Civics is the citizenship question deck, filterable by category
func Civics() Subject {
	choices := []view.Choice{{Value: allCategories, Label: "All categories"}}
	for _, c := range civicsCategories {
		choices = append(choices, view.Choice{Value: c, Label: strings.ToUpper(c[:1]) + c[1:]})
	}

	return define(view.Config[Question]{
		DeckID:   "civics",
		Title:    "Civics",
		Defaults: defaults(map[string]string{"category": allCategories}),
		Options:  []view.Option{{Key: "category", Label: "Category", Choices: choices}},
		Session: deck.Options[Question]{
			ID:     func(q Question) progress.ItemID { return q.ID },
			Filter: civicsFilter,
		},
		Render: func(q Question, _ deck.Settings) view.Card {
			return view.Card{Front: q.Question, Back: q.Answer}
		},
	}, "Government, rights and national symbols")
}

// Term is a science card
type Term struct {
	ID         progress.ItemID `json:"id"`
	Term       string          `json:"term"`
	Definition string          `json:"definition"`
	Field      string          `json:"field"`
}

// Science is the terms-and-definitions deck
func Science() Subject {
	return define(view.Config[Term]{
		DeckID:   "science",
		Title:    "Science",
		Defaults: defaults(nil),
		Session:  deck.Options[Term]{ID: func(t Term) progress.ItemID { return t.ID }},
		Render: func(t Term, _ deck.Settings) view.Card {
			front := "Define **" + t.Term + "**"
			if t.Field != "" {
				front = fmt.Sprintf("%s\n\n_%s_", front, t.Field)
			}
			return view.Card{Front: front, Back: t.Definition}
		},
	}, "Scientific terms")
}

// Word is a language card
type Word struct {
	ID          progress.ItemID `json:"id"`
	Word        string          `json:"word"`
	Translation string          `json:"translation"`
	Example     string          `json:"example"`
}

const (
	wordToTranslation = "wordToTranslation"
	translationToWord = "translationToWord"
)

// Language is the vocabulary deck
func Language() Subject {
	return define(view.Config[Word]{
		DeckID:   "language",
		Title:    "Language",
		Defaults: defaults(map[string]string{"direction": wordToTranslation}),
		Options: []view.Option{{
			Key:   "direction",
			Label: "Card direction",
			Choices: []view.Choice{
				{Value: wordToTranslation, Label: "Word → translation"},
				{Value: translationToWord, Label: "Translation → word"},
			},
		}},
		Session: deck.Options[Word]{ID: func(w Word) progress.ItemID { return w.ID }},
		Render: func(w Word, s deck.Settings) view.Card {
			front, back := w.Word, w.Translation
			if s.String("direction", wordToTranslation) == translationToWord {
				front, back = back, front
			}
			if w.Example != "" {
				back += "\n\n> " + w.Example
			}
			return view.Card{Front: "**" + front + "**", Back: back}
		},
	}, "Vocabulary practice")
}
