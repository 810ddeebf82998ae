// Package activity keeps per-day answer counters for each study page.
package activity

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"studydeck/internal/storage"
)

// StorageKey is the single key all activity is persisted under
const StorageKey = "daily_activity_stats"

// AllPages selects every page in Histogram
const AllPages = "all"

const dateLayout = "2006-01-02"

// Counts are the counters of one page on one day
type Counts struct {
	QuizAttempts   int `json:"quizAttempts"`
	CorrectAnswers int `json:"correctAnswers"`
}

// Record is one flattened date and page entry
type Record struct {
	Date           string `json:"date"`
	PageName       string `json:"pageName"`
	QuizAttempts   int    `json:"quizAttempts"`
	CorrectAnswers int    `json:"correctAnswers"`
}

// Point is one day of the histogram
type Point struct {
	Date          string `json:"date"`
	TotalAttempts int    `json:"totalAttempts"`
	TotalCorrect  int    `json:"totalCorrect"`
	AccuracyRate  int    `json:"accuracyRate"`
}

// PageSummary totals a page across all days
type PageSummary struct {
	PageName       string `json:"pageName"`
	Days           int    `json:"days"`
	QuizAttempts   int    `json:"quizAttempts"`
	CorrectAnswers int    `json:"correctAnswers"`
	AccuracyRate   int    `json:"accuracyRate"`
	LastActive     string `json:"lastActive"`
}

type stats map[string]map[string]Counts

// Tracker records attempts and correct answers against today's date
type Tracker struct {
	mu  sync.Mutex
	kv  *storage.Store
	now func() time.Time
}

// NewTracker creates a tracker over kv using the local clock
func NewTracker(kv *storage.Store) *Tracker {
	return &Tracker{kv: kv, now: time.Now}
}

// WithClock replaces the clock, for tests and tools
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Today returns the local calendar date the tracker counts against
func (t *Tracker) Today() string {
	return t.now().Local().Format(dateLayout)
}

// TrackAttempt counts one attempt on pageName today
func (t *Tracker) TrackAttempt(pageName string) {
	t.update(pageName, func(c *Counts) { c.QuizAttempts++ })
}

// TrackCorrect counts one correct answer on pageName today. It does not
// count an attempt.
func (t *Tracker) TrackCorrect(pageName string) {
	t.update(pageName, func(c *Counts) { c.CorrectAnswers++ })
}

func (t *Tracker) update(pageName string, fn func(c *Counts)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	all := t.load()
	date := t.Today()
	pages := all[date]
	if pages == nil {
		pages = make(map[string]Counts)
		all[date] = pages
	}
	counts := pages[pageName]
	fn(&counts)
	pages[pageName] = counts

	storage.Write(t.kv, StorageKey, all)
}

func (t *Tracker) load() stats {
	all := storage.Read(t.kv, StorageKey, stats{})
	if all == nil {
		all = stats{}
	}
	return all
}

// List flattens all counters, most recent date first. Pages of the same
// date are ordered by name.
func (t *Tracker) List() []Record {
	t.mu.Lock()
	all := t.load()
	t.mu.Unlock()

	var records []Record
	for date, pages := range all {
		for page, counts := range pages {
			records = append(records, Record{
				Date:           date,
				PageName:       page,
				QuizAttempts:   counts.QuizAttempts,
				CorrectAnswers: counts.CorrectAnswers,
			})
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date > records[j].Date
		}
		return records[i].PageName < records[j].PageName
	})
	return records
}

// Histogram sums the counters per date for one page, or for every page
// when pageFilter is AllPages. Points are ordered most recent first.
func (t *Tracker) Histogram(pageFilter string) []Point {
	records := lo.Filter(t.List(), func(r Record, _ int) bool {
		return pageFilter == AllPages || r.PageName == pageFilter
	})

	byDate := lo.GroupBy(records, func(r Record) string { return r.Date })
	points := make([]Point, 0, len(byDate))
	for date, group := range byDate {
		p := Point{Date: date}
		for _, r := range group {
			p.TotalAttempts += r.QuizAttempts
			p.TotalCorrect += r.CorrectAnswers
		}
		p.AccuracyRate = Accuracy(p.TotalAttempts, p.TotalCorrect)
		points = append(points, p)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date > points[j].Date })
	return points
}

// Pages lists every page with recorded activity, by name
func (t *Tracker) Pages() []string {
	pages := lo.Uniq(lo.Map(t.List(), func(r Record, _ int) string { return r.PageName }))
	sort.Strings(pages)
	return pages
}

// Summaries totals each page across all days
func (t *Tracker) Summaries() []PageSummary {
	byPage := lo.GroupBy(t.List(), func(r Record) string { return r.PageName })

	summaries := make([]PageSummary, 0, len(byPage))
	for page, records := range byPage {
		s := PageSummary{PageName: page, Days: len(records)}
		for _, r := range records {
			s.QuizAttempts += r.QuizAttempts
			s.CorrectAnswers += r.CorrectAnswers
			if r.Date > s.LastActive {
				s.LastActive = r.Date
			}
		}
		s.AccuracyRate = Accuracy(s.QuizAttempts, s.CorrectAnswers)
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].PageName < summaries[j].PageName })
	return summaries
}

// ClearAll forgets every counter
func (t *Tracker) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	storage.Write(t.kv, StorageKey, stats{})
}

// Accuracy is the rounded percentage of correct answers, 0 without attempts
func Accuracy(attempts, correct int) int {
	if attempts == 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(attempts)))
}
