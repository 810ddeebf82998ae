package deck

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studydeck/internal/progress"
	"studydeck/internal/storage"
)

type card struct {
	ID       string
	Category string
}

func cardID(c card) progress.ItemID { return progress.ItemID(c.ID) }

// counterRand returns 0, 1, 2, ... modulo n
type counterRand struct{ next int }

func (r *counterRand) IntN(n int) int {
	v := r.next % n
	r.next++
	return v
}

// scriptedRand replays fixed values, then repeats the last one
type scriptedRand struct {
	values []int
	calls  int
}

func (r *scriptedRand) IntN(n int) int {
	v := r.values[len(r.values)-1]
	if r.calls < len(r.values) {
		v = r.values[r.calls]
	}
	r.calls++
	return v % n
}

func cards(ids ...string) []card {
	out := make([]card, len(ids))
	for i, id := range ids {
		out[i] = card{ID: id}
	}
	return out
}

func newSession(t *testing.T, settings Settings, rnd Rand, items []card) (*Session[card], *progress.Store) {
	t.Helper()
	store := progress.Load(storage.New(storage.NewMemoryBackend(), nil), "test")
	s := NewSession("test", store, settings, Options[card]{ID: cardID, Rand: rnd})
	if items != nil {
		s.SetItems(items)
	}
	return s, store
}

func currentID(t *testing.T, s *Session[card]) string {
	t.Helper()
	item, ok := s.CurrentItem()
	require.True(t, ok, "expected a current item")
	return item.ID
}

func TestSequentialWraparound(t *testing.T) {
	s, _ := newSession(t, Settings{}, nil, cards("a", "b", "c", "d"))
	require.Equal(t, 0, s.CurrentIndex())

	for i := 1; i <= 4; i++ {
		s.Advance()
		assert.Equal(t, i%4, s.CurrentIndex())
	}
	assert.Equal(t, "a", currentID(t, s))
}

func TestSequentialKeepsIncomingOrder(t *testing.T) {
	s, _ := newSession(t, Settings{}, nil, cards("x", "y", "z"))

	var seen []string
	for i := 0; i < 3; i++ {
		seen = append(seen, currentID(t, s))
		s.Advance()
	}
	assert.Equal(t, []string{"x", "y", "z"}, seen)
}

func TestAdvanceIsNoOpForSmallDecks(t *testing.T) {
	for _, items := range [][]card{cards(), cards("only")} {
		s, _ := newSession(t, Settings{RandomOrder: true}, &counterRand{}, items)
		key := s.RenderKey()
		s.Advance()
		assert.Equal(t, 0, s.CurrentIndex())
		assert.Equal(t, key, s.RenderKey())
	}
}

func TestRandomAdvanceNeverRepeatsImmediately(t *testing.T) {
	const n = 6
	s, _ := newSession(t, Settings{RandomOrder: true}, &counterRand{next: 3}, cards("a", "b", "c", "d", "e", "f"))
	require.Len(t, s.Order(), n)

	for round := 0; round < 5*n; round++ {
		before := s.CurrentIndex()
		s.Advance()
		assert.NotEqual(t, before, s.CurrentIndex(), "round %d repeated index %d", round, before)
	}
}

func TestRandomAdvanceVisitsEveryCardBeforeRepeating(t *testing.T) {
	const n = 5
	s, _ := newSession(t, Settings{RandomOrder: true}, &counterRand{}, cards("a", "b", "c", "d", "e"))

	visited := map[int]bool{s.CurrentIndex(): true}
	for i := 0; i < n-1; i++ {
		s.Advance()
		assert.False(t, visited[s.CurrentIndex()], "index %d shown twice in one cycle", s.CurrentIndex())
		visited[s.CurrentIndex()] = true
	}
	assert.Len(t, visited, n)
}

func TestRandomAdvanceResetsShownWhenExhausted(t *testing.T) {
	s, _ := newSession(t, Settings{RandomOrder: true}, &counterRand{}, cards("a", "b", "c"))

	s.Advance()
	s.Advance()
	require.Len(t, s.Shown(), 2)

	current := s.CurrentIndex()
	s.Advance()
	shown := s.Shown()
	assert.Len(t, shown, 2)
	assert.Contains(t, shown, current)
	assert.Contains(t, shown, s.CurrentIndex())
}

func TestRandomAdvanceSkipsMasteredCards(t *testing.T) {
	s, store := newSession(t, Settings{RandomOrder: true}, &counterRand{}, cards("a", "b", "c", "d"))
	order := s.Order()
	// Master everything except the current card and one other
	keep := (s.CurrentIndex() + 2) % len(order)
	for i, item := range order {
		if i != s.CurrentIndex() && i != keep {
			store.MarkCorrect(progress.ItemID(item.ID))
		}
	}

	s.Advance()
	assert.Equal(t, keep, s.CurrentIndex())
}

func TestRandomAdvanceFallsBackAfterBoundedAttempts(t *testing.T) {
	rnd := &scriptedRand{values: []int{0}}
	s, _ := newSession(t, Settings{RandomOrder: true}, rnd, cards("a", "b", "c"))
	require.Equal(t, 0, s.CurrentIndex())

	calls := rnd.calls
	s.Advance()

	assert.Equal(t, 6, rnd.calls-calls, "expected 2×length draws before giving up")
	assert.Equal(t, 0, s.CurrentIndex(), "last candidate is accepted unconditionally")
}

func TestReportCorrectUntilAllMastered(t *testing.T) {
	for _, random := range []bool{false, true} {
		s, _ := newSession(t, Settings{RandomOrder: random}, &counterRand{}, cards("a", "b", "c"))

		for i := 0; i < 3; i++ {
			assert.Equal(t, CompletionNone, s.Completion())
			s.ReportCorrect()
		}

		assert.Equal(t, AllMastered, s.Completion(), "random=%v", random)
		assert.Equal(t, Summary{Total: 3, Seen: 3, Correct: 3, Incorrect: 0}, s.Summary())
	}
}

func TestIncorrectOnlyEmpty(t *testing.T) {
	s, _ := newSession(t, Settings{}, nil, cards("a", "b", "c"))
	for i := 0; i < 3; i++ {
		s.ReportCorrect()
	}

	s.SetSettings(Settings{ShowIncorrectOnly: true})

	assert.Equal(t, IncorrectOnlyEmpty, s.Completion())
	assert.Empty(t, s.Visible())
	_, ok := s.CurrentItem()
	assert.False(t, ok)
}

func TestFilterSwitchResetsPosition(t *testing.T) {
	s, store := newSession(t, Settings{}, nil, cards("a", "b", "c", "d"))
	store.MarkIncorrect("b")
	store.MarkIncorrect("d")
	s.Advance()
	s.Advance()
	require.Equal(t, 2, s.CurrentIndex())
	key := s.RenderKey()

	s.SetSettings(Settings{ShowIncorrectOnly: true})

	assert.Equal(t, 0, s.CurrentIndex())
	assert.Equal(t, []card{{ID: "b"}, {ID: "d"}}, s.Visible())
	assert.Equal(t, "b", currentID(t, s))
	assert.Greater(t, s.RenderKey(), key)
}

func TestOrderSwitchResetsPosition(t *testing.T) {
	rnd := &scriptedRand{values: []int{0, 0, 0, 3}}
	s, _ := newSession(t, Settings{}, rnd, cards("a", "b", "c", "d"))
	s.Advance()
	s.Advance()
	require.Equal(t, 2, s.CurrentIndex())
	require.Zero(t, rnd.calls, "sequential mode draws nothing")
	key := s.RenderKey()

	s.SetSettings(Settings{RandomOrder: true})

	// Three draws shuffle the order, the fourth picks the index
	assert.Equal(t, 4, rnd.calls)
	assert.Equal(t, cards("b", "c", "d", "a"), s.Order())
	assert.ElementsMatch(t, cards("a", "b", "c", "d"), s.Order())
	assert.Equal(t, 3, s.CurrentIndex())
	assert.Equal(t, "a", currentID(t, s))
	assert.Greater(t, s.RenderKey(), key)
	key = s.RenderKey()

	s.SetSettings(Settings{})

	assert.Equal(t, 0, s.CurrentIndex())
	assert.Equal(t, cards("a", "b", "c", "d"), s.Order())
	assert.Equal(t, "a", currentID(t, s))
	assert.Greater(t, s.RenderKey(), key)
	assert.Equal(t, 4, rnd.calls)
}

func TestReportingResolvesCurrentItem(t *testing.T) {
	s, store := newSession(t, Settings{}, nil, cards("a", "b", "c"))

	s.ReportIncorrect()
	assert.True(t, store.IsIncorrect("a"))
	assert.Equal(t, "b", currentID(t, s))

	s.ReportCorrect()
	assert.True(t, store.IsCorrect("b"))
	assert.Equal(t, "c", currentID(t, s))
}

func TestMarkCapturesIDWithoutAdvancing(t *testing.T) {
	s, store := newSession(t, Settings{}, nil, cards("a", "b"))

	id, ok := s.Mark(true)

	assert.True(t, ok)
	assert.Equal(t, progress.ItemID("a"), id)
	assert.True(t, store.IsCorrect("a"))
	assert.Equal(t, 0, s.CurrentIndex())
}

func TestReportingOnEmptyDeckIsNoOp(t *testing.T) {
	s, store := newSession(t, Settings{}, nil, cards())

	s.ReportCorrect()
	s.ReportIncorrect()

	assert.Equal(t, progress.Empty(), store.Snapshot())
	assert.Equal(t, Position{}, s.Position())
}

func TestCorrectAnswerInIncorrectOnlyModeShrinksDeck(t *testing.T) {
	s, store := newSession(t, Settings{ShowIncorrectOnly: true}, nil, nil)
	store.MarkIncorrect("a")
	store.MarkIncorrect("b")
	store.MarkIncorrect("c")
	s.SetItems(cards("a", "b", "c"))
	require.Len(t, s.Visible(), 3)

	s.ReportCorrect()

	assert.Len(t, s.Visible(), 2)
	assert.NotContains(t, s.Visible(), card{ID: "a"})
	assert.Equal(t, CompletionNone, s.Completion())
}

func TestResetProgress(t *testing.T) {
	settings := Settings{RandomOrder: true}.With("direction", "reverse")
	items := cards("a", "b", "c")
	s, store := newSession(t, settings, &counterRand{}, items)
	s.ReportCorrect()
	s.ReportIncorrect()
	require.NotEmpty(t, s.Shown())

	s.ResetProgress()

	assert.Equal(t, progress.Empty(), store.Snapshot())
	assert.Empty(t, s.Shown())
	assert.Equal(t, items, s.Items())
	assert.Equal(t, settings, s.Settings())
}

func TestLoadingAndErrorStates(t *testing.T) {
	s, _ := newSession(t, Settings{}, nil, nil)
	assert.True(t, s.Loading())
	s.Advance()
	s.ReportCorrect()
	_, ok := s.CurrentItem()
	assert.False(t, ok)

	s.SetError(errors.New("content unavailable: 404"))
	assert.False(t, s.Loading())
	assert.Equal(t, "content unavailable: 404", s.Err())
	assert.Empty(t, s.Items())
	assert.Equal(t, CompletionNone, s.Completion())

	s.SetItems(cards("a"))
	assert.Empty(t, s.Err())
	assert.Equal(t, "a", currentID(t, s))
}

func TestRandomOrderIsStableAcrossReads(t *testing.T) {
	s, store := newSession(t, Settings{RandomOrder: true}, &counterRand{next: 1}, cards("a", "b", "c", "d"))
	before := append([]card(nil), s.Order()...)

	// Progress changes that do not alter the visible set keep the order
	store.MarkIncorrect("a")
	s.MarkItem("b", true)

	assert.Equal(t, before, s.Order())
	assert.ElementsMatch(t, cards("a", "b", "c", "d"), s.Order())
}

func TestCustomFilter(t *testing.T) {
	byCategory := func(items []card, settings Settings, p progress.Progress, id IDFunc[card]) []card {
		category := settings.String("category", "all")
		var filtered []card
		for _, item := range items {
			if category == "all" || item.Category == category {
				filtered = append(filtered, item)
			}
		}
		return DefaultFilter(filtered, settings, p, id)
	}

	store := progress.Load(storage.New(nil, nil), "civics")
	s := NewSession("civics", store, Settings{}.With("category", "rights"), Options[card]{ID: cardID, Filter: byCategory})
	s.SetItems([]card{{ID: "1", Category: "rights"}, {ID: "2", Category: "history"}, {ID: "3", Category: "rights"}})

	assert.Equal(t, []card{{ID: "1", Category: "rights"}, {ID: "3", Category: "rights"}}, s.Visible())

	store.MarkIncorrect("2")
	store.MarkIncorrect("3")
	s.SetSettings(Settings{ShowIncorrectOnly: true}.With("category", "rights"))
	assert.Equal(t, []card{{ID: "3", Category: "rights"}}, s.Visible())
}
