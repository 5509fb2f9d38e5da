package composition

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/tradedesk/internal/domain/catalog"
	"github.com/erp/tradedesk/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_AssignSlots(t *testing.T) {
	s := newSession(time.Now())

	o := &trade.BusinessOrder{Lines: []trade.OrderLine{{}, {}}}
	s.AssignSlots(o)
	assert.Equal(t, 1, o.Lines[0].Slot)
	assert.Equal(t, 2, o.Lines[1].Slot)

	// a removed line's slot is never reused
	o.Lines = append(o.Lines[1:], trade.OrderLine{})
	s.AssignSlots(o)
	assert.Equal(t, 2, o.Lines[0].Slot)
	assert.Equal(t, 3, o.Lines[1].Slot)

	// slots sent by the client move the counter past them
	o.Lines = append(o.Lines, trade.OrderLine{Slot: 10}, trade.OrderLine{})
	s.AssignSlots(o)
	assert.Equal(t, 11, o.Lines[3].Slot)
}

func TestSession_SlotsAreIndependent(t *testing.T) {
	a, b := newSession(time.Now()), newSession(time.Now())
	oa := &trade.BusinessOrder{Lines: []trade.OrderLine{{}}}
	ob := &trade.BusinessOrder{Lines: []trade.OrderLine{{}}}
	a.AssignSlots(oa)
	b.AssignSlots(ob)
	assert.Equal(t, 1, oa.Lines[0].Slot)
	assert.Equal(t, 1, ob.Lines[0].Slot)
}

func TestSession_CommitKeepsNewest(t *testing.T) {
	s := newSession(time.Now())
	first := s.Begin()
	second := s.Begin()

	assert.True(t, s.Commit(second, trade.Result{Ready: true}))
	assert.False(t, s.Commit(first, trade.Result{Ready: false}))

	last, rev, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, second, rev)
	assert.True(t, last.Ready)
}

func TestSession_DeductionRevisions(t *testing.T) {
	s := newSession(time.Now())
	formulaID := uuid.New()
	gross := decimal.NewFromInt(100)
	line := trade.OrderLine{Slot: 1, FormulaID: &formulaID, GrossWeight: &gross, UnitCount: 2}
	outcome := catalog.DeductionOutcome{Gross: gross, Net: decimal.NewFromInt(98)}

	rev1, needed := s.Observe(&line)
	assert.True(t, needed)

	// the user edits the gross weight before the first answer arrives
	gross2 := decimal.NewFromInt(120)
	line.GrossWeight = &gross2
	rev2, needed := s.Observe(&line)
	assert.True(t, needed)
	assert.Greater(t, rev2, rev1)

	assert.False(t, s.Record(1, rev1, outcome), "late answer for old input is dropped")
	assert.Empty(t, s.Deductions([]trade.OrderLine{line}))

	fresh := catalog.DeductionOutcome{Gross: gross2, Net: decimal.NewFromInt(118)}
	assert.True(t, s.Record(1, rev2, fresh))
	got := s.Deductions([]trade.OrderLine{line})
	require.Contains(t, got, 1)
	assert.True(t, got[1].Net.Equal(decimal.NewFromInt(118)))

	_, needed = s.Observe(&line)
	assert.False(t, needed, "same inputs are not evaluated twice")

	line.FormulaID = nil
	_, needed = s.Observe(&line)
	assert.False(t, needed)
	assert.Empty(t, s.Deductions([]trade.OrderLine{line}))
}

func TestSessionStore_Expiry(t *testing.T) {
	st := NewSessionStore(time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	s := st.Open()
	got, err := st.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	now = now.Add(50 * time.Second)
	_, err = st.Get(s.ID)
	require.NoError(t, err, "use refreshes the idle clock")

	now = now.Add(61 * time.Second)
	_, err = st.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, st.Len())
}

func TestSessionStore_Sweep(t *testing.T) {
	st := NewSessionStore(time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return now }

	idle := st.Open()
	now = now.Add(45 * time.Second)
	active := st.Open()
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, st.Sweep())
	_, err := st.Get(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = st.Get(active.ID)
	assert.NoError(t, err)
}

func TestSessionStore_Concurrent(t *testing.T) {
	st := NewSessionStore(time.Minute)
	var wg sync.WaitGroup
	ids := make(chan uuid.UUID, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := st.Open()
			o := &trade.BusinessOrder{Lines: []trade.OrderLine{{}}}
			s.AssignSlots(o)
			s.Commit(s.Begin(), trade.Result{})
			ids <- s.ID
		}()
	}
	wg.Wait()
	close(ids)
	assert.Equal(t, 50, st.Len())
	for id := range ids {
		st.Close(id)
	}
	assert.Equal(t, 0, st.Len())
}

func TestSessionStore_RunStopsWithContext(t *testing.T) {
	st := NewSessionStore(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
