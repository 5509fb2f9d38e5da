package composition

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/tradedesk/internal/domain/catalog"
	"github.com/erp/tradedesk/internal/domain/shared"
	"github.com/erp/tradedesk/internal/domain/trade"
	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or expired sessions
var ErrSessionNotFound = shared.NewDomainError("NOT_FOUND", "Composition session not found or expired")

// deductionEntry is a remote net weight result for one slot, tagged with the
// slot revision it was requested for
type deductionEntry struct {
	input    string
	revision uint64
	outcome  catalog.DeductionOutcome
}

// Session is the server-side state of one order being composed. Slots are
// numbered per session; revisions let late remote results and overlapping
// recomputes be discarded.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu         sync.Mutex
	nextSlot   int
	revision   uint64
	committed  uint64
	slotInput  map[int]string
	slotRev    map[int]uint64
	deductions map[int]deductionEntry
	last       *trade.Result
	touchedAt  time.Time
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:         uuid.New(),
		CreatedAt:  now,
		nextSlot:   1,
		slotInput:  make(map[int]string),
		slotRev:    make(map[int]uint64),
		deductions: make(map[int]deductionEntry),
		touchedAt:  now,
	}
}

// AssignSlots numbers lines that have no slot yet. Slots sent back by the
// client are kept and never reissued.
func (s *Session) AssignSlots(o *trade.BusinessOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range o.Lines {
		if l.Slot >= s.nextSlot {
			s.nextSlot = l.Slot + 1
		}
	}
	for i := range o.Lines {
		if o.Lines[i].Slot <= 0 {
			o.Lines[i].Slot = s.nextSlot
			s.nextSlot++
		}
	}
}

// Begin starts a recompute and returns its draft revision
func (s *Session) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revision++
	return s.revision
}

// Commit stores the result of the recompute started at revision. It reports
// false, keeping the newer result, when a later recompute already committed.
func (s *Session) Commit(revision uint64, r trade.Result) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if revision < s.committed {
		return false
	}
	s.committed = revision
	s.last = &r
	return true
}

// Last returns the most recent committed result
func (s *Session) Last() (trade.Result, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return trade.Result{}, 0, false
	}
	return *s.last, s.committed, true
}

// deductionInput fingerprints the inputs of a net weight evaluation
func deductionInput(l *trade.OrderLine) string {
	if l.GrossWeight == nil || l.FormulaID == nil {
		return ""
	}
	return fmt.Sprintf("%s|%s|%d", l.FormulaID, l.GrossWeight.String(), l.UnitCount)
}

// Observe records the deduction inputs of a line. It returns the slot
// revision and whether an evaluation for exactly these inputs is needed.
func (s *Session) Observe(l *trade.OrderLine) (uint64, bool) {
	in := deductionInput(l)
	s.mu.Lock()
	defer s.mu.Unlock()

	if in == "" {
		delete(s.slotInput, l.Slot)
		delete(s.deductions, l.Slot)
		return s.slotRev[l.Slot], false
	}
	if s.slotInput[l.Slot] != in {
		s.slotInput[l.Slot] = in
		s.slotRev[l.Slot]++
	}
	rev := s.slotRev[l.Slot]
	if e, ok := s.deductions[l.Slot]; ok && e.revision == rev {
		return rev, false
	}
	return rev, true
}

// Record stores a remote result for slot. Results for an older revision of
// the slot are dropped and Record reports false.
func (s *Session) Record(slot int, revision uint64, outcome catalog.DeductionOutcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if revision != s.slotRev[slot] {
		return false
	}
	s.deductions[slot] = deductionEntry{input: s.slotInput[slot], revision: revision, outcome: outcome}
	return true
}

// Deductions returns the current remote results of the given lines
func (s *Session) Deductions(lines []trade.OrderLine) map[int]catalog.DeductionOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]catalog.DeductionOutcome)
	for i := range lines {
		l := &lines[i]
		e, ok := s.deductions[l.Slot]
		if !ok || e.revision != s.slotRev[l.Slot] || e.input != deductionInput(l) {
			continue
		}
		out[l.Slot] = e.outcome
	}
	return out
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.touchedAt = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

// SessionStore keeps open sessions in memory and forgets idle ones
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	idleTTL  time.Duration
	now      func() time.Time
}

// NewSessionStore creates a new SessionStore
func NewSessionStore(idleTTL time.Duration) *SessionStore {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &SessionStore{
		sessions: make(map[uuid.UUID]*Session),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// IdleTTL returns how long an untouched session lives
func (st *SessionStore) IdleTTL() time.Duration {
	return st.idleTTL
}

// Open creates a session
func (st *SessionStore) Open() *Session {
	s := newSession(st.now())
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns a live session and marks it used
func (st *SessionStore) Get(id uuid.UUID) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := st.now()
	if now.Sub(s.idleSince()) > st.idleTTL {
		st.Close(id)
		return nil, ErrSessionNotFound
	}
	s.touch(now)
	return s, nil
}

// Close forgets a session. Closing an unknown session is not an error.
func (st *SessionStore) Close(id uuid.UUID) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len returns the number of open sessions
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes idle sessions and returns how many it removed
func (st *SessionStore) Sweep() int {
	now := st.now()
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if now.Sub(s.idleSince()) > st.idleTTL {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is done
func (st *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}
