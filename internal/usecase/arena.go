package usecase

import (
	"sync"

	"SignalForge/internal/domain/models"
)

// pendingOutcome remembers what every model said last cycle so the next
// snapshot can grade them against the realized move.
type pendingOutcome struct {
	predictions []*models.Prediction
	regime      models.RegimeLabel
	price       float64
}

// InstrumentState is everything the pipeline mutates for one symbol. It is
// only ever touched under that symbol's arena lock.
type InstrumentState struct {
	Symbol      string
	Window      []*models.MarketSnapshot
	Regime      *models.RegimeState
	Reliability *models.ReliabilityBook
	LastSignal  *models.TradeSignal
	pending     *pendingOutcome
}

// Clone deep-copies the state so a backtest can fork from a live book
// without sharing anything mutable.
func (s *InstrumentState) Clone() *InstrumentState {
	cp := &InstrumentState{
		Symbol:      s.Symbol,
		Window:      make([]*models.MarketSnapshot, len(s.Window)),
		Reliability: s.Reliability.Clone(),
	}
	for i, snap := range s.Window {
		sc := *snap
		cp.Window[i] = &sc
	}
	if s.Regime != nil {
		cp.Regime = s.Regime.Clone()
	}
	if s.LastSignal != nil {
		sig := *s.LastSignal
		cp.LastSignal = &sig
	}
	return cp
}

// push appends a snapshot, keeping at most cap entries.
func (s *InstrumentState) push(snap *models.MarketSnapshot, capacity int) {
	s.Window = append(s.Window, snap)
	if len(s.Window) > capacity {
		s.Window = s.Window[len(s.Window)-capacity:]
	}
}

type instrumentSlot struct {
	mu    sync.Mutex
	state *InstrumentState
}

// Arena owns per-instrument state and serializes access to it. Cycles for
// the same symbol run strictly one at a time; different symbols proceed in
// parallel.
type Arena struct {
	mu       sync.Mutex
	slots    map[string]*instrumentSlot
	newState func(symbol string) *InstrumentState
}

func NewArena(newState func(symbol string) *InstrumentState) *Arena {
	return &Arena{
		slots:    make(map[string]*instrumentSlot),
		newState: newState,
	}
}

func (a *Arena) slot(symbol string) *instrumentSlot {
	a.mu.Lock()
	defer a.mu.Unlock()
	sl, ok := a.slots[symbol]
	if !ok {
		sl = &instrumentSlot{state: a.newState(symbol)}
		a.slots[symbol] = sl
	}
	return sl
}

// WithLock runs fn holding the symbol's lock. State created on first use.
func (a *Arena) WithLock(symbol string, fn func(state *InstrumentState) error) error {
	sl := a.slot(symbol)
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return fn(sl.state)
}

// Snapshot returns a deep copy of the symbol's state, or nil when the
// symbol has never been seen.
func (a *Arena) Snapshot(symbol string) *InstrumentState {
	a.mu.Lock()
	sl, ok := a.slots[symbol]
	a.mu.Unlock()
	if !ok {
		return nil
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.state.Clone()
}

// Symbols lists every instrument the arena has state for.
func (a *Arena) Symbols() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.slots))
	for s := range a.slots {
		out = append(out, s)
	}
	return out
}
