package universe

import (
	"time"

	"bondtrader/internal/domain/entity/bonds"
)

// WorkingSet is the bond universe of one streaming session together with the
// latest valuation of every bond. The bond records are immutable; valuations
// are replaced as a whole by Apply. A WorkingSet is owned by a single
// goroutine and is not safe for concurrent use.
type WorkingSet struct {
	figis      []string
	bonds      map[string]bonds.Bond
	valuations map[string]bonds.Valuation
	builtAt    time.Time
}

// NewWorkingSet indexes bonds by figi and seeds each valuation with an
// empty-book evaluation. Duplicate figis keep the first record.
func NewWorkingSet(list []bonds.Bond, now time.Time) *WorkingSet {
	ws := &WorkingSet{
		figis:      make([]string, 0, len(list)),
		bonds:      make(map[string]bonds.Bond, len(list)),
		valuations: make(map[string]bonds.Valuation, len(list)),
		builtAt:    now,
	}
	for _, b := range list {
		if _, ok := ws.bonds[b.Figi]; ok {
			continue
		}
		ws.figis = append(ws.figis, b.Figi)
		ws.bonds[b.Figi] = b
		ws.valuations[b.Figi] = bonds.Evaluate(b, bonds.Quote{}, now)
	}
	return ws
}

// Len is the number of bonds in the set.
func (ws *WorkingSet) Len() int {
	return len(ws.figis)
}

// Figis lists the identifiers to subscribe to, in catalog order.
func (ws *WorkingSet) Figis() []string {
	out := make([]string, len(ws.figis))
	copy(out, ws.figis)
	return out
}

// Bonds returns the bond records in catalog order.
func (ws *WorkingSet) Bonds() []bonds.Bond {
	out := make([]bonds.Bond, 0, len(ws.figis))
	for _, figi := range ws.figis {
		out = append(out, ws.bonds[figi])
	}
	return out
}

// BuiltAt is when the set was built.
func (ws *WorkingSet) BuiltAt() time.Time {
	return ws.builtAt
}

// Bond looks a bond up by figi.
func (ws *WorkingSet) Bond(figi string) (bonds.Bond, bool) {
	b, ok := ws.bonds[figi]
	return b, ok
}

// Valuation returns the latest valuation of a bond.
func (ws *WorkingSet) Valuation(figi string) (bonds.Valuation, bool) {
	v, ok := ws.valuations[figi]
	return v, ok
}

// Apply re-evaluates a bond at a new ask and stores the result. changed is
// true when the real price differs from the previous valuation; known is
// false for figis outside the set, which are left untouched.
func (ws *WorkingSet) Apply(figi string, ask bonds.Quote, now time.Time) (bond bonds.Bond, val bonds.Valuation, changed, known bool) {
	bond, known = ws.bonds[figi]
	if !known {
		return bonds.Bond{}, bonds.Valuation{}, false, false
	}
	prev := ws.valuations[figi]
	val = bonds.Evaluate(bond, ask, now)
	ws.valuations[figi] = val
	return bond, val, val.RealPrice != prev.RealPrice, true
}
