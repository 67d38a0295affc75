// Package viewer holds the pure viewer core: the render-model adapter and
// the atom-selection state machine.  Nothing in this package talks to a
// rendering engine — every transition returns an explicit effect plan that
// the owning session applies, so the machines stay testable against any
// event source.
package viewer

import (
	"gonum.org/v1/gonum/spatial/r3"

	vtypes "github.com/molscope/molscope/pkg/types/viewer"
)

// ─────────────────────────────────────────────────────────────────────────────
// Effects
// ─────────────────────────────────────────────────────────────────────────────

// Highlight assigns one selected atom to a palette slot.  Slot 0 is the
// earlier-selected atom, slot 1 the later; the host maps slots onto its
// two-entry highlight palette.
type Highlight struct {
	Slot   int
	Serial int
}

// Measurement describes the line primitive to draw between the two selected
// atoms.  From is always the earlier-selected snapshot.
type Measurement struct {
	From vtypes.SelectedAtom
	To   vtypes.SelectedAtom
}

// Effect is the complete side-effect plan of one selection transition.  The
// host applies it in order: restyle every atom to the base style and overlay
// the listed highlights, dispose any existing measurement primitive, draw
// Measurement when non-nil, render once, and emit Event.
type Effect struct {
	// Highlights covers the current selection, ordered by slot.
	Highlights []Highlight

	// Measurement is non-nil exactly when two atoms are selected.
	Measurement *Measurement

	// Distance is the Euclidean distance in Ångströms between the two
	// selected atoms, nil unless exactly two are selected.
	Distance *float64

	// Event is the selection-change record for the host, carrying the
	// ordered selection and the distance.
	Event vtypes.SelectionEvent
}

// ─────────────────────────────────────────────────────────────────────────────
// Selection state machine
// ─────────────────────────────────────────────────────────────────────────────

// Selection is the state machine over at most two selected atoms.  Atom
// identity is the render-model serial, never snapshot identity, because each
// pick delivers a fresh copy.  The zero value is an empty selection ready
// for use.
//
// States map onto the slot count: 0 empty, 1 one selected, 2 two selected
// with slot 0 holding the earlier pick.
type Selection struct {
	slots []vtypes.SelectedAtom
}

// Select feeds one picked atom through the transition table:
//
//	empty            → one selected
//	same as the one  → empty                  (toggle off)
//	other than one   → two selected
//	same as either   → the other stays alone
//	third distinct   → oldest evicted (FIFO), newcomer appended
//
// The returned effect reflects the state after the transition.  Picks
// without a positive serial carry no identity; they are ignored and Select
// reports false with nothing to apply.
func (s *Selection) Select(atom vtypes.SelectedAtom) (Effect, bool) {
	if atom.Serial < 1 {
		return Effect{}, false
	}

	switch len(s.slots) {
	case 0:
		s.slots = append(s.slots, atom)

	case 1:
		if s.slots[0].Serial == atom.Serial {
			s.slots = s.slots[:0]
		} else {
			s.slots = append(s.slots, atom)
		}

	default:
		switch atom.Serial {
		case s.slots[0].Serial:
			s.slots = []vtypes.SelectedAtom{s.slots[1]}
		case s.slots[1].Serial:
			s.slots = s.slots[:1]
		default:
			s.slots = []vtypes.SelectedAtom{s.slots[1], atom}
		}
	}

	return s.effect(), true
}

// Clear empties the selection.  It reports false without an effect when the
// selection is already empty, so an idle clear stays observably a no-op.
func (s *Selection) Clear() (Effect, bool) {
	if len(s.slots) == 0 {
		return Effect{}, false
	}
	s.slots = nil
	return s.effect(), true
}

// Atoms returns a copy of the current selection in pick order.
func (s *Selection) Atoms() []vtypes.SelectedAtom {
	out := make([]vtypes.SelectedAtom, len(s.slots))
	copy(out, s.slots)
	return out
}

// Distance returns the measured distance when exactly two atoms are
// selected, nil otherwise.
func (s *Selection) Distance() *float64 {
	if len(s.slots) != 2 {
		return nil
	}
	d := snapshotDistance(s.slots[0], s.slots[1])
	return &d
}

// Size is the number of currently selected atoms (0, 1, or 2).
func (s *Selection) Size() int { return len(s.slots) }

// effect builds the plan for the current state.  Every completed transition
// produces one effect, whether or not the selection size changed.
func (s *Selection) effect() Effect {
	atoms := s.Atoms()

	eff := Effect{
		Highlights: make([]Highlight, len(atoms)),
		Event:      vtypes.SelectionEvent{Atoms: atoms},
	}
	for i, a := range atoms {
		eff.Highlights[i] = Highlight{Slot: i, Serial: a.Serial}
	}

	if len(atoms) == 2 {
		d := snapshotDistance(atoms[0], atoms[1])
		eff.Distance = &d
		eff.Event.Distance = &d
		eff.Measurement = &Measurement{From: atoms[0], To: atoms[1]}
	}
	return eff
}

func snapshotDistance(a, b vtypes.SelectedAtom) float64 {
	return r3.Norm(r3.Sub(
		r3.Vec{X: a.Coordinates.X, Y: a.Coordinates.Y, Z: a.Coordinates.Z},
		r3.Vec{X: b.Coordinates.X, Y: b.Coordinates.Y, Z: b.Coordinates.Z},
	))
}
