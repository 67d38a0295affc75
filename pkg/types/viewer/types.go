// Package viewer defines the viewer-domain Data Transfer Objects: the
// render-model atom schema handed to rendering engines, selection snapshots,
// selection-change events, and the session request/response structures of the
// HTTP API.  No domain logic lives here.
package viewer

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Render model
// ─────────────────────────────────────────────────────────────────────────────

// RenderAtom is one atom of the engine-facing render model.  It is derived
// from a molecule snapshot and carries the atom's pickable identity (Serial)
// plus its complete adjacency, so an engine never needs the molecule itself.
//
// Bonds and BondOrder are parallel slices: BondOrder[k] is the order of the
// bond to neighbour index Bonds[k].  Both list duplicates when the source
// declared duplicate bonds; symmetry (a listed in b ⇔ b listed in a) is
// guaranteed by the adapter.
type RenderAtom struct {
	Element string  `json:"elem"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`

	// Serial is the 1-based picking identity, always Index+1.
	Serial int `json:"serial"`

	// Index is the 0-based position in the render model.
	Index int `json:"index"`

	// Bonds lists the 0-based indices of bonded neighbours.
	Bonds []int `json:"bonds"`

	// BondOrder lists the integer order of each bond in Bonds.
	BondOrder []int `json:"bondOrder"`

	// Pass-through naming fields, populated when the source molecule has them.
	Name         string `json:"atom,omitempty"`
	ResidueName  string `json:"resn,omitempty"`
	ResidueIndex int    `json:"resi,omitempty"`
	Chain        string `json:"chain,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Selection
// ─────────────────────────────────────────────────────────────────────────────

// Coordinates is a Cartesian position in Ångströms.
type Coordinates struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// SelectedAtom is the decoupled snapshot of one picked atom.  It is copied
// out of the render model at pick time, so later model rebuilds never mutate
// an existing selection.  The field layout is the selection-change event
// schema consumed by hosts.
type SelectedAtom struct {
	Index   int    `json:"index"`
	Serial  int    `json:"serial"`
	Element string `json:"element"`

	Name         string `json:"name,omitempty"`
	ResidueName  string `json:"residue,omitempty"`
	ResidueIndex int    `json:"residueIndex,omitempty"`
	Chain        string `json:"chain,omitempty"`

	Coordinates Coordinates `json:"coordinates"`
}

// SelectionEvent is emitted after every completed selection transition.
// Atoms preserves pick order (oldest first).  Distance is non-nil exactly
// when two atoms are selected, in Ångströms; it serialises as an explicit
// null otherwise.
type SelectionEvent struct {
	Atoms    []SelectedAtom `json:"atoms"`
	Distance *float64       `json:"distance"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Session lifecycle
// ─────────────────────────────────────────────────────────────────────────────

// SessionState names the lifecycle phase of a viewer session.
type SessionState string

const (
	// StateUninitialized is the zero state before Initialize is requested.
	StateUninitialized SessionState = "uninitialized"

	// StateLoading covers engine acquisition and first construction.
	StateLoading SessionState = "loading"

	// StateReady means the viewer exists and accepts structure and camera
	// operations.
	StateReady SessionState = "ready"

	// StateError is terminal for the attempt; the failure reason is kept on
	// the session.
	StateError SessionState = "error"
)

// SessionInfo is the full externally visible state of a viewer session.
type SessionInfo struct {
	ID     string       `json:"id"`
	State  SessionState `json:"state"`
	Engine string       `json:"engine"`

	// Error holds the failure reason when State is StateError.
	Error string `json:"error,omitempty"`

	// MoleculeID identifies the currently displayed molecule, when any.
	MoleculeID string `json:"molecule_id,omitempty"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// Selected and Distance mirror the most recent selection event.
	Selected []SelectedAtom `json:"selected"`
	Distance *float64       `json:"distance"`

	// Notice is the currently displayed transient message, empty after expiry.
	Notice string `json:"notice,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Session request types
// ─────────────────────────────────────────────────────────────────────────────

// CreateSessionRequest opens a new viewer session.
type CreateSessionRequest struct {
	// Engine selects a registered rendering engine; empty selects the
	// configured default.
	Engine string `json:"engine,omitempty"`

	// Width and Height give the initial mount surface size in pixels.
	// Zero values fall back to the configured defaults.
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// LoadMoleculeRequest swaps the displayed structure.
type LoadMoleculeRequest struct {
	MoleculeID string `json:"molecule_id"`
}

// PickRequest reports a click on an atom, identified either by render-model
// serial or — for engines with coordinate picking — by viewport position.
// Serial takes precedence when both are present.
type PickRequest struct {
	Serial int `json:"serial,omitempty"`

	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
}

// ResizeRequest reports a mount surface size change.
type ResizeRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}
