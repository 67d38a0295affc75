// Package molecule defines the molecule-domain Data Transfer Objects and
// request/response structures used across every layer of Molscope.  No domain
// logic lives here — only plain data types that are safe to import from any
// layer without creating circular dependencies.
package molecule

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Structure primitives
// ─────────────────────────────────────────────────────────────────────────────

// Atom is one atom of a molecular structure.  Index is the atom's 0-based
// position within its molecule and doubles as the bond endpoint reference.
// Coordinates are Cartesian, in Ångströms.
//
// The naming fields (Serial, Name, ResidueName, ResidueIndex, Chain) are
// populated only by structure-file parsers that carry them (PDB); a zero
// Serial means "not assigned by the source".
type Atom struct {
	// Index is the 0-based position of the atom in Molecule.Atoms.
	Index int `json:"index"`

	// Element is the element symbol with conventional capitalisation ("C",
	// "Cl").  Unknown symbols are preserved as parsed.
	Element string `json:"element"`

	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`

	// Serial is the source-file atom serial (PDB column 7–11), 1-based.
	// Zero when the source format does not assign serials.
	Serial int `json:"serial,omitempty"`

	// Name is the source-file atom name (PDB column 13–16), e.g. "CA".
	Name string `json:"name,omitempty"`

	// ResidueName is the 3-letter residue code for biopolymer structures.
	ResidueName string `json:"residue_name,omitempty"`

	// ResidueIndex is the residue sequence number, 1-based; zero when absent.
	ResidueIndex int `json:"residue_index,omitempty"`

	// Chain is the single-letter chain identifier.
	Chain string `json:"chain,omitempty"`
}

// Bond connects two atoms of the same molecule by their 0-based indices.
// Order is the integer bond order and is always at least 1; parsers clamp
// smaller values up rather than reject them.
type Bond struct {
	Atom1 int `json:"atom1"`
	Atom2 int `json:"atom2"`
	Order int `json:"order"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Molecule — the canonical wire representation
// ─────────────────────────────────────────────────────────────────────────────

// Molecule is the canonical molecule representation passed between the
// application, interface, and client layers.  A molecule is read-only once
// produced: geometry changes are modelled as a replacement Molecule carrying
// the same ID.
type Molecule struct {
	// ID is the UUIDv4 assigned when the molecule entered the library.
	ID string `json:"id"`

	// SMILES is the input line notation the structure was derived from.
	// Empty for molecules parsed from structure files.
	SMILES string `json:"smiles,omitempty"`

	// Name is an optional display name ("benzene", "caffeine", a file stem).
	Name string `json:"name,omitempty"`

	// Formula is the Hill-system molecular formula (e.g. "C8H10N4O2").
	Formula string `json:"formula,omitempty"`

	// MolecularWeight is the summed average atomic weight in g/mol.  Atoms of
	// unknown elements contribute zero.
	MolecularWeight float64 `json:"molecular_weight,omitempty"`

	Atoms []Atom `json:"atoms"`
	Bonds []Bond `json:"bonds"`

	// Minimized reports whether the synthetic geometry used the compacted
	// atom spacing.  It never implies a chemical energy minimisation.
	Minimized bool `json:"minimized"`

	// BondDistances maps "i-j" bond keys (i < j, 0-based atom indices) to the
	// Euclidean length of the bond in Ångströms.  Populated on demand.
	BondDistances map[string]float64 `json:"bond_distances,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Summary is the compact listing representation of a library molecule.
type Summary struct {
	ID              string    `json:"id"`
	SMILES          string    `json:"smiles,omitempty"`
	Name            string    `json:"name,omitempty"`
	Formula         string    `json:"formula,omitempty"`
	AtomCount       int       `json:"atom_count"`
	BondCount       int       `json:"bond_count"`
	MolecularWeight float64   `json:"molecular_weight,omitempty"`
	Minimized       bool      `json:"minimized"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Request / response types
// ─────────────────────────────────────────────────────────────────────────────

// CreateRequest is the input DTO for building a molecule from SMILES.
type CreateRequest struct {
	// SMILES must contain at least one recognisable element symbol.
	SMILES string `json:"smiles"`

	// Name optionally labels the molecule in listings.
	Name string `json:"name,omitempty"`

	// Minimize selects the compacted synthetic geometry.
	Minimize bool `json:"minimize,omitempty"`
}

// UpdateGeometryRequest regenerates the synthetic geometry of an existing
// molecule, toggling between the relaxed and compacted atom spacing.
type UpdateGeometryRequest struct {
	Minimize bool `json:"minimize"`
}

// DistanceResponse carries a single atom-pair distance measurement.
type DistanceResponse struct {
	// Atom1 and Atom2 are the 0-based atom indices the query named.
	Atom1 int `json:"atom1"`
	Atom2 int `json:"atom2"`

	// Distance is the Euclidean distance in Ångströms.
	Distance float64 `json:"distance"`
}

// BondDistancesResponse carries per-bond lengths keyed "i-j" (i < j).
type BondDistancesResponse struct {
	MoleculeID string             `json:"molecule_id"`
	Distances  map[string]float64 `json:"distances"`
}

// ListResponse wraps a library listing.
type ListResponse struct {
	Molecules []Summary `json:"molecules"`
	Total     int       `json:"total"`
}
