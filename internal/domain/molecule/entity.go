// Package molecule provides the core domain model for molecular structures in
// the Molscope platform: the Molecule aggregate root, the restricted SMILES
// builder, structure-file parsing, geometry measurements, and the periodic
// reference data behind formula and weight descriptors.
package molecule

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/molscope/molscope/pkg/errors"
	mtypes "github.com/molscope/molscope/pkg/types/molecule"
)

// ─────────────────────────────────────────────────────────────────────────────
// Molecule Aggregate Root
// ─────────────────────────────────────────────────────────────────────────────

// Molecule is the aggregate root for a single molecular structure.  Atoms and
// bonds are immutable once the molecule is constructed: geometry changes
// (Regenerate) produce a replacement value carrying the same ID, and every
// consumer that derives state from the structure rebuilds it from scratch on
// replacement.
type Molecule struct {
	// ID is the UUIDv4 under which the molecule is kept in the library.
	ID string `json:"id"`

	// SMILES is the line notation the structure was generated from; empty for
	// molecules parsed out of structure files.
	SMILES string `json:"smiles,omitempty"`

	// Name is the optional display name (request field or upload file stem).
	Name string `json:"name,omitempty"`

	Atoms []mtypes.Atom `json:"atoms"`
	Bonds []mtypes.Bond `json:"bonds"`

	// Minimized records that the synthetic geometry used the compacted atom
	// spacing.  It says nothing about chemical energy minimisation.
	Minimized bool `json:"minimized"`

	CreatedAt time.Time `json:"created_at"`
}

// New assembles a Molecule from parsed atoms and bonds, assigning a fresh ID.
// Atom indices are rewritten to their slice positions and element symbols are
// normalised to conventional capitalisation.  Bonds are normalised: endpoints
// sorted ascending, self-bonds dropped, duplicate pairs collapsed (first order
// wins), orders below 1 clamped up.  A bond endpoint outside the atom range is
// a hard error — a structure file that lies about its own connectivity cannot
// be repaired here.
func New(name string, atoms []mtypes.Atom, bonds []mtypes.Bond) (*Molecule, error) {
	if len(atoms) == 0 {
		return nil, errors.New(errors.CodeMoleculeEmpty, "molecule has no atoms")
	}

	normAtoms := make([]mtypes.Atom, len(atoms))
	for i, a := range atoms {
		a.Index = i
		a.Element = NormalizeElement(a.Element)
		if a.Element == "" {
			a.Element = "X"
		}
		normAtoms[i] = a
	}

	normBonds, err := normalizeBonds(bonds, len(normAtoms))
	if err != nil {
		return nil, err
	}

	return &Molecule{
		ID:        uuid.NewString(),
		Name:      name,
		Atoms:     normAtoms,
		Bonds:     normBonds,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// normalizeBonds validates and canonicalises a bond list against atomCount.
func normalizeBonds(bonds []mtypes.Bond, atomCount int) ([]mtypes.Bond, error) {
	out := make([]mtypes.Bond, 0, len(bonds))
	seen := make(map[[2]int]bool, len(bonds))

	for _, b := range bonds {
		a1, a2 := b.Atom1, b.Atom2
		if a1 > a2 {
			a1, a2 = a2, a1
		}
		if a1 < 0 || a2 >= atomCount {
			return nil, errors.New(errors.CodeMoleculeParse,
				"bond references an atom index outside the molecule definition").
				WithDetail(fmt.Sprintf("bond=%d-%d atoms=%d", b.Atom1, b.Atom2, atomCount))
		}
		if a1 == a2 {
			// Malformed self-referential bond; ignore.
			continue
		}
		key := [2]int{a1, a2}
		if seen[key] {
			continue
		}
		seen[key] = true

		order := b.Order
		if order < 1 {
			order = 1
		}
		out = append(out, mtypes.Bond{Atom1: a1, Atom2: a2, Order: order})
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Accessors
// ─────────────────────────────────────────────────────────────────────────────

// AtomCount returns the number of atoms in the structure.
func (m *Molecule) AtomCount() int { return len(m.Atoms) }

// BondCount returns the number of bonds in the structure.
func (m *Molecule) BondCount() int { return len(m.Bonds) }

// Atom returns the atom at the given 0-based index.
func (m *Molecule) Atom(index int) (mtypes.Atom, error) {
	if index < 0 || index >= len(m.Atoms) {
		return mtypes.Atom{}, errors.New(errors.CodeAtomIndexOutOfRange,
			"atom index out of range").
			WithDetail(fmt.Sprintf("index=%d atoms=%d", index, len(m.Atoms)))
	}
	return m.Atoms[index], nil
}

// Formula returns the Hill-system molecular formula.
func (m *Molecule) Formula() string { return Formula(m.Atoms) }

// Weight returns the summed average atomic weight in g/mol.
func (m *Molecule) Weight() float64 { return MolecularWeight(m.Atoms) }

// Clone returns a deep copy.  Consumers that hold molecules across goroutines
// take copies so that no two owners ever share backing arrays.
func (m *Molecule) Clone() *Molecule {
	cp := *m
	cp.Atoms = make([]mtypes.Atom, len(m.Atoms))
	copy(cp.Atoms, m.Atoms)
	cp.Bonds = make([]mtypes.Bond, len(m.Bonds))
	copy(cp.Bonds, m.Bonds)
	return &cp
}

// ─────────────────────────────────────────────────────────────────────────────
// DTO Conversion
// ─────────────────────────────────────────────────────────────────────────────

// ToDTO converts the entity into its wire representation, computing the
// derived descriptors (formula, weight, per-bond distances) on the way out.
func (m *Molecule) ToDTO() mtypes.Molecule {
	dto := mtypes.Molecule{
		ID:              m.ID,
		SMILES:          m.SMILES,
		Name:            m.Name,
		Formula:         m.Formula(),
		MolecularWeight: m.Weight(),
		Atoms:           make([]mtypes.Atom, len(m.Atoms)),
		Bonds:           make([]mtypes.Bond, len(m.Bonds)),
		Minimized:       m.Minimized,
		CreatedAt:       m.CreatedAt,
	}
	copy(dto.Atoms, m.Atoms)
	copy(dto.Bonds, m.Bonds)
	if len(m.Bonds) > 0 {
		dto.BondDistances = BondDistances(m)
	}
	return dto
}

// Summary converts the entity into its compact listing representation.
func (m *Molecule) Summary() mtypes.Summary {
	return mtypes.Summary{
		ID:              m.ID,
		SMILES:          m.SMILES,
		Name:            m.Name,
		Formula:         m.Formula(),
		AtomCount:       len(m.Atoms),
		BondCount:       len(m.Bonds),
		MolecularWeight: m.Weight(),
		Minimized:       m.Minimized,
		CreatedAt:       m.CreatedAt,
	}
}

// FromDTO reconstructs the entity from a wire value, e.g. a catalog entry.
// Derived DTO fields (formula, weight, distances) are discarded; they are
// recomputed from the structure when needed.
func FromDTO(dto mtypes.Molecule) *Molecule {
	m := &Molecule{
		ID:        dto.ID,
		SMILES:    dto.SMILES,
		Name:      dto.Name,
		Atoms:     make([]mtypes.Atom, len(dto.Atoms)),
		Bonds:     make([]mtypes.Bond, len(dto.Bonds)),
		Minimized: dto.Minimized,
		CreatedAt: dto.CreatedAt,
	}
	copy(m.Atoms, dto.Atoms)
	copy(m.Bonds, dto.Bonds)
	return m
}

// SortedBonds returns the bonds ordered by (atom1, atom2).  Construction
// already canonicalises endpoint order, so this sort is stable across equal
// structures regardless of source-file bond order.
func (m *Molecule) SortedBonds() []mtypes.Bond {
	out := make([]mtypes.Bond, len(m.Bonds))
	copy(out, m.Bonds)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Atom1 != out[j].Atom1 {
			return out[i].Atom1 < out[j].Atom1
		}
		return out[i].Atom2 < out[j].Atom2
	})
	return out
}
