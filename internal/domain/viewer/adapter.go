package viewer

import (
	mtypes "github.com/molscope/molscope/pkg/types/molecule"
	vtypes "github.com/molscope/molscope/pkg/types/viewer"
)

// RenderAtoms converts molecule structure data into the engine-facing render
// model.  It is pure and deterministic: the same input always produces the
// same model, and nothing is retained between calls.
//
// Adjacency is built per bond in input order, appended to both endpoints
// with the same order value.  Duplicate bonds produce duplicate adjacency
// entries — the model mirrors its input rather than repairing it.  A bond
// whose endpoint does not name a known atom index contributes nothing and is
// dropped without error.  Orders below 1 are clamped up to 1.
//
// Serial, the pick identity, is always the 0-based model index plus one.
func RenderAtoms(atoms []mtypes.Atom, bonds []mtypes.Bond) []vtypes.RenderAtom {
	model := make([]vtypes.RenderAtom, len(atoms))
	for i, a := range atoms {
		model[i] = vtypes.RenderAtom{
			Element:      a.Element,
			X:            a.X,
			Y:            a.Y,
			Z:            a.Z,
			Serial:       i + 1,
			Index:        i,
			Bonds:        []int{},
			BondOrder:    []int{},
			Name:         a.Name,
			ResidueName:  a.ResidueName,
			ResidueIndex: a.ResidueIndex,
			Chain:        a.Chain,
		}
	}

	for _, b := range bonds {
		if b.Atom1 < 0 || b.Atom1 >= len(model) || b.Atom2 < 0 || b.Atom2 >= len(model) {
			continue
		}
		order := b.Order
		if order < 1 {
			order = 1
		}
		model[b.Atom1].Bonds = append(model[b.Atom1].Bonds, b.Atom2)
		model[b.Atom1].BondOrder = append(model[b.Atom1].BondOrder, order)
		model[b.Atom2].Bonds = append(model[b.Atom2].Bonds, b.Atom1)
		model[b.Atom2].BondOrder = append(model[b.Atom2].BondOrder, order)
	}

	return model
}

// AtomBySerial resolves a pick serial against a render model.  Serials are
// assigned as index+1 by RenderAtoms, so the lookup is positional.
func AtomBySerial(model []vtypes.RenderAtom, serial int) (vtypes.RenderAtom, bool) {
	if serial < 1 || serial > len(model) {
		return vtypes.RenderAtom{}, false
	}
	return model[serial-1], true
}

// Snapshot copies the pick-relevant fields of a render atom into a selection
// snapshot.  The selection machine stores only these copies, so a model
// rebuild never reaches into an existing selection.
func Snapshot(atom vtypes.RenderAtom) vtypes.SelectedAtom {
	return vtypes.SelectedAtom{
		Index:        atom.Index,
		Serial:       atom.Serial,
		Element:      atom.Element,
		Name:         atom.Name,
		ResidueName:  atom.ResidueName,
		ResidueIndex: atom.ResidueIndex,
		Chain:        atom.Chain,
		Coordinates:  vtypes.Coordinates{X: atom.X, Y: atom.Y, Z: atom.Z},
	}
}
