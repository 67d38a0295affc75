package molecule

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	mtypes "github.com/molscope/molscope/pkg/types/molecule"
)

// Position returns the atom's coordinates as an r3 vector.
func Position(a mtypes.Atom) r3.Vec {
	return r3.Vec{X: a.X, Y: a.Y, Z: a.Z}
}

// AtomDistance computes the Euclidean distance in Å between two atoms of mol,
// addressed by their 0-based indices.
func AtomDistance(mol *Molecule, atom1, atom2 int) (float64, error) {
	a, err := mol.Atom(atom1)
	if err != nil {
		return 0, err
	}
	b, err := mol.Atom(atom2)
	if err != nil {
		return 0, err
	}
	return r3.Norm(r3.Sub(Position(a), Position(b))), nil
}

// BondKey formats the canonical map key for a bond between two atom indices:
// the smaller index first, joined by a dash ("0-1").
func BondKey(atom1, atom2 int) string {
	if atom1 > atom2 {
		atom1, atom2 = atom2, atom1
	}
	return fmt.Sprintf("%d-%d", atom1, atom2)
}

// BondDistances computes the length of every declared bond, keyed by BondKey.
// Construction guarantees bond endpoints are in range, so the per-bond lookup
// cannot fail here.
func BondDistances(mol *Molecule) map[string]float64 {
	if len(mol.Bonds) == 0 {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(mol.Bonds))
	for _, b := range mol.Bonds {
		d, err := AtomDistance(mol, b.Atom1, b.Atom2)
		if err != nil {
			continue
		}
		out[BondKey(b.Atom1, b.Atom2)] = d
	}
	return out
}
