package molecule

import (
	"strings"
	"unicode"

	"github.com/molscope/molscope/pkg/errors"
	mtypes "github.com/molscope/molscope/pkg/types/molecule"
)

// The platform deliberately ships a restricted SMILES reader instead of a
// cheminformatics toolkit.  Atoms are the usual upper-case symbol optionally
// followed by one lower-case character ("C", "O", "Cl"); aromatic atoms
// written fully lower-case ("c") are normalised by capitalisation.  Every
// other character (digits, branches, bond symbols) is skipped, so realistic
// SMILES strings pass through without failing the request.  The geometry is
// synthetic but deterministic, which is what the viewer integration needs.

const (
	// InitialBondLength is the atom spacing in Å for freshly built geometry.
	InitialBondLength = 1.58

	// MinimizedBondLength is the compacted spacing used when the minimise
	// flag is set; minimised geometry is additionally centred on the origin.
	MinimizedBondLength = 1.24
)

// tokenizeSMILES extracts the element symbols present in a SMILES string.
func tokenizeSMILES(smiles string) []string {
	cleaned := strings.TrimSpace(smiles)
	var tokens []string

	runes := []rune(cleaned)
	for i := 0; i < len(runes); {
		ch := runes[i]
		if !unicode.IsLetter(ch) {
			i++
			continue
		}
		symbol := string(ch)
		if i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
			symbol += string(runes[i+1])
			i += 2
		} else {
			i++
		}
		tokens = append(tokens, NormalizeElement(symbol))
	}
	return tokens
}

// buildChain places one atom per symbol along the X axis at the given spacing
// and single-bonds each neighbouring pair.  When center is set the chain is
// shifted so its midpoint sits on the origin.
func buildChain(symbols []string, spacing float64, center bool) ([]mtypes.Atom, []mtypes.Bond) {
	count := len(symbols)

	var offset float64
	if center && count > 1 {
		offset = float64(count-1) * spacing / 2
	}

	atoms := make([]mtypes.Atom, count)
	for i, sym := range symbols {
		atoms[i] = mtypes.Atom{
			Index:   i,
			Element: sym,
			X:       float64(i)*spacing - offset,
		}
	}

	if count <= 1 {
		return atoms, nil
	}
	bonds := make([]mtypes.Bond, count-1)
	for i := 0; i < count-1; i++ {
		bonds[i] = mtypes.Bond{Atom1: i, Atom2: i + 1, Order: 1}
	}
	return atoms, bonds
}

// spacingFor selects the atom spacing for the given minimise flag.
func spacingFor(minimize bool) float64 {
	if minimize {
		return MinimizedBondLength
	}
	return InitialBondLength
}

// FromSMILES builds a new molecule from a SMILES string using the synthetic
// chain geometry.  It fails with an invalid-SMILES error when no element
// symbol can be detected in the input.
func FromSMILES(smiles, name string, minimize bool) (*Molecule, error) {
	symbols := tokenizeSMILES(smiles)
	if len(symbols) == 0 {
		return nil, errors.New(errors.CodeInvalidSMILES,
			"unable to detect any atoms in the supplied SMILES string")
	}

	atoms, bonds := buildChain(symbols, spacingFor(minimize), minimize)

	mol, err := New(name, atoms, bonds)
	if err != nil {
		return nil, err
	}
	mol.SMILES = strings.TrimSpace(smiles)
	mol.Minimized = minimize
	return mol, nil
}

// Regenerate returns a copy of mol with coordinates rebuilt from its SMILES
// at the requested spacing.  The ID, name, and creation time carry over; a
// molecule without a SMILES (file upload) cannot be regenerated.
func Regenerate(mol *Molecule, minimize bool) (*Molecule, error) {
	symbols := tokenizeSMILES(mol.SMILES)
	if len(symbols) == 0 {
		return nil, errors.New(errors.CodeInvalidSMILES,
			"molecule has no SMILES to regenerate geometry from")
	}

	atoms, bonds := buildChain(symbols, spacingFor(minimize), minimize)

	next := mol.Clone()
	next.Atoms = atoms
	next.Bonds = bonds
	next.Minimized = minimize
	return next, nil
}
