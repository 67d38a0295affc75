package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"

	mtypes "github.com/molscope/molscope/pkg/types/molecule"
)

func TestNormalizeElement(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"c", "C"},
		{"C", "C"},
		{"CL", "Cl"},
		{"cl", "Cl"},
		{" Fe ", "Fe"},
		{"", ""},
		{"BR", "Br"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeElement(tc.in), "input %q", tc.in)
	}
}

func TestLookupElement(t *testing.T) {
	e, ok := LookupElement("cl")
	assert.True(t, ok)
	assert.Equal(t, 17, e.AtomicNumber)
	assert.InDelta(t, 35.45, e.AtomicWeight, 1e-9)

	_, ok = LookupElement("Xx")
	assert.False(t, ok)
}

func atomsOf(symbols ...string) []mtypes.Atom {
	atoms := make([]mtypes.Atom, len(symbols))
	for i, s := range symbols {
		atoms[i] = mtypes.Atom{Index: i, Element: s}
	}
	return atoms
}

func TestFormula_HillOrder(t *testing.T) {
	// Caffeine: C8 H10 N4 O2 — carbon, then hydrogen, then alphabetical.
	var symbols []string
	for i := 0; i < 8; i++ {
		symbols = append(symbols, "C")
	}
	for i := 0; i < 10; i++ {
		symbols = append(symbols, "H")
	}
	symbols = append(symbols, "N", "N", "N", "N", "O", "O")

	assert.Equal(t, "C8H10N4O2", Formula(atomsOf(symbols...)))
}

func TestFormula_NoCarbon(t *testing.T) {
	// Water has no carbon; remaining elements sort alphabetically after H.
	assert.Equal(t, "H2O", Formula(atomsOf("H", "H", "O")))
	// Alphabetical for the rest: Cl before Na would be wrong — Na+Cl are
	// both "other" elements and sort as Cl, Na.
	assert.Equal(t, "ClNa", Formula(atomsOf("Na", "Cl")))
}

func TestFormula_SingleCountOmitted(t *testing.T) {
	assert.Equal(t, "CO2", Formula(atomsOf("O", "C", "O")))
	assert.Equal(t, "", Formula(nil))
}

func TestFormula_UnknownElementsIncluded(t *testing.T) {
	assert.Equal(t, "C2Xx", Formula(atomsOf("C", "xx", "C")))
}

func TestMolecularWeight(t *testing.T) {
	// Water: 2×1.00784 + 15.999 = 18.01468
	assert.InDelta(t, 18.01468, MolecularWeight(atomsOf("H", "H", "O")), 1e-9)
}

func TestMolecularWeight_UnknownContributesZero(t *testing.T) {
	base := MolecularWeight(atomsOf("C"))
	withUnknown := MolecularWeight(atomsOf("C", "Xx"))
	assert.Equal(t, base, withUnknown)
}
