package molecule

import (
	"math"
	"sort"
	"strconv"
	"strings"

	mtypes "github.com/molscope/molscope/pkg/types/molecule"
)

// Element holds the per-element reference data used for descriptors.
type Element struct {
	Symbol         string
	AtomicNumber   int
	AtomicWeight   float64 // average atomic mass, g/mol
	CovalentRadius float64 // Å, Cordero et al. 2008
}

// periodicTable covers the elements that occur in the structures the viewer
// is built for: organic subset plus the common bio-elements.  Symbols outside
// this table are still accepted everywhere; they simply contribute no weight.
var periodicTable = map[string]Element{
	"H":  {"H", 1, 1.00784, 0.31},
	"Be": {"Be", 4, 9.012, 0.96},
	"C":  {"C", 6, 12.0107, 0.76},
	"N":  {"N", 7, 14.0067, 0.71},
	"O":  {"O", 8, 15.999, 0.66},
	"F":  {"F", 9, 18.998, 0.57},
	"Na": {"Na", 11, 22.99, 1.66},
	"Mg": {"Mg", 12, 24.30, 1.41},
	"Si": {"Si", 14, 28.08, 1.11},
	"P":  {"P", 15, 30.9738, 1.07},
	"S":  {"S", 16, 32.06, 1.05},
	"Cl": {"Cl", 17, 35.45, 1.02},
	"K":  {"K", 19, 39.1, 2.03},
	"Ca": {"Ca", 20, 40.08, 1.76},
	"Cr": {"Cr", 24, 51.996, 1.39},
	"Mn": {"Mn", 25, 54.94, 1.61},
	"Fe": {"Fe", 26, 55.84, 1.52},
	"Co": {"Co", 27, 58.93, 1.50},
	"Cu": {"Cu", 29, 63.55, 1.32},
	"Zn": {"Zn", 30, 65.38, 1.22},
	"Se": {"Se", 34, 78.96, 1.20},
	"Br": {"Br", 35, 79.904, 1.20},
	"I":  {"I", 53, 126.90447, 1.39},
}

// NormalizeElement converts a raw symbol to conventional capitalisation:
// first letter upper-case, remainder lower-case ("CL" → "Cl", "c" → "C").
func NormalizeElement(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return symbol
	}
	if len(symbol) == 1 {
		return strings.ToUpper(symbol)
	}
	return strings.ToUpper(symbol[:1]) + strings.ToLower(symbol[1:])
}

// LookupElement returns the reference data for a (possibly un-normalised)
// element symbol.  ok is false for symbols outside the table.
func LookupElement(symbol string) (Element, bool) {
	e, ok := periodicTable[NormalizeElement(symbol)]
	return e, ok
}

// Formula builds the Hill-system molecular formula for a set of atoms:
// carbon first, hydrogen second, every other element alphabetically.
// Counts of one are omitted.  Unknown elements participate like any other.
func Formula(atoms []mtypes.Atom) string {
	if len(atoms) == 0 {
		return ""
	}

	counts := make(map[string]int, 8)
	for _, a := range atoms {
		counts[NormalizeElement(a.Element)]++
	}

	symbols := make([]string, 0, len(counts))
	for sym := range counts {
		symbols = append(symbols, sym)
	}
	sort.Slice(symbols, func(i, j int) bool {
		return hillRank(symbols[i]) < hillRank(symbols[j])
	})

	var b strings.Builder
	for _, sym := range symbols {
		b.WriteString(sym)
		if n := counts[sym]; n > 1 {
			b.WriteString(strconv.Itoa(n))
		}
	}
	return b.String()
}

// hillRank orders element symbols per the Hill convention.  The returned key
// sorts "C" before "H" before everything else alphabetically.
func hillRank(symbol string) string {
	switch symbol {
	case "C":
		return "0"
	case "H":
		return "1"
	default:
		return "2" + symbol
	}
}

// MolecularWeight sums the average atomic weights of all atoms, rounded to
// five decimals.  Atoms of unknown elements contribute zero so that exotic
// structures still display.
func MolecularWeight(atoms []mtypes.Atom) float64 {
	var w float64
	for _, a := range atoms {
		if e, ok := LookupElement(a.Element); ok {
			w += e.AtomicWeight
		}
	}
	return math.Round(w*1e5) / 1e5
}
