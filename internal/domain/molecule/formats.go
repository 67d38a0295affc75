package molecule

import (
	"strconv"
	"strings"

	"github.com/molscope/molscope/pkg/errors"
	mtypes "github.com/molscope/molscope/pkg/types/molecule"
)

// parseErr builds the uniform structure-file parse error.
func parseErr(msg string) error {
	return errors.New(errors.CodeMoleculeParse, msg)
}

// col slices fixed columns [from, to) of a record line, tolerating short
// lines, and trims the result.
func col(line string, from, to int) string {
	if from >= len(line) {
		return ""
	}
	if to > len(line) {
		to = len(line)
	}
	return strings.TrimSpace(line[from:to])
}

func parseCoord(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v, err == nil
}

// ─────────────────────────────────────────────────────────────────────────────
// PDB
// ─────────────────────────────────────────────────────────────────────────────

// parsePDB reads ATOM/HETATM records for atoms and CONECT records for bonds.
// Strict mode requires the standard fixed coordinate columns (31–54).  The
// lenient pass instead takes the first run of three decimal-pointed numbers
// on the line as x,y,z, which recovers files written with free-form spacing.
// Atom serial, name, residue, and chain are captured best-effort in both
// modes and never fail the parse.
func parsePDB(text string, lenient bool) ([]mtypes.Atom, []mtypes.Bond, string, error) {
	var (
		atoms     []mtypes.Atom
		bonds     []mtypes.Bond
		bondPairs = map[[2]int]bool{}
	)

	for _, line := range strings.Split(text, "\n") {
		// Record names are matched by prefix rather than by the fixed record
		// columns: wide serials may abut the name (HETATM99999) and free-form
		// writers let later fields drift into the record columns.
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "ATOM"), strings.HasPrefix(upper, "HETATM"):
			atom, err := parsePDBAtom(line, lenient, len(atoms))
			if err != nil {
				return nil, nil, "", err
			}
			atoms = append(atoms, atom)

		case strings.HasPrefix(upper, "CONECT"):
			refs, err := parseConectRefs(line, lenient)
			if err != nil {
				return nil, nil, "", err
			}
			if len(refs) < 2 {
				continue
			}
			origin := refs[0]
			for _, target := range refs[1:] {
				a1, a2 := origin, target
				if a1 > a2 {
					a1, a2 = a2, a1
				}
				if a1 < 0 || a2 < 0 {
					continue
				}
				pair := [2]int{a1, a2}
				if bondPairs[pair] {
					continue
				}
				bondPairs[pair] = true
				bonds = append(bonds, mtypes.Bond{Atom1: a1, Atom2: a2, Order: 1})
			}
		}
	}

	if len(atoms) == 0 {
		return nil, nil, "", parseErr("no atoms were detected in the PDB file")
	}
	return atoms, bonds, "", nil
}

func parsePDBAtom(line string, lenient bool, index int) (mtypes.Atom, error) {
	atom := mtypes.Atom{Index: index}

	x, okX := parseCoord(col(line, 30, 38))
	y, okY := parseCoord(col(line, 38, 46))
	z, okZ := parseCoord(col(line, 46, 54))

	if !(okX && okY && okZ) {
		if !lenient {
			return atom, parseErr("PDB atom line is missing coordinates")
		}
		var ok bool
		x, y, z, ok = scanDecimalTriple(line)
		if !ok {
			return atom, parseErr("PDB atom line has no readable coordinates")
		}
	}
	atom.X, atom.Y, atom.Z = x, y, z

	// Element: dedicated columns 77–78, else the letters of the atom name.
	element := col(line, 76, 78)
	if element == "" {
		element = alphaOnly(col(line, 12, 16))
	}
	if element == "" && lenient {
		// Free-form line: the third token is the atom name.
		if fields := strings.Fields(line); len(fields) >= 3 {
			element = alphaOnly(fields[2])
		}
	}
	if element == "" {
		element = "X"
	}
	atom.Element = element

	// Source metadata, best-effort.
	if serial, err := strconv.Atoi(col(line, 6, 11)); err == nil {
		atom.Serial = serial
	}
	atom.Name = col(line, 12, 16)
	atom.ResidueName = col(line, 17, 20)
	atom.Chain = col(line, 21, 22)
	if seq, err := strconv.Atoi(col(line, 22, 26)); err == nil {
		atom.ResidueIndex = seq
	}

	return atom, nil
}

// parseConectRefs extracts the 0-based atom references of one CONECT record.
// PDB stores 1-based atom serials in five-character fields starting at
// column 7.
func parseConectRefs(line string, lenient bool) ([]int, error) {
	var refs []int

	if lenient {
		for _, f := range strings.Fields(line)[1:] {
			n, err := strconv.Atoi(f)
			if err != nil {
				continue
			}
			refs = append(refs, n-1)
		}
		return refs, nil
	}

	for start := 6; start < len(line); start += 5 {
		fragment := col(line, start, start+5)
		if fragment == "" {
			continue
		}
		n, err := strconv.Atoi(fragment)
		if err != nil {
			return nil, parseErr("invalid bond definition in PDB file")
		}
		refs = append(refs, n-1)
	}
	return refs, nil
}

// scanDecimalTriple finds the first run of three consecutive tokens that
// parse as floats and contain a decimal point.  Coordinates always print
// with decimals, which distinguishes them from serial and sequence integers
// on the same line.
func scanDecimalTriple(line string) (x, y, z float64, ok bool) {
	fields := strings.Fields(line)
	for i := 0; i+2 < len(fields); i++ {
		vals := [3]float64{}
		match := true
		for j := 0; j < 3; j++ {
			f := fields[i+j]
			if !strings.Contains(f, ".") {
				match = false
				break
			}
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				match = false
				break
			}
			vals[j] = v
		}
		if match {
			return vals[0], vals[1], vals[2], true
		}
	}
	return 0, 0, 0, false
}

// alphaOnly keeps the letters of s, e.g. "CA1" → "CA".
func alphaOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ─────────────────────────────────────────────────────────────────────────────
// MOL / SDF (V2000)
// ─────────────────────────────────────────────────────────────────────────────

// parseMolfile reads a V2000 connection table.  Strict mode demands the
// standard fixed columns for the counts, atom, and bond lines.  Lenient mode
// falls back to whitespace tokens per line and skips blank lines inside the
// table, which accepts the loosely formatted files some converters emit.
func parseMolfile(text string, lenient bool) ([]mtypes.Atom, []mtypes.Bond, string, error) {
	// Multi-molecule SDF input: only the first block is read.
	block := strings.SplitN(text, "$$$$", 2)[0]
	lines := strings.Split(block, "\n")
	if len(lines) < 4 {
		return nil, nil, "", parseErr("molfile is missing the counts line")
	}

	title := strings.TrimSpace(lines[0])

	atomTotal, bondTotal, err := parseMolCounts(lines[3], lenient)
	if err != nil {
		return nil, nil, "", err
	}

	if !lenient && len(lines) < 4+atomTotal+bondTotal {
		return nil, nil, "", parseErr("molfile is missing atom or bond records")
	}

	cursor := 4
	atoms := make([]mtypes.Atom, 0, atomTotal)
	for len(atoms) < atomTotal && cursor < len(lines) {
		line := lines[cursor]
		cursor++
		if strings.TrimSpace(line) == "" {
			if lenient {
				continue
			}
			return nil, nil, "", parseErr("molfile atom line is malformed")
		}
		atom, err := parseMolAtom(line, lenient, len(atoms))
		if err != nil {
			return nil, nil, "", err
		}
		atoms = append(atoms, atom)
	}
	if len(atoms) != atomTotal {
		return nil, nil, "", parseErr("molfile ended before all atoms were defined")
	}

	bonds := make([]mtypes.Bond, 0, bondTotal)
	for len(bonds) < bondTotal && cursor < len(lines) {
		line := lines[cursor]
		cursor++
		if strings.TrimSpace(line) == "" {
			if lenient {
				continue
			}
			return nil, nil, "", parseErr("molfile bond line is malformed")
		}
		bond, err := parseMolBond(line, lenient)
		if err != nil {
			return nil, nil, "", err
		}
		bonds = append(bonds, bond)
	}
	if len(bonds) != bondTotal {
		return nil, nil, "", parseErr("molfile ended before all bonds were defined")
	}

	return atoms, bonds, title, nil
}

func parseMolCounts(countsLine string, lenient bool) (atoms, bonds int, err error) {
	if !lenient {
		if len(countsLine) < 6 {
			return 0, 0, parseErr("molfile counts line is malformed")
		}
		a, errA := strconv.Atoi(col(countsLine, 0, 3))
		b, errB := strconv.Atoi(col(countsLine, 3, 6))
		if errA != nil || errB != nil {
			return 0, 0, parseErr("unable to parse atom and bond counts from molfile")
		}
		return a, b, nil
	}

	fields := strings.Fields(countsLine)
	if len(fields) < 2 {
		return 0, 0, parseErr("molfile counts line is malformed")
	}
	a, errA := strconv.Atoi(fields[0])
	b, errB := strconv.Atoi(fields[1])
	if errA != nil || errB != nil {
		return 0, 0, parseErr("unable to parse atom and bond counts from molfile")
	}
	return a, b, nil
}

func parseMolAtom(line string, lenient bool, index int) (mtypes.Atom, error) {
	atom := mtypes.Atom{Index: index}

	if len(line) >= 34 {
		x, okX := parseCoord(col(line, 0, 10))
		y, okY := parseCoord(col(line, 10, 20))
		z, okZ := parseCoord(col(line, 20, 30))
		if okX && okY && okZ {
			atom.X, atom.Y, atom.Z = x, y, z
			atom.Element = col(line, 31, 34)
			if atom.Element == "" {
				atom.Element = "X"
			}
			return atom, nil
		}
		if !lenient {
			return atom, parseErr("unable to parse atom coordinates in molfile")
		}
	} else if !lenient {
		return atom, parseErr("molfile atom line is malformed")
	}

	fields := strings.Fields(line)
	if len(fields) < 4 {
		return atom, parseErr("molfile atom entry is malformed")
	}
	x, okX := parseCoord(fields[0])
	y, okY := parseCoord(fields[1])
	z, okZ := parseCoord(fields[2])
	if !(okX && okY && okZ) {
		return atom, parseErr("molfile atom entry is malformed")
	}
	atom.X, atom.Y, atom.Z = x, y, z
	atom.Element = fields[3]
	return atom, nil
}

func parseMolBond(line string, lenient bool) (mtypes.Bond, error) {
	var a1Str, a2Str, orderStr string

	if len(line) >= 9 {
		a1Str = col(line, 0, 3)
		a2Str = col(line, 3, 6)
		orderStr = col(line, 6, 9)
	} else if lenient {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return mtypes.Bond{}, parseErr("molfile bond entry is malformed")
		}
		a1Str, a2Str = fields[0], fields[1]
		if len(fields) > 2 {
			orderStr = fields[2]
		}
	} else {
		return mtypes.Bond{}, parseErr("molfile bond line is malformed")
	}

	if orderStr == "" {
		orderStr = "1"
	}
	a1, err1 := strconv.Atoi(a1Str)
	a2, err2 := strconv.Atoi(a2Str)
	order, err3 := strconv.Atoi(orderStr)
	if err1 != nil || err2 != nil || err3 != nil {
		return mtypes.Bond{}, parseErr("unable to parse bond definition in molfile")
	}

	// Molfiles index atoms from 1.
	return mtypes.Bond{Atom1: a1 - 1, Atom2: a2 - 1, Order: order}, nil
}

// parseSDF reads the first molecule block of an SDF file.
func parseSDF(text string, lenient bool) ([]mtypes.Atom, []mtypes.Bond, string, error) {
	block := strings.TrimSpace(strings.SplitN(text, "$$$$", 2)[0])
	if block == "" {
		return nil, nil, "", parseErr("SDF file does not contain a molecule block")
	}
	return parseMolfile(block, lenient)
}

// ─────────────────────────────────────────────────────────────────────────────
// XYZ
// ─────────────────────────────────────────────────────────────────────────────

// parseXYZ reads the simple XYZ format: an atom count, a comment line, then
// one "element x y z" line per atom.  Strict mode requires the header line to
// be exactly the count and the atom lines to match it; lenient mode takes the
// first header token and tolerates trailing extra lines.  XYZ carries no
// connectivity, and no bonds are inferred from the coordinates.
func parseXYZ(text string, lenient bool) ([]mtypes.Atom, []mtypes.Bond, string, error) {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return nil, nil, "", parseErr("XYZ file is missing header information")
	}

	header := strings.TrimSpace(lines[0])
	if lenient {
		if fields := strings.Fields(header); len(fields) > 0 {
			header = fields[0]
		}
	}
	atomCount, err := strconv.Atoi(header)
	if err != nil {
		return nil, nil, "", parseErr("XYZ file does not declare a valid atom count")
	}

	title := strings.TrimSpace(lines[1])

	var atomLines []string
	for _, line := range lines[2:] {
		if strings.TrimSpace(line) != "" {
			atomLines = append(atomLines, line)
		}
	}
	if len(atomLines) < atomCount {
		return nil, nil, "", parseErr("XYZ file ended before all atoms were defined")
	}
	if !lenient && len(atomLines) != atomCount {
		return nil, nil, "", parseErr("XYZ atom count does not match the number of atom records")
	}

	atoms := make([]mtypes.Atom, 0, atomCount)
	for _, raw := range atomLines[:atomCount] {
		fields := strings.Fields(raw)
		if len(fields) < 4 {
			return nil, nil, "", parseErr("XYZ atom line is malformed")
		}
		x, okX := parseCoord(fields[1])
		y, okY := parseCoord(fields[2])
		z, okZ := parseCoord(fields[3])
		if !(okX && okY && okZ) {
			return nil, nil, "", parseErr("XYZ coordinates must be numeric")
		}
		atoms = append(atoms, mtypes.Atom{
			Index:   len(atoms),
			Element: fields[0],
			X:       x, Y: y, Z: z,
		})
	}

	return atoms, nil, title, nil
}
