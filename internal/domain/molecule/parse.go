package molecule

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/molscope/molscope/pkg/errors"
	mtypes "github.com/molscope/molscope/pkg/types/molecule"
)

// formatParser converts structure-file text into atoms and bonds.  The
// lenient flag selects the whitespace-token reading used as a fallback when
// the strict fixed-column pass rejects the file.  title is the name embedded
// in the file itself (molfile header, XYZ comment) and may be empty.
type formatParser func(text string, lenient bool) (atoms []mtypes.Atom, bonds []mtypes.Bond, title string, err error)

// formatParsers maps a lower-case file extension to its parser.
var formatParsers = map[string]formatParser{
	".pdb": parsePDB,
	".mol": parseMolfile,
	".sdf": parseSDF,
	".xyz": parseXYZ,
}

// SupportedFormats lists the accepted structure-file extensions, sorted.
func SupportedFormats() []string {
	out := make([]string, 0, len(formatParsers))
	for ext := range formatParsers {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// gzipMagic is the two-byte header of every gzip stream.
var gzipMagic = []byte{0x1f, 0x8b}

// ParseFile turns an uploaded structure file into a Molecule.  The format is
// chosen by file extension (case-insensitive); gzip-compressed payloads are
// decompressed transparently, detected by either a ".gz" suffix or the gzip
// magic bytes.  Parsing runs a strict fixed-column pass first and retries
// once in lenient whitespace-token mode, so files from sloppy generators
// still load.
func ParseFile(filename string, data []byte) (*Molecule, error) {
	if filename == "" {
		filename = "uploaded"
	}

	base := filepath.Base(filename)
	if strings.HasSuffix(strings.ToLower(base), ".gz") {
		base = base[:len(base)-len(".gz")]
	}

	if bytes.HasPrefix(data, gzipMagic) {
		decompressed, err := gunzip(data)
		if err != nil {
			return nil, errors.New(errors.CodeMoleculeParse,
				"failed to decompress gzip payload").WithCause(err)
		}
		data = decompressed
	}

	ext := strings.ToLower(filepath.Ext(base))
	parser, ok := formatParsers[ext]
	if !ok {
		return nil, errors.New(errors.CodeUnsupportedFormat,
			fmt.Sprintf("unsupported file type %q; supported types: %s",
				ext, strings.Join(SupportedFormats(), ", ")))
	}

	text := normalizeText(data)
	if text == "" {
		return nil, errors.New(errors.CodeMoleculeParse, "uploaded file is empty")
	}

	atoms, bonds, title, err := parser(text, false)
	if err != nil {
		// Strict pass failed; retry in lenient token mode before giving up.
		var lerr error
		atoms, bonds, title, lerr = parser(text, true)
		if lerr != nil {
			return nil, err
		}
	}

	if len(atoms) == 0 {
		return nil, errors.New(errors.CodeMoleculeParse,
			"no atoms detected in the uploaded file")
	}

	name := title
	if name == "" {
		name = strings.TrimSuffix(base, filepath.Ext(base))
		if name == "" {
			name = "uploaded-molecule"
		}
	}
	return New(name, atoms, bonds)
}

// gunzip inflates a gzip payload fully into memory.
func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// normalizeText prepares raw file bytes for line-oriented parsing: the UTF-8
// BOM is stripped, carriage returns removed, and surrounding blank space
// trimmed.  Non-UTF-8 bytes pass through untouched; the parsers only inspect
// ASCII columns.
func normalizeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte{0xef, 0xbb, 0xbf})
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}
