package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	appmol "github.com/molscope/molscope/internal/application/molecule"
	"github.com/molscope/molscope/internal/infrastructure/storage"
	"github.com/molscope/molscope/pkg/errors"
	mtypes "github.com/molscope/molscope/pkg/types/molecule"
)

var (
	parseSMILES   string
	parseName     string
	parseMinimize bool
)

// NewParseCmd creates the parse subcommand.  It parses a molecule locally,
// without a running server, and prints the derived structure.
func NewParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a molecule from a structure file or SMILES string",
		Long:  "Parse a molecule from a structure file (.pdb, .xyz, .mol, .sdf) or a\nSMILES string and print its formula, weight, atoms, and bond lengths.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runParse,
	}

	cmd.Flags().StringVar(&parseSMILES, "smiles", "", "SMILES string to parse instead of a file")
	cmd.Flags().StringVar(&parseName, "name", "", "display name for the molecule")
	cmd.Flags().BoolVar(&parseMinimize, "minimize", false, "compact the synthetic geometry")

	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	if parseSMILES == "" && len(args) == 0 {
		return errors.New(errors.CodeInvalidParam, "a structure file argument or --smiles is required")
	}
	if parseSMILES != "" && len(args) > 0 {
		return errors.New(errors.CodeInvalidParam, "pass either a structure file or --smiles, not both")
	}

	// Parsing is local: a throwaway in-memory library backs the service.
	svc := appmol.NewService(storage.NewLibrary(), appmol.WithLogger(cliCtx.Logger.Named("parse")))
	ctx := cmd.Context()

	var mol mtypes.Molecule
	if parseSMILES != "" {
		mol, err = svc.Create(ctx, mtypes.CreateRequest{
			SMILES:   parseSMILES,
			Name:     parseName,
			Minimize: parseMinimize,
		})
	} else {
		var data []byte
		data, err = os.ReadFile(args[0])
		if err != nil {
			return errors.Wrap(err, errors.CodeInvalidParam, "read "+args[0])
		}
		mol, err = svc.Upload(ctx, filepath.Base(args[0]), data)
		if err == nil && parseMinimize {
			mol, err = svc.UpdateGeometry(ctx, mol.ID, mtypes.UpdateGeometryRequest{Minimize: true})
		}
	}
	if err != nil {
		return err
	}

	if len(mol.BondDistances) == 0 {
		resp, derr := svc.BondDistances(ctx, mol.ID)
		if derr == nil {
			mol.BondDistances = resp.Distances
		}
	}

	return PrintResult(cmd, parseReport{mol})
}

// parseReport wraps the molecule DTO with the CLI's text and table
// renderings.  JSON output marshals the embedded DTO unchanged.
type parseReport struct {
	mtypes.Molecule
}

func (r parseReport) String() string {
	var sb strings.Builder

	name := r.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(&sb, "Name:      %s\n", name)
	if r.SMILES != "" {
		fmt.Fprintf(&sb, "SMILES:    %s\n", r.SMILES)
	}
	fmt.Fprintf(&sb, "Formula:   %s\n", r.Formula)
	fmt.Fprintf(&sb, "Weight:    %.4f g/mol\n", r.MolecularWeight)
	fmt.Fprintf(&sb, "Atoms:     %d\n", len(r.Atoms))
	fmt.Fprintf(&sb, "Bonds:     %d\n", len(r.Bonds))
	fmt.Fprintf(&sb, "Minimized: %t", r.Minimized)

	if len(r.BondDistances) > 0 {
		keys := make([]string, 0, len(r.BondDistances))
		for k := range r.BondDistances {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("\nBond lengths (Å):")
		for _, k := range keys {
			fmt.Fprintf(&sb, "\n  %s: %.3f", k, r.BondDistances[k])
		}
	}

	return sb.String()
}

func (r parseReport) TableHeaders() []string {
	return []string{"#", "ELEMENT", "X", "Y", "Z"}
}

func (r parseReport) TableRows() [][]string {
	rows := make([][]string, 0, len(r.Atoms))
	for _, a := range r.Atoms {
		rows = append(rows, []string{
			strconv.Itoa(a.Index),
			a.Element,
			strconv.FormatFloat(a.X, 'f', 3, 64),
			strconv.FormatFloat(a.Y, 'f', 3, 64),
			strconv.FormatFloat(a.Z, 'f', 3, 64),
		})
	}
	return rows
}
