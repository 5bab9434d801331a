package main

import (
	"fmt"
	"os"

	"github.com/jac3km4/pdb-sdk/internal/dbi"
	"github.com/jac3km4/pdb-sdk/internal/names"
	"github.com/jac3km4/pdb-sdk/internal/symbols"
	"github.com/jac3km4/pdb-sdk/pdb"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build <output.pdb>",
	Short: "Assemble a minimal demo PDB",
	Long: `Assemble a minimal PDB file containing one module, one public
symbol, and a "/names" stream, and write it to the given path.

This exists to exercise the builder end to end; it is not a general
object-to-PDB converter.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	outPath := args[0]

	b := pdb.NewBuilder()
	b.Signature = 1
	b.Age = 1

	nameTable := names.NewBuilder()
	nameTable.Add("a.obj")
	b.AddNamedStream("/names", nameTable.Build().Encode(nil))

	b.AddPublic(pdb.PublicInput{Name: "_main", Offset: 0x1000, Segment: 1})

	b.AddModule(pdb.ModuleInput{
		Name:        "a.obj",
		ObjFileName: "a.obj",
		Section:     dbi.SectionContribution{Section: 1, Offset: 0x1000, Size: 0x10},
		Symbols: []pdb.SymbolInput{
			{Kind: symbols.S_OBJNAME, ObjName: &symbols.ObjNameSym{Name: "a.obj"}},
		},
	})

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer f.Close()

	if err := b.Commit(f); err != nil {
		return fmt.Errorf("failed to build PDB: %w", err)
	}

	fmt.Fprintf(output, "wrote %s\n", outPath)
	return nil
}
