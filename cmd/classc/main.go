// Command classc drives the two-pass pipeline (resolver, then lowerer)
// against a YAML-described compilation unit and prints the resulting
// LLVM IR module.
//
// There is no lexer or parser in this tree, so the driver takes a
// structural fixture directly and uses github.com/spf13/cobra (which
// pulls in github.com/spf13/pflag for its flag parsing) for its CLI.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"classc/internal/diag"
	"classc/internal/fixture"
	"classc/internal/fresh"
	"classc/internal/lower"
	"classc/internal/resolve"
)

var outPath string

func main() {
	root := &cobra.Command{
		Use:   "classc <fixture.yaml>",
		Short: "compile a YAML-described compilation unit to LLVM IR",
		Args:  cobra.ExactArgs(1),
		RunE:  runCompile,
	}
	root.Flags().StringVarP(&outPath, "out", "o", "", "write LLVM IR to this path instead of stdout")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runCompile loads the fixture, resolves it, lowers it, and prints the
// resulting module. diag.Fatal's panic is the only thing recovered here:
// it signals a compiler bug, not a user diagnostic, and is reported the
// same way any other fatal driver error is.
func runCompile(cmd *cobra.Command, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ice, ok := r.(*diag.Internal); ok {
				err = ice
				return
			}
			panic(r)
		}
	}()

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "reading fixture %q", args[0])
	}
	var doc fixture.File
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return errors.Wrap(err, "decoding fixture")
	}
	defs, err := doc.Build()
	if err != nil {
		return errors.Wrap(err, "building definitions from fixture")
	}

	counter := &fresh.Counter{}
	top, classes, err := resolve.Resolve(defs, counter)
	if err != nil {
		printDiagnostics(err)
		return errors.New("resolution failed")
	}

	mod, err := lower.Assemble(defs, top, classes, counter)
	if err != nil {
		printDiagnostics(err)
		return errors.New("lowering failed")
	}

	rendered := mod.String()
	if outPath == "" {
		fmt.Println(rendered)
		return nil
	}
	return os.WriteFile(outPath, []byte(rendered), 0o644)
}

// printDiagnostics renders every accumulated Diagnostic individually,
// falling back to err.Error() for anything that isn't one (a lowering
// error, which is always exactly one Diagnostic, still goes through this
// path).
func printDiagnostics(err error) {
	items, ok := diag.AsDiagnostics(err)
	if !ok {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	var sb strings.Builder
	for _, d := range items {
		diag.Render(&sb, d)
		sb.WriteRune('\n')
	}
	fmt.Fprint(os.Stderr, sb.String())
}
