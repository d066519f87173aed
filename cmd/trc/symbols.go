package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RocioCM/tinyrust-compiler/compiler"
	"github.com/RocioCM/tinyrust-compiler/compiler/treefile"
)

func newSymbolsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "symbols <file>",
		Short: "Print the consolidated symbol table of a tree document as JSON",
		Long: `Runs the declarations phase over a tree document and prints the resulting
symbol table (user classes and main) as JSON. Declaration errors are
reported on stderr; the table printed is the repaired one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := treefile.ReadFile(args[0])
			if err != nil {
				return err
			}

			st, diags := compiler.Declarations(prog)
			data, err := json.MarshalIndent(st, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding symbol table: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))

			errs := 0
			for _, d := range diags {
				if d.Severity == compiler.SeverityError {
					errs++
				}
			}
			if errs > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %s\n", failStyle.Render("FAIL"), args[0], plural(errs, "declaration error"))
				return errCheckFailed
			}
			return nil
		},
	}
}
