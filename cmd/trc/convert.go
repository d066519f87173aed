package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RocioCM/tinyrust-compiler/compiler/treefile"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		to  string
		out string
	)

	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a tree document between JSON, YAML and CBOR",
		Long: `Reads a tree document, validates that it converts to a program tree and
writes it in another format. CBOR output is canonical, so equal trees
encode to equal bytes.

Examples:
  trc convert ejemplo.json --to yaml
  trc convert ejemplo.yaml --to cbor -o ejemplo.cbor`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := treefile.ParseFormat(to)
			if err != nil {
				return err
			}
			source, err := treefile.FormatFromPath(args[0])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			doc, err := treefile.Unmarshal(data, source)
			if err != nil {
				return err
			}
			if _, err := doc.Program(); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			encoded, err := treefile.Marshal(doc, target)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(encoded)
				return err
			}
			log.Infof("writing %s", out)
			return os.WriteFile(out, encoded, 0644)
		},
	}

	cmd.Flags().StringVarP(&to, "to", "t", "yaml", "target format: json, yaml or cbor")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
