package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rotki/localdb/internal/schema"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	File string
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the store schema as SQL",
		Long: `Print the statements every user store is created with.

With --file, a CUE schema document is validated and printed instead of the
built-in one.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "CUE schema document to validate")

	return cmd
}

func runSchema(opts *SchemaOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	sc, err := loadSchema(opts.File)
	if err != nil {
		return outputError(formatter, ErrCodeInvalidInput, "invalid schema", err)
	}

	return formatter.Result(sc, func(w io.Writer) error {
		fmt.Fprintf(w, "-- schema %s, version %d\n", sc.Name, sc.Version)
		for _, stmt := range sc.DDL() {
			fmt.Fprintf(w, "\n%s;\n", stmt)
		}
		return nil
	})
}

func loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return schema.Load()
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return schema.Parse(path, string(src))
}
