package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rotki/localdb/internal/paginate"
	"github.com/rotki/localdb/internal/schema"
	"github.com/rotki/localdb/internal/store"
)

// MappingsOptions holds flags shared by the mappings subcommands.
type MappingsOptions struct {
	*RootOptions
	User string
}

// NewMappingsCommand creates the mappings command group.
func NewMappingsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MappingsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Manage missing asset mappings of a user",
		Long: `Add, list, look up and remove the missing asset mapping records stored
for one user. Each user id has its own store; --user selects it.`,
	}

	cmd.PersistentFlags().StringVarP(&opts.User, "user", "u", "", "user id whose store to use (required)")
	_ = cmd.MarkPersistentFlagRequired("user")

	cmd.AddCommand(newMappingsAddCommand(opts))
	cmd.AddCommand(newMappingsImportCommand(opts))
	cmd.AddCommand(newMappingsListCommand(opts))
	cmd.AddCommand(newMappingsGetCommand(opts))
	cmd.AddCommand(newMappingsRemoveCommand(opts))

	return cmd
}

type mappingsAddOptions struct {
	*MappingsOptions
	record schema.MissingMapping
}

func newMappingsAddCommand(mOpts *MappingsOptions) *cobra.Command {
	opts := &mappingsAddOptions{MappingsOptions: mOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a missing mapping",
		Long: `Record an external asset identifier that could not be mapped.

The pair (identifier, location) is unique per user; adding it twice fails.

Example:
  localdb mappings add --user alice --identifier XBT --location kraken --name Bitcoin`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMappingsAdd(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.record.Identifier, "identifier", "", "external asset identifier (required)")
	cmd.Flags().StringVar(&opts.record.Location, "location", "", "where the identifier was seen (required)")
	cmd.Flags().StringVar(&opts.record.Name, "name", "", "asset name as reported by the location")
	cmd.Flags().StringVar(&opts.record.Details, "details", "", "free-form details")
	_ = cmd.MarkFlagRequired("identifier")
	_ = cmd.MarkFlagRequired("location")

	return cmd
}

func runMappingsAdd(opts *mappingsAddOptions, cmd *cobra.Command) error {
	env, err := newCommandEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	return env.withUser(ctx, opts.User, func() error {
		c, err := env.registry.Mappings()
		if err != nil {
			return reportError(env.formatter, err)
		}
		rec := opts.record
		if err := c.Add(ctx, &rec); err != nil {
			return reportError(env.formatter, err)
		}
		env.logger.Debug("mapping added", "user", opts.User, "id", rec.ID)

		return env.formatter.Result(rec, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Added mapping %s\n", formatMapping(rec))
			return err
		})
	})
}

type mappingsImportOptions struct {
	*MappingsOptions
	File string
}

// importResult is the JSON payload of mappings import.
type importResult struct {
	Imported int     `json:"imported"`
	IDs      []int64 `json:"ids"`
}

func newMappingsImportCommand(mOpts *MappingsOptions) *cobra.Command {
	opts := &mappingsImportOptions{MappingsOptions: mOpts}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Record many missing mappings from a YAML or JSON file",
		Long: `Record every mapping listed in a YAML or JSON file, in one transaction.

The file holds a list of records with identifier, location, name and
details keys. If any record fails (for example a duplicate), nothing is
stored.

Example:
  localdb mappings import --user alice --file mappings.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMappingsImport(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "file to import (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// importRecord is one entry of an import file.
type importRecord struct {
	Identifier string `yaml:"identifier"`
	Name       string `yaml:"name"`
	Location   string `yaml:"location"`
	Details    string `yaml:"details"`
}

func runMappingsImport(opts *mappingsImportOptions, cmd *cobra.Command) error {
	env, err := newCommandEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	recs, err := readImportFile(opts.File)
	if err != nil {
		return outputError(env.formatter, ErrCodeInvalidInput, "failed to read import file", err)
	}
	env.formatter.VerboseLog("Read %d record(s) from %s", len(recs), opts.File)

	return env.withUser(ctx, opts.User, func() error {
		c, err := env.registry.Mappings()
		if err != nil {
			return reportError(env.formatter, err)
		}
		if err := c.BulkAdd(ctx, recs); err != nil {
			return reportError(env.formatter, err)
		}

		result := importResult{Imported: len(recs), IDs: make([]int64, len(recs))}
		for i, r := range recs {
			result.IDs[i] = r.ID
		}
		return env.formatter.Result(result, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Imported %d mapping(s)\n", result.Imported)
			return err
		})
	})
}

func readImportFile(path string) ([]schema.MissingMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []importRecord
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	recs := make([]schema.MissingMapping, len(entries))
	for i, e := range entries {
		if e.Identifier == "" || e.Location == "" {
			return nil, fmt.Errorf("record %d: identifier and location are required", i)
		}
		recs[i] = schema.MissingMapping{
			Identifier: e.Identifier,
			Name:       e.Name,
			Location:   e.Location,
			Details:    e.Details,
		}
	}
	return recs, nil
}

type mappingsListOptions struct {
	*MappingsOptions
	OrderBy    string
	Desc       bool
	Offset     int
	Limit      int
	Location   string
	Identifier string
}

func newMappingsListCommand(mOpts *MappingsOptions) *cobra.Command {
	opts := &mappingsListOptions{MappingsOptions: mOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of missing mappings",
		Long: `List one page of a user's missing mappings, ordered by an indexed field.

Total counts every record matching the filters, not just the page.

Example:
  localdb mappings list --user alice --order-by identifier --offset 10 --limit 10
  localdb mappings list --user alice --location kraken --desc --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMappingsList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OrderBy, "order-by", schema.FieldIdentifier, "indexed field to order by (id|identifier|name|location)")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "descending order")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "number of matching records to skip")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "page size (default: page_size from config)")
	cmd.Flags().StringVar(&opts.Location, "location", "", "only records seen at this location")
	cmd.Flags().StringVar(&opts.Identifier, "identifier", "", "only records with this identifier")

	return cmd
}

func runMappingsList(opts *mappingsListOptions, cmd *cobra.Command) error {
	env, err := newCommandEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	spec := paginate.Spec{
		OrderBy: opts.OrderBy,
		Order:   paginate.Ascending,
		Offset:  opts.Offset,
		Limit:   opts.Limit,
	}
	if opts.Desc {
		spec.Order = paginate.Descending
	}
	if !cmd.Flags().Changed("limit") {
		spec.Limit = env.cfg.PageSize
	}

	return env.withUser(ctx, opts.User, func() error {
		c, err := env.registry.Mappings()
		if err != nil {
			return reportError(env.formatter, err)
		}
		page, err := paginate.GetPage[schema.MissingMapping](ctx, c, spec, listFilter(opts))
		if err != nil {
			return reportError(env.formatter, err)
		}
		env.formatter.VerboseLog("Page %d+%d of %d record(s)", spec.Offset, len(page.Data), page.Total)

		return env.formatter.Result(page, func(w io.Writer) error {
			return writePage(w, spec, page)
		})
	})
}

// listFilter builds the record filter of the list flags; nil when none is set.
func listFilter(opts *mappingsListOptions) paginate.Filter[schema.MissingMapping] {
	var filters []paginate.Filter[schema.MissingMapping]
	if opts.Location != "" {
		filters = append(filters, func(m schema.MissingMapping) bool { return m.Location == opts.Location })
	}
	if opts.Identifier != "" {
		filters = append(filters, func(m schema.MissingMapping) bool { return m.Identifier == opts.Identifier })
	}
	return paginate.And(filters...)
}

func writePage(w io.Writer, spec paginate.Spec, page paginate.Page[schema.MissingMapping]) error {
	if len(page.Data) == 0 {
		_, err := fmt.Fprintf(w, "No mappings in range (total %d)\n", page.Total)
		return err
	}

	fmt.Fprintf(w, "Mappings %d-%d of %d (by %s, %s)\n",
		spec.Offset+1, spec.Offset+len(page.Data), page.Total, spec.OrderBy, spec.Order)
	for _, rec := range page.Data {
		writeMapping(w, rec)
	}
	return nil
}

func writeMapping(w io.Writer, rec schema.MissingMapping) {
	fmt.Fprintf(w, "  %s\n", formatMapping(rec))
	if rec.Name != "" {
		fmt.Fprintf(w, "       Name: %s\n", rec.Name)
	}
	if rec.Details != "" {
		fmt.Fprintf(w, "       Details: %s\n", rec.Details)
	}
}

func formatMapping(rec schema.MissingMapping) string {
	return fmt.Sprintf("[%d] %s @ %s", rec.ID, rec.Identifier, rec.Location)
}

type mappingsGetOptions struct {
	*MappingsOptions
	Identifier string
	Location   string
}

func newMappingsGetCommand(mOpts *MappingsOptions) *cobra.Command {
	opts := &mappingsGetOptions{MappingsOptions: mOpts}

	cmd := &cobra.Command{
		Use:           "get",
		Short:         "Look up the mapping of an (identifier, location) pair",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMappingsGet(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Identifier, "identifier", "", "external asset identifier (required)")
	cmd.Flags().StringVar(&opts.Location, "location", "", "location (required)")
	_ = cmd.MarkFlagRequired("identifier")
	_ = cmd.MarkFlagRequired("location")

	return cmd
}

func runMappingsGet(opts *mappingsGetOptions, cmd *cobra.Command) error {
	env, err := newCommandEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	return env.withUser(ctx, opts.User, func() error {
		c, err := env.registry.Mappings()
		if err != nil {
			return reportError(env.formatter, err)
		}
		rec, err := store.FindMapping(ctx, c, opts.Identifier, opts.Location)
		if err != nil {
			return reportError(env.formatter, err)
		}
		return env.formatter.Result(rec, func(w io.Writer) error {
			writeMapping(w, rec)
			return nil
		})
	})
}

func newMappingsRemoveCommand(mOpts *MappingsOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a missing mapping by id",
		Long: `Remove the missing mapping with the given id, typically once the asset
has been mapped.

Example:
  localdb mappings remove --user alice 42`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMappingsRemove(mOpts, args[0], cmd)
		},
	}
	return cmd
}

// removeResult is the JSON payload of mappings remove.
type removeResult struct {
	ID int64 `json:"id"`
}

func runMappingsRemove(opts *MappingsOptions, rawID string, cmd *cobra.Command) error {
	env, err := newCommandEnv(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return outputError(env.formatter, ErrCodeInvalidInput, fmt.Sprintf("invalid id %q", rawID), nil)
	}

	return env.withUser(ctx, opts.User, func() error {
		c, err := env.registry.Mappings()
		if err != nil {
			return reportError(env.formatter, err)
		}
		if err := c.Remove(ctx, id); err != nil {
			return reportError(env.formatter, err)
		}
		return env.formatter.Result(removeResult{ID: id}, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Removed mapping [%d]\n", id)
			return err
		})
	})
}
