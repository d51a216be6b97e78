package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datatable/internal/core"
)

type viewOptions struct {
	search   string
	sort     string
	dir      string
	page     int
	pageSize int
	format   string
}

func newViewCmd(root *rootOptions) *cobra.Command {
	var opts viewOptions

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Print one filtered, sorted page of the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, root, func(s *session) error {
				pageSize := opts.pageSize
				if !core.ValidPageSize(pageSize) {
					pageSize = s.cfg.Table.DefaultPageSize
				}
				q := core.Query{
					Search:     opts.search,
					SortColumn: opts.sort,
					SortOrder:  core.ParseSortOrder(opts.dir),
					Page:       opts.page,
					PageSize:   pageSize,
				}.Normalize()

				view := s.table.View(q)
				cols := s.table.VisibleColumns()
				if opts.format == "json" {
					return writeJSON(cmd.OutOrStdout(), viewJSON{
						Columns:      cols,
						Rows:         view.Rows,
						TotalMatched: view.TotalMatched,
						Page:         view.Page,
						TotalPages:   view.TotalPages,
					})
				}
				return renderView(cmd.OutOrStdout(), cols, view)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.search, "search", "s", "", "case-insensitive substring filter")
	cmd.Flags().StringVar(&opts.sort, "sort", "", "column id to sort by")
	cmd.Flags().StringVar(&opts.dir, "dir", "asc", "sort direction: asc or desc")
	cmd.Flags().IntVar(&opts.page, "page", 0, "0-based page index")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", 0, "rows per page: 5, 10, 25 or 50 (default from TABLE_DEFAULT_PAGE_SIZE)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "output format: table or json")
	return cmd
}

type viewJSON struct {
	Columns      []core.Column `json:"columns"`
	Rows         []core.Row    `json:"rows"`
	TotalMatched int           `json:"totalMatched"`
	Page         int           `json:"page"`
	TotalPages   int           `json:"totalPages"`
}

func newColumnsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "List every column with its visibility",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, root, func(s *session) error {
				return renderColumns(cmd.OutOrStdout(), s.table.Columns())
			})
		},
	}
}

func newImportCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Append the rows of a CSV file (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeIn, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeIn()

			return withSession(cmd, root, func(s *session) error {
				opts := core.ImportOptions{MaxBytes: s.cfg.Import.MaxFileSize}
				res := <-core.ImportCSVAsync(cmd.Context(), in, s.table.Columns(), opts)
				if err := res.Err(); err != nil {
					return err
				}

				added := s.table.ApplyImport(res)
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows, %d new columns\n", added, len(res.NewColumns))
				return nil
			})
		},
	}
}

func openInput(cmd *cobra.Command, name string) (io.Reader, func(), error) {
	if name == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, func() { f.Close() }, nil
}

func newExportCmd(root *rootOptions) *cobra.Command {
	var output, format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every row over the visible columns as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, root, func(s *session) error {
				w := cmd.OutOrStdout()
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("create %s: %w", output, err)
					}
					defer f.Close()
					w = f
				}

				rows, cols := s.table.Rows(), s.table.VisibleColumns()
				switch strings.ToLower(format) {
				case "csv":
					return core.WriteCSV(w, rows, cols)
				case "xlsx":
					return core.WriteXLSX(w, rows, cols)
				default:
					return fmt.Errorf("unknown export format %q", format)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format: csv or xlsx")
	return cmd
}

func newAddRowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "add-row COLUMN=VALUE...",
		Short:   "Add a row; values in numeric columns are stored as numbers",
		Example: "  tablectl add-row name='Ada Lovelace' email=ada@example.com age=36",
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := parseAssignments(args)
			if err != nil {
				return err
			}
			return withSession(cmd, root, func(s *session) error {
				row := s.table.AddRow(s.table.ParseRecord(record))
				fmt.Fprintln(cmd.OutOrStdout(), row.ID)
				return nil
			})
		},
	}
}

func newUpdateRowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update-row ID COLUMN=VALUE...",
		Short: "Merge values into an existing row",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			return withSession(cmd, root, func(s *session) error {
				if !s.table.UpdateRow(args[0], s.table.ParseRecord(record)) {
					return fmt.Errorf("%w: %s", core.ErrRowNotFound, args[0])
				}
				return nil
			})
		},
	}
}

func newDeleteRowCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-row ID",
		Short: "Delete a row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, root, func(s *session) error {
				if !s.table.DeleteRow(args[0]) {
					return fmt.Errorf("%w: %s", core.ErrRowNotFound, args[0])
				}
				return nil
			})
		},
	}
}

func newAddColumnCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add-column LABEL",
		Short: "Add a visible column; existing rows get an empty value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, root, func(s *session) error {
				col, ok := s.table.AddColumnFromLabel(args[0])
				if !ok {
					id := core.ColumnIDFromLabel(args[0])
					if id == "" || id == core.ReservedColumnID {
						return core.ErrInvalidColumn
					}
					return fmt.Errorf("%w: %s", core.ErrDuplicateColumn, id)
				}
				fmt.Fprintln(cmd.OutOrStdout(), col.ID)
				return nil
			})
		},
	}
}

func newToggleColumnCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-column ID",
		Short: "Show a hidden column or hide a visible one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, root, func(s *session) error {
				if !s.table.ToggleColumnVisibility(args[0]) {
					return fmt.Errorf("%w: %s", core.ErrColumnNotFound, args[0])
				}
				col, _ := s.table.Column(args[0])
				state := "hidden"
				if col.Visible {
					state = "visible"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", col.ID, state)
				return nil
			})
		},
	}
}

func newResetCmd(root *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard all data and restore the seed table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset discards every row and column; pass --yes to confirm")
			}
			return withSession(cmd, root, func(s *session) error {
				s.table.ResetToDefault()
				fmt.Fprintf(cmd.OutOrStdout(), "table reset to %d rows\n", s.table.Len())
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

// parseAssignments turns COLUMN=VALUE arguments into a record.
func parseAssignments(args []string) (map[string]string, error) {
	record := make(map[string]string, len(args))
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid request: expected COLUMN=VALUE, got %q", a)
		}
		record[strings.TrimSpace(k)] = v
	}
	return record, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
