package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/litetable/litetable-filter/internal/filter"
	"github.com/litetable/litetable-filter/internal/litetable"
	"github.com/litetable/litetable-filter/internal/populate"
	"github.com/litetable/litetable-filter/pkg/api"
	"github.com/spf13/cobra"
)

type dialFunc func(addr string) (api.TableServiceClient, io.Closer, error)

var demoPrefixes = []string{"col_03", "col_04", "col_06", "col_07", "col_09"}

type cli struct {
	addr    string
	timeout time.Duration
	out     io.Writer
	dial    dialFunc
}

// withClient dials the server and runs fn under the command timeout.
func (c *cli) withClient(cmd *cobra.Command,
	fn func(ctx context.Context, client api.TableServiceClient) error) error {
	client, closer, err := c.dial(c.addr)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()
	return fn(ctx, client)
}

func newRootCmd(out io.Writer, dial dialFunc) *cobra.Command {
	c := &cli{out: out, dial: dial}

	root := &cobra.Command{
		Use:           "ltfilter",
		Short:         "LiteTable filter CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.addr, "addr", "localhost:9000", "filter server address")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second,
		"deadline for each command")

	root.AddCommand(
		c.createTableCmd(),
		c.dropTableCmd(),
		c.populateCmd(),
		c.scanCmd(),
	)
	return root
}

func (c *cli) createTableCmd() *cobra.Command {
	var families []string
	cmd := &cobra.Command{
		Use:   "create-table TABLE",
		Short: "Create a table with its column families",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd, func(ctx context.Context, client api.TableServiceClient) error {
				return createTable(ctx, client, c.out, args[0], families)
			})
		},
	}
	cmd.Flags().StringSliceVarP(&families, "family", "f", []string{"cf1", "cf2"},
		"column family, repeatable")
	return cmd
}

func (c *cli) dropTableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop-table TABLE",
		Short: "Drop a table and all of its rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd, func(ctx context.Context, client api.TableServiceClient) error {
				return dropTable(ctx, client, c.out, args[0])
			})
		},
	}
}

func (c *cli) populateCmd() *cobra.Command {
	var (
		family string
		reset  bool
		cfg    populate.Config
	)
	cmd := &cobra.Command{
		Use:   "populate TABLE",
		Short: "Fill a table with random demo rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(cmd, func(ctx context.Context, client api.TableServiceClient) error {
				name := args[0]
				if reset {
					if err := dropTable(ctx, client, c.out, name); err != nil {
						return err
					}
					if err := createTable(ctx, client, c.out, name,
						[]string{family}); err != nil {
						return err
					}
				}

				n, err := populate.Run(ctx, tableWriter(client, name, family), &cfg)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "wrote %d rows to %s:%s\n", n, name, family)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&family, "family", "f", "cf1", "column family to write")
	cmd.Flags().BoolVar(&reset, "reset", false, "drop and recreate the table first")
	cmd.Flags().IntVar(&cfg.Rows, "rows", 500, "number of rows")
	cmd.Flags().IntVar(&cfg.Columns, "columns", 100, "columns per row")
	cmd.Flags().Float64Var(&cfg.RowsPerSecond, "rate", 0, "rows per second, 0 for unlimited")
	cmd.Flags().Uint64Var(&cfg.Seed, "seed", uint64(time.Now().UnixNano()), "random seed")
	return cmd
}

func (c *cli) scanCmd() *cobra.Command {
	var (
		family    string
		prefixes  []string
		startRow  string
		stopRow   string
		showStats bool
	)
	cmd := &cobra.Command{
		Use:   "scan TABLE",
		Short: "Scan rows whose qualifiers cover every prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := make([][]byte, len(prefixes))
			for i, p := range prefixes {
				raw[i] = []byte(p)
			}
			f, err := filter.New(raw...)
			if err != nil {
				return err
			}

			return c.withClient(cmd, func(ctx context.Context, client api.TableServiceClient) error {
				return scanTable(ctx, client, c.out, &api.ScanRequest{
					Table:    args[0],
					Family:   family,
					StartRow: startRow,
					StopRow:  stopRow,
				}, f, showStats)
			})
		},
	}
	cmd.Flags().StringVarP(&family, "family", "f", "cf1", "column family to scan")
	cmd.Flags().StringSliceVarP(&prefixes, "prefix", "p", demoPrefixes,
		"required qualifier prefix, repeatable")
	cmd.Flags().StringVar(&startRow, "start", "", "first row key, inclusive")
	cmd.Flags().StringVar(&stopRow, "stop", "", "last row key, exclusive")
	cmd.Flags().BoolVar(&showStats, "stats", false, "print scan stats")
	return cmd
}

func createTable(ctx context.Context, client api.TableServiceClient, out io.Writer,
	name string, families []string) error {
	resp, err := client.CreateTable(ctx, &api.CreateTableRequest{Table: name, Families: families})
	if err != nil {
		return err
	}
	if resp.Created {
		fmt.Fprintf(out, "created table %s %v\n", name, families)
	} else {
		fmt.Fprintf(out, "table %s already exists\n", name)
	}
	return nil
}

func dropTable(ctx context.Context, client api.TableServiceClient, out io.Writer,
	name string) error {
	resp, err := client.DropTable(ctx, &api.DropTableRequest{Table: name})
	if err != nil {
		return err
	}
	if resp.Dropped {
		fmt.Fprintf(out, "dropped table %s\n", name)
	} else {
		fmt.Fprintf(out, "table %s does not exist\n", name)
	}
	return nil
}

func tableWriter(client api.TableServiceClient, name, family string) populate.Writer {
	return populate.WriterFunc(func(ctx context.Context, rowKey string,
		cells []litetable.Cell) error {
		apiCells := make([]api.Cell, len(cells))
		for i, c := range cells {
			apiCells[i] = api.Cell{Qualifier: c.Qualifier, Value: c.Value, Timestamp: c.Timestamp}
		}
		_, err := client.Put(ctx, &api.PutRequest{
			Table:  name,
			RowKey: rowKey,
			Family: family,
			Cells:  apiCells,
		})
		return err
	})
}

// scanTable ships f with the request and prints every cell of the returned rows.
func scanTable(ctx context.Context, client api.TableServiceClient, out io.Writer,
	req *api.ScanRequest, f *filter.RowPrefixFilter, showStats bool) error {
	encoded, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	req.Filter = encoded

	stream, err := client.Scan(ctx, req)
	if err != nil {
		return err
	}

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if resp.Row != nil {
			for _, cell := range resp.Row.Cells {
				fmt.Fprintf(out, "KV: %s/%s:%s/%d, Value: %s\n", resp.Row.Key, resp.Row.Family,
					cell.Qualifier, cell.Timestamp, cell.Value)
			}
		}
		if resp.Stats != nil && showStats {
			s := resp.Stats
			fmt.Fprintf(out, "scanned %d rows: %d accepted, %d rejected on mismatch, "+
				"%d rejected unmatched; %d cells evaluated, %d skipped\n",
				s.RowsScanned, s.RowsAccepted, s.RowsRejectedMismatch, s.RowsRejectedUnmatched,
				s.CellsEvaluated, s.CellsSkipped)
		}
	}
}
