// Command ltfilter administers a LiteTable filter server: it creates and drops tables, fills
// them with demo rows and runs prefix filtered scans.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/litetable/litetable-filter/pkg/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCmd(os.Stdout, dialServer).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dialServer(addr string) (api.TableServiceClient, io.Closer, error) {
	conn, err := api.Dial(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return api.NewTableServiceClient(conn), conn, nil
}
