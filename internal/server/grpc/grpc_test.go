package grpc

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/litetable/litetable-filter/internal/filter"
	"github.com/litetable/litetable-filter/internal/table"
	"github.com/litetable/litetable-filter/internal/wal"
	"github.com/litetable/litetable-filter/pkg/api"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	grpc2 "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

// newTestClient serves a table service for s over an in-memory connection.
func newTestClient(t *testing.T, s store) api.TableServiceClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := newGRPCServer(s)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	conn, err := grpc2.NewClient("passthrough:///bufnet",
		grpc2.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc2.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return api.NewTableServiceClient(conn)
}

// drain reads a scan stream to the end.
func drain(t *testing.T, stream grpc2.ServerStreamingClient[api.ScanResponse]) ([]*api.Row,
	*api.ScanStats, error) {
	t.Helper()
	var rows []*api.Row
	var stats *api.ScanStats
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return rows, stats, nil
		}
		if err != nil {
			return rows, stats, err
		}
		if resp.Row != nil {
			rows = append(rows, resp.Row)
		}
		if resp.Stats != nil {
			stats = resp.Stats
		}
	}
}

func TestNewServer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	tests := map[string]struct {
		cfg   *Config
		error error
	}{
		"invalid config": {
			cfg:   &Config{},
			error: errors.New("address required\nport required\nstore required"),
		},
		"valid config": {
			cfg: &Config{
				Address: "127.0.0.1",
				Port:    freePort(t),
				Store:   NewMockstore(ctrl),
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := NewServer(test.cfg)
			req := require.New(t)
			if test.error != nil {
				req.Error(err)
				req.Nil(got)

				req.Equal(test.error.Error(), err.Error())
				return
			}

			req.NoError(err)
			req.NotNil(got)
			req.Equal(test.cfg.Port, got.Addr().(*net.TCPAddr).Port)
			req.NoError(got.listener.Close())
		})
	}
}

func TestServer_Name(t *testing.T) {
	s := &Server{}
	require.Equal(t, "gRPC Server", s.Name())
}

func TestGRPCServer_Real(t *testing.T) {
	req := require.New(t)

	w, err := wal.New(&wal.Config{Path: t.TempDir()})
	req.NoError(err)
	tableStore, err := table.New(&table.Config{WAL: w, ShardCount: 2})
	req.NoError(err)
	req.NoError(tableStore.Start())
	defer func() { _ = tableStore.Stop() }()

	client := newTestClient(t, tableStore)
	ctx := context.Background()

	created, err := client.CreateTable(ctx, &api.CreateTableRequest{
		Table:    "testTable",
		Families: []string{"cf1"},
	})
	req.NoError(err)
	req.True(created.Created)

	exists, err := client.TableExists(ctx, &api.TableExistsRequest{Table: "testTable"})
	req.NoError(err)
	req.True(exists.Exists)

	rows := map[string][]string{
		"r1": {"col_01", "col_03", "col_05"},
		"r2": {"col_03", "col_04"},
		"r3": {"col_04", "col_09"},
	}
	for key, qualifiers := range rows {
		var cells []api.Cell
		for _, q := range qualifiers {
			cells = append(cells, api.Cell{Qualifier: []byte(q), Value: []byte(q[4:])})
		}
		_, err = client.Put(ctx, &api.PutRequest{
			Table:  "testTable",
			RowKey: key,
			Family: "cf1",
			Cells:  cells,
		})
		req.NoError(err)
	}

	f, err := filter.New([]byte("col_05"), []byte("col_03"))
	req.NoError(err)
	encoded, err := f.MarshalBinary()
	req.NoError(err)

	stream, err := client.Scan(ctx, &api.ScanRequest{
		Table:  "testTable",
		Family: "cf1",
		Filter: encoded,
	})
	req.NoError(err)

	got, stats, err := drain(t, stream)
	req.NoError(err)
	req.Len(got, 1)
	req.Equal("r1", got[0].Key)
	req.Len(got[0].Cells, 3)
	req.Equal([]byte("col_01"), got[0].Cells[0].Qualifier)
	req.Equal([]byte("05"), got[0].Cells[2].Value)

	req.NotNil(stats)
	req.Equal(api.ScanStats{
		RowsScanned:           3,
		RowsAccepted:          1,
		RowsRejectedMismatch:  1,
		RowsRejectedUnmatched: 1,
		CellsEvaluated:        6,
		CellsSkipped:          1,
	}, *stats)

	// without a filter every row in range comes back
	stream, err = client.Scan(ctx, &api.ScanRequest{
		Table:    "testTable",
		Family:   "cf1",
		StartRow: "r2",
	})
	req.NoError(err)
	got, stats, err = drain(t, stream)
	req.NoError(err)
	req.Len(got, 2)
	req.Equal("r2", got[0].Key)
	req.Equal("r3", got[1].Key)
	req.Equal(2, stats.RowsAccepted)

	dropped, err := client.DropTable(ctx, &api.DropTableRequest{Table: "testTable"})
	req.NoError(err)
	req.True(dropped.Dropped)
}

func TestServer_Start(t *testing.T) {
	t.Run("successful start", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockServer := NewMockgrpcServer(ctrl)
		ml := &mockListener{}

		mockServer.EXPECT().
			Serve(ml).
			DoAndReturn(func(net.Listener) error {
				// Simulate blocking serve
				time.Sleep(100 * time.Millisecond)
				return nil
			})

		s := &Server{
			address:  "127.0.0.1",
			port:     12345,
			server:   mockServer,
			listener: ml,
		}

		err := s.Start()
		require.NoError(t, err)
	})

	t.Run("serve error on start", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockServer := NewMockgrpcServer(ctrl)
		ml := &mockListener{}

		mockServer.EXPECT().
			Serve(ml).
			Return(errors.New("bind error"))

		s := &Server{
			address:  "127.0.0.1",
			port:     12345,
			server:   mockServer,
			listener: ml,
		}

		err := s.Start()
		require.Error(t, err)
		require.Contains(t, err.Error(), "bind error")
	})
}

func TestServer_Stop(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockServer := NewMockgrpcServer(ctrl)
	mockServer.EXPECT().GracefulStop().Times(1)

	s := &Server{
		server: mockServer,
	}

	require.NoError(t, s.Stop())
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

type mockListener struct {
	net.Listener
}

func (m *mockListener) Accept() (net.Conn, error) { return nil, nil }
func (m *mockListener) Close() error              { return nil }
func (m *mockListener) Addr() net.Addr            { return &net.TCPAddr{Port: 12345} }
