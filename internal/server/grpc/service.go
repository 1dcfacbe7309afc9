package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/litetable/litetable-filter/internal/filter"
	"github.com/litetable/litetable-filter/internal/litetable"
	"github.com/litetable/litetable-filter/internal/scan"
	"github.com/litetable/litetable-filter/internal/table"
	"github.com/litetable/litetable-filter/pkg/api"
	"github.com/rs/zerolog/log"
	grpc2 "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

//go:generate mockgen -destination=./service_mock.go -package=grpc -source=service.go

type store interface {
	CreateTable(name string, families ...string) (bool, error)
	TableExists(name string) bool
	DropTable(name string) (bool, error)
	Put(tableName, rowKey, family string, cells []litetable.Cell) error
	ScanStream(ctx context.Context, p *table.ScanParams,
		emit func(*litetable.Row) error) (scan.Stats, error)
}

type tableService struct {
	store store
}

// toStatus maps store errors onto gRPC codes.
func toStatus(err error, msg string) error {
	code := codes.Internal
	switch {
	case errors.Is(err, table.ErrTableNotFound), errors.Is(err, table.ErrFamilyNotFound):
		code = codes.NotFound
	case errors.Is(err, table.ErrInvalidArgument):
		code = codes.InvalidArgument
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return status.Errorf(code, "%s: %v", msg, err)
}

func (s *tableService) CreateTable(ctx context.Context,
	msg *api.CreateTableRequest) (*api.CreateTableResponse, error) {
	var errGrp []error
	if msg.Table == "" {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "table required"))
	}
	if len(msg.Families) == 0 {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "family required"))
	}
	if err := errors.Join(errGrp...); err != nil {
		return nil, err
	}

	log.Debug().Msgf("CreateTable request: %v", msg)
	created, err := s.store.CreateTable(msg.Table, msg.Families...)
	if err != nil {
		return nil, toStatus(err, "failed to create table")
	}
	return &api.CreateTableResponse{Created: created}, nil
}

func (s *tableService) TableExists(ctx context.Context,
	msg *api.TableExistsRequest) (*api.TableExistsResponse, error) {
	if msg.Table == "" {
		return nil, status.Errorf(codes.InvalidArgument, "table required")
	}
	return &api.TableExistsResponse{Exists: s.store.TableExists(msg.Table)}, nil
}

func (s *tableService) DropTable(ctx context.Context,
	msg *api.DropTableRequest) (*api.DropTableResponse, error) {
	if msg.Table == "" {
		return nil, status.Errorf(codes.InvalidArgument, "table required")
	}

	log.Debug().Msgf("DropTable request: %v", msg)
	dropped, err := s.store.DropTable(msg.Table)
	if err != nil {
		return nil, toStatus(err, "failed to drop table")
	}
	return &api.DropTableResponse{Dropped: dropped}, nil
}

func (s *tableService) validatePut(msg *api.PutRequest) error {
	var errGrp []error
	if msg.Table == "" {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "table required"))
	}
	if msg.RowKey == "" {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "rowKey required"))
	}
	if msg.Family == "" {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "family required"))
	}
	if len(msg.Cells) == 0 {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "cells required"))
	}
	return errors.Join(errGrp...)
}

func (s *tableService) Put(ctx context.Context, msg *api.PutRequest) (*api.PutResponse, error) {
	if err := s.validatePut(msg); err != nil {
		return nil, err
	}

	cells := make([]litetable.Cell, len(msg.Cells))
	for i, c := range msg.Cells {
		cells[i] = litetable.Cell{Qualifier: c.Qualifier, Value: c.Value, Timestamp: c.Timestamp}
	}

	if err := s.store.Put(msg.Table, msg.RowKey, msg.Family, cells); err != nil {
		return nil, toStatus(err, "failed to write row")
	}
	return &api.PutResponse{}, nil
}

func (s *tableService) validateScan(msg *api.ScanRequest) error {
	var errGrp []error
	if msg.Table == "" {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "table required"))
	}
	if msg.Family == "" {
		errGrp = append(errGrp, status.Errorf(codes.InvalidArgument, "family required"))
	}
	return errors.Join(errGrp...)
}

// Scan runs the shipped row filter next to the data, sends each accepted row as the scan finds
// it and ends with a message holding the scan stats.
func (s *tableService) Scan(msg *api.ScanRequest,
	stream grpc2.ServerStreamingServer[api.ScanResponse]) error {
	start := time.Now()
	requestID := uuid.NewString()
	logger := log.With().Str("requestId", requestID).Str("table", msg.Table).Logger()

	if err := s.validateScan(msg); err != nil {
		return err
	}

	var rowFilter *filter.RowPrefixFilter
	if len(msg.Filter) > 0 {
		rowFilter = new(filter.RowPrefixFilter)
		if err := rowFilter.UnmarshalBinary(msg.Filter); err != nil {
			return status.Errorf(codes.InvalidArgument, "invalid filter: %v", err)
		}
		logger.Debug().Stringer("filter", rowFilter).Msg("Scan request")
	}

	rows := 0
	st, err := s.store.ScanStream(stream.Context(), &table.ScanParams{
		Table:    msg.Table,
		Family:   msg.Family,
		StartRow: msg.StartRow,
		StopRow:  msg.StopRow,
		Filter:   rowFilter,
	}, func(r *litetable.Row) error {
		rows++
		return stream.Send(&api.ScanResponse{RequestID: requestID, Row: toAPIRow(r)})
	})
	if err != nil {
		if _, ok := status.FromError(err); ok {
			return err
		}
		return toStatus(err, "failed to scan table")
	}

	if err = stream.Send(&api.ScanResponse{
		RequestID: requestID,
		Stats: &api.ScanStats{
			RowsScanned:           st.RowsScanned,
			RowsAccepted:          st.RowsAccepted,
			RowsRejectedMismatch:  st.RowsRejectedMismatch,
			RowsRejectedUnmatched: st.RowsRejectedUnmatched,
			CellsEvaluated:        st.CellsEvaluated,
			CellsSkipped:          st.CellsSkipped,
		},
	}); err != nil {
		return err
	}

	logger.Debug().Int("rows", rows).Dur("latency", time.Since(start)).
		Msg("Scan complete")
	return nil
}

func toAPIRow(r *litetable.Row) *api.Row {
	out := &api.Row{
		Key:    r.Key,
		Family: r.Family,
		Cells:  make([]api.Cell, len(r.Cells)),
	}
	for i, c := range r.Cells {
		out.Cells[i] = api.Cell{Qualifier: c.Qualifier, Value: c.Value, Timestamp: c.Timestamp}
	}
	return out
}
