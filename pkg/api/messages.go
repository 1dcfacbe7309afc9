// Package api defines the wire messages and gRPC service of the LiteTable filter server.
//
// Messages travel as JSON using the codec registered under the "json" content subtype. Row
// filters are shipped inside ScanRequest in their own binary encoding, see
// filter.RowPrefixFilter.MarshalBinary.
package api

type CreateTableRequest struct {
	Table    string   `json:"table"`
	Families []string `json:"families"`
}

type CreateTableResponse struct {
	// Created is false when the table already existed.
	Created bool `json:"created"`
}

type TableExistsRequest struct {
	Table string `json:"table"`
}

type TableExistsResponse struct {
	Exists bool `json:"exists"`
}

type DropTableRequest struct {
	Table string `json:"table"`
}

type DropTableResponse struct {
	// Dropped is false when the table did not exist.
	Dropped bool `json:"dropped"`
}

type Cell struct {
	Qualifier []byte `json:"qualifier"`
	Value     []byte `json:"value"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type PutRequest struct {
	Table  string `json:"table"`
	RowKey string `json:"rowKey"`
	Family string `json:"family"`
	Cells  []Cell `json:"cells"`
}

type PutResponse struct{}

type ScanRequest struct {
	Table    string `json:"table"`
	Family   string `json:"family"`
	StartRow string `json:"startRow,omitempty"`
	StopRow  string `json:"stopRow,omitempty"`
	// Filter is a serialized row prefix filter. Empty scans without a filter.
	Filter []byte `json:"filter,omitempty"`
}

type Row struct {
	Key    string `json:"key"`
	Family string `json:"family"`
	Cells  []Cell `json:"cells"`
}

type ScanStats struct {
	RowsScanned           int `json:"rowsScanned"`
	RowsAccepted          int `json:"rowsAccepted"`
	RowsRejectedMismatch  int `json:"rowsRejectedMismatch"`
	RowsRejectedUnmatched int `json:"rowsRejectedUnmatched"`
	CellsEvaluated        int `json:"cellsEvaluated"`
	CellsSkipped          int `json:"cellsSkipped"`
}

// ScanResponse carries either one accepted row or, as the last message of a scan, its stats.
type ScanResponse struct {
	RequestID string     `json:"requestId"`
	Row       *Row       `json:"row,omitempty"`
	Stats     *ScanStats `json:"stats,omitempty"`
}
