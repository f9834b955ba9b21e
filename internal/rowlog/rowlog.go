// Package rowlog implements an append-framed row log: every row is
// written as
//
//	0xAB  size_u64_le  0xCD  payload[size bytes]
//
// with payload produced by internal/codec in column order. The log is
// append-only for INSERT and wholesale-rewritten for UPDATE; there is
// no DELETE.
package rowlog

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rql-db/rql/internal/codec"
	"github.com/rql-db/rql/internal/rqlerr"
	"github.com/rql-db/rql/internal/types"
)

const (
	startMarker byte = 0xAB
	endMarker   byte = 0xCD
)

// Store locates the data/ directory holding one framed file per table.
type Store struct {
	DataDir string
}

func NewStore(dataDir string) *Store {
	return &Store{DataDir: dataDir}
}

func (s *Store) path(tableName string) string {
	return filepath.Join(s.DataDir, lower(tableName)+"_data.bin")
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}

// Append opens the table's data file in append-create mode and writes
// one frame per row, in the given order.
func (s *Store) Append(tableName string, cols []types.ColumnDefinition, rows []types.Row) error {
	if err := os.MkdirAll(s.DataDir, 0o755); err != nil {
		return rqlerr.New(rqlerr.KindInvalidData, "rowlog.Append", err)
	}
	f, err := os.OpenFile(s.path(tableName), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return rqlerr.New(rqlerr.KindNotFound, "rowlog.Append", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, row := range rows {
		if err := writeFrame(w, cols, row); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return rqlerr.New(rqlerr.KindInvalidData, "rowlog.Append", err)
	}
	return nil
}

// Rewrite truncates the table's data file and writes every row in
// rows, in the given order. This is the only way rows are replaced;
// UPDATE rewrites the whole file rather than patching frames in
// place.
func (s *Store) Rewrite(tableName string, cols []types.ColumnDefinition, rows []types.Row) error {
	if err := os.MkdirAll(s.DataDir, 0o755); err != nil {
		return rqlerr.New(rqlerr.KindInvalidData, "rowlog.Rewrite", err)
	}
	f, err := os.OpenFile(s.path(tableName), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return rqlerr.New(rqlerr.KindNotFound, "rowlog.Rewrite", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, row := range rows {
		if err := writeFrame(w, cols, row); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return rqlerr.New(rqlerr.KindInvalidData, "rowlog.Rewrite", err)
	}
	return nil
}

func writeFrame(w io.Writer, cols []types.ColumnDefinition, row types.Row) error {
	payload, err := codec.EncodeRow(cols, row)
	if err != nil {
		return err
	}
	var header [9]byte
	header[0] = startMarker
	binary.LittleEndian.PutUint64(header[1:9], uint64(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return rqlerr.New(rqlerr.KindInvalidData, "rowlog.writeFrame", err)
	}
	if _, err := w.Write([]byte{endMarker}); err != nil {
		return rqlerr.New(rqlerr.KindInvalidData, "rowlog.writeFrame", err)
	}
	if _, err := w.Write(payload); err != nil {
		return rqlerr.New(rqlerr.KindInvalidData, "rowlog.writeFrame", err)
	}
	return nil
}

// Scan streams every frame of tableName's data file, decoding each
// payload against cols, until EOF. An EOF at the start of a frame
// terminates cleanly with no error; an EOF in the middle of a frame is
// rqlerr.KindUnexpectedEOF. A missing data file is treated as an empty
// table (no rows have been inserted yet).
func (s *Store) Scan(tableName string, cols []types.ColumnDefinition) ([]types.Row, error) {
	f, err := os.Open(s.path(tableName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, rqlerr.New(rqlerr.KindNotFound, "rowlog.Scan", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var rows []types.Row
	for {
		row, ok, err := readFrame(r, cols)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// readFrame reads one frame, returning ok=false with no error on a
// clean EOF before any byte of the frame was consumed.
func readFrame(r io.Reader, cols []types.ColumnDefinition) (types.Row, bool, error) {
	var start [1]byte
	n, err := io.ReadFull(r, start[:])
	if err != nil {
		if err == io.EOF && n == 0 {
			return nil, false, nil
		}
		return nil, false, rqlerr.New(rqlerr.KindUnexpectedEOF, "rowlog.readFrame", err)
	}
	if start[0] != startMarker {
		return nil, false, rqlerr.New(rqlerr.KindInvalidData, "rowlog.readFrame", fmt.Errorf("expected start marker 0x%02X, got 0x%02X", startMarker, start[0]))
	}

	var sizeBuf [8]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return nil, false, rqlerr.New(rqlerr.KindUnexpectedEOF, "rowlog.readFrame", err)
	}
	size := binary.LittleEndian.Uint64(sizeBuf[:])

	var end [1]byte
	if _, err := io.ReadFull(r, end[:]); err != nil {
		return nil, false, rqlerr.New(rqlerr.KindUnexpectedEOF, "rowlog.readFrame", err)
	}
	if end[0] != endMarker {
		return nil, false, rqlerr.New(rqlerr.KindInvalidData, "rowlog.readFrame", fmt.Errorf("expected end marker 0x%02X, got 0x%02X", endMarker, end[0]))
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, false, rqlerr.New(rqlerr.KindUnexpectedEOF, "rowlog.readFrame", err)
	}

	row, err := codec.DecodeRow(cols, payload)
	if err != nil {
		return nil, false, err
	}
	return row, true, nil
}
