// Package codec is the per-column value codec: a positional,
// width-variable encoding of Value against the DataType its owning
// column declares. It is the innermost layer of the row log's framed
// payload (internal/rowlog).
package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/rql-db/rql/internal/rqlerr"
	"github.com/rql-db/rql/internal/types"
)

// EncodeValue appends the wire encoding of v to buf and returns the
// extended slice. The caller must ensure v.Type() matches the owning
// column's DataType; no conversion is performed.
func EncodeValue(buf []byte, v types.Value) []byte {
	switch v.Type() {
	case types.Integer:
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], uint32(v.Integer()))
		return append(buf, tmp[:]...)
	case types.Float:
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(v.Float()))
		return append(buf, tmp[:]...)
	case types.Boolean:
		if v.Boolean() {
			return append(buf, 0x01)
		}
		return append(buf, 0x00)
	case types.Text:
		s := v.Text()
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(len(s)))
		buf = append(buf, tmp[:]...)
		return append(buf, s...)
	default:
		panic(fmt.Sprintf("codec: unknown value type %v", v.Type()))
	}
}

// EncodeRow encodes every field of row in the column order of cols,
// producing the payload bytes the row log frames.
func EncodeRow(cols []types.ColumnDefinition, row types.Row) ([]byte, error) {
	var buf []byte
	for _, c := range cols {
		v, ok := row[c.Name]
		if !ok {
			return nil, rqlerr.New(rqlerr.KindInvalidData, "codec.EncodeRow", fmt.Errorf("row missing column %q", c.Name))
		}
		if v.Type() != c.DataType {
			return nil, rqlerr.New(rqlerr.KindInvalidData, "codec.EncodeRow", fmt.Errorf("column %q expects %v, got %v", c.Name, c.DataType, v.Type()))
		}
		buf = EncodeValue(buf, v)
	}
	return buf, nil
}

// DecodeRow decodes exactly one field per column of cols from payload,
// in order, and returns the assembled row. It returns
// rqlerr.KindInvalidData if payload is shorter than the fields it
// must supply.
func DecodeRow(cols []types.ColumnDefinition, payload []byte) (types.Row, error) {
	row := make(types.Row, len(cols))
	cursor := payload
	for _, c := range cols {
		v, rest, err := decodeValue(c.DataType, cursor)
		if err != nil {
			return nil, rqlerr.New(rqlerr.KindInvalidData, "codec.DecodeRow", fmt.Errorf("column %q: %w", c.Name, err))
		}
		row[c.Name] = v
		cursor = rest
	}
	return row, nil
}

func decodeValue(dt types.DataType, b []byte) (types.Value, []byte, error) {
	switch dt {
	case types.Integer:
		if len(b) < 4 {
			return types.Value{}, nil, fmt.Errorf("short buffer for integer: need 4, have %d", len(b))
		}
		return types.NewInteger(int32(binary.LittleEndian.Uint32(b[:4]))), b[4:], nil
	case types.Float:
		if len(b) < 4 {
			return types.Value{}, nil, fmt.Errorf("short buffer for float: need 4, have %d", len(b))
		}
		return types.NewFloat(math.Float32frombits(binary.LittleEndian.Uint32(b[:4]))), b[4:], nil
	case types.Boolean:
		if len(b) < 1 {
			return types.Value{}, nil, fmt.Errorf("short buffer for boolean: need 1, have %d", len(b))
		}
		return types.NewBoolean(b[0] != 0x00), b[1:], nil
	case types.Text:
		if len(b) < 8 {
			return types.Value{}, nil, fmt.Errorf("short buffer for text length prefix: need 8, have %d", len(b))
		}
		n := binary.LittleEndian.Uint64(b[:8])
		b = b[8:]
		if uint64(len(b)) < n {
			return types.Value{}, nil, fmt.Errorf("short buffer for text body: need %d, have %d", n, len(b))
		}
		return types.NewText(string(b[:n])), b[n:], nil
	default:
		return types.Value{}, nil, fmt.Errorf("unknown data type %v", dt)
	}
}
