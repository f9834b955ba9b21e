package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/rql-db/rql/internal/rqlerr"
	"github.com/rql-db/rql/internal/types"
)

// elementSize is the byte width of one i32 or f32 lane value. The
// row log and the GPU buffers agree on 32-bit width throughout.
const elementSize = 4

// BufferUsage mirrors wgpu's usage flag combinations. The software
// device never actually needs to distinguish them at runtime, but
// keeping the flags on the Buffer documents which choreography step
// created it and keeps the naming familiar to anyone retargeting this
// package at a real backend.
type BufferUsage int

const (
	UsageStorageCopySrc BufferUsage = 1 << iota // STORAGE | COPY_SRC
	UsageCopyDstMapRead                         // COPY_DST | MAP_READ
)

// Buffer is a host-resident byte buffer standing in for a GPU buffer.
// Bytes is little-endian i32/f32 elements, matching the row log's and
// the kernel's element layout.
type Buffer struct {
	Name  string
	Usage BufferUsage
	Bytes []byte
}

// Size is the buffer size in bytes. A storage buffer and its staging
// buffer are always allocated with matching sizes.
func (b *Buffer) Size() int { return len(b.Bytes) }

// bufferPair is the (storage, staging) pair created for every numeric
// column bound to a kernel.
type bufferPair struct {
	Column  string
	Type    types.DataType
	Storage *Buffer
	Staging *Buffer
}

// materializeBuffer casts a column's values into a contiguous byte
// buffer of its GPU element type. Earlier drafts of this choreography
// panicked on a type mismatch; that made a misdeclared or
// non-numeric-column update take down the whole process instead of
// failing the one statement, so this returns an error the caller can
// report and move on from.
func materializeBuffer(dt types.DataType, values []types.Value) ([]byte, error) {
	buf := make([]byte, len(values)*elementSize)
	for i, v := range values {
		switch dt {
		case types.Integer:
			if v.Type() != types.Integer {
				return nil, rqlerr.New(rqlerr.KindInvalidData, "gpu.materializeBuffer", fmt.Errorf("expected an Integer value, got %v", v.Type()))
			}
			binary.LittleEndian.PutUint32(buf[i*elementSize:], uint32(v.Integer()))
		case types.Float:
			if v.Type() != types.Float {
				return nil, rqlerr.New(rqlerr.KindInvalidData, "gpu.materializeBuffer", fmt.Errorf("expected a Float value, got %v", v.Type()))
			}
			binary.LittleEndian.PutUint32(buf[i*elementSize:], math.Float32bits(v.Float()))
		default:
			return nil, rqlerr.New(rqlerr.KindInvalidInput, "gpu.materializeBuffer", fmt.Errorf("data type %v cannot be bound to a GPU buffer", dt))
		}
	}
	return buf, nil
}

// readBuffer is the inverse of materializeBuffer: it reinterprets the
// staged bytes as a sequence of Values of dt, dispatching by the
// column's own declared type rather than assuming every column reads
// back as a float. A column declared Integer must round-trip through
// an UPDATE without being silently reinterpreted as Float bit
// patterns.
func readBuffer(dt types.DataType, bytes []byte) []types.Value {
	n := len(bytes) / elementSize
	out := make([]types.Value, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(bytes[i*elementSize:])
		switch dt {
		case types.Integer:
			out[i] = types.NewInteger(int32(bits))
		case types.Float:
			out[i] = types.NewFloat(math.Float32frombits(bits))
		}
	}
	return out
}
