// Package gpu is a software model of the compute-shader choreography a
// real wgpu device would run: adapter/device acquisition, a shader
// module built from generated kernel text, one storage/staging buffer
// pair per bound column, a bind group wiring buffers to binding
// indices, a compute pipeline naming an entry point, a dispatch sized
// in workgroups of the device's workgroup size (64 lanes by default),
// a single command submission, and
// per-column readback gated behind a channel standing in for the
// asynchronous buffer-map completion signal.
//
// There is no GPU here, every step executes the kernel's assignments
// directly against in-memory buffers, but the shape of the
// choreography, including its binding order and its single round of
// submission before any readback begins, is preserved so the package
// can later be retargeted at a real device without touching its
// callers.
package gpu

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rql-db/rql/internal/coldata"
	"github.com/rql-db/rql/internal/exprparser"
	"github.com/rql-db/rql/internal/exprparser/ast"
	"github.com/rql-db/rql/internal/kernel"
	"github.com/rql-db/rql/internal/rqlerr"
	"github.com/rql-db/rql/internal/types"
)

// Device is the handle every other choreography step hangs off of.
// Acquiring one never fails in the software model; a real backend
// would return an error here if no adapter were available.
type Device struct {
	workgroupSize int
}

// NewDevice acquires a device with the given workgroup size (0 selects
// kernel.WorkgroupSize).
func NewDevice(workgroupSize int) *Device {
	if workgroupSize <= 0 {
		workgroupSize = kernel.WorkgroupSize
	}
	return &Device{workgroupSize: workgroupSize}
}

// ShaderModule wraps the generated kernel source. Creating one parses
// every assignment's right-hand side up front so a malformed
// expression is rejected before any buffer is touched, rather than
// mid-dispatch.
type ShaderModule struct {
	source      string
	assignments []types.Assignment
	parsed      []ast.Node
}

// CreateShaderModule compiles assignments into a ShaderModule, keeping
// the kernel source text alongside the parsed right-hand sides it
// will actually evaluate per lane.
func (d *Device) CreateShaderModule(source string, assignments []types.Assignment) (*ShaderModule, error) {
	if !strings.Contains(source, "fn "+kernel.EntryPoint) {
		return nil, rqlerr.New(rqlerr.KindInvalidData, "gpu.CreateShaderModule", fmt.Errorf("shader source has no %q entry point", kernel.EntryPoint))
	}
	parsed := make([]ast.Node, len(assignments))
	for i, a := range assignments {
		node, err := exprparser.ParseExpression(a.Expression)
		if err != nil {
			return nil, rqlerr.New(rqlerr.KindParse, "gpu.CreateShaderModule", fmt.Errorf("assignment to %q: %w", a.Variable, err))
		}
		parsed[i] = node
	}
	return &ShaderModule{source: source, assignments: assignments, parsed: parsed}, nil
}

// BindGroupLayoutEntry is one binding slot's declared column and type.
type BindGroupLayoutEntry struct {
	Binding int
	Column  string
	Type    types.DataType
}

// BindGroupLayout names the ordered binding slots a ComputePipeline
// expects, matching the @binding(k) declarations kernel.Generate
// wrote into the shader source.
type BindGroupLayout struct {
	Entries []BindGroupLayoutEntry
}

// NewBindGroupLayout derives the layout from a column set, in its
// iteration order, the same order kernel.Generate bound.
func NewBindGroupLayout(cols coldata.Set) *BindGroupLayout {
	entries := make([]BindGroupLayoutEntry, len(cols.Columns))
	for i, c := range cols.Columns {
		entries[i] = BindGroupLayoutEntry{Binding: i, Column: c.Name, Type: c.DataType}
	}
	return &BindGroupLayout{Entries: entries}
}

// BindGroup pairs a layout with the concrete buffer pairs satisfying
// it.
type BindGroup struct {
	layout *BindGroupLayout
	pairs  map[string]*bufferPair
}

// CreateBindGroup materializes one (storage, staging) buffer pair per
// numeric column and binds them to the layout's slots.
func (d *Device) CreateBindGroup(layout *BindGroupLayout, cols coldata.Set) (*BindGroup, error) {
	pairs := make(map[string]*bufferPair, len(layout.Entries))
	for _, entry := range layout.Entries {
		col, ok := cols.ByName(entry.Column)
		if !ok {
			return nil, rqlerr.New(rqlerr.KindInvalidInput, "gpu.CreateBindGroup", fmt.Errorf("no column data for binding %q", entry.Column))
		}
		bytes, err := materializeBuffer(entry.Type, col.Values)
		if err != nil {
			return nil, err
		}
		storage := &Buffer{Name: entry.Column + ".storage", Usage: UsageStorageCopySrc, Bytes: bytes}
		staging := &Buffer{Name: entry.Column + ".staging", Usage: UsageCopyDstMapRead, Bytes: make([]byte, len(bytes))}
		pairs[entry.Column] = &bufferPair{Column: entry.Column, Type: entry.Type, Storage: storage, Staging: staging}
	}
	return &BindGroup{layout: layout, pairs: pairs}, nil
}

// ComputePipeline wraps a shader module ready for dispatch against a
// bind group built from a matching layout.
type ComputePipeline struct {
	module *ShaderModule
}

// CreateComputePipeline wraps module for dispatch. A real device would
// compile the shader text here; the software model just holds onto
// the already-parsed assignments.
func (d *Device) CreateComputePipeline(module *ShaderModule) *ComputePipeline {
	return &ComputePipeline{module: module}
}

// CommandEncoder records the dispatch before a single Submit, mirroring
// the record-then-submit shape of a real command buffer even though
// nothing here is deferred.
type CommandEncoder struct {
	device   *Device
	pipeline *ComputePipeline
	group    *BindGroup
	rowCount int
}

func (d *Device) CreateCommandEncoder(pipeline *ComputePipeline, group *BindGroup, rowCount int) *CommandEncoder {
	return &CommandEncoder{device: d, pipeline: pipeline, group: group, rowCount: rowCount}
}

// Dispatch runs the pipeline's assignments over every row, split into
// workgroups of the device's workgroup size and fanned out over an
// errgroup, one goroutine per workgroup with no limit on how many run
// at once, each
// processing its lanes sequentially so that assignment order within a
// single lane stays exactly as written. A write to a bound column is
// visible to every later assignment in the same lane, the same way a
// real shader's sequential statement execution would make it visible;
// there is no ordering guarantee across lanes or across workgroups.
func (e *CommandEncoder) Dispatch(ctx context.Context) error {
	rowCount := e.rowCount
	if rowCount == 0 {
		return nil
	}
	size := e.device.workgroupSize
	numWorkgroups := (rowCount + size - 1) / size

	columns := make(map[string]*boundColumn, len(e.group.pairs))
	for name, pair := range e.group.pairs {
		columns[name] = &boundColumn{buf: pair.Storage, dt: dataTypeToElementKind(pair.Type)}
	}

	g, gctx := errgroup.WithContext(ctx)
	for wg := 0; wg < numWorkgroups; wg++ {
		wg := wg
		g.Go(func() error {
			start := wg * size
			end := start + size
			if end > rowCount {
				end = rowCount
			}
			for row := start; row < end; row++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				l := &lane{index: row, columns: columns, locals: make(map[string]float64)}
				for i, a := range e.pipeline.module.assignments {
					val, err := evalNode(e.pipeline.module.parsed[i], l)
					if err != nil {
						return rqlerr.New(rqlerr.KindInvalidData, "gpu.Dispatch", fmt.Errorf("row %d, assignment to %q: %w", row, a.Variable, err))
					}
					l.write(a.Variable, val)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func dataTypeToElementKind(dt types.DataType) elementKind {
	if dt == types.Integer {
		return kindI32
	}
	return kindF32
}

// Queue submits a recorded command encoder's work. There is exactly
// one submission per Execute call; readback never begins until it
// returns.
type Queue struct{ device *Device }

func (d *Device) Queue() *Queue { return &Queue{device: d} }

func (q *Queue) Submit(ctx context.Context, enc *CommandEncoder) error {
	return enc.Dispatch(ctx)
}

// Readback copies every bound column's storage buffer into its staging
// buffer and reads it back as typed values, one column at a time, in
// bind-group order. It is serialized rather than concurrent, since
// each column's map-completion signal is modeled as its own bounded
// channel and a real device would only ever have one map request
// in flight per buffer at a time.
func (d *Device) Readback(group *BindGroup, layout *BindGroupLayout) (coldata.Set, error) {
	out := coldata.Set{Columns: make([]coldata.Column, len(layout.Entries))}
	for i, entry := range layout.Entries {
		pair, ok := group.pairs[entry.Column]
		if !ok {
			return coldata.Set{}, rqlerr.New(rqlerr.KindInvalidInput, "gpu.Readback", fmt.Errorf("no buffer pair for column %q", entry.Column))
		}
		values, err := mapAsyncRead(pair)
		if err != nil {
			return coldata.Set{}, err
		}
		out.Columns[i] = coldata.Column{Name: entry.Column, DataType: entry.Type, Values: values}
	}
	return out, nil
}

// mapAsyncRead copies storage into staging and blocks on a
// capacity-one channel standing in for a device poll in wait mode,
// the only suspension point in the whole pipeline.
func mapAsyncRead(pair *bufferPair) ([]types.Value, error) {
	copy(pair.Staging.Bytes, pair.Storage.Bytes)

	done := make(chan struct{}, 1)
	go func() {
		done <- struct{}{}
	}()
	<-done // poll(Wait)

	return readBuffer(pair.Type, pair.Staging.Bytes), nil
}

// Execute is the single entry point the engine calls: it runs every
// choreography step (shader module, bind group, pipeline, dispatch,
// submit, readback) over one column-major projection and returns the
// updated projection.
func Execute(ctx context.Context, workgroupSize int, cols coldata.Set, assignments []types.Assignment) (coldata.Set, error) {
	source, err := kernel.Generate(cols, assignments)
	if err != nil {
		return coldata.Set{}, err
	}

	d := NewDevice(workgroupSize)
	module, err := d.CreateShaderModule(source, assignments)
	if err != nil {
		return coldata.Set{}, err
	}
	layout := NewBindGroupLayout(cols)
	group, err := d.CreateBindGroup(layout, cols)
	if err != nil {
		return coldata.Set{}, err
	}
	pipeline := d.CreateComputePipeline(module)
	enc := d.CreateCommandEncoder(pipeline, group, cols.RowCount())

	if err := d.Queue().Submit(ctx, enc); err != nil {
		return coldata.Set{}, err
	}

	return d.Readback(group, layout)
}
