// Package catalog is the schema store: it persists a TableDefinition
// as a compact binary blob under schema/<lower(name)>_def.bin and
// loads it back.
//
// No third-party binary struct serialization library covers this case
// in the available dependency set; encoding/gob is the closest
// idiomatic standard-library equivalent, and self-describes its
// fields well enough to tolerate the occasional schema evolution. See
// DESIGN.md for the full justification.
package catalog

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rql-db/rql/internal/rqlerr"
	"github.com/rql-db/rql/internal/types"
)

// Store locates the schema/ directory holding one catalog file per
// table.
type Store struct {
	SchemaDir string
}

func NewStore(schemaDir string) *Store {
	return &Store{SchemaDir: schemaDir}
}

func (s *Store) path(tableName string) string {
	return filepath.Join(s.SchemaDir, strings.ToLower(tableName)+"_def.bin")
}

// catalogVersion is the envelope version written ahead of every gob
// blob. Bumping it on a future incompatible format change lets Load
// give a clear "unsupported catalog version" error instead of a raw
// gob decode failure.
const catalogVersion = 1

// envelope wraps the versioned payload. Version is decoded first and
// checked before the Payload bytes are ever handed to gob.
type envelope struct {
	Version int
	Payload []byte
}

// gobTableDefinition is the wire shape encoded to disk. It is kept
// distinct from types.TableDefinition so a future catalog format
// change doesn't have to fight the in-memory type's method set.
type gobTableDefinition struct {
	Name    string
	Columns []gobColumnDefinition
}

type gobColumnDefinition struct {
	Name     string
	DataType int
	Nullable bool
	Unique   bool
}

// Save writes def's schema to schema/<lower(def.Name)>_def.bin,
// creating the schema/ directory on demand. Callers must call Save
// before the first Append, since a table's schema always exists
// before any of its rows do.
func (s *Store) Save(def types.TableDefinition) error {
	if err := os.MkdirAll(s.SchemaDir, 0o755); err != nil {
		return rqlerr.New(rqlerr.KindInvalidData, "catalog.Save", err)
	}

	g := toGob(def)
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(&g); err != nil {
		return rqlerr.New(rqlerr.KindInvalidData, "catalog.Save", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&envelope{Version: catalogVersion, Payload: payload.Bytes()}); err != nil {
		return rqlerr.New(rqlerr.KindInvalidData, "catalog.Save", err)
	}

	if err := os.WriteFile(s.path(def.Name), buf.Bytes(), 0o644); err != nil {
		return rqlerr.New(rqlerr.KindInvalidData, "catalog.Save", err)
	}
	return nil
}

// Load reads and decodes the schema for tableName. It fails with
// rqlerr.KindNotFound when the table is unknown and
// rqlerr.KindInvalidData when the bytes cannot be decoded or the
// envelope's version is not one this build understands.
func (s *Store) Load(tableName string) (types.TableDefinition, error) {
	data, err := os.ReadFile(s.path(tableName))
	if err != nil {
		if os.IsNotExist(err) {
			return types.TableDefinition{}, rqlerr.New(rqlerr.KindNotFound, "catalog.Load", fmt.Errorf("table %q: %w", tableName, err))
		}
		return types.TableDefinition{}, rqlerr.New(rqlerr.KindInvalidData, "catalog.Load", err)
	}

	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return types.TableDefinition{}, rqlerr.New(rqlerr.KindInvalidData, "catalog.Load", err)
	}
	if env.Version != catalogVersion {
		return types.TableDefinition{}, rqlerr.New(rqlerr.KindInvalidData, "catalog.Load", fmt.Errorf("unsupported catalog version %d for table %q", env.Version, tableName))
	}

	var g gobTableDefinition
	if err := gob.NewDecoder(bytes.NewReader(env.Payload)).Decode(&g); err != nil {
		return types.TableDefinition{}, rqlerr.New(rqlerr.KindInvalidData, "catalog.Load", err)
	}
	return fromGob(g), nil
}

func toGob(def types.TableDefinition) gobTableDefinition {
	g := gobTableDefinition{Name: def.Name, Columns: make([]gobColumnDefinition, len(def.Columns))}
	for i, c := range def.Columns {
		g.Columns[i] = gobColumnDefinition{
			Name:     c.Name,
			DataType: int(c.DataType),
			Nullable: c.Nullable,
			Unique:   c.Unique,
		}
	}
	return g
}

func fromGob(g gobTableDefinition) types.TableDefinition {
	def := types.TableDefinition{Name: g.Name, Columns: make([]types.ColumnDefinition, len(g.Columns))}
	for i, c := range g.Columns {
		def.Columns[i] = types.ColumnDefinition{
			Name:     c.Name,
			DataType: types.DataType(c.DataType),
			Nullable: c.Nullable,
			Unique:   c.Unique,
		}
	}
	return def
}
