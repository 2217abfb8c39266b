package catalog

import (
	"github.com/jackc/pgtype"
	"github.com/pkg/errors"
)

//go:generate mockgen -source introspector.go -destination mock_introspector.go -package catalog

// Introspector issues the catalog queries whose results supplement the dump
// archive. All three run inside the snapshot transaction, so the results are
// transactionally consistent with what pg_dump sees.
type Introspector interface {
	GetIndexTables() ([]IndexTableEntry, error)
	GetViewDefinitions() ([]ViewDefinitionEntry, error)
	GetTriggerFunctions() ([]pgtype.OID, error)
}

type IndexTableEntry struct {
	Index pgtype.OID
	Table string
}

type ViewDefinitionEntry struct {
	View       pgtype.OID
	Definition string
}

type LiveIntrospector struct {
	conn *Connection
}

var _ Introspector = &LiveIntrospector{}

func NewLiveIntrospector(conn *Connection) *LiveIntrospector {
	return &LiveIntrospector{conn}
}

// GetIndexTables maps every index to the table it belongs to, so that index
// definitions can be routed into their table's file.
func (self *LiveIntrospector) GetIndexTables() ([]IndexTableEntry, error) {
	res, err := self.conn.QueryRaw(`
		SELECT pg_index.indexrelid, pg_class.relname
		FROM pg_index
		JOIN pg_class ON pg_class.oid = pg_index.indrelid
	`)
	if err != nil {
		return nil, errors.Wrap(err, "could not query pg_index")
	}

	out := []IndexTableEntry{}
	for res.Next() {
		entry := IndexTableEntry{}
		if err := res.Scan(&entry.Index, &entry.Table); err != nil {
			return nil, errors.Wrap(err, "while scanning pg_index result")
		}
		out = append(out, entry)
	}
	return out, errors.Wrap(res.Err(), "while reading pg_index result")
}

// GetViewDefinitions fetches the pretty-printed body of every view; these
// replace pg_dump's own rendition in the output.
func (self *LiveIntrospector) GetViewDefinitions() ([]ViewDefinitionEntry, error) {
	res, err := self.conn.QueryRaw(`
		SELECT pg_class.oid, pg_get_viewdef(pg_class.oid, true)
		FROM pg_class
		WHERE pg_class.relkind = 'v'
	`)
	if err != nil {
		return nil, errors.Wrap(err, "could not query pg_class for views")
	}

	out := []ViewDefinitionEntry{}
	for res.Next() {
		entry := ViewDefinitionEntry{}
		if err := res.Scan(&entry.View, &entry.Definition); err != nil {
			return nil, errors.Wrap(err, "while scanning view definition result")
		}
		out = append(out, entry)
	}
	return out, errors.Wrap(res.Err(), "while reading view definition result")
}

// GetTriggerFunctions lists the functions returning the trigger pseudo-type
// (oid 2279); those land in TRIGGER_FUNCTIONS instead of FUNCTIONS.
func (self *LiveIntrospector) GetTriggerFunctions() ([]pgtype.OID, error) {
	res, err := self.conn.QueryRaw(`
		SELECT pg_proc.oid
		FROM pg_proc
		WHERE pg_proc.prorettype = 2279
	`)
	if err != nil {
		return nil, errors.Wrap(err, "could not query pg_proc")
	}

	out := []pgtype.OID{}
	for res.Next() {
		var oid pgtype.OID
		if err := res.Scan(&oid); err != nil {
			return nil, errors.Wrap(err, "while scanning pg_proc result")
		}
		out = append(out, oid)
	}
	return out, errors.Wrap(res.Err(), "while reading pg_proc result")
}
