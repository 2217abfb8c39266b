package catalog

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Load runs the three auxiliary queries and builds the lookup tables. Every
// key must be unique in its source query result; a duplicate means the
// catalog state is inconsistent with itself and the run cannot continue.
func Load(intro Introspector) (*Data, error) {
	data := NewData()
	var queryErrs *multierror.Error

	indexes, err := intro.GetIndexTables()
	if err != nil {
		queryErrs = multierror.Append(queryErrs, err)
	}
	for _, entry := range indexes {
		if _, ok := data.IndexTables[uint32(entry.Index)]; ok {
			return nil, errors.Errorf("oid %d seen twice in pg_index", entry.Index)
		}
		data.IndexTables[uint32(entry.Index)] = entry.Table
	}

	views, err := intro.GetViewDefinitions()
	if err != nil {
		queryErrs = multierror.Append(queryErrs, err)
	}
	for _, entry := range views {
		if _, ok := data.ViewDefinitions[uint32(entry.View)]; ok {
			return nil, errors.Errorf("oid %d seen twice in pg_class", entry.View)
		}
		data.ViewDefinitions[uint32(entry.View)] = entry.Definition
	}

	triggers, err := intro.GetTriggerFunctions()
	if err != nil {
		queryErrs = multierror.Append(queryErrs, err)
	}
	for _, oid := range triggers {
		if data.TriggerFunctions[uint32(oid)] {
			return nil, errors.Errorf("oid %d seen twice in pg_proc", oid)
		}
		data.TriggerFunctions[uint32(oid)] = true
	}

	if err := queryErrs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return data, nil
}
