package catalog

// Data holds the auxiliary lookups the classifier needs beyond what the
// archive itself carries. It is populated in full by Load before any entry is
// classified and is read-only afterwards.
type Data struct {
	// IndexTables maps an index's pg_class OID to the name of the table it
	// belongs to.
	IndexTables map[uint32]string
	// ViewDefinitions maps a view's pg_class OID to its pretty-printed body.
	ViewDefinitions map[uint32]string
	// TriggerFunctions holds the OIDs of functions returning the trigger
	// pseudo-type.
	TriggerFunctions map[uint32]bool
}

func NewData() *Data {
	return &Data{
		IndexTables:      map[uint32]string{},
		ViewDefinitions:  map[uint32]string{},
		TriggerFunctions: map[uint32]bool{},
	}
}
