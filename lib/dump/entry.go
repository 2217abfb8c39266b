package dump

// Catalog OIDs as pg_dump writes them into the archive's table of contents.
// Each TOC entry names the system catalog its object lives in; together with
// the description string this identifies the kind of object.
const (
	CatalogAttrDef        uint32 = 2604 // pg_attrdef
	CatalogClass          uint32 = 1259 // pg_class
	CatalogConstraint     uint32 = 2606 // pg_constraint
	CatalogDatabase       uint32 = 1262 // pg_database
	CatalogExtension      uint32 = 3079 // pg_extension
	CatalogNamespace      uint32 = 2615 // pg_namespace
	CatalogOperator       uint32 = 2617 // pg_operator
	CatalogProc           uint32 = 1255 // pg_proc
	CatalogPublication    uint32 = 6104 // pg_publication
	CatalogPublicationRel uint32 = 6106 // pg_publication_rel
	CatalogRewrite        uint32 = 2618 // pg_rewrite
	CatalogTrigger        uint32 = 2620 // pg_trigger
	CatalogType           uint32 = 1247 // pg_type
)

// Entry is one decoded TOC entry. Only the fields this tool routes on are
// retained; everything else pg_dump writes (drop/copy statements, tablespace,
// dependencies, data offsets) is consumed during decoding and discarded.
type Entry struct {
	// DumpID is pg_dump's internal sequence number, kept for error messages.
	DumpID      int64
	CatalogOID  uint32
	OID         uint32
	Tag         string
	Description string
	Definition  string
	Namespace   string
	Owner       string
}
