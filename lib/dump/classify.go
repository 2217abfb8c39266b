package dump

import (
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/pgsplitdump/pgsplitdump/lib/catalog"
)

// IndexFile is the always-present root file that records the session-setup
// statements and one \ir include directive per output file, in the order the
// files were first created.
const IndexFile = "index.sql"

type viewName struct {
	schema string
	name   string
}

type routeKey struct {
	catalogOID  uint32
	description string
}

// SplitDump accumulates classified archive entries into the split tree. One
// instance handles exactly one pass over one archive.
type SplitDump struct {
	Root *SplitDirectory

	setClientEncoding            *string
	setStandardConformingStrings *string
	setSearchPath                *string

	aux *catalog.Data

	// pg_class entries known to be views. ACL and COMMENT entries only say
	// "TABLE <name>", so we have to remember which relations are really
	// views to put their statements into the right files. This relies on
	// pg_dump emitting the view's own entry first.
	views map[viewName]bool
}

func NewSplitDump(aux *catalog.Data) *SplitDump {
	root := NewSplitDirectory()
	root.Files[IndexFile] = []string{}
	return &SplitDump{
		Root:  root,
		aux:   aux,
		views: map[viewName]bool{},
	}
}

// ReadDump pulls every TOC entry out of the reader and classifies it. The
// first decode or classification fault aborts the pass.
func ReadDump(reader *Reader, aux *catalog.Data) (*SplitDump, error) {
	self := NewSplitDump(aux)

	entries := reader.Contents()
	for entries.Next() {
		if err := self.AddEntry(entries.Entry()); err != nil {
			return nil, err
		}
	}
	if err := entries.Err(); err != nil {
		return nil, err
	}

	return self, nil
}

// ReadDumpFrom decodes the archive header from input and classifies the whole
// stream. Convenience wrapper around NewReader and ReadDump.
func ReadDumpFrom(input io.Reader, aux *catalog.Data) (*SplitDump, error) {
	reader, err := NewReader(input)
	if err != nil {
		return nil, err
	}
	return ReadDump(reader, aux)
}

// AddEntry routes one TOC entry into the split tree. Every supported
// (catalog OID, description) pair is enumerated here; anything else is a
// fatal fault rather than a silent drop, since a misrouted object would
// produce an incorrect tree with no way to notice.
func (self *SplitDump) AddEntry(entry Entry) error {
	if entry.CatalogOID == CatalogDatabase && entry.Description == "DATABASE" {
		// The CREATE DATABASE statement has no place in a per-object tree.
		return nil
	}

	contents := []string{entry.Definition}
	var path []string
	var err error

	switch (routeKey{entry.CatalogOID, entry.Description}) {
	case routeKey{0, "ENCODING"}:
		if self.setClientEncoding != nil {
			return errors.Errorf(`more than one "ENCODING" entry present`)
		}
		definition := entry.Definition
		self.setClientEncoding = &definition
		path = []string{IndexFile}

	case routeKey{0, "STDSTRINGS"}:
		if self.setStandardConformingStrings != nil {
			return errors.Errorf(`more than one "STDSTRINGS" entry present`)
		}
		definition := entry.Definition
		self.setStandardConformingStrings = &definition

		contents = append(contents, "SET check_function_bodies = false;\n")

		path = []string{IndexFile}

	case routeKey{0, "SEARCHPATH"}:
		if self.setSearchPath != nil {
			return errors.Errorf(`more than one "SEARCHPATH" entry present`)
		}
		definition := entry.Definition
		self.setSearchPath = &definition
		path = []string{IndexFile}

	case routeKey{0, "ACL"}:
		contents = sortACL(entry.Definition)

		path, err = self.comboTagPath(entry, "ACL")
		if err != nil {
			return err
		}

	case routeKey{0, "COMMENT"}:
		path, err = self.comboTagPath(entry, "COMMENT")
		if err != nil {
			return err
		}

	case routeKey{CatalogNamespace, "SCHEMA"}:
		if entry.Tag == "public" {
			// The default schema always exists; dropping the entry keeps
			// empty dumps empty.
			path = nil
		} else {
			path = []string{"SCHEMAS", entry.Tag + ".sql"}
		}

	case routeKey{CatalogExtension, "EXTENSION"}:
		path = []string{"EXTENSIONS", entry.Tag + ".sql"}

	case routeKey{0, "SHELL TYPE"}:
		path = []string{entry.Namespace, "SHELL_TYPES", entry.Tag + ".sql"}

	case routeKey{CatalogType, "TYPE"}:
		path = []string{entry.Namespace, "TYPES", entry.Tag + ".sql"}

	case routeKey{CatalogType, "DOMAIN"}:
		path = []string{entry.Namespace, "DOMAINS", entry.Tag + ".sql"}

	case routeKey{CatalogProc, "FUNCTION"}:
		subdir := "FUNCTIONS"
		if self.aux.TriggerFunctions[entry.OID] {
			subdir = "TRIGGER_FUNCTIONS"
		}

		contents = append(contents, "ALTER FUNCTION "+entry.Namespace+"."+entry.Tag+" OWNER TO "+entry.Owner+";\n")

		functionName, err := bareFunctionName(entry)
		if err != nil {
			return err
		}
		path = []string{entry.Namespace, subdir, functionName + ".sql"}

	case routeKey{CatalogProc, "AGGREGATE"}:
		functionName, err := bareFunctionName(entry)
		if err != nil {
			return err
		}
		path = []string{entry.Namespace, "FUNCTIONS", functionName + ".sql"}

	case routeKey{CatalogOperator, "OPERATOR"}:
		path = []string{entry.Namespace, "operators.sql"}

	case routeKey{CatalogClass, "TABLE"}:
		contents = append(contents, "ALTER TABLE "+entry.Namespace+"."+entry.Tag+" OWNER TO "+entry.Owner+";\n")

		path = []string{entry.Namespace, "TABLES", entry.Tag + ".sql"}

	case routeKey{CatalogClass, "INDEX"}:
		// The index's file is its table's file; the dump and the auxiliary
		// queries come from the same snapshot, so the lookup must succeed.
		tableName, ok := self.aux.IndexTables[entry.OID]
		if !ok {
			return errors.Errorf("index %q (oid %d) has no owning table", entry.Tag, entry.OID)
		}
		path = []string{entry.Namespace, "TABLES", tableName + ".sql"}

	case routeKey{CatalogConstraint, "CONSTRAINT"},
		routeKey{CatalogConstraint, "CHECK CONSTRAINT"},
		routeKey{CatalogAttrDef, "DEFAULT"},
		routeKey{CatalogTrigger, "TRIGGER"}:
		tableName, err := owningTableName(entry)
		if err != nil {
			return err
		}
		path = []string{entry.Namespace, "TABLES", tableName + ".sql"}

	case routeKey{CatalogConstraint, "FK CONSTRAINT"}:
		tableName, err := owningTableName(entry)
		if err != nil {
			return err
		}
		path = []string{entry.Namespace, "FK_CONSTRAINTS", tableName + ".sql"}

	case routeKey{CatalogClass, "SEQUENCE"}:
		contents = append(contents, "ALTER SEQUENCE "+entry.Namespace+"."+entry.Tag+" OWNER TO "+entry.Owner+";\n")

		path = []string{entry.Namespace, "SEQUENCES", entry.Tag + ".sql"}

	case routeKey{0, "SEQUENCE OWNED BY"}:
		path = []string{entry.Namespace, "SEQUENCES", entry.Tag + ".sql"}

	case routeKey{CatalogClass, "VIEW"}:
		self.views[viewName{entry.Namespace, entry.Tag}] = true

		// pg_dump's own rendition of the view is replaced wholesale by the
		// pretty-printed body from pg_get_viewdef, which diffs much better.
		body, ok := self.aux.ViewDefinitions[entry.OID]
		if !ok {
			return errors.Errorf("view %q (oid %d) has no stored definition", entry.Tag, entry.OID)
		}
		contents = []string{
			"CREATE OR REPLACE VIEW " + entry.Tag + " AS",
			body,
			"ALTER VIEW " + entry.Namespace + "." + entry.Tag + " OWNER TO " + entry.Owner + ";\n",
		}

		path = []string{entry.Namespace, "VIEWS", entry.Tag + ".sql"}

	case routeKey{CatalogRewrite, "RULE"}:
		path = []string{entry.Namespace, "RULES", entry.Tag + ".sql"}

	case routeKey{CatalogPublication, "PUBLICATION"}:
		path = []string{"PUBLICATIONS", entry.Tag, entry.Tag + ".sql"}

	case routeKey{CatalogPublicationRel, "PUBLICATION TABLE"}:
		publicationName, tableName, ok := strings.Cut(entry.Tag, " ")
		if !ok {
			return errors.Errorf("invalid publication table tag %q", entry.Tag)
		}
		path = []string{"PUBLICATIONS", publicationName, tableName + ".sql"}

	default:
		return errors.Errorf(
			"unknown catalog oid %d / description %q for entry %d (tag %q)",
			entry.CatalogOID, entry.Description, entry.DumpID, entry.Tag,
		)
	}

	self.merge(path, contents)
	return nil
}

// merge inserts the contents into the tree at path, creating directories and
// the file as needed. A newly created file gets an include directive in the
// root index file; contents for an existing file are appended in order.
func (self *SplitDump) merge(path []string, contents []string) {
	if len(path) == 0 {
		return
	}

	filename := path[len(path)-1]
	cwd := self.Root
	for _, dir := range path[:len(path)-1] {
		cwd = cwd.Subdir(dir)
	}

	if existing, ok := cwd.Files[filename]; ok {
		cwd.Files[filename] = append(existing, contents...)
		return
	}

	cwd.Files[filename] = contents
	if filename != IndexFile {
		self.Root.Files[IndexFile] = append(self.Root.Files[IndexFile], `\ir `+strings.Join(path, "/"))
	}
}

// comboTagPath resolves entries whose tag is of the form "KIND REST", e.g.
// "SCHEMA public" or "TABLE users". ACL and COMMENT entries carry no catalog
// OID of their own, so the kind word selects the path shape.
func (self *SplitDump) comboTagPath(entry Entry, what string) ([]string, error) {
	kind, rest, ok := strings.Cut(entry.Tag, " ")
	if !ok {
		return nil, errors.Errorf("invalid tag %q for %s entry %d", entry.Tag, what, entry.DumpID)
	}

	switch kind {
	case "SCHEMA":
		return []string{"SCHEMAS", rest + ".sql"}, nil
	case "EXTENSION":
		return []string{"EXTENSIONS", rest + ".sql"}, nil
	case "TYPE":
		return []string{entry.Namespace, "TYPES", rest + ".sql"}, nil
	case "FUNCTION":
		functionName, _, ok := strings.Cut(rest, "(")
		if !ok {
			return nil, errors.Errorf("invalid function tag %q for %s entry %d", entry.Tag, what, entry.DumpID)
		}
		return []string{entry.Namespace, "FUNCTIONS", functionName + ".sql"}, nil
	case "TABLE":
		// The tag says TABLE even when the relation is a view; consult the
		// registry built while classifying the VIEW entries themselves.
		subdir := "TABLES"
		if self.views[viewName{entry.Namespace, rest}] {
			subdir = "VIEWS"
		}
		return []string{entry.Namespace, subdir, rest + ".sql"}, nil
	case "COLUMN":
		tableName, _, ok := strings.Cut(rest, ".")
		if !ok {
			return nil, errors.Errorf("invalid column tag %q for %s entry %d", entry.Tag, what, entry.DumpID)
		}
		return []string{entry.Namespace, "TABLES", tableName + ".sql"}, nil
	case "SEQUENCE":
		return []string{entry.Namespace, "SEQUENCES", rest + ".sql"}, nil
	case "VIEW":
		return []string{entry.Namespace, "VIEWS", rest + ".sql"}, nil
	}
	return nil, errors.Errorf("unknown kind %q in %s tag %q for entry %d", kind, what, entry.Tag, entry.DumpID)
}

// sortACL splits a block of permission statements and puts them into a
// stable order: every REVOKE before every GRANT, lexical within each group.
// pg_dump emits them in catalog order, which is effectively arbitrary and
// makes diffing against version control miserable.
func sortACL(acl string) []string {
	parts := []string{}
	for _, statement := range strings.Split(acl, ";\n") {
		if statement == "" {
			continue
		}
		parts = append(parts, statement+";")
	}

	sort.Slice(parts, func(i, j int) bool {
		iRevoke := strings.HasPrefix(parts[i], "REVOKE")
		jRevoke := strings.HasPrefix(parts[j], "REVOKE")
		if iRevoke != jRevoke {
			return iRevoke
		}
		return parts[i] < parts[j]
	})

	// Keep the blank line the original definition ended with.
	parts = append(parts, "")
	return parts
}

// bareFunctionName strips the argument list off a function tag like
// "compute_total(integer, integer)".
func bareFunctionName(entry Entry) (string, error) {
	functionName, _, ok := strings.Cut(entry.Tag, "(")
	if !ok {
		return "", errors.Errorf("invalid function tag %q for entry %d", entry.Tag, entry.DumpID)
	}
	return functionName, nil
}

// owningTableName extracts the table name from tags of the form
// "<table> <object>", as used by constraints, defaults, and triggers.
func owningTableName(entry Entry) (string, error) {
	tableName, _, ok := strings.Cut(entry.Tag, " ")
	if !ok {
		return "", errors.Errorf("invalid %s tag %q for entry %d", entry.Description, entry.Tag, entry.DumpID)
	}
	return tableName, nil
}
