package dump

import (
	"bufio"
	"io"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ArchiveVersion packs the archive's major/minor/revision bytes into a single
// comparable number, the same way pg_dump's K_VERS macros do.
type ArchiveVersion int

func MakeArchiveVersion(major, minor, revision uint8) ArchiveVersion {
	return ArchiveVersion((int(major)*256+int(minor))*256 + int(revision))
}

func (self ArchiveVersion) Major() int {
	return int(self) / (256 * 256)
}

func (self ArchiveVersion) Minor() int {
	return (int(self) / 256) % 256
}

var (
	// Closed range of archive revisions this reader understands.
	minArchiveVersion = MakeArchiveVersion(1, 12, 0)
	maxArchiveVersion = MakeArchiveVersion(1, 15, 0)

	// 1.15 changed the compression field from a full integer to one byte.
	versionCompressionByte = MakeArchiveVersion(1, 15, 0)
	// 1.14 added the table-access-method string to every TOC entry.
	versionTableAccessMethod = MakeArchiveVersion(1, 14, 0)
)

// Header carries everything pg_dump writes before the first TOC entry. The
// int and offset sizes govern how all subsequent numbers are decoded.
type Header struct {
	Version    ArchiveVersion
	IntSize    int
	OffsetSize int
	Format     byte

	Compression   int64
	CreatedAt     time.Time
	Database      string
	ServerVersion string
	DumpVersion   string
	EntryCount    int64
}

// Reader decodes a custom-format archive from a byte stream. It is strictly
// forward-only; the header is decoded on construction and entries are pulled
// one at a time through Contents.
type Reader struct {
	input  *bufio.Reader
	header Header
}

func NewReader(input io.Reader) (*Reader, error) {
	self := &Reader{input: bufio.NewReader(input)}

	if err := self.readStaticHeader(); err != nil {
		return nil, errors.Wrap(err, "could not read dump header")
	}
	if self.header.Version < minArchiveVersion || self.header.Version > maxArchiveVersion {
		return nil, errors.Errorf(
			"unsupported dump version (%d.%d)",
			self.header.Version.Major(), self.header.Version.Minor(),
		)
	}
	if err := self.readHeader(); err != nil {
		return nil, errors.Wrap(err, "could not read dump header")
	}

	return self, nil
}

func (self *Reader) Header() Header {
	return self.header
}

// readStaticHeader decodes the fixed prologue: magic, version triple, and the
// size descriptors. The magic bytes are consumed but deliberately not
// compared against a known constant; the version gate is what rejects
// foreign input.
func (self *Reader) readStaticHeader() error {
	var magic [5]byte
	if _, err := io.ReadFull(self.input, magic[:]); err != nil {
		return errors.Wrap(err, "magic")
	}

	var vers [3]byte
	if _, err := io.ReadFull(self.input, vers[:]); err != nil {
		return errors.Wrap(err, "version")
	}
	self.header.Version = MakeArchiveVersion(vers[0], vers[1], vers[2])

	intSize, err := self.input.ReadByte()
	if err != nil {
		return errors.Wrap(err, "integer size")
	}
	offSize, err := self.input.ReadByte()
	if err != nil {
		return errors.Wrap(err, "offset size")
	}
	format, err := self.input.ReadByte()
	if err != nil {
		return errors.Wrap(err, "format")
	}

	self.header.IntSize = int(intSize)
	self.header.OffsetSize = int(offSize)
	self.header.Format = format
	return nil
}

// readHeader decodes the variable part of the header that follows the static
// prologue: compression, creation timestamp, database name, tool versions,
// and the TOC entry count.
func (self *Reader) readHeader() error {
	var err error
	if self.header.Version >= versionCompressionByte {
		algorithm, err := self.input.ReadByte()
		if err != nil {
			return errors.Wrap(err, "compression algorithm")
		}
		self.header.Compression = int64(algorithm)
	} else {
		self.header.Compression, err = self.readInt()
		if err != nil {
			return errors.Wrap(err, "compression")
		}
	}

	// The timestamp is written as broken-down struct tm fields; month is
	// zero-based and the year is relative to 1900.
	sec, err := self.readInt()
	if err != nil {
		return errors.Wrap(err, "creation time seconds")
	}
	min, err := self.readInt()
	if err != nil {
		return errors.Wrap(err, "creation time minutes")
	}
	hour, err := self.readInt()
	if err != nil {
		return errors.Wrap(err, "creation time hours")
	}
	mday, err := self.readInt()
	if err != nil {
		return errors.Wrap(err, "creation time day")
	}
	mon, err := self.readInt()
	if err != nil {
		return errors.Wrap(err, "creation time month")
	}
	year, err := self.readInt()
	if err != nil {
		return errors.Wrap(err, "creation time year")
	}
	if _, err := self.readInt(); err != nil {
		return errors.Wrap(err, "creation time DST flag")
	}
	self.header.CreatedAt = time.Date(
		int(year)+1900, time.Month(mon+1), int(mday),
		int(hour), int(min), int(sec), 0, time.Local,
	)

	if self.header.Database, err = self.readStr(); err != nil {
		return errors.Wrap(err, "database name")
	}
	if self.header.ServerVersion, err = self.readStr(); err != nil {
		return errors.Wrap(err, "server version")
	}
	if self.header.DumpVersion, err = self.readStr(); err != nil {
		return errors.Wrap(err, "pg_dump version")
	}

	if self.header.EntryCount, err = self.readInt(); err != nil {
		return errors.Wrap(err, "entry count")
	}
	if self.header.EntryCount < 0 {
		return errors.Errorf("negative entry count %d", self.header.EntryCount)
	}
	return nil
}

// readInt decodes one signed integer: a sign byte followed by a little-endian
// magnitude of the header's configured width.
func (self *Reader) readInt() (int64, error) {
	sign, err := self.input.ReadByte()
	if err != nil {
		return 0, err
	}
	if sign != 0 && sign != 1 {
		return 0, errors.Errorf("invalid sign byte 0x%02x", sign)
	}

	var magnitude uint64
	for i := 0; i < self.header.IntSize; i++ {
		b, err := self.input.ReadByte()
		if err != nil {
			return 0, err
		}
		magnitude |= uint64(b) << (8 * uint(i))
	}

	value := int64(magnitude)
	if sign == 1 {
		value = -value
	}
	return value, nil
}

// readOffset decodes one data offset: a flag byte (reserved, ignored)
// followed by a little-endian unsigned magnitude of the configured width.
func (self *Reader) readOffset() (uint64, error) {
	if _, err := self.input.ReadByte(); err != nil {
		return 0, err
	}
	var offset uint64
	for i := 0; i < self.header.OffsetSize; i++ {
		b, err := self.input.ReadByte()
		if err != nil {
			return 0, err
		}
		offset |= uint64(b) << (8 * uint(i))
	}
	return offset, nil
}

// readStr decodes one length-prefixed string. A length of zero or less means
// the field is absent and yields the empty string without reading further.
func (self *Reader) readStr() (string, error) {
	length, err := self.readInt()
	if err != nil {
		return "", err
	}
	if length <= 0 {
		return "", nil
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(self.input, buf); err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", errors.New("string field is not valid UTF-8")
	}
	return string(buf), nil
}

// readOidStr decodes a string field holding a catalog OID in decimal form.
func (self *Reader) readOidStr() (uint32, error) {
	s, err := self.readStr()
	if err != nil {
		return 0, err
	}
	oid, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Errorf("invalid oid %q", s)
	}
	return uint32(oid), nil
}

// ReadEntry decodes the next TOC entry. Fields this tool does not use are
// still consumed in stream order so that the ones after them line up.
func (self *Reader) ReadEntry() (Entry, error) {
	entry := Entry{}
	var err error

	if entry.DumpID, err = self.readInt(); err != nil {
		return entry, errors.Wrap(err, "dump id")
	}
	if _, err = self.readInt(); err != nil {
		return entry, errors.Wrap(err, "data dumper flag")
	}
	if entry.CatalogOID, err = self.readOidStr(); err != nil {
		return entry, errors.Wrap(err, "catalog oid")
	}
	if entry.OID, err = self.readOidStr(); err != nil {
		return entry, errors.Wrap(err, "oid")
	}
	if entry.Tag, err = self.readStr(); err != nil {
		return entry, errors.Wrap(err, "tag")
	}
	if entry.Description, err = self.readStr(); err != nil {
		return entry, errors.Wrap(err, "description")
	}
	if _, err = self.readInt(); err != nil {
		return entry, errors.Wrap(err, "section")
	}
	if entry.Definition, err = self.readStr(); err != nil {
		return entry, errors.Wrap(err, "definition")
	}
	if _, err = self.readStr(); err != nil {
		return entry, errors.Wrap(err, "drop statement")
	}
	if _, err = self.readStr(); err != nil {
		return entry, errors.Wrap(err, "copy statement")
	}
	if entry.Namespace, err = self.readStr(); err != nil {
		return entry, errors.Wrap(err, "namespace")
	}
	if _, err = self.readStr(); err != nil {
		return entry, errors.Wrap(err, "tablespace")
	}
	if self.header.Version >= versionTableAccessMethod {
		if _, err = self.readStr(); err != nil {
			return entry, errors.Wrap(err, "table access method")
		}
	}
	if entry.Owner, err = self.readStr(); err != nil {
		return entry, errors.Wrap(err, "owner")
	}
	if _, err = self.readStr(); err != nil {
		return entry, errors.Wrap(err, "with oids flag")
	}

	// Dependency list, terminated by the first empty string.
	for {
		dep, err := self.readStr()
		if err != nil {
			return entry, errors.Wrap(err, "dependency")
		}
		if dep == "" {
			break
		}
	}

	if _, err = self.readOffset(); err != nil {
		return entry, errors.Wrap(err, "data offset")
	}

	return entry, nil
}

// Contents returns a single-pass iterator over the archive's TOC entries.
// It stops after exactly the entry count declared in the header; trailing
// bytes in the source are never touched.
func (self *Reader) Contents() *Entries {
	return &Entries{
		reader:    self,
		remaining: self.header.EntryCount,
	}
}

// Entries iterates TOC entries in the bufio.Scanner style. The first decode
// fault ends iteration and is reported by Err.
type Entries struct {
	reader    *Reader
	remaining int64
	entry     Entry
	err       error
}

func (self *Entries) Next() bool {
	if self.err != nil || self.remaining == 0 {
		return false
	}
	self.remaining--
	self.entry, self.err = self.reader.ReadEntry()
	return self.err == nil
}

func (self *Entries) Entry() Entry {
	return self.entry
}

func (self *Entries) Err() error {
	return self.err
}
