package dump

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// archiveWriter builds synthetic custom-format archives for tests, mirroring
// the encoding pg_dump uses: sign-byte integers, length-prefixed strings.
type archiveWriter struct {
	buf     bytes.Buffer
	version ArchiveVersion
	intSize int
	offSize int
}

func newArchiveWriter(major, minor uint8) *archiveWriter {
	self := &archiveWriter{
		version: MakeArchiveVersion(major, minor, 0),
		intSize: 4,
		offSize: 8,
	}
	self.buf.WriteString("PGDMP")
	self.buf.Write([]byte{major, minor, 0})
	self.buf.Write([]byte{byte(self.intSize), byte(self.offSize), 1})
	return self
}

func (self *archiveWriter) writeInt(v int64) {
	sign := byte(0)
	if v < 0 {
		sign = 1
		v = -v
	}
	self.buf.WriteByte(sign)
	for i := 0; i < self.intSize; i++ {
		self.buf.WriteByte(byte(v >> (8 * uint(i))))
	}
}

func (self *archiveWriter) writeStr(s string) {
	self.writeInt(int64(len(s)))
	self.buf.WriteString(s)
}

func (self *archiveWriter) writeOffset(v uint64) {
	self.buf.WriteByte(0)
	for i := 0; i < self.offSize; i++ {
		self.buf.WriteByte(byte(v >> (8 * uint(i))))
	}
}

// writeHeader emits the variable header: compression, a fixed timestamp
// (2023-07-05 12:15:30), database and version strings, and the entry count.
func (self *archiveWriter) writeHeader(entryCount int64) {
	if self.version >= versionCompressionByte {
		self.buf.WriteByte(0)
	} else {
		self.writeInt(0)
	}
	self.writeInt(30)  // seconds
	self.writeInt(15)  // minutes
	self.writeInt(12)  // hours
	self.writeInt(5)   // day of month
	self.writeInt(6)   // July, zero-based
	self.writeInt(123) // 2023, relative to 1900
	self.writeInt(0)   // DST
	self.writeStr("testdb")
	self.writeStr("15.3")
	self.writeStr("15.3")
	self.writeInt(entryCount)
}

func (self *archiveWriter) writeEntry(entry Entry) {
	self.writeInt(entry.DumpID)
	self.writeInt(0) // data dumper
	self.writeStr(strconv.FormatUint(uint64(entry.CatalogOID), 10))
	self.writeStr(strconv.FormatUint(uint64(entry.OID), 10))
	self.writeStr(entry.Tag)
	self.writeStr(entry.Description)
	self.writeInt(1) // section
	self.writeStr(entry.Definition)
	self.writeStr("") // drop statement
	self.writeStr("") // copy statement
	self.writeStr(entry.Namespace)
	self.writeStr("") // tablespace
	if self.version >= versionTableAccessMethod {
		self.writeStr("") // table access method
	}
	self.writeStr(entry.Owner)
	self.writeStr("") // with oids
	self.writeStr("") // end of dependencies
	self.writeOffset(0)
}

func (self *archiveWriter) reader(t *testing.T) *Reader {
	t.Helper()
	reader, err := NewReader(bytes.NewReader(self.buf.Bytes()))
	require.NoError(t, err)
	return reader
}

func TestReaderHeader(t *testing.T) {
	w := newArchiveWriter(1, 14)
	w.writeHeader(0)

	header := w.reader(t).Header()
	assert.Equal(t, MakeArchiveVersion(1, 14, 0), header.Version)
	assert.Equal(t, 4, header.IntSize)
	assert.Equal(t, 8, header.OffsetSize)
	assert.Equal(t, "testdb", header.Database)
	assert.Equal(t, "15.3", header.ServerVersion)
	assert.Equal(t, "15.3", header.DumpVersion)
	assert.Equal(t, int64(0), header.EntryCount)
	assert.Equal(t, 2023, header.CreatedAt.Year())
	assert.Equal(t, "July", header.CreatedAt.Month().String())
	assert.Equal(t, 5, header.CreatedAt.Day())
}

func TestReaderCompressionFieldWidthByVersion(t *testing.T) {
	// 1.15 writes the compression algorithm as one byte, earlier versions as
	// a full integer; both must land on the same following fields.
	for _, minor := range []uint8{12, 13, 14, 15} {
		w := newArchiveWriter(1, minor)
		w.writeHeader(0)
		header := w.reader(t).Header()
		assert.Equal(t, "testdb", header.Database, "version 1.%d", minor)
	}
}

func TestReaderUnsupportedVersions(t *testing.T) {
	for _, vers := range [][2]uint8{{1, 11}, {1, 16}, {0, 14}, {2, 0}} {
		w := newArchiveWriter(vers[0], vers[1])
		w.writeHeader(0)
		_, err := NewReader(bytes.NewReader(w.buf.Bytes()))
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), "unsupported dump version")
		}
	}
}

func TestReaderMagicNotValidated(t *testing.T) {
	w := newArchiveWriter(1, 15)
	w.writeHeader(0)
	raw := w.buf.Bytes()
	copy(raw[0:5], "XXXXX")
	_, err := NewReader(bytes.NewReader(raw))
	assert.NoError(t, err)
}

func TestReaderEntryDecoding(t *testing.T) {
	w := newArchiveWriter(1, 15)
	w.writeHeader(1)
	w.writeEntry(Entry{
		DumpID:      7,
		CatalogOID:  CatalogClass,
		OID:         16385,
		Tag:         "users",
		Description: "TABLE",
		Definition:  "CREATE TABLE users ();\n",
		Namespace:   "public",
		Owner:       "alice",
	})

	entries := w.reader(t).Contents()
	require.True(t, entries.Next())
	entry := entries.Entry()
	assert.Equal(t, int64(7), entry.DumpID)
	assert.Equal(t, CatalogClass, entry.CatalogOID)
	assert.Equal(t, uint32(16385), entry.OID)
	assert.Equal(t, "users", entry.Tag)
	assert.Equal(t, "TABLE", entry.Description)
	assert.Equal(t, "CREATE TABLE users ();\n", entry.Definition)
	assert.Equal(t, "public", entry.Namespace)
	assert.Equal(t, "alice", entry.Owner)
	assert.False(t, entries.Next())
	assert.NoError(t, entries.Err())
}

func TestReaderEntryDecodingPre114(t *testing.T) {
	// 1.13 has no table-access-method field; decoding must not consume one.
	w := newArchiveWriter(1, 13)
	w.writeHeader(1)
	w.writeEntry(Entry{DumpID: 1, Tag: "s", Description: "SCHEMA", Owner: "bob"})

	entries := w.reader(t).Contents()
	require.True(t, entries.Next())
	assert.Equal(t, "bob", entries.Entry().Owner)
	assert.NoError(t, entries.Err())
}

func TestReaderStopsAtDeclaredCount(t *testing.T) {
	w := newArchiveWriter(1, 15)
	w.writeHeader(2)
	for i := int64(1); i <= 2; i++ {
		w.writeEntry(Entry{DumpID: i, Description: "COMMENT", Tag: "SCHEMA s"})
	}
	// Trailing garbage after the declared entries must never be touched.
	w.buf.WriteString("trailing garbage")

	entries := w.reader(t).Contents()
	count := 0
	for entries.Next() {
		count++
	}
	assert.NoError(t, entries.Err())
	assert.Equal(t, 2, count)
}

func TestReaderPropagatesDecodeFault(t *testing.T) {
	w := newArchiveWriter(1, 15)
	w.writeHeader(2)
	w.writeEntry(Entry{DumpID: 1, Description: "SEARCHPATH"})
	// Second entry is truncated mid-field.
	w.writeInt(2)

	entries := w.reader(t).Contents()
	assert.True(t, entries.Next())
	assert.False(t, entries.Next())
	assert.Error(t, entries.Err())
	// A fault is terminal; the iterator must not try again.
	assert.False(t, entries.Next())
}

func TestReadStrEmptyLengths(t *testing.T) {
	// Lengths of zero and below mean "absent" and must not read any bytes.
	for _, length := range []int64{0, -1, -12345} {
		w := newArchiveWriter(1, 15)
		w.writeHeader(0)
		reader := w.reader(t)

		var buf bytes.Buffer
		aw := &archiveWriter{intSize: 4}
		aw.writeInt(length)
		buf.Write(aw.buf.Bytes())
		reader.input.Reset(&buf)

		s, err := reader.readStr()
		require.NoError(t, err)
		assert.Equal(t, "", s)
		// Nothing beyond the length prefix may have been consumed.
		assert.Equal(t, 0, reader.input.Buffered())
	}
}

func TestReadIntInvalidSignByte(t *testing.T) {
	w := newArchiveWriter(1, 15)
	w.writeHeader(0)
	reader := w.reader(t)

	reader.input.Reset(bytes.NewReader([]byte{2, 0, 0, 0, 0}))
	_, err := reader.readInt()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "invalid sign byte")
	}
}

func TestReadIntNegative(t *testing.T) {
	w := newArchiveWriter(1, 15)
	w.writeHeader(0)
	reader := w.reader(t)

	reader.input.Reset(bytes.NewReader([]byte{1, 42, 0, 0, 0}))
	v, err := reader.readInt()
	require.NoError(t, err)
	assert.Equal(t, int64(-42), v)
}

func TestReadOidStrRejectsNonNumeric(t *testing.T) {
	w := newArchiveWriter(1, 15)
	w.writeHeader(0)
	reader := w.reader(t)

	aw := &archiveWriter{intSize: 4}
	aw.writeStr("bogus")
	reader.input.Reset(bytes.NewReader(aw.buf.Bytes()))
	_, err := reader.readOidStr()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "invalid oid")
	}
}

func TestReadStrRejectsInvalidUTF8(t *testing.T) {
	w := newArchiveWriter(1, 15)
	w.writeHeader(0)
	reader := w.reader(t)

	aw := &archiveWriter{intSize: 4}
	aw.writeInt(2)
	aw.buf.Write([]byte{0xff, 0xfe})
	reader.input.Reset(bytes.NewReader(aw.buf.Bytes()))
	_, err := reader.readStr()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "UTF-8")
	}
}

func TestReaderNegativeEntryCount(t *testing.T) {
	w := newArchiveWriter(1, 15)
	w.writeHeader(-1)
	_, err := NewReader(bytes.NewReader(w.buf.Bytes()))
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "entry count")
	}
}
