package output

import (
	"archive/tar"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/pgsplitdump/pgsplitdump/lib/dump"
)

// TarWriter serializes a split tree into a single tar archive. Intermediate
// directories get no entries of their own; every file entry carries its full
// path. Entries are emitted in sorted order for reproducibility.
type TarWriter struct {
	file    *os.File
	archive *tar.Writer
	modTime time.Time
}

func NewTarWriter(outputPath string) (*TarWriter, error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return nil, errors.Wrapf(err, "could not create output file %s", outputPath)
	}
	return &TarWriter{
		file:    file,
		archive: tar.NewWriter(file),
		modTime: time.Now(),
	}, nil
}

func (self *TarWriter) WriteSplitDump(root *dump.SplitDirectory) error {
	return self.writeDirectory("", root)
}

func (self *TarWriter) writeDirectory(prefix string, dir *dump.SplitDirectory) error {
	filenames := maps.Keys(dir.Files)
	slices.Sort(filenames)
	for _, filename := range filenames {
		content := strings.Join(dir.Files[filename], "\n") + "\n"
		if err := self.writeFile(path.Join(prefix, filename), content); err != nil {
			return err
		}
	}

	subdirs := maps.Keys(dir.Dirs)
	slices.Sort(subdirs)
	for _, subdir := range subdirs {
		if err := self.writeDirectory(path.Join(prefix, subdir), dir.Dirs[subdir]); err != nil {
			return err
		}
	}
	return nil
}

func (self *TarWriter) writeFile(name, content string) error {
	header := &tar.Header{
		Name:    name,
		Mode:    0644,
		Size:    int64(len(content)),
		ModTime: self.modTime,
	}
	if err := self.archive.WriteHeader(header); err != nil {
		return errors.Wrapf(err, "could not write archive entry %s", name)
	}
	if _, err := self.archive.Write([]byte(content)); err != nil {
		return errors.Wrapf(err, "could not write archive entry %s", name)
	}
	return nil
}

// Close finishes the archive and flushes it to disk.
func (self *TarWriter) Close() error {
	if err := self.archive.Close(); err != nil {
		return errors.Wrap(err, "could not finish output archive")
	}
	if err := self.file.Sync(); err != nil {
		return errors.Wrap(err, "could not write output archive")
	}
	return errors.Wrap(self.file.Close(), "could not close output archive")
}
