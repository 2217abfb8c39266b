package output

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/pgsplitdump/pgsplitdump/lib/dump"
)

// WriteDirectory materializes the split tree under path, which must not
// exist yet. One file per leaf; every content block is written with a
// trailing newline. Entries are written in sorted order so two runs over the
// same dump produce identical trees.
func WriteDirectory(path string, root *dump.SplitDirectory) error {
	if err := os.Mkdir(path, 0755); err != nil {
		return errors.Wrapf(err, "could not create output directory %s", path)
	}
	return writeDirectoryContents(path, root)
}

func writeDirectoryContents(path string, dir *dump.SplitDirectory) error {
	filenames := maps.Keys(dir.Files)
	slices.Sort(filenames)
	for _, filename := range filenames {
		target := filepath.Join(path, filename)
		content := strings.Join(dir.Files[filename], "\n") + "\n"
		if err := os.WriteFile(target, []byte(content), 0644); err != nil {
			return errors.Wrapf(err, "could not write output file %s", target)
		}
	}

	subdirs := maps.Keys(dir.Dirs)
	slices.Sort(subdirs)
	for _, subdir := range subdirs {
		target := filepath.Join(path, subdir)
		if err := os.Mkdir(target, 0755); err != nil {
			return errors.Wrapf(err, "could not create output subdirectory %s", target)
		}
		if err := writeDirectoryContents(target, dir.Dirs[subdir]); err != nil {
			return err
		}
	}
	return nil
}
