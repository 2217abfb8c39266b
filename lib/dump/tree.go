package dump

// SplitDirectory is one level of the split output tree: SQL files keyed by
// name, each an ordered list of statement blocks, plus nested subdirectories.
// The tree is built incrementally by the classifier and handed whole to a
// writer once the archive has been fully consumed.
type SplitDirectory struct {
	Dirs  map[string]*SplitDirectory
	Files map[string][]string
}

func NewSplitDirectory() *SplitDirectory {
	return &SplitDirectory{
		Dirs:  map[string]*SplitDirectory{},
		Files: map[string][]string{},
	}
}

// Subdir returns the named child directory, creating it if it does not exist.
func (self *SplitDirectory) Subdir(name string) *SplitDirectory {
	sub := self.Dirs[name]
	if sub == nil {
		sub = NewSplitDirectory()
		self.Dirs[name] = sub
	}
	return sub
}
