package output

// Format selects how the finished split tree is materialized.
type Format int

const (
	FormatDirectory Format = iota
	FormatTarArchive
)

// ParseFormat maps the --format flag values: "d" for directory, "t" for tar.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "d":
		return FormatDirectory, true
	case "t":
		return FormatTarArchive, true
	}
	return FormatDirectory, false
}
