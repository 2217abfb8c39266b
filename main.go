package main

import (
	"github.com/pgsplitdump/pgsplitdump/lib"
)

func main() {
	// correlates to bin/pg_split_dump
	lib.GlobalPgSplitDump = lib.NewPgSplitDump()
	lib.GlobalPgSplitDump.ArgParse()
	lib.GlobalPgSplitDump.Notice("Done")
}
