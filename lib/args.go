package lib

// Args is everything the command line accepts, in go-arg form.
type Args struct {
	ConnInfo string `arg:"positional,required" help:"libpq connection string or URI for the database to dump"`
	Output   string `arg:"positional,required" help:"output directory or tar archive to create"`

	PgDumpBinary string `arg:"--pg-dump-binary,required" help:"use the pg_dump binary in PG_DUMP_PATH" placeholder:"PG_DUMP_PATH"`
	Format       string `arg:"--format" help:"output file format: d (directory) or t (tar archive); the default is a directory unless OUTPUT ends in \".tar\""`

	Verbose []bool `arg:"-v" help:"see more detail (verbose)"`
	Quiet   []bool `arg:"-q" help:"see less detail (quiet)"`
}

func (Args) Version() string {
	return "pg_split_dump version " + Version
}
