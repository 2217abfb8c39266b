package lib

import (
	"os"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/rs/zerolog"

	"github.com/pgsplitdump/pgsplitdump/lib/catalog"
	"github.com/pgsplitdump/pgsplitdump/lib/dump"
	"github.com/pgsplitdump/pgsplitdump/lib/output"
	"github.com/pgsplitdump/pgsplitdump/lib/pgdump"
	"github.com/pgsplitdump/pgsplitdump/lib/util"
)

var Version = "1.0.0"

var GlobalPgSplitDump *PgSplitDump

// PgSplitDump is the application object: it parses the command line, drives
// the snapshot/dump/classify pipeline, and writes the result out.
type PgSplitDump struct {
	logger zerolog.Logger

	connInfo     string
	outputPath   string
	outputFormat output.Format
	pgDumpBinary string
}

func NewPgSplitDump() *PgSplitDump {
	return &PgSplitDump{
		logger: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
	}
}

func (self *PgSplitDump) ArgParse() {
	args := &Args{}
	arg.MustParse(args)

	self.setVerbosity(args)

	self.connInfo = args.ConnInfo
	self.outputPath = args.Output
	self.pgDumpBinary = args.PgDumpBinary

	if args.Format != "" {
		format, ok := output.ParseFormat(args.Format)
		if !ok {
			self.Fatal("invalid output format %s", args.Format)
		}
		self.outputFormat = format
	} else if strings.HasSuffix(args.Output, ".tar") {
		self.outputFormat = output.FormatTarArchive
	} else {
		self.outputFormat = output.FormatDirectory
	}

	self.doSplitDump()
}

func (self *PgSplitDump) doSplitDump() {
	if util.PathExists(self.outputPath) {
		self.Fatal("output %s already exists", self.outputPath)
	}

	conn, err := catalog.Connect(self.connInfo)
	if err != nil {
		self.Fatal("%v", err)
	}
	defer conn.Disconnect()

	snapshotID, err := conn.ExportSnapshot()
	if err != nil {
		self.Fatal("%v", err)
	}
	self.Info("Exported database snapshot %s", snapshotID)

	pgDump, err := pgdump.Start(self.pgDumpBinary, self.connInfo, snapshotID)
	if err != nil {
		self.Fatal("%v", err)
	}

	aux, err := catalog.Load(catalog.NewLiveIntrospector(conn))
	if err != nil {
		pgDump.Close()
		self.Fatal("%v", err)
	}

	reader, err := dump.NewReader(pgDump)
	if err != nil {
		pgDump.Close()
		self.Fatal("%v", err)
	}
	header := reader.Header()
	self.Info(
		"Reading dump of database %q taken %s by pg_dump %s (format %d.%d)",
		header.Database, header.CreatedAt.Format("2006-01-02 15:04:05"),
		header.DumpVersion, header.Version.Major(), header.Version.Minor(),
	)

	split, err := dump.ReadDump(reader, aux)
	if err != nil {
		pgDump.Close()
		self.Fatal("%v", err)
	}

	if err := conn.Commit(); err != nil {
		self.Fatal("%v", err)
	}

	switch self.outputFormat {
	case output.FormatDirectory:
		if err := output.WriteDirectory(self.outputPath, split.Root); err != nil {
			self.Fatal("%v", err)
		}
	case output.FormatTarArchive:
		writer, err := output.NewTarWriter(self.outputPath)
		if err != nil {
			self.Fatal("%v", err)
		}
		if err := writer.WriteSplitDump(split.Root); err != nil {
			self.Fatal("%v", err)
		}
		if err := writer.Close(); err != nil {
			self.Fatal("%v", err)
		}
	}

	self.Notice("Wrote %s", self.outputPath)
}

func (self *PgSplitDump) Fatal(s string, args ...interface{}) {
	self.logger.Fatal().Msgf(s, args...)
}

func (self *PgSplitDump) Error(s string, args ...interface{}) {
	self.logger.Error().Msgf(s, args...)
}

func (self *PgSplitDump) Warning(s string, args ...interface{}) {
	self.logger.Warn().Msgf(s, args...)
}

func (self *PgSplitDump) Notice(s string, args ...interface{}) {
	self.Info(s, args...)
}

func (self *PgSplitDump) Info(s string, args ...interface{}) {
	self.logger.Info().Msgf(s, args...)
}

// setVerbosity adjusts the log level; lower level means higher verbosity,
// so every -v subtracts and every -q adds.
func (self *PgSplitDump) setVerbosity(args *Args) {
	level := zerolog.InfoLevel
	for range args.Verbose {
		level -= 1
	}
	for range args.Quiet {
		level += 1
	}
	self.logger = self.logger.Level(level)
}
