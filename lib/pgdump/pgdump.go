package pgdump

import (
	"bufio"
	"io"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Process runs pg_dump as a child process and exposes its stdout as an
// io.Reader. Stderr is drained by a separate goroutine so that a pg_dump
// writing a lot of diagnostics cannot deadlock against a full pipe. Read
// only reports end-of-stream once the child has exited successfully; a
// failing exit surfaces as an error carrying the captured stderr output.
type Process struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser

	stderrDone  chan struct{}
	stderrLines []string

	finished bool
	exitErr  error
}

// Start spawns `pg_dump --schema-only --format custom` against the given
// conninfo, attached to the exported snapshot.
func Start(binary, conninfo, snapshotID string) (*Process, error) {
	cmd := exec.Command(
		binary,
		"--schema-only",
		"--format", "custom",
		"--snapshot", snapshotID,
		"--dbname", conninfo,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "could not open pg_dump stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "could not open pg_dump stderr pipe")
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "could not start %s", binary)
	}

	self := &Process{
		cmd:        cmd,
		stdout:     stdout,
		stderrDone: make(chan struct{}),
	}
	go func() {
		defer close(self.stderrDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			self.stderrLines = append(self.stderrLines, scanner.Text())
		}
	}()

	return self, nil
}

func (self *Process) Read(buf []byte) (int, error) {
	n, err := self.stdout.Read(buf)
	if err != io.EOF {
		return n, err
	}

	// End of stream. The EOF is only trustworthy if the child exited
	// successfully; otherwise report its stderr instead.
	if err := self.finish(); err != nil {
		return n, err
	}
	return n, io.EOF
}

func (self *Process) finish() error {
	if self.finished {
		return self.exitErr
	}
	self.finished = true

	<-self.stderrDone
	if err := self.cmd.Wait(); err != nil {
		self.exitErr = errors.Errorf(
			"pg_dump failed (%s) with the following output:\n    %s",
			err, strings.Join(self.stderrLines, "\n    "),
		)
	}
	return self.exitErr
}

// Close terminates the child if it is still running. This is the abort path;
// a normal run consumes the stream to EOF instead.
func (self *Process) Close() error {
	if self.finished {
		return nil
	}
	self.finished = true

	self.cmd.Process.Kill()
	<-self.stderrDone
	self.cmd.Wait()
	return nil
}
