package catalog

import (
	"context"
	"os"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"

	"github.com/pgsplitdump/pgsplitdump/lib/util"
)

// Connection wraps the single postgres connection whose read-only transaction
// anchors the snapshot that both pg_dump and the auxiliary queries observe.
type Connection struct {
	conn *pgx.Conn
	tx   pgx.Tx
}

// Connect parses the conninfo string and opens a connection. pgx fills in the
// libpq environment defaults (PGHOST, PGUSER, PGDATABASE, ...) on its own;
// the password is the one thing worth prompting for interactively.
func Connect(conninfo string) (*Connection, error) {
	config, err := pgx.ParseConfig(conninfo)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse connection string")
	}

	if config.Password == "" && os.Getenv("PGPASSWORD") == "" && util.StdinIsTerminal() {
		pass, err := util.PromptPassword("Password: ")
		if err != nil {
			return nil, errors.Wrap(err, "could not read password")
		}
		config.Password = pass
	}

	conn, err := pgx.ConnectConfig(context.Background(), config)
	if err != nil {
		return nil, errors.Wrap(err, "could not connect to postgres")
	}
	return &Connection{conn: conn}, nil
}

// ExportSnapshot makes the session read-only, opens the transaction, and
// returns the exported snapshot id to hand to pg_dump. The transaction stays
// open until Commit so the auxiliary queries see the same catalog state.
func (self *Connection) ExportSnapshot() (string, error) {
	if _, err := self.conn.Exec(context.TODO(), "SET default_transaction_read_only TO TRUE"); err != nil {
		return "", errors.Wrap(err, "could not set default_transaction_read_only")
	}

	tx, err := self.conn.Begin(context.TODO())
	if err != nil {
		return "", errors.Wrap(err, "could not begin a database transaction")
	}
	self.tx = tx

	var snapshotID string
	if err := tx.QueryRow(context.TODO(), "SELECT pg_export_snapshot()").Scan(&snapshotID); err != nil {
		return "", errors.Wrap(err, "could not export a database snapshot")
	}
	return snapshotID, nil
}

func (self *Connection) QueryRaw(query string, params ...interface{}) (pgx.Rows, error) {
	if self.tx != nil {
		return self.tx.Query(context.TODO(), query, params...)
	}
	return self.conn.Query(context.TODO(), query, params...)
}

func (self *Connection) Commit() error {
	if self.tx == nil {
		return nil
	}
	err := self.tx.Commit(context.TODO())
	self.tx = nil
	return errors.Wrap(err, "could not commit our database transaction")
}

func (self *Connection) Disconnect() {
	self.conn.Close(context.TODO())
}
