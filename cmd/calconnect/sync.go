package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/guilherme-santos/calconnect"
	"github.com/guilherme-santos/calconnect/internal/sqlite"
	"github.com/guilherme-santos/calconnect/internal/syncer"
)

var SyncCommand = _syncCommand{
	Name:        "sync",
	Description: "Sync events for the configured connections",
}

type _syncCommand struct {
	Name        string
	Description string
}

func (s _syncCommand) Run(ctx context.Context, dbFilename string, verbose bool, args []string) error {
	var (
		from    = calconnect.Today().AddDate(0, 0, -30)
		to      = calconnect.Today().AddDate(0, 0, 90)
		connIDs Strings
	)

	fs := flag.NewFlagSet(s.Name, flag.ExitOnError)
	fs.Usage = func() {
		w := flag.CommandLine.Output()
		fmt.Fprintf(w, "Usage of %s %s:\n", os.Args[0], fs.Name())
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Options:\n")
		fs.PrintDefaults()
	}
	fs.Var(&from, "from", "start of the sync window (e.g. 2026-08-01)")
	fs.Var(&to, "to", "end of the sync window (e.g. 2026-11-01)")
	fs.Var(&connIDs, "connection", "connection to sync (provider/account), may be repeated")

	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := sql.Open(sqlite.DriverName, dbFilename)
	if err != nil {
		return err
	}
	defer db.Close()

	storage := sqlite.NewStorage(db)

	sync := syncer.New(flag.CommandLine.Output(), newMux(verbose), storage)
	return sync.Sync(ctx, connIDs, from.UTC(), to.UTC().Add(24*time.Hour-time.Second))
}
