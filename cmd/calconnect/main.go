package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
)

type command interface {
	Run(ctx context.Context, dbFilename string, verbose bool, args []string) error
}

var cfg struct {
	DBFilename string
	Verbose    bool
}

func init() {
	flag.StringVar(&cfg.DBFilename, "db", "calconnect.db", "sqlite database file")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "log every request made to the providers")
	flag.Usage = usage
}

func usage() {
	w := flag.CommandLine.Output()
	fmt.Fprintf(w, "Usage: %s [options] <command> [command options]\n", os.Args[0])
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintf(w, "  %s\t%s\n", ConnectCommand.Name, ConnectCommand.Description)
	fmt.Fprintf(w, "  %s\t%s\n", SyncCommand.Name, SyncCommand.Description)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt)
		<-ch
		cancel()
	}()

	var cmd command
	switch flag.Arg(0) {
	case ConnectCommand.Name:
		cmd = ConnectCommand
	case SyncCommand.Name:
		cmd = SyncCommand
	default:
		flag.Usage()
		os.Exit(2)
	}

	err := cmd.Run(ctx, cfg.DBFilename, cfg.Verbose, flag.Args()[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
