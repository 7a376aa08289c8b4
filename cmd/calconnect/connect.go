package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/guilherme-santos/calconnect"
	"github.com/guilherme-santos/calconnect/internal/sqlite"
)

var ConnectCommand = _connectCommand{
	Name:        "connect",
	Description: "Authorize a provider account and store the connection",
}

type _connectCommand struct {
	Name        string
	Description string
}

// authCodeProvider is implemented by every registered client; it stays out of
// the calconnect.Provider contract because only this command needs it.
type authCodeProvider interface {
	calconnect.Provider
	AuthCodeURL(redirectURI, state string) string
}

func (s _connectCommand) Run(ctx context.Context, dbFilename string, verbose bool, args []string) error {
	var (
		providerName string
		account      string
		redirectURI  string
	)

	fs := flag.NewFlagSet(s.Name, flag.ExitOnError)
	fs.Usage = func() {
		w := flag.CommandLine.Output()
		fmt.Fprintf(w, "Usage of %s %s:\n", os.Args[0], fs.Name())
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Options:\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&providerName, "provider", "", "provider to connect (google, outlook or zoom)")
	fs.StringVar(&account, "account", "", "account identifier, usually your e-mail")
	fs.StringVar(&redirectURI, "redirect-uri", "http://localhost:8080/callback", "redirect URI registered with the OAuth application")

	if err := fs.Parse(args); err != nil {
		return err
	}

	mux := newMux(verbose)

	p, err := mux.Get(providerName)
	if err != nil {
		return err
	}
	provider, ok := p.(authCodeProvider)
	if !ok {
		return fmt.Errorf("provider %q does not support the auth-code flow", providerName)
	}

	w := flag.CommandLine.Output()

	state := uuid.NewString()
	fmt.Fprintf(w, "Go to the following link in your browser\n%s\n\n", provider.AuthCodeURL(redirectURI, state))

	var code, gotState string
	fmt.Fprint(w, "Authorization code: ")
	fmt.Scanln(&code)
	fmt.Fprint(w, "State from the redirect: ")
	fmt.Scanln(&gotState)
	if gotState != state {
		return fmt.Errorf("state mismatch, the redirect did not come from this run")
	}

	creds, err := provider.ExchangeAuthCode(ctx, code, redirectURI)
	if err != nil {
		return fmt.Errorf("%s: exchanging auth code: %v", providerName, err)
	}

	if account == "" {
		fmt.Fprint(w, "Account (your e-mail): ")
		fmt.Scanln(&account)
	}

	conn := &calconnect.Connection{
		Provider:    providerName,
		Account:     account,
		Credentials: *creds,
	}

	db, err := sql.Open(sqlite.DriverName, dbFilename)
	if err != nil {
		return err
	}
	defer db.Close()

	storage := sqlite.NewStorage(db)

	fmt.Fprintf(w, "Saving connection %s...\n", conn)
	if err := storage.AddConnection(ctx, conn); err != nil {
		return fmt.Errorf("saving connection: %v", err)
	}
	return nil
}
