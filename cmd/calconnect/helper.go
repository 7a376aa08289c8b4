package main

import (
	"os"
	"strings"

	"github.com/guilherme-santos/calconnect/calendar"
	"github.com/guilherme-santos/calconnect/calendar/google"
	"github.com/guilherme-santos/calconnect/calendar/outlook"
	"github.com/guilherme-santos/calconnect/calendar/zoom"
)

type Strings []string

func (i *Strings) String() string {
	return strings.Join(*i, ", ")
}

func (i *Strings) Set(value string) error {
	*i = append(*i, value)
	return nil
}

// newMux registers every provider. Client credentials come from the
// environment (e.g. CALCONNECT_GOOGLE_CLIENT_ID); a provider with no
// credentials is still registered so sync fails loudly instead of silently
// skipping its connections.
func newMux(verbose bool) *calendar.Mux {
	googleCal := google.NewClient(google.Config{
		ClientID:     os.Getenv("CALCONNECT_GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("CALCONNECT_GOOGLE_CLIENT_SECRET"),
	})
	googleCal.Verbose = verbose

	outlookCal := outlook.NewClient(outlook.Config{
		ClientID:     os.Getenv("CALCONNECT_OUTLOOK_CLIENT_ID"),
		ClientSecret: os.Getenv("CALCONNECT_OUTLOOK_CLIENT_SECRET"),
	})
	outlookCal.Verbose = verbose

	zoomCal := zoom.NewClient(zoom.Config{
		ClientID:     os.Getenv("CALCONNECT_ZOOM_CLIENT_ID"),
		ClientSecret: os.Getenv("CALCONNECT_ZOOM_CLIENT_SECRET"),
	})
	zoomCal.Verbose = verbose

	mux := calendar.NewMux()
	mux.Register("google", googleCal)
	mux.Register("outlook", outlookCal)
	mux.Register("zoom", zoomCal)
	return mux
}
