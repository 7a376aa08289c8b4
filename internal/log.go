package internal

import (
	"fmt"
	"io"
	"strings"

	"github.com/guilherme-santos/calconnect"
)

func Logf(w io.Writer, prefix string, conn *calconnect.Connection, format string, a ...any) {
	parts := []string{}
	if prefix != "" {
		parts = append(parts, prefix)
	}
	if conn != nil {
		parts = append(parts, fmt.Sprintf("Connection %s:", conn))
	}
	parts = append(parts, fmt.Sprintf(format, a...))
	fmt.Fprintln(w, strings.Join(parts, " "))
}
