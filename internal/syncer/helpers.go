package syncer

import (
	"github.com/guilherme-santos/calconnect/internal"
)

func (s *Syncer) logf(conn *Connection, format string, a ...any) {
	internal.Logf(s.output, "", conn, format, a...)
}
