package log

import (
	"os"

	hclog "github.com/hashicorp/go-hclog"
)

// EnableDebug raises L to trace when TRACE is set or force is true.
func EnableDebug(force bool) {
	if str := os.Getenv("TRACE"); str != "" || force {
		L.SetLevel(hclog.Trace)
	}
}
