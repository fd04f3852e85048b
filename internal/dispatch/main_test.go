package dispatch

import (
	"os"
	"testing"

	"github.com/womat/debug"
)

func TestMain(m *testing.M) {
	debug.SetDebug(os.Stderr, debug.Standard)
	os.Exit(m.Run())
}
