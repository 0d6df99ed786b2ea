package reuse

import (
	"fmt"
	"io"
	"os"
)

// Debug tracing for reuse decisions. Disabled unless FUTHARK_MEM_DEBUG
// is set in the environment or EnableTracing is called; either way the
// writer is fixed before any allocation runs and tracing never affects
// the result map.
var traceWriter io.Writer

func init() {
	if os.Getenv("FUTHARK_MEM_DEBUG") != "" {
		traceWriter = os.Stderr
	}
}

// EnableTracing routes reuse decision tracing to w.
func EnableTracing(w io.Writer) {
	traceWriter = w
}

func tracef(format string, args ...any) {
	if traceWriter == nil {
		return
	}
	fmt.Fprintf(traceWriter, "reuse: "+format+"\n", args...)
}
