package irc

import (
	"fmt"
	"io"
	"os"
)

// NoopLog discards every line. A ConnectionConfig whose Log is nil logs
// nothing either: the session skips the callback when it is unset.
func NoopLog(Origin, []byte) {}

// WriterLog returns a Log callback that writes each frame to w prefixed
// with its direction, one line per frame, in the raw-traffic style the
// teacher's debug output used (app.go's debugOutputMessages).
func WriterLog(w io.Writer) func(Origin, []byte) {
	return func(origin Origin, line []byte) {
		arrow := "<-"
		if origin == FromClient {
			arrow = "->"
		}
		fmt.Fprintf(w, "%s %s\n", arrow, line)
	}
}

// StdoutLog logs traffic to stdout.
func StdoutLog() func(Origin, []byte) {
	return WriterLog(os.Stdout)
}

// FileLog opens path for appending and logs traffic to it, returning the
// callback and a close function the caller must invoke when the session
// ends. Opening the file is done eagerly so a permission error surfaces
// before the connection is attempted.
func FileLog(path string) (log func(Origin, []byte), closeFn func() error, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return WriterLog(f), f.Close, nil
}
