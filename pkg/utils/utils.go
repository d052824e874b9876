package utils

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
)

// log is the structured sink Fatal reports through once wired via
// SetLogger. It defaults to a no-op so packages that only import utils
// for Assert/Read in a unit test don't need a logger configured.
var log *zap.SugaredLogger = zap.NewNop().Sugar()

// SetLogger wires the structured logger the rest of the CLI already
// configured into utils' fatal path, so a hard-stop invariant violation
// is logged the same way everything else is, not just printed raw.
func SetLogger(l *zap.SugaredLogger) {
	if l != nil {
		log = l
	}
}

// Fatal reports an unrecoverable, programmer-invariant-violation-style
// error and exits: a colored stderr dump with a stack trace for the
// interactive case, plus the structured logger for anything capturing logs.
func Fatal(v any) {
	fmt.Printf("wild:\n\t\033[0;1;31mfatal\033[0m: %v\n", v)
	debug.PrintStack()
	log.Errorf("fatal: %v", v)
	os.Exit(1)
}

// MustNo aborts if err is non-nil.
func MustNo(err error) {
	if err != nil {
		Fatal(err.Error())
	}
}

// Read decodes a little-endian T from the front of data.
func Read[T any](data []byte) (val T) {
	reader := bytes.NewReader(data)
	err := binary.Read(reader, binary.LittleEndian, &val)

	MustNo(err)

	return val
}

// Write encodes val in little-endian order into the front of dst.
func Write[T any](dst []byte, val T) {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, binary.LittleEndian, val)
	MustNo(err)
	copy(dst, buf.Bytes())
}

// Assert aborts through Fatal if condition is false. A passing check
// costs only the branch; a failing one prints, logs, and exits exactly
// as Fatal does.
func Assert(condition bool) {
	if !condition {
		Fatal("Assert Failed")
	}
}

// RemoveIf returns a new slice with every element matching pred removed,
// preserving order.
func RemoveIf[T any](s []T, pred func(T) bool) []T {
	out := make([]T, 0, len(s))
	for _, v := range s {
		if !pred(v) {
			out = append(out, v)
		}
	}
	return out
}

// RemovePrefix strips prefix from s, reporting whether it was present.
func RemovePrefix(s, prefix string) (string, bool) {
	return strings.CutPrefix(s, prefix)
}
