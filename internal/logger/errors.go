package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrAppNameIsEmpty is returned by Init without log.appname.
	ErrAppNameIsEmpty = errors.New("log.appname must be set")

	// ErrServiceNameIsEmpty is returned by Init without log.servicename; it labels the log counter.
	ErrServiceNameIsEmpty = errors.New("log.servicename must be set")
)

// writeFailures receives events zerolog could not write.
var writeFailures io.Writer = os.Stderr //nolint:gochecknoglobals

// reportWriteFailure is installed as zerolog.ErrorHandler by Init.
func reportWriteFailure(err error) {
	_, _ = fmt.Fprintf(writeFailures, "authgate: dropped log event: %v\n", err)
}
