package handler

import "errors"

// ErrNilDeps is returned by Init when app or a dependency is missing.
var ErrNilDeps = errors.New(ErrNilACDFatalLogMsg)
