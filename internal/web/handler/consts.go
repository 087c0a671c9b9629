package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// AuthPath is the route group of the login, logout and me handlers.
	AuthPath = "/auth"

	// ErrNilACDFatalLogMsg is used if app, cfg or the auth service is nil.
	ErrNilACDFatalLogMsg = "app, cfg or auth service is nil"
)
