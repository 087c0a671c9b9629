// Package auth binds the access gate to fiber.
//
// For every request the middleware restores the session from the signed
// session cookie, asks the gate whether the request may proceed and turns
// the answer into a redirect to the login page, a 401 or a 403.
//
// The session, the user and the user id are stored in fiber.Locals for
// handlers and the access log:
//
//	app.Use(authmiddleware.New(authmiddleware.Config{Service: svc, Gate: gate, Codec: codec}))
//
// Routes can not carry arguments in fiber, so per route requirements come
// from auth.Policy.Routes, matched on the request path.
package auth
