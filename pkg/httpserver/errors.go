package httpserver

import "errors"

var (
	// ErrStart reports a listener or serve failure during startup.
	ErrStart = errors.New("http server could not start")
	// ErrShutdown reports that the server did not stop cleanly within the
	// shutdown timeout.
	ErrShutdown = errors.New("http server did not shut down cleanly")
)
