// Package jwt implements HS256 JSON Web Token parsing and the HTTP middleware
// that authenticates API callers.
//
// Session issuance lives elsewhere on the platform; this package only needs
// to verify tokens signed with the shared key and expose the caller identity
// (the token Subject) to handlers:
//
//	svc, _ := jwt.NewFromString(cfg.SigningKey)
//	r.Use(jwt.Middleware(svc))
//
//	// in a handler:
//	callerID, ok := jwt.CallerID(r.Context())
//
// The implementation sticks to the standard library's crypto: HMAC-SHA256
// with constant-time signature comparison and algorithm pinning.
package jwt
