// Package middleware exposes HTTP middleware adapters that enforce the
// authcore session gate on inbound requests.
//
// # Guards
//
//   - [Guard] — requires a fully authenticated session; half-open sessions
//     are redirected to the second-factor URL.
//   - [RequireSession] — accepts any valid assertion, including sessions
//     still awaiting the second factor.
//
// Each guard reads the Authorization header, calls the engine, and injects
// the decoded assertion into the request context.
//
// This package translates HTTP semantics into Engine calls. It does NOT
// decode tokens or touch account storage itself.
package middleware
