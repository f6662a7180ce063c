// Package identity provides the authentication core for a web application:
// password verification, stateless JWT issuance and validation, cookie-bound
// session propagation, and federated (OAuth) login flows.
//
// Tokens and sessions:
//   - TokenService signs compact HS256 JWTs binding a user identifier and an
//     issuance timestamp. Validation is pure; there is no server-side session
//     table, so every request re-derives its authentication state from the
//     token it carries. Logout is client-side cookie clearing only.
//   - SessionObject is the decoded, verified claim set attached to a request.
//     It lives for the duration of request handling and is never persisted.
//
// Verification:
//   - LocalVerifier validates email/password registrations and logins against
//     a Users repository. Unknown email and wrong password collapse into the
//     same ErrInvalidCredentials so responses cannot be used to enumerate
//     accounts.
//   - The federated subpackage resolves provider-confirmed identities with an
//     idempotent find-or-create, so repeated federated logins always land on
//     the same User.
//
// The HTTP surface (http.go, http_controller.go, middleware/jwtware) carries
// the token in an HTTP-only cookie named "token" and exposes register, login,
// logout, profile, and federated start/callback routes on go-router. The
// clientcache subpackage is the process-local mirror of server-asserted
// identity for client runtimes.
package identity
