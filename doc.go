// Package accounts implements a user account backend: signup with email
// confirmation, login with JWT session tokens, forgot/reset password and CRUD
// on user records guarded by a role based grant table.
//
// Account lifecycle:
//   - A signup creates an unconfirmed row carrying a one time confirm token.
//     ConfirmAccount moves it to confirmed and clears the token. Destroying a
//     user soft deletes the row, which hides it from every later lookup.
//   - AccountStateMachine validates each transition and reports it to the
//     configured ActivitySink.
//
// HTTP:
//   - RegisterRoutes mounts /api/auth and /api/users on a fiber router.
//     RouteAuthenticator.ProtectedRoute verifies the bearer token and resolves
//     the current user row. RouteAuthenticator.Authorize consults the grant
//     table.
//   - Install FiberErrorHandler as fiber's ErrorHandler so every *Error leaves
//     through the {"status","errors"} envelope.
//
// Persistence lives in bun repositories. Schema migrations for sqlite and
// postgres are embedded, see GetMigrationsFS.
package accounts
