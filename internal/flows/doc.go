// Package flows runs the engine's request paths: login, validate, logout,
// logout-all and password change.
//
// Each RunX function takes its inputs and a Deps struct of function fields.
// The engine fills those fields once at build time with its throttle,
// verifier, session store, audit and metrics hooks; flows own none of them
// and keep no state between calls. Tests substitute plain closures.
//
// The package does not import goSession, so the engine hands its sentinel
// errors, metric ids and event names in through the Deps structs.
package flows
