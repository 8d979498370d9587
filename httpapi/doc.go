// Package httpapi serves the session HTTP surface:
//
//	POST /auth/login   JSON {"username", "pw_md5"} → {"token", "expires"}
//	GET  /auth/check   header "token" → {"valid": true}
//	GET  /auth/logout  header "token"
//	GET  /auth/@me     header "token" → caller's profile
//
// Every response uses the envelope {"status": "success", "data": ...} or
// {"status": "error", "error": message}. Error messages never distinguish an
// unknown user from a wrong password.
package httpapi
