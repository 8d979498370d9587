// Package memstore provides in-memory implementations of the session store
// interfaces for tests, examples and the load generator.
//
// Failure injection fields (for example [TokenLog.FailIssuance]) let tests
// exercise fail-closed paths without a real backend.
package memstore
