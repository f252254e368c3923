// Package adapter provides the record operation contract shared by every
// storage backend.
//
// A Service wraps one Backend and exposes the verbs Find, Get, Create,
// CreateMany, Patch, PatchMany, Remove, RemoveMany and RemoveAll. The service
// owns the parts of the contract that must not differ between backends: the
// bulk safety guard, pagination and error classification.
//
// # Architecture
//
//   - Backend: the storage collaborator each database package implements
//   - Service: runs the operations and enforces the guard
//   - Registry: maps database types to backend openers
//   - Error: the classified error every operation reports
//
// # Usage
//
// Backends register themselves from init, so importing a backend package is
// enough to open it by URL:
//
//	import _ "github.com/redbco/wings/internal/database/sqlite"
//
//	conn, err := adapter.Open(ctx, "sqlite://people.db", adapter.BackendConfig{Table: "people"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	svc, err := adapter.New(conn, adapter.Options{})
//	page, err := svc.Find(ctx, params, adapter.Paginated())
//
// # Error Handling
//
// Every error a Service returns, apart from context errors reported by the
// caller's own code, is an *Error whose Kind is one of NotFound, BadRequest,
// Forbidden, Unavailable, Unprocessable or GeneralError. Raw driver errors are
// mapped through Classify, which consults inspectors registered per backend
// with RegisterInspector:
//
//	if errors.Is(err, adapter.ErrBadRequest) {
//	    // reject the request
//	}
//
// Get, Patch and Remove return a nil record when nothing matches, whether the
// id does not exist or the query filtered it out.
//
// # Thread Safety
//
// Service holds no mutable state. Concurrency guarantees are those of the
// backend. When ConcurrentCount is set a paginated find issues its count and
// fetch from two goroutines.
package adapter
