// Package dbcapabilities provides a shared registry describing the storage
// backends supported by wings, and the SQL dialect profiles used by the
// query compiler.
//
// Minimal usage example:
//
//	import "github.com/redbco/wings/pkg/dbcapabilities"
//
//	func quote(db, column string) string {
//	    id, _ := dbcapabilities.ParseID(db) // "postgresql" -> postgres
//	    return dbcapabilities.MustGetDialect(id).QuoteIdentifier(column)
//	}
//
// A Dialect carries what differs between SQL backends: identifier quoting,
// placeholder style, RETURNING support, how generated ids are recovered, the
// "no limit" sentinel required when OFFSET is used alone, and whether
// booleans and ILIKE exist natively.
//
// ParseConnectionString maps a URL scheme (or alias) onto a DatabaseID and
// extracts host, credentials and parameters; backends turn the result into
// their driver-specific DSN.
package dbcapabilities
