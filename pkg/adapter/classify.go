package adapter

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/redbco/wings/pkg/dbcapabilities"
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

// Detail is what the classifier needs to know about a raw backend error.
type Detail struct {
	// SQLState is the five-character SQLSTATE, when the driver reports one.
	SQLState string
	// Number is a vendor error number: a MySQL errno, a SQLite primary
	// result code or a MongoDB server code.
	Number int
	// Name is a vendor code name, e.g. a MongoDB codeName.
	Name string
}

// Inspector extracts a Detail from a driver error, reporting false when err
// is not one of the driver's error types.
type Inspector func(err error) (Detail, bool)

var (
	inspectorsMu sync.RWMutex
	inspectors   = map[dbcapabilities.DatabaseID]Inspector{}
)

// RegisterInspector installs the error inspector for a backend. Backends call
// it from their init functions.
func RegisterInspector(id dbcapabilities.DatabaseID, fn Inspector) {
	inspectorsMu.Lock()
	defer inspectorsMu.Unlock()
	inspectors[id] = fn
}

func inspect(id dbcapabilities.DatabaseID, err error) Detail {
	inspectorsMu.RLock()
	fn := inspectors[id]
	inspectorsMu.RUnlock()

	if fn != nil {
		if d, ok := fn(err); ok {
			d.SQLState = normalizeSQLState(d.SQLState)
			return d
		}
	}
	var st interface{ SQLState() string }
	if errors.As(err, &st) {
		return Detail{SQLState: normalizeSQLState(st.SQLState())}
	}
	return Detail{}
}

// normalizeSQLState strips the MySQL "#" marker and pads to five characters.
func normalizeSQLState(s string) string {
	s = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if s == "" {
		return ""
	}
	for len(s) < 5 {
		s = "0" + s
	}
	return s[len(s)-5:]
}

// rule maps error families onto one kind. A rule matches when any of its
// matchers does; rules are tried in table order.
type rule struct {
	kind      Kind
	sentinels []error
	numbers   map[dbcapabilities.DatabaseID][]int
	sqlStates []string
	patterns  []string
}

var rules = []rule{
	{
		kind:      KindBadRequest,
		sentinels: []error{query.ErrInvalid, query.ErrUnknownOperator, record.ErrUnsupportedValue, ErrInvalidConfiguration},
	},
	{
		kind:      KindUnavailable,
		sentinels: []error{context.DeadlineExceeded, context.Canceled, driver.ErrBadConn, sql.ErrConnDone},
	},
	{
		kind:      KindNotFound,
		sentinels: []error{sql.ErrNoRows},
		numbers: map[dbcapabilities.DatabaseID][]int{
			dbcapabilities.MySQL:   {1049, 1146},
			dbcapabilities.MongoDB: {26}, // NamespaceNotFound
		},
		sqlStates: []string{"42P01", "3D000", "3F000", "02"},
		patterns:  []string{"no such table", "ns not found"},
	},
	{
		kind: KindForbidden,
		numbers: map[dbcapabilities.DatabaseID][]int{
			dbcapabilities.MySQL:   {1044, 1045, 1142, 1143, 1227, 1370},
			dbcapabilities.SQLite:  {3, 23}, // PERM, AUTH
			dbcapabilities.MongoDB: {13, 18}, // Unauthorized, AuthenticationFailed
		},
		sqlStates: []string{"42501", "28"},
		patterns:  []string{"permission denied", "access denied", "not authorized"},
	},
	{
		kind: KindUnavailable,
		numbers: map[dbcapabilities.DatabaseID][]int{
			dbcapabilities.MySQL:   {1040, 1053, 1205, 1213, 1317, 2002, 2003, 2006, 2013, 3024},
			dbcapabilities.SQLite:  {5, 6, 10, 13, 14}, // BUSY, LOCKED, IOERR, FULL, CANTOPEN
			dbcapabilities.MongoDB: {6, 7, 50, 89, 91, 112, 189, 10107, 11600},
		},
		sqlStates: []string{"08", "40001", "40P01", "53", "55P03", "57"},
		patterns: []string{
			"connection refused", "connection reset", "broken pipe", "timed out",
			"timeout", "database is locked", "deadlock", "server closed",
		},
	},
	{
		kind: KindUnprocessable,
		numbers: map[dbcapabilities.DatabaseID][]int{
			dbcapabilities.MySQL:  {1264, 1265, 1292, 1366, 1406},
			dbcapabilities.SQLite: {18, 20, 25}, // TOOBIG, MISMATCH, RANGE
		},
		sqlStates: []string{"22"},
	},
	{
		kind: KindBadRequest,
		numbers: map[dbcapabilities.DatabaseID][]int{
			dbcapabilities.MySQL:   {1048, 1054, 1062, 1064, 1136, 1216, 1217, 1364, 1451, 1452, 3819},
			dbcapabilities.SQLite:  {1, 8, 19}, // ERROR, READONLY, CONSTRAINT
			dbcapabilities.MongoDB: {2, 9, 14, 121, 11000, 11001},
		},
		sqlStates: []string{"0A", "20", "21", "23", "24", "25", "40", "42", "70"},
		patterns: []string{
			"duplicate", "unique constraint", "foreign key", "violates",
			"constraint failed", "syntax error", "no such column",
		},
	},
}

// Classify maps a raw backend error onto the taxonomy. An error that is
// already an *Error is returned unchanged; anything no rule recognizes
// becomes a GeneralError. The original message and error are kept.
func Classify(id dbcapabilities.DatabaseID, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	detail := inspect(id, err)
	message := strings.ToLower(err.Error())

	kind := KindGeneral
	for _, r := range rules {
		if r.matches(id, err, detail, message) {
			kind = r.kind
			break
		}
	}

	return &Error{
		Kind:         kind,
		Message:      err.Error(),
		Code:         detail.code(),
		DatabaseType: id,
		Cause:        err,
	}
}

func (r rule) matches(id dbcapabilities.DatabaseID, err error, d Detail, message string) bool {
	for _, s := range r.sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	if d.Number != 0 {
		for _, n := range r.numbers[id] {
			if n == d.Number {
				return true
			}
		}
	}
	if d.SQLState != "" {
		for _, prefix := range r.sqlStates {
			if strings.HasPrefix(d.SQLState, prefix) {
				return true
			}
		}
	}
	for _, p := range r.patterns {
		if strings.Contains(message, p) {
			return true
		}
	}
	return false
}

func (d Detail) code() string {
	switch {
	case d.SQLState != "":
		return d.SQLState
	case d.Number != 0:
		return strconv.Itoa(d.Number)
	}
	return d.Name
}
