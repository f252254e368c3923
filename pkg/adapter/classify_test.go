package adapter

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/wings/pkg/dbcapabilities"
	"github.com/redbco/wings/pkg/query"
)

// stateError mimics drivers that expose SQLSTATE through a method.
type stateError struct{ state, msg string }

func (e stateError) Error() string    { return e.msg }
func (e stateError) SQLState() string { return e.state }

// numberError is decoded by the inspector registered in TestClassifyNumbers.
type numberError struct {
	number int
	msg    string
}

func (e numberError) Error() string { return e.msg }

func TestClassifySQLState(t *testing.T) {
	tests := []struct {
		state string
		want  Kind
	}{
		{"23505", KindBadRequest},
		{"23503", KindBadRequest},
		{"42501", KindForbidden},
		{"28P01", KindForbidden},
		{"08006", KindUnavailable},
		{"40P01", KindUnavailable},
		{"55P03", KindUnavailable},
		{"57P01", KindUnavailable},
		{"42P01", KindNotFound},
		{"42703", KindBadRequest},
		{"42601", KindBadRequest},
		{"22P02", KindUnprocessable},
		{"#23000", KindBadRequest},
		{"XX000", KindGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			raw := stateError{state: tt.state, msg: "boom"}
			err := Classify(dbcapabilities.PostgreSQL, fmt.Errorf("exec: %w", raw))

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.want, e.Kind)
			assert.Equal(t, "exec: boom", e.Message)
			assert.ErrorIs(t, err, raw)
		})
	}
}

func TestClassifyNumbers(t *testing.T) {
	RegisterInspector(dbcapabilities.MySQL, func(err error) (Detail, bool) {
		var ne numberError
		if errors.As(err, &ne) {
			return Detail{Number: ne.number}, true
		}
		return Detail{}, false
	})
	defer RegisterInspector(dbcapabilities.MySQL, nil)

	tests := []struct {
		number int
		want   Kind
	}{
		{1062, KindBadRequest},
		{1451, KindBadRequest},
		{1146, KindNotFound},
		{1045, KindForbidden},
		{1213, KindUnavailable},
		{1406, KindUnprocessable},
		{9999, KindGeneral},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.number), func(t *testing.T) {
			err := Classify(dbcapabilities.MySQL, numberError{number: tt.number, msg: "mysql failure"})
			assert.Equal(t, tt.want, KindOf(err))
			assert.Equal(t, fmt.Sprint(tt.number), err.(*Error).Code)
		})
	}
}

func TestClassifySentinelsAndPatterns(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline", context.DeadlineExceeded, KindUnavailable},
		{"canceled", fmt.Errorf("query: %w", context.Canceled), KindUnavailable},
		{"bad conn", driver.ErrBadConn, KindUnavailable},
		{"invalid query", fmt.Errorf("%w: $in requires a list", query.ErrInvalid), KindBadRequest},
		{"unknown operator", fmt.Errorf("%w: $regex", query.ErrUnknownOperator), KindBadRequest},
		{"sqlite missing table", errors.New("SQL logic error: no such table: people (1)"), KindNotFound},
		{"unique", errors.New("UNIQUE constraint failed: people.email"), KindBadRequest},
		{"locked", errors.New("database is locked"), KindUnavailable},
		{"refused", errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), KindUnavailable},
		{"other", errors.New("something odd"), KindGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(Classify(dbcapabilities.SQLite, tt.err)))
		})
	}
}

func TestClassifyNeverRewraps(t *testing.T) {
	assert.Nil(t, Classify(dbcapabilities.Memory, nil))

	orig := NewForbidden("no access")
	assert.Same(t, orig, Classify(dbcapabilities.SQLite, orig))
	assert.Same(t, orig, Classify(dbcapabilities.SQLite, fmt.Errorf("wrapped: %w", orig)))
}

func TestErrorKinds(t *testing.T) {
	statuses := map[Kind]int{
		KindNotFound:      http.StatusNotFound,
		KindBadRequest:    http.StatusBadRequest,
		KindForbidden:     http.StatusForbidden,
		KindUnavailable:   http.StatusServiceUnavailable,
		KindUnprocessable: http.StatusUnprocessableEntity,
		KindGeneral:       http.StatusInternalServerError,
	}
	for _, k := range Kinds() {
		assert.Equal(t, statuses[k], k.Status(), k)
	}

	err := fmt.Errorf("get: %w", NewNotFound("no record with id %d", 7))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrBadRequest)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, KindGeneral, KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}
