package mongodb

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/redbco/wings/internal/database/dbtest"
	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/dbcapabilities"
	"github.com/redbco/wings/pkg/record"
)

func TestDocumentConversion(t *testing.T) {
	oid := bson.NewObjectID()
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	r, err := decodeDocument(bson.D{
		{Key: "_id", Value: oid},
		{Key: "n", Value: int32(3)},
		{Key: "f", Value: 1.5},
		{Key: "at", Value: bson.NewDateTimeFromTime(when)},
		{Key: "raw", Value: bson.Binary{Data: []byte{1}}},
		{Key: "tags", Value: bson.A{"a", "b"}},
		{Key: "meta", Value: bson.D{{Key: "k", Value: "v"}}},
		{Key: "none", Value: nil},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"_id", "n", "f", "at", "raw", "tags", "meta", "none"}, r.Keys())
	assert.Equal(t, record.String(oid.Hex()), r.Value("_id"))
	assert.Equal(t, record.Int(3), r.Value("n"))
	assert.Equal(t, record.Float(1.5), r.Value("f"))
	assert.True(t, record.Equal(record.Time(when), r.Value("at")))
	assert.Equal(t, record.Bytes{1}, r.Value("raw"))
	assert.Equal(t, record.String(`["a","b"]`), r.Value("tags"))
	assert.Equal(t, record.String(`{"k":"v"}`), r.Value("meta"))
	assert.Equal(t, record.Null{}, r.Value("none"))

	doc := encodeRecord(record.From("name", "x", "_id", oid.Hex()), "_id")
	assert.Equal(t, bson.D{{Key: "_id", Value: oid}, {Key: "name", Value: "x"}}, doc)
}

func TestClassifyDriverErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want adapter.Kind
	}{
		{"duplicate key", mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}, adapter.KindBadRequest},
		{"bulk duplicate", mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{{WriteError: mongo.WriteError{Code: 11000, Message: "E11000"}}}}, adapter.KindBadRequest},
		{"unauthorized", mongo.CommandError{Code: 13, Name: "Unauthorized", Message: "not authorized on app"}, adapter.KindForbidden},
		{"namespace", mongo.CommandError{Code: 26, Name: "NamespaceNotFound", Message: "ns not found"}, adapter.KindNotFound},
		{"not primary", mongo.CommandError{Code: 10107, Name: "NotWritablePrimary", Message: "not primary"}, adapter.KindUnavailable},
		{"other", errors.New("something else"), adapter.KindGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := adapter.Classify(dbcapabilities.MongoDB, tt.err)
			assert.Equal(t, tt.want, adapter.KindOf(err))
		})
	}
}

// TestBackendSuite runs against the server named by WINGS_MONGODB_URI.
func TestBackendSuite(t *testing.T) {
	uri := os.Getenv("WINGS_MONGODB_URI")
	if uri == "" {
		t.Skip("WINGS_MONGODB_URI not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { client.Disconnect(context.Background()) })
	db := client.Database("wings_test")

	newBackend := func(t *testing.T, id string) *Backend {
		name := "people_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		t.Cleanup(func() { db.Collection(name).Drop(context.Background()) })
		b, err := New(db, Config{Collection: name, ID: id})
		require.NoError(t, err)
		return b
	}

	dbtest.Run(t, func(t *testing.T) adapter.Backend {
		return newBackend(t, "")
	})

	t.Run("CustomIDField", func(t *testing.T) {
		b := newBackend(t, "id")
		out, err := b.Insert(ctx, []*record.Record{record.From("name", "Alice")})
		require.NoError(t, err)
		id, ok := out[0].Value("id").(record.String)
		require.True(t, ok)
		_, err = uuid.Parse(string(id))
		require.NoError(t, err)

		rows, err := b.Find(ctx, nil)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, []string{"id", "name"}, rows[0].Keys())
	})
}
