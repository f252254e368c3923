// Package mongodb implements the MongoDB backend. Filters are translated to
// native filter documents rather than compiled to SQL; see Translator.
//
// Records map one-to-one onto documents. With the default id field "_id",
// generated ids are ObjectIDs and are exposed as their hex string. With any
// other id field the backend generates UUID strings and hides _id.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/redbco/wings/pkg/adapter"
	"github.com/redbco/wings/pkg/dbcapabilities"
	"github.com/redbco/wings/pkg/logger"
	"github.com/redbco/wings/pkg/query"
	"github.com/redbco/wings/pkg/record"
)

// DefaultIDField is the id field when Config.ID is empty.
const DefaultIDField = "_id"

// Config configures a Backend.
type Config struct {
	// Collection is the collection the backend reads and writes.
	Collection string
	ID         string
	Strict     bool
	Logger     *logger.Logger
}

// Backend is a MongoDB collection.
type Backend struct {
	client  *mongo.Client
	coll    *mongo.Collection
	idField string
	tr      Translator
	log     *logger.Logger
}

// New serves cfg.Collection of db. The caller keeps ownership of the client.
func New(db *mongo.Database, cfg Config) (*Backend, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}
	if cfg.ID == "" {
		cfg.ID = DefaultIDField
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	return &Backend{
		coll:    db.Collection(cfg.Collection),
		idField: cfg.ID,
		tr:      Translator{IDField: cfg.ID, Strict: cfg.Strict},
		log:     cfg.Logger,
	}, nil
}

// Connect creates a client for uri and pings the primary.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	// Create client and connect (in v2, Connect handles both creation and connection)
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Test the connection
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return client, nil
}

// Open connects to uri and serves cfg.Collection of database. Close
// disconnects the client.
func Open(ctx context.Context, uri, database string, cfg Config) (*Backend, error) {
	if database == "" {
		return nil, fmt.Errorf("%w: mongodb connection string requires a database name", adapter.ErrInvalidConfiguration)
	}
	client, err := Connect(ctx, uri)
	if err != nil {
		return nil, err
	}
	b, err := New(client.Database(database), cfg)
	if err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	b.client = client
	return b, nil
}

func (b *Backend) Descriptor() dbcapabilities.DatabaseID { return dbcapabilities.MongoDB }

func (b *Backend) IDField() string { return b.idField }

// Collection returns the underlying collection.
func (b *Backend) Collection() *mongo.Collection { return b.coll }

// Close disconnects the client if the backend opened it.
func (b *Backend) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Disconnect(context.Background())
}

// Find runs the filter, projection, sort and window of p.
func (b *Backend) Find(ctx context.Context, p *query.Params) ([]*record.Record, error) {
	if p == nil {
		p = &query.Params{}
	}
	filter, err := b.tr.Filter(p.Filter)
	if err != nil {
		return nil, err
	}
	if p.Limit != nil && *p.Limit == 0 {
		// A zero limit means unlimited to the server.
		return []*record.Record{}, nil
	}

	opts := b.findOptions(p.Select)
	if p.Limit != nil {
		opts.SetLimit(int64(*p.Limit))
	}
	if p.Skip > 0 {
		opts.SetSkip(int64(p.Skip))
	}
	if len(p.Sort) > 0 {
		sort := make(bson.D, len(p.Sort))
		for i, s := range p.Sort {
			sort[i] = bson.E{Key: s.Field, Value: int(s.Direction)}
		}
		opts.SetSort(sort)
	}
	return b.find(ctx, filter, opts)
}

func (b *Backend) findOptions(selection []string) *options.FindOptionsBuilder {
	opts := options.Find()
	hideID := b.idField != "_id"
	if selection == nil {
		if hideID {
			opts.SetProjection(bson.D{{Key: "_id", Value: 0}})
		}
		return opts
	}

	proj := make(bson.D, 0, len(selection)+1)
	for _, f := range selection {
		if f == "_id" {
			hideID = false
		}
		proj = append(proj, bson.E{Key: f, Value: 1})
	}
	if hideID {
		proj = append(proj, bson.E{Key: "_id", Value: 0})
	}
	return opts.SetProjection(proj)
}

func (b *Backend) find(ctx context.Context, filter bson.D, opts *options.FindOptionsBuilder) ([]*record.Record, error) {
	b.log.Debug("Finding documents in %s: %v", b.coll.Name(), filter)

	cursor, err := b.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := []*record.Record{}
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding document: %w", err)
		}
		r, err := decodeDocument(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count counts the documents matching f.
func (b *Backend) Count(ctx context.Context, f *query.Filter) (int64, error) {
	filter, err := b.tr.Filter(f)
	if err != nil {
		return 0, err
	}
	return b.coll.CountDocuments(ctx, filter)
}

// Insert stores the records in one ordered InsertMany. Records without an id
// get a generated one.
func (b *Backend) Insert(ctx context.Context, records []*record.Record) ([]*record.Record, error) {
	if len(records) == 0 {
		return []*record.Record{}, nil
	}
	docs := make([]bson.D, len(records))
	for i, in := range records {
		rec := in.Clone()
		if record.IsNull(rec.Value(b.idField)) {
			rec.Set(b.idField, b.newID())
		}
		docs[i] = encodeRecord(rec, b.idField)
	}

	if _, err := b.coll.InsertMany(ctx, docs); err != nil {
		return nil, err
	}

	out := make([]*record.Record, len(docs))
	for i, doc := range docs {
		r, err := decodeDocument(doc)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (b *Backend) newID() record.Value {
	if b.idField == "_id" {
		return record.String(bson.NewObjectID().Hex())
	}
	return record.String(uuid.NewString())
}

// Update sets data on every document matching f and returns them.
func (b *Backend) Update(ctx context.Context, f *query.Filter, data *record.Record) ([]*record.Record, error) {
	filter, err := b.tr.Filter(f)
	if err != nil {
		return nil, err
	}
	if data.Len() == 0 {
		return b.find(ctx, filter, b.findOptions(nil))
	}

	scope, ok, err := b.scope(ctx, filter)
	if err != nil || !ok {
		return []*record.Record{}, err
	}
	set := make(bson.D, 0, data.Len())
	for _, k := range data.Keys() {
		set = append(set, bson.E{Key: k, Value: encodeValue(data.Value(k))})
	}
	if _, err := b.coll.UpdateMany(ctx, scope, bson.D{{Key: "$set", Value: set}}); err != nil {
		return nil, err
	}
	return b.find(ctx, scope, b.findOptions(nil))
}

// Delete removes every document matching f and returns them.
func (b *Backend) Delete(ctx context.Context, f *query.Filter) ([]*record.Record, error) {
	filter, err := b.tr.Filter(f)
	if err != nil {
		return nil, err
	}
	scope, ok, err := b.scope(ctx, filter)
	if err != nil || !ok {
		return []*record.Record{}, err
	}
	snapshot, err := b.find(ctx, scope, b.findOptions(nil))
	if err != nil {
		return nil, err
	}
	if _, err := b.coll.DeleteMany(ctx, scope); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Clear deletes every document in the collection.
func (b *Backend) Clear(ctx context.Context) error {
	_, err := b.coll.DeleteMany(ctx, bson.D{})
	return err
}

// scope resolves filter to the ids it matches now, so a write and the read
// that reports it address the same documents. ok is false when nothing
// matches.
func (b *Backend) scope(ctx context.Context, filter bson.D) (bson.D, bool, error) {
	cursor, err := b.coll.Find(ctx, filter, options.Find().SetProjection(bson.D{{Key: b.idField, Value: 1}}))
	if err != nil {
		return nil, false, err
	}
	defer cursor.Close(ctx)

	ids := bson.A{}
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return nil, false, fmt.Errorf("error decoding document: %w", err)
		}
		for _, e := range doc {
			if e.Key == b.idField {
				ids = append(ids, e.Value)
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, false, err
	}
	if len(ids) == 0 {
		return nil, false, nil
	}
	return bson.D{{Key: b.idField, Value: bson.D{{Key: "$in", Value: ids}}}}, true, nil
}

// inspect extracts the server error code from driver errors.
func inspect(err error) (adapter.Detail, bool) {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return adapter.Detail{Number: int(ce.Code), Name: ce.Name}, true
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		if len(we.WriteErrors) > 0 {
			return adapter.Detail{Number: we.WriteErrors[0].Code}, true
		}
		if we.WriteConcernError != nil {
			return adapter.Detail{Number: we.WriteConcernError.Code, Name: we.WriteConcernError.Name}, true
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		if len(bwe.WriteErrors) > 0 {
			return adapter.Detail{Number: bwe.WriteErrors[0].Code}, true
		}
		if bwe.WriteConcernError != nil {
			return adapter.Detail{Number: bwe.WriteConcernError.Code, Name: bwe.WriteConcernError.Name}, true
		}
	}
	return adapter.Detail{}, false
}
