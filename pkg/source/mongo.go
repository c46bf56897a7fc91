package source

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/kinview/pkg/errors"
	"github.com/matzehuels/kinview/pkg/family"
)

// Mongo reads records from one collection. Documents use the same field
// names as the JSON record format; each record's Payload holds the raw BSON
// document.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	filter bson.M
}

// NewMongo connects and pings the server.
func NewMongo(ctx context.Context, opts Options) (*Mongo, error) {
	if opts.MongoURI == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mongo uri is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.MongoURI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongo")
	}
	db, coll := opts.Database, opts.Collection
	if db == "" {
		db = "kinview"
	}
	if coll == "" {
		coll = "people"
	}
	filter := bson.M{}
	for k, v := range opts.Filter {
		filter[k] = v
	}
	return &Mongo{
		client: client,
		coll:   client.Database(db).Collection(coll),
		filter: filter,
	}, nil
}

// Load returns every matching document in ascending id order.
func (m *Mongo) Load(ctx context.Context) ([]family.PersonRecord, error) {
	cur, err := m.coll.Find(ctx, m.filter, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "query %s", m.coll.Name())
	}
	defer cur.Close(ctx)

	var records []family.PersonRecord
	for cur.Next(ctx) {
		var r family.PersonRecord
		if err := cur.Decode(&r); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidRecords, err, "decode document %d", len(records))
		}
		// cur.Current is reused by the next call.
		r.Payload = bson.Raw(append([]byte(nil), cur.Current...))
		records = append(records, r)
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "iterate %s", m.coll.Name())
	}
	return records, nil
}

// Replace deletes the matching documents and inserts records.
func (m *Mongo) Replace(ctx context.Context, records []family.PersonRecord) error {
	if _, err := m.coll.DeleteMany(ctx, m.filter); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "clear %s", m.coll.Name())
	}
	if len(records) == 0 {
		return nil
	}
	docs := make([]any, len(records))
	for i, r := range records {
		docs[i] = r
	}
	if _, err := m.coll.InsertMany(ctx, docs); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "insert into %s", m.coll.Name())
	}
	return nil
}

func (m *Mongo) Close(ctx context.Context) error { return m.client.Disconnect(ctx) }
