package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	UsersCollection        = "users"
	TuitionsCollection     = "tuitions"
	ApplicationsCollection = "applications"
)

// Database is the process-wide data-access context. It is created once in
// main, handed to every service and closed on shutdown.
type Database struct {
	client *mongo.Client
	db     *mongo.Database

	Users        *mongo.Collection
	Tuitions     *mongo.Collection
	Applications *mongo.Collection
}

// New connects to MongoDB and verifies the connection with a ping.
func New(ctx context.Context, uri, name string) (*Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping: %w", err)
	}
	return Wrap(client, name), nil
}

// Wrap builds a Database around an already connected client.
func Wrap(client *mongo.Client, name string) *Database {
	db := client.Database(name)
	return &Database{
		client:       client,
		db:           db,
		Users:        db.Collection(UsersCollection),
		Tuitions:     db.Collection(TuitionsCollection),
		Applications: db.Collection(ApplicationsCollection),
	}
}

// Migrate creates the indexes the services rely on. The unique indexes are
// what enforce one user per email and one application per tutor and tuition.
func Migrate(ctx context.Context, d *Database) error {
	indexes := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{d.Users, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		}},
		{d.Tuitions, []mongo.IndexModel{
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "postedAt", Value: -1}}},
			{Keys: bson.D{{Key: "studentEmail", Value: 1}}},
		}},
		{d.Applications, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "tuitionId", Value: 1}, {Key: "tutorEmail", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("tuition_tutor_unique"),
			},
			{Keys: bson.D{{Key: "tutorEmail", Value: 1}, {Key: "status", Value: 1}}},
		}},
	}
	for _, ix := range indexes {
		if _, err := ix.coll.Indexes().CreateMany(ctx, ix.models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", ix.coll.Name(), err)
		}
	}
	return nil
}

// Ping checks the primary is reachable.
func (d *Database) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}

// WithTransaction runs fn inside a multi-document transaction. fn must use
// the context it is given so its operations join the session. The
// transaction is attempted once; a failed commit is returned, not retried.
func (d *Database) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := d.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return fmt.Errorf("start transaction: %w", err)
		}
		if err := fn(sc); err != nil {
			_ = sc.AbortTransaction(context.Background())
			return err
		}
		if err := sc.CommitTransaction(sc); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		return nil
	})
}

// Drop removes the whole database. Used by tests.
func (d *Database) Drop(ctx context.Context) error {
	return d.db.Drop(ctx)
}

// Close disconnects the client, waiting at most timeout for in-flight work.
func (d *Database) Close(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return d.client.Disconnect(ctx)
}
