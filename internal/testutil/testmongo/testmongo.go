//go:build testutil
// +build testutil

package testmongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/etuitionbd/etuition-be/internal/database"
	"github.com/google/uuid"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Handle owns a single-node replica set container. Transactions need a
// replica set, so a standalone mongod is not enough.
type Handle struct {
	Client *mongo.Client
	cancel func()
	stop   func(context.Context) error
}

func (h *Handle) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if h.Client != nil {
		_ = h.Client.Disconnect(ctx)
	}
	if h.stop != nil {
		_ = h.stop(ctx)
	}
	if h.cancel != nil {
		h.cancel()
	}
}

func Start(ctx context.Context) (*Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			Cmd:          []string{"--replSet", "rs0", "--bind_ip_all"},
			WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		cancel()
		return nil, err
	}
	fail := func(err error) (*Handle, error) {
		_ = c.Terminate(context.Background())
		cancel()
		return nil, err
	}

	code, out, err := c.Exec(ctx, []string{"mongosh", "--quiet", "--eval", "rs.initiate()"})
	if err != nil {
		return fail(err)
	}
	if code != 0 {
		msg, _ := io.ReadAll(out)
		return fail(fmt.Errorf("rs.initiate exited %d: %s", code, strings.TrimSpace(string(msg))))
	}

	host, err := c.Host(ctx)
	if err != nil {
		return fail(err)
	}
	port, err := c.MappedPort(ctx, "27017/tcp")
	if err != nil {
		return fail(err)
	}

	uri := fmt.Sprintf("mongodb://%s:%s/?directConnection=true", host, port.Port())
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fail(err)
	}
	if err := waitPrimary(ctx, client); err != nil {
		_ = client.Disconnect(context.Background())
		return fail(err)
	}

	return &Handle{
		Client: client,
		cancel: cancel,
		stop:   c.Terminate,
	}, nil
}

// NewDatabase returns a freshly migrated database with a unique name, so
// tests sharing one container never see each other's documents.
func (h *Handle) NewDatabase(ctx context.Context) (*database.Database, error) {
	name := "etuition_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	db := database.Wrap(h.Client, name)
	if err := database.Migrate(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

func waitPrimary(ctx context.Context, client *mongo.Client) error {
	dead := time.Now().Add(30 * time.Second)
	for time.Now().Before(dead) {
		var hello struct {
			IsWritablePrimary bool `bson:"isWritablePrimary"`
		}
		err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
		if err == nil && hello.IsWritablePrimary {
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return errors.New("replica set primary not ready")
}
