package storage

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/multichain-watcher/internal/models"
	"github.com/smartdevs17/multichain-watcher/pkg/utils"
)

const mongoCollection = "tracked_addresses"

// scopeDocument is the single document holding one scope's address set
type scopeDocument struct {
	Scope     string    `bson:"_id"`
	Addresses []string  `bson:"addresses"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStorage implements AddressStore using MongoDB, one document per scope
type MongoStorage struct {
	client *mongo.Client
	coll   *mongo.Collection
	config *StorageConfig
	logger *logrus.Entry
}

// NewMongoStorage creates a new MongoDB storage instance
func NewMongoStorage(config *StorageConfig) *MongoStorage {
	return &MongoStorage{
		config: config,
		logger: utils.ComponentLogger("storage").WithField("backend", "mongo"),
	}
}

// Connect establishes the client and verifies the primary is reachable
func (m *MongoStorage) Connect(ctx context.Context) error {
	opts := options.Client().ApplyURI(m.config.ConnectionString)
	if m.config.MaxConnections > 0 {
		opts.SetMaxPoolSize(uint64(m.config.MaxConnections))
	}
	if m.config.MaxIdleTime > 0 {
		opts.SetMaxConnIdleTime(m.config.MaxIdleTime)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to connect to MongoDB", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to ping MongoDB", err)
	}

	database := m.config.Database
	if database == "" {
		database = "watcher"
	}
	m.client = client
	m.coll = client.Database(database).Collection(mongoCollection)
	m.logger.WithField("database", database).Info("MongoDB connected")
	return nil
}

// Close disconnects the client
func (m *MongoStorage) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := m.client.Disconnect(ctx)
	m.client = nil
	return err
}

// Ping checks database connectivity
func (m *MongoStorage) Ping(ctx context.Context) error {
	if m.client == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return m.client.Ping(ctx, readpref.Primary())
}

// Migrate is a no-op; documents are keyed by scope
func (m *MongoStorage) Migrate(ctx context.Context) error { return nil }

// Load returns the addresses tracked under scope
func (m *MongoStorage) Load(ctx context.Context, scope models.ScopeKey) ([]string, error) {
	if m.coll == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	var doc scopeDocument
	err := m.coll.FindOne(ctx, bson.M{"_id": string(scope)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []string{}, nil
	}
	if err != nil {
		return nil, utils.WrapError(utils.ErrCodeDatabase, "Failed to load tracked addresses", err)
	}
	if doc.Addresses == nil {
		return []string{}, nil
	}
	return doc.Addresses, nil
}

// Persist replaces the scope document
func (m *MongoStorage) Persist(ctx context.Context, scope models.ScopeKey, addresses []string) error {
	if m.coll == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	doc := scopeDocument{
		Scope:     string(scope),
		Addresses: addresses,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": string(scope)}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return utils.WrapError(utils.ErrCodeDatabase, "Failed to persist tracked addresses", err)
	}
	return nil
}
