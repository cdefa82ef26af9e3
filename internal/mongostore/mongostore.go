// Package mongostore persists sessions, users, scores and mode settings in MongoDB, the document
// database the shooting gallery was originally built on.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"shootinggallery/internal/store"
)

const (
	UserCollectionName     = "users"
	SessionCollectionName  = "game_sessions"
	ScoreCollectionName    = "scores"
	SettingsCollectionName = "game_settings"
)

// Store is the MongoDB implementation of store.Store.
type Store struct {
	client   *mongo.Client
	users    *mongo.Collection
	sessions *mongo.Collection
	scores   *mongo.Collection
	settings *mongo.Collection
	timeout  time.Duration
	log      *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Connect dials MongoDB, verifies the connection and creates the indexes the
// store relies on for uniqueness.
func Connect(ctx context.Context, uri, database string, timeout time.Duration, log *zap.Logger) (*Store, error) {
	log = log.Named("mongo")

	clientOptions := options.Client().ApplyURI(uri).SetAppName("shooting-gallery")
	clientOptions.SetConnectTimeout(timeout)
	clientOptions.SetPoolMonitor(&event.PoolMonitor{
		Event: func(evt *event.PoolEvent) {
			switch evt.Type {
			case event.ConnectionCreated:
				log.Debug("database connection created", zap.String("address", evt.Address))
			case event.ConnectionClosed:
				log.Debug("database connection closed", zap.String("address", evt.Address), zap.String("reason", evt.Reason))
			}
		},
	})

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:   client,
		users:    db.Collection(UserCollectionName),
		sessions: db.Collection(SessionCollectionName),
		scores:   db.Collection(ScoreCollectionName),
		settings: db.Collection(SettingsCollectionName),
		timeout:  timeout,
		log:      log,
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, err
	}
	log.Info("connected to MongoDB", zap.String("database", database))
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.users, mongo.IndexModel{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_username_unique"),
		}},
		{s.sessions, mongo.IndexModel{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("sessions_session_id_unique"),
		}},
		{s.scores, mongo.IndexModel{
			Keys: bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("scores_session_id_unique").
				SetPartialFilterExpression(bson.D{{Key: "session_id", Value: bson.D{{Key: "$exists", Value: true}}}}),
		}},
		{s.scores, mongo.IndexModel{
			Keys:    bson.D{{Key: "game_mode", Value: 1}, {Key: "score", Value: -1}},
			Options: options.Index().SetName("scores_mode_score"),
		}},
		{s.settings, mongo.IndexModel{
			Keys:    bson.D{{Key: "mode", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("settings_mode_unique"),
		}},
	}
	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("creating index on %s: %w", idx.coll.Name(), err)
		}
	}
	return nil
}

// Ping checks the deployment is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	s.log.Info("closing database connection")
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func wrap(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
