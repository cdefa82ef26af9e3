package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"shootinggallery/internal/models"
	"shootinggallery/internal/store"
)

func (s *Store) SaveSession(ctx context.Context, sess *models.GameSession) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.D{{Key: "session_id", Value: sess.SessionID}}
	opts := options.Replace().SetUpsert(true)

	startTime := time.Now()
	result, err := s.sessions.ReplaceOne(ctx, filter, toSessionDoc(sess), opts)
	if err != nil {
		return wrap("saving session", err)
	}
	s.log.Debug("session saved",
		zap.String("sessionId", sess.SessionID),
		zap.Int64("matched", result.MatchedCount),
		zap.Bool("upserted", result.UpsertedID != nil),
		zap.Duration("cost", time.Since(startTime)))
	return nil
}

func (s *Store) FindSession(ctx context.Context, sessionID string) (*models.GameSession, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc sessionDoc
	err := s.sessions.FindOne(ctx, bson.D{{Key: "session_id", Value: sessionID}}).Decode(&doc)
	if err != nil {
		return nil, wrap("getting session", err)
	}
	return doc.model(), nil
}

func (s *Store) UpsertUserByName(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.D{{Key: "username", Value: username}}
	update := bson.D{{Key: "$setOnInsert", Value: bson.D{
		{Key: "username", Value: username},
		{Key: "email", Value: models.PlaceholderEmail(username)},
		{Key: "created_at", Value: time.Now()},
	}}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc userDoc
	if err := s.users.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return nil, wrap("upserting user", err)
	}
	return doc.model(), nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc := userDoc{
		Username:  u.Username,
		Email:     u.Email,
		Age:       u.Age,
		Mode:      string(u.Mode),
		CreatedAt: u.CreatedAt,
	}
	result, err := s.users.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicateUser
	}
	if err != nil {
		return wrap("creating user", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		u.ID = id.Hex()
	}
	return nil
}

func (s *Store) InsertScore(ctx context.Context, sc *models.Score) error {
	userID, err := primitive.ObjectIDFromHex(sc.UserID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", sc.UserID, err)
	}
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc := scoreDoc{
		User:       userID,
		SessionID:  sc.SessionID,
		Score:      sc.Score,
		Accuracy:   sc.Accuracy,
		GameMode:   string(sc.GameMode),
		TimePlayed: sc.TimePlayed,
		CreatedAt:  sc.CreatedAt,
	}
	result, err := s.scores.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicateScore
	}
	if err != nil {
		return wrap("inserting score", err)
	}
	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		sc.ID = id.Hex()
	}
	return nil
}

func (s *Store) TopScores(ctx context.Context, mode string, limit int) ([]models.LeaderboardEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pipeline := mongo.Pipeline{}
	if mode != store.AllModes {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{{Key: "game_mode", Value: mode}}}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "score", Value: -1}, {Key: "created_at", Value: 1}}}},
		bson.D{{Key: "$limit", Value: limit}},
	)
	pipeline = append(pipeline, withUsername()...)

	cursor, err := s.scores.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrap("getting leaderboard", err)
	}
	defer cursor.Close(ctx)

	var docs []entryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrap("decoding leaderboard", err)
	}
	entries := make([]models.LeaderboardEntry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, d.model())
	}
	return entries, nil
}

func (s *Store) BestScore(ctx context.Context, username string, mode models.GameMode) (*models.LeaderboardEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var user userDoc
	if err := s.users.FindOne(ctx, bson.D{{Key: "username", Value: username}}).Decode(&user); err != nil {
		return nil, wrap("getting user", err)
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "score", Value: -1}})
	var sc scoreDoc
	filter := bson.D{{Key: "user", Value: user.ID}, {Key: "game_mode", Value: string(mode)}}
	if err := s.scores.FindOne(ctx, filter, opts).Decode(&sc); err != nil {
		return nil, wrap("getting best score", err)
	}
	return &models.LeaderboardEntry{
		Username:   user.Username,
		Score:      sc.Score,
		Accuracy:   sc.Accuracy,
		GameMode:   models.GameMode(sc.GameMode),
		TimePlayed: sc.TimePlayed,
		CreatedAt:  sc.CreatedAt,
	}, nil
}

// withUsername resolves the score's user reference to the owner's display name.
func withUsername() mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: UserCollectionName},
			{Key: "localField", Value: "user"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "owner"},
		}}},
		bson.D{{Key: "$unwind", Value: "$owner"}},
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "username", Value: "$owner.username"},
			{Key: "score", Value: 1},
			{Key: "accuracy", Value: 1},
			{Key: "game_mode", Value: 1},
			{Key: "time_played", Value: 1},
			{Key: "created_at", Value: 1},
		}}},
	}
}
