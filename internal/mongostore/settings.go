package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"shootinggallery/internal/models"
)

func (s *Store) FindModeSettings(ctx context.Context, mode models.GameMode) (*models.ModeSettings, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.D{{Key: "mode", Value: string(mode)}, {Key: "is_active", Value: true}}
	var doc settingsDoc
	if err := s.settings.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, wrap("getting settings", err)
	}
	ms := doc.model()
	return &ms, nil
}

func (s *Store) ListModeSettings(ctx context.Context) ([]models.ModeSettings, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "mode", Value: 1}})
	cursor, err := s.settings.Find(ctx, bson.D{{Key: "is_active", Value: true}}, opts)
	if err != nil {
		return nil, wrap("listing settings", err)
	}
	defer cursor.Close(ctx)

	var docs []settingsDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrap("decoding settings", err)
	}
	all := make([]models.ModeSettings, 0, len(docs))
	for _, d := range docs {
		all = append(all, d.model())
	}
	return all, nil
}

// UpsertModeSettings replaces the fields of the record for ms.Mode, keeping the
// original creation time.
func (s *Store) UpsertModeSettings(ctx context.Context, ms *models.ModeSettings) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now()
	filter := bson.D{{Key: "mode", Value: string(ms.Mode)}}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "target_speed", Value: ms.TargetSpeed},
			{Key: "target_size", Value: ms.TargetSize},
			{Key: "target_count", Value: ms.TargetCount},
			{Key: "game_time_seconds", Value: ms.GameTimeSeconds},
			{Key: "points_per_hit", Value: ms.PointsPerHit},
			{Key: "is_active", Value: ms.IsActive},
			{Key: "updated_at", Value: now},
		}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "created_at", Value: now}}},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc settingsDoc
	if err := s.settings.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return wrap("upserting settings", err)
	}
	ms.CreatedAt = doc.CreatedAt
	ms.UpdatedAt = doc.UpdatedAt
	return nil
}
