package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const collectionSettings = "settings"

// SettingsRepository reads mutable runtime settings (provider API keys and
// the like) from the settings collection. Lookups happen on every use so
// an admin edit takes effect without a restart; nothing is cached here.
type SettingsRepository struct {
	col *mongo.Collection
}

func NewSettingsRepository(db *mongo.Database) *SettingsRepository {
	return &SettingsRepository{col: db.Collection(collectionSettings)}
}

type settingDoc struct {
	Key   string `bson:"key"`
	Value string `bson:"value"`
}

// GetString returns the value for key, or ("", nil) when the key is not
// set. Callers treat an empty value as absent and fall back to their
// static default.
func (r *SettingsRepository) GetString(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc settingDoc
	err := r.col.FindOne(ctx, bson.M{"key": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", err
	}
	return doc.Value, nil
}
