package sessions

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository provides session persistence operations. Lookups return
// (nil, nil) for missing sessions; UpdateTokens returns ErrNotFound instead
// because callers must distinguish "updated" from "raced with a delete".
type Repository interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	GetByAccessToken(ctx context.Context, token string) (*Session, error)
	GetByRefreshToken(ctx context.Context, token string) (*Session, error)
	ListForUser(ctx context.Context, userID string) ([]*Session, error)
	UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) (*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// MongoRepository implements Repository using a Mongo collection
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	// accessToken lookups and per-user listings are the hot paths
	idxs := []mongo.IndexModel{
		{Keys: bson.D{{Key: "accessToken", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}},
	}
	_, _ = col.Indexes().CreateMany(context.Background(), idxs)
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, s *Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func (r *MongoRepository) Get(ctx context.Context, id string) (*Session, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository) GetByAccessToken(ctx context.Context, token string) (*Session, error) {
	return r.findOne(ctx, bson.M{"accessToken": token})
}

func (r *MongoRepository) GetByRefreshToken(ctx context.Context, token string) (*Session, error) {
	return r.findOne(ctx, bson.M{"refreshToken": token})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*Session, error) {
	var s Session
	if err := r.col.FindOne(ctx, filter).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ListForUser returns the user's sessions newest-created-first. The ordering
// is part of the store contract.
func (r *MongoRepository) ListForUser(ctx context.Context, userID string) ([]*Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*Session{}
	for cur.Next(ctx) {
		var s Session
		if err := cur.Decode(&s); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, cur.Err()
}

// UpdateTokens atomically replaces the token pair and expiry. Single-document
// semantics guarantee a concurrent delete leaves either "updated" or "gone",
// never a half-written row.
func (r *MongoRepository) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) (*Session, error) {
	update := bson.M{"$set": bson.M{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"expiresAt":    expiresAt,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var s Session
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	// deleting a nonexistent session is a no-op, not an error
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}

func (r *MongoRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
