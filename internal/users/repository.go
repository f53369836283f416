package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/renoplan/renoplan/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository defines persistence operations for users
type UserRepository interface {
	UpsertByIdpID(ctx context.Context, u *models.User) (*models.User, error)
	GetByIdpID(ctx context.Context, idpUserID string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// MongoUserRepository implements UserRepository using MongoDB
type MongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository creates a new repository for the given collection
func NewMongoUserRepository(col *mongo.Collection) *MongoUserRepository {
	// unique index on the provider subject keeps the upsert race-free
	idx := mongo.IndexModel{Keys: bson.D{{Key: "idpUserId", Value: 1}}, Options: options.Index().SetUnique(true)}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &MongoUserRepository{col: col}
}

func (r *MongoUserRepository) UpsertByIdpID(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()

	filter := bson.M{"idpUserId": u.IdpUserID}
	update := bson.M{
		"$set": bson.M{
			"email":       u.Email,
			"name":        u.Name,
			"phone":       u.Phone,
			"company":     u.Company,
			"lastLoginAt": now,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{
			"_id":       uuid.NewString(),
			"idpUserId": u.IdpUserID,
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var updated models.User
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			// Shouldn't happen because of upsert, but handle gracefully
			return u, nil
		}
		return nil, err
	}
	return &updated, nil
}

func (r *MongoUserRepository) GetByIdpID(ctx context.Context, idpUserID string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"idpUserId": idpUserID}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
