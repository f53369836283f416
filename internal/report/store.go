package report

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/renoplan/renoplan/internal/database"
)

// PersistedReport is the Mongo representation of a generated budget report.
// The rendered document itself lives in object storage under ObjectKey; this
// record carries the metadata and the totals snapshot taken at generation time.
type PersistedReport struct {
	ReportID  string             `bson:"reportId" json:"reportId"`
	ProjectID string             `bson:"projectId" json:"projectId"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
	ObjectKey string             `bson:"objectKey,omitempty" json:"objectKey,omitempty"`
	TaskCount int                `bson:"taskCount" json:"taskCount"`
	Total     float64            `bson:"total" json:"total"`
	ByStatus  map[string]float64 `bson:"byStatus,omitempty" json:"byStatus,omitempty"`
}

// Save upserts report metadata into the given Mongo URI/db. If mongoURI is
// empty the function is a no-op.
func Save(ctx context.Context, mongoURI, databaseName string, pr *PersistedReport) error {
	if mongoURI == "" {
		return nil
	}
	client, err := database.ConnectMongo(ctx, mongoURI, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer client.Disconnect(ctx)

	col := client.Database(databaseName).Collection("budget_reports")
	filter := bson.M{"reportId": pr.ReportID}
	opts := options.Update().SetUpsert(true)
	rec := bson.M{"$set": pr}
	if _, err := col.UpdateOne(ctx, filter, rec, opts); err != nil {
		return fmt.Errorf("save budget report: %w", err)
	}
	return nil
}

// Load fetches a persisted report by reportId. Returns nil when not found.
func Load(ctx context.Context, mongoURI, databaseName, reportID string) (*PersistedReport, error) {
	if mongoURI == "" {
		return nil, nil
	}
	client, err := database.ConnectMongo(ctx, mongoURI, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	defer client.Disconnect(ctx)
	col := client.Database(databaseName).Collection("budget_reports")
	var pr PersistedReport
	if err := col.FindOne(ctx, bson.M{"reportId": reportID}).Decode(&pr); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &pr, nil
}
