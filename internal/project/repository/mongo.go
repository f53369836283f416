package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/renoplan/renoplan/internal/project"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements a MongoDB-backed repository for projects, tasks and
// work-item templates, spread over three collections.
type MongoRepo struct {
	projects  *mongo.Collection
	tasks     *mongo.Collection
	templates *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	projects := db.Collection("projects")
	tasks := db.Collection("tasks")
	templates := db.Collection("templates")
	_, _ = projects.Indexes().CreateOne(context.Background(),
		mongo.IndexModel{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}}})
	_, _ = tasks.Indexes().CreateOne(context.Background(),
		mongo.IndexModel{Keys: bson.D{{Key: "projectId", Value: 1}, {Key: "createdAt", Value: 1}}})
	return &MongoRepo{projects: projects, tasks: tasks, templates: templates}
}

func (m *MongoRepo) CreateProject(p *project.Project) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Milestones == nil {
		p.Milestones = []project.Milestone{}
	}
	if _, err := m.projects.InsertOne(context.Background(), p); err != nil {
		return "", err
	}
	return p.ID, nil
}

func (m *MongoRepo) GetProject(id string) (*project.Project, error) {
	var p project.Project
	if err := m.projects.FindOne(context.Background(), bson.M{"_id": id}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (m *MongoRepo) ListProjects(ownerID string) ([]*project.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := m.projects.Find(context.Background(), bson.M{"ownerId": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(context.Background())
	out := []*project.Project{}
	for cur.Next(context.Background()) {
		var p project.Project
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, cur.Err()
}

func (m *MongoRepo) UpdateProject(id string, upd project.ProjectUpdate) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Address != nil {
		set["address"] = *upd.Address
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	res, err := m.projects.UpdateOne(context.Background(), bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) DeleteProject(id string) error {
	res, err := m.projects.DeleteOne(context.Background(), bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	_, err = m.tasks.DeleteMany(context.Background(), bson.M{"projectId": id})
	return err
}

func (m *MongoRepo) AddMilestone(projectID string, ms project.Milestone) (string, error) {
	if ms.ID == "" {
		ms.ID = uuid.NewString()
	}
	update := bson.M{
		"$push": bson.M{"milestones": ms},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := m.projects.UpdateOne(context.Background(), bson.M{"_id": projectID}, update)
	if err != nil {
		return "", err
	}
	if res.MatchedCount == 0 {
		return "", ErrNotFound
	}
	return ms.ID, nil
}

func (m *MongoRepo) UpdateMilestoneStatus(projectID, milestoneID, status string) error {
	filter := bson.M{"_id": projectID, "milestones.id": milestoneID}
	update := bson.M{"$set": bson.M{
		"milestones.$.status": status,
		"updatedAt":           time.Now().UTC(),
	}}
	res, err := m.projects.UpdateOne(context.Background(), filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) CreateTask(t *project.Task) (string, error) {
	if _, err := m.GetProject(t.ProjectID); err != nil {
		return "", err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := m.tasks.InsertOne(context.Background(), t); err != nil {
		return "", err
	}
	return t.ID, nil
}

func (m *MongoRepo) GetTask(id string) (*project.Task, error) {
	var t project.Task
	if err := m.tasks.FindOne(context.Background(), bson.M{"_id": id}).Decode(&t); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (m *MongoRepo) ListTasks(projectID string) ([]*project.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := m.tasks.Find(context.Background(), bson.M{"projectId": projectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(context.Background())
	out := []*project.Task{}
	for cur.Next(context.Background()) {
		var t project.Task
		if err := cur.Decode(&t); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, cur.Err()
}

func (m *MongoRepo) UpdateTask(id string, upd project.TaskUpdate) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Notes != nil {
		set["notes"] = *upd.Notes
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.CostEstimate != nil {
		set["costEstimate"] = *upd.CostEstimate
	}
	if upd.MilestoneID != nil {
		set["milestoneId"] = *upd.MilestoneID
	}
	res, err := m.tasks.UpdateOne(context.Background(), bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) DeleteTask(id string) error {
	res, err := m.tasks.DeleteOne(context.Background(), bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) CreateTemplate(t *project.WorkItemTemplate) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := m.templates.InsertOne(context.Background(), t); err != nil {
		return "", err
	}
	return t.ID, nil
}

func (m *MongoRepo) GetTemplate(id string) (*project.WorkItemTemplate, error) {
	var t project.WorkItemTemplate
	if err := m.templates.FindOne(context.Background(), bson.M{"_id": id}).Decode(&t); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (m *MongoRepo) ListTemplates() ([]*project.WorkItemTemplate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := m.templates.Find(context.Background(), bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(context.Background())
	out := []*project.WorkItemTemplate{}
	for cur.Next(context.Background()) {
		var t project.WorkItemTemplate
		if err := cur.Decode(&t); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, cur.Err()
}

func (m *MongoRepo) DeleteTemplate(id string) error {
	res, err := m.templates.DeleteOne(context.Background(), bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
