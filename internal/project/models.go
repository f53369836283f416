package project

import "time"

// Project lifecycle states.
const (
	StatusPlanned = "planned"
	StatusActive  = "active"
	StatusOnHold  = "on_hold"
	StatusDone    = "done"
)

// Task states.
const (
	TaskOpen       = "open"
	TaskInProgress = "in_progress"
	TaskDone       = "done"
)

// Milestone states.
const (
	MilestonePending    = "pending"
	MilestoneInProgress = "in_progress"
	MilestoneDone       = "done"
)

// Project is a renovation project owned by a single user.
type Project struct {
	ID          string      `json:"id" bson:"_id,omitempty"`
	OwnerID     string      `json:"ownerId" bson:"ownerId"`
	Name        string      `json:"name" bson:"name"`
	Description string      `json:"description,omitempty" bson:"description,omitempty"`
	Address     string      `json:"address,omitempty" bson:"address,omitempty"`
	Status      string      `json:"status" bson:"status"` // planned | active | on_hold | done
	Milestones  []Milestone `json:"milestones" bson:"milestones"`
	CreatedAt   time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// Milestone is a dated phase of a project, embedded in the project document.
type Milestone struct {
	ID      string    `json:"id" bson:"id"`
	Name    string    `json:"name" bson:"name"`
	DueDate time.Time `json:"dueDate" bson:"dueDate"`
	Status  string    `json:"status" bson:"status"` // pending | in_progress | done
}

// Task is a unit of work inside a project, optionally attached to a milestone.
type Task struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	ProjectID    string    `json:"projectId" bson:"projectId"`
	MilestoneID  string    `json:"milestoneId,omitempty" bson:"milestoneId,omitempty"`
	Name         string    `json:"name" bson:"name"`
	Notes        string    `json:"notes,omitempty" bson:"notes,omitempty"`
	Status       string    `json:"status" bson:"status"` // open | in_progress | done
	CostEstimate float64   `json:"costEstimate" bson:"costEstimate"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// WorkItemTemplate is a reusable bundle of tasks for a common work item
// (e.g. "bathroom refit"). Applying it to a project instantiates its tasks.
type WorkItemTemplate struct {
	ID           string         `json:"id" bson:"_id,omitempty"`
	Name         string         `json:"name" bson:"name"`
	Category     string         `json:"category,omitempty" bson:"category,omitempty"`
	DefaultTasks []TemplateTask `json:"defaultTasks" bson:"defaultTasks"`
	CreatedAt    time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt" bson:"updatedAt"`
}

type TemplateTask struct {
	Name         string  `json:"name" bson:"name"`
	Notes        string  `json:"notes,omitempty" bson:"notes,omitempty"`
	CostEstimate float64 `json:"costEstimate" bson:"costEstimate"`
}

// BudgetSummary aggregates task cost estimates for one project.
type BudgetSummary struct {
	ProjectID      string             `json:"projectId"`
	TaskCount      int                `json:"taskCount"`
	EstimatedTotal float64            `json:"estimatedTotal"`
	ByStatus       map[string]float64 `json:"byStatus"`
}
