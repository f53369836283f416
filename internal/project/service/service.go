package service

import (
	"errors"
	"fmt"

	"github.com/renoplan/renoplan/internal/project"
	"github.com/renoplan/renoplan/internal/project/repository"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid input")
)

// Repository is the persistence contract shared by the in-memory and
// MongoDB implementations.
type Repository interface {
	CreateProject(p *project.Project) (string, error)
	GetProject(id string) (*project.Project, error)
	ListProjects(ownerID string) ([]*project.Project, error)
	UpdateProject(id string, upd project.ProjectUpdate) error
	DeleteProject(id string) error

	AddMilestone(projectID string, ms project.Milestone) (string, error)
	UpdateMilestoneStatus(projectID, milestoneID, status string) error

	CreateTask(t *project.Task) (string, error)
	GetTask(id string) (*project.Task, error)
	ListTasks(projectID string) ([]*project.Task, error)
	UpdateTask(id string, upd project.TaskUpdate) error
	DeleteTask(id string) error

	CreateTemplate(t *project.WorkItemTemplate) (string, error)
	GetTemplate(id string) (*project.WorkItemTemplate, error)
	ListTemplates() ([]*project.WorkItemTemplate, error)
	DeleteTemplate(id string) error
}

// Service defines the project business operations used by the handler layer.
type Service interface {
	CreateProject(ownerID, name, description, address string) (*project.Project, error)
	GetProject(id string) (*project.Project, error)
	ListProjects(ownerID string) ([]*project.Project, error)
	UpdateProject(id string, upd project.ProjectUpdate) error
	DeleteProject(id string) error

	AddMilestone(projectID string, ms project.Milestone) (string, error)
	UpdateMilestoneStatus(projectID, milestoneID, status string) error

	CreateTask(t *project.Task) (string, error)
	GetTask(id string) (*project.Task, error)
	ListTasks(projectID string) ([]*project.Task, error)
	UpdateTask(id string, upd project.TaskUpdate) error
	DeleteTask(id string) error

	CreateTemplate(t *project.WorkItemTemplate) (string, error)
	GetTemplate(id string) (*project.WorkItemTemplate, error)
	ListTemplates() ([]*project.WorkItemTemplate, error)
	DeleteTemplate(id string) error
	ApplyTemplate(projectID, templateID, milestoneID string) ([]*project.Task, error)

	Budget(projectID string) (*project.BudgetSummary, error)
}

func New(repo Repository) Service {
	return &svc{repo: repo}
}

type svc struct {
	repo Repository
}

var projectStatuses = map[string]bool{
	project.StatusPlanned: true,
	project.StatusActive:  true,
	project.StatusOnHold:  true,
	project.StatusDone:    true,
}

var taskStatuses = map[string]bool{
	project.TaskOpen:       true,
	project.TaskInProgress: true,
	project.TaskDone:       true,
}

var milestoneStatuses = map[string]bool{
	project.MilestonePending:    true,
	project.MilestoneInProgress: true,
	project.MilestoneDone:       true,
}

func (s *svc) CreateProject(ownerID, name, description, address string) (*project.Project, error) {
	if ownerID == "" || name == "" {
		return nil, fmt.Errorf("%w: owner and name are required", ErrInvalid)
	}
	p := &project.Project{
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Address:     address,
		Status:      project.StatusPlanned,
	}
	if _, err := s.repo.CreateProject(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *svc) GetProject(id string) (*project.Project, error) {
	p, err := s.repo.GetProject(id)
	if err != nil {
		return nil, mapErr(err)
	}
	return p, nil
}

func (s *svc) ListProjects(ownerID string) ([]*project.Project, error) {
	return s.repo.ListProjects(ownerID)
}

func (s *svc) UpdateProject(id string, upd project.ProjectUpdate) error {
	if upd.Status != nil && !projectStatuses[*upd.Status] {
		return fmt.Errorf("%w: unknown project status %q", ErrInvalid, *upd.Status)
	}
	if upd.Name != nil && *upd.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalid)
	}
	return mapErr(s.repo.UpdateProject(id, upd))
}

func (s *svc) DeleteProject(id string) error {
	return mapErr(s.repo.DeleteProject(id))
}

func (s *svc) AddMilestone(projectID string, ms project.Milestone) (string, error) {
	if ms.Name == "" {
		return "", fmt.Errorf("%w: milestone name is required", ErrInvalid)
	}
	if ms.Status == "" {
		ms.Status = project.MilestonePending
	}
	if !milestoneStatuses[ms.Status] {
		return "", fmt.Errorf("%w: unknown milestone status %q", ErrInvalid, ms.Status)
	}
	id, err := s.repo.AddMilestone(projectID, ms)
	if err != nil {
		return "", mapErr(err)
	}
	return id, nil
}

func (s *svc) UpdateMilestoneStatus(projectID, milestoneID, status string) error {
	if !milestoneStatuses[status] {
		return fmt.Errorf("%w: unknown milestone status %q", ErrInvalid, status)
	}
	return mapErr(s.repo.UpdateMilestoneStatus(projectID, milestoneID, status))
}

func (s *svc) CreateTask(t *project.Task) (string, error) {
	if t.Name == "" {
		return "", fmt.Errorf("%w: task name is required", ErrInvalid)
	}
	if t.Status == "" {
		t.Status = project.TaskOpen
	}
	if !taskStatuses[t.Status] {
		return "", fmt.Errorf("%w: unknown task status %q", ErrInvalid, t.Status)
	}
	if t.MilestoneID != "" {
		if err := s.milestoneExists(t.ProjectID, t.MilestoneID); err != nil {
			return "", err
		}
	}
	id, err := s.repo.CreateTask(t)
	if err != nil {
		return "", mapErr(err)
	}
	return id, nil
}

func (s *svc) milestoneExists(projectID, milestoneID string) error {
	p, err := s.repo.GetProject(projectID)
	if err != nil {
		return mapErr(err)
	}
	for _, ms := range p.Milestones {
		if ms.ID == milestoneID {
			return nil
		}
	}
	return fmt.Errorf("%w: milestone %s not in project", ErrInvalid, milestoneID)
}

func (s *svc) GetTask(id string) (*project.Task, error) {
	t, err := s.repo.GetTask(id)
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

func (s *svc) ListTasks(projectID string) ([]*project.Task, error) {
	if _, err := s.repo.GetProject(projectID); err != nil {
		return nil, mapErr(err)
	}
	return s.repo.ListTasks(projectID)
}

func (s *svc) UpdateTask(id string, upd project.TaskUpdate) error {
	if upd.Status != nil && !taskStatuses[*upd.Status] {
		return fmt.Errorf("%w: unknown task status %q", ErrInvalid, *upd.Status)
	}
	if upd.Name != nil && *upd.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalid)
	}
	if upd.MilestoneID != nil && *upd.MilestoneID != "" {
		t, err := s.repo.GetTask(id)
		if err != nil {
			return mapErr(err)
		}
		if err := s.milestoneExists(t.ProjectID, *upd.MilestoneID); err != nil {
			return err
		}
	}
	return mapErr(s.repo.UpdateTask(id, upd))
}

func (s *svc) DeleteTask(id string) error {
	return mapErr(s.repo.DeleteTask(id))
}

func (s *svc) CreateTemplate(t *project.WorkItemTemplate) (string, error) {
	if t.Name == "" {
		return "", fmt.Errorf("%w: template name is required", ErrInvalid)
	}
	for _, dt := range t.DefaultTasks {
		if dt.Name == "" {
			return "", fmt.Errorf("%w: template tasks need names", ErrInvalid)
		}
	}
	return s.repo.CreateTemplate(t)
}

func (s *svc) GetTemplate(id string) (*project.WorkItemTemplate, error) {
	t, err := s.repo.GetTemplate(id)
	if err != nil {
		return nil, mapErr(err)
	}
	return t, nil
}

func (s *svc) ListTemplates() ([]*project.WorkItemTemplate, error) {
	return s.repo.ListTemplates()
}

func (s *svc) DeleteTemplate(id string) error {
	return mapErr(s.repo.DeleteTemplate(id))
}

// ApplyTemplate instantiates every default task of the template inside the
// project, all in the open state. Tasks created before a failure stay created.
func (s *svc) ApplyTemplate(projectID, templateID, milestoneID string) ([]*project.Task, error) {
	tpl, err := s.repo.GetTemplate(templateID)
	if err != nil {
		return nil, mapErr(err)
	}
	if _, err := s.repo.GetProject(projectID); err != nil {
		return nil, mapErr(err)
	}
	if milestoneID != "" {
		if err := s.milestoneExists(projectID, milestoneID); err != nil {
			return nil, err
		}
	}
	created := []*project.Task{}
	for _, dt := range tpl.DefaultTasks {
		t := &project.Task{
			ProjectID:    projectID,
			MilestoneID:  milestoneID,
			Name:         dt.Name,
			Notes:        dt.Notes,
			Status:       project.TaskOpen,
			CostEstimate: dt.CostEstimate,
		}
		if _, err := s.repo.CreateTask(t); err != nil {
			return created, err
		}
		created = append(created, t)
	}
	return created, nil
}

// Budget sums task cost estimates for a project, broken down by task status.
func (s *svc) Budget(projectID string) (*project.BudgetSummary, error) {
	if _, err := s.repo.GetProject(projectID); err != nil {
		return nil, mapErr(err)
	}
	tasks, err := s.repo.ListTasks(projectID)
	if err != nil {
		return nil, err
	}
	sum := &project.BudgetSummary{
		ProjectID: projectID,
		ByStatus:  map[string]float64{},
	}
	for _, t := range tasks {
		sum.TaskCount++
		sum.EstimatedTotal += t.CostEstimate
		sum.ByStatus[t.Status] += t.CostEstimate
	}
	return sum, nil
}

func mapErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
