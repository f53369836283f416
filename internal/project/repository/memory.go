package repository

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/renoplan/renoplan/internal/project"
)

var (
	ErrNotFound = errors.New("not found")
)

// MemoryRepo is an in-memory repository used for unit tests and for running
// the service without a Mongo instance.
type MemoryRepo struct {
	mu        sync.RWMutex
	projects  map[string]*project.Project
	tasks     map[string]*project.Task
	templates map[string]*project.WorkItemTemplate
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		projects:  make(map[string]*project.Project),
		tasks:     make(map[string]*project.Task),
		templates: make(map[string]*project.WorkItemTemplate),
	}
}

func (m *MemoryRepo) CreateProject(p *project.Project) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Milestones == nil {
		p.Milestones = []project.Milestone{}
	}
	cp := *p
	m.projects[p.ID] = &cp
	return p.ID, nil
}

func (m *MemoryRepo) GetProject(id string) (*project.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.projects[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) ListProjects(ownerID string) ([]*project.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*project.Project{}
	for _, p := range m.projects {
		if p.OwnerID == ownerID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepo) UpdateProject(id string, upd project.ProjectUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return ErrNotFound
	}
	applyProjectUpdate(p, upd)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func applyProjectUpdate(p *project.Project, upd project.ProjectUpdate) {
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Address != nil {
		p.Address = *upd.Address
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
}

func (m *MemoryRepo) DeleteProject(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return ErrNotFound
	}
	delete(m.projects, id)
	// tasks do not outlive their project
	for tid, tsk := range m.tasks {
		if tsk.ProjectID == id {
			delete(m.tasks, tid)
		}
	}
	return nil
}

func (m *MemoryRepo) AddMilestone(projectID string, ms project.Milestone) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok {
		return "", ErrNotFound
	}
	if ms.ID == "" {
		ms.ID = uuid.NewString()
	}
	p.Milestones = append(p.Milestones, ms)
	p.UpdatedAt = time.Now().UTC()
	return ms.ID, nil
}

func (m *MemoryRepo) UpdateMilestoneStatus(projectID, milestoneID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok {
		return ErrNotFound
	}
	for i := range p.Milestones {
		if p.Milestones[i].ID == milestoneID {
			p.Milestones[i].Status = status
			p.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryRepo) CreateTask(t *project.Task) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[t.ProjectID]; !ok {
		return "", ErrNotFound
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	m.tasks[t.ID] = &cp
	return t.ID, nil
}

func (m *MemoryRepo) GetTask(id string) (*project.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.tasks[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) ListTasks(projectID string) ([]*project.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*project.Task{}
	for _, t := range m.tasks {
		if t.ProjectID == projectID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryRepo) UpdateTask(id string, upd project.TaskUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return ErrNotFound
	}
	applyTaskUpdate(t, upd)
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func applyTaskUpdate(t *project.Task, upd project.TaskUpdate) {
	if upd.Name != nil {
		t.Name = *upd.Name
	}
	if upd.Notes != nil {
		t.Notes = *upd.Notes
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.CostEstimate != nil {
		t.CostEstimate = *upd.CostEstimate
	}
	if upd.MilestoneID != nil {
		t.MilestoneID = *upd.MilestoneID
	}
}

func (m *MemoryRepo) DeleteTask(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *MemoryRepo) CreateTemplate(t *project.WorkItemTemplate) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	m.templates[t.ID] = &cp
	return t.ID, nil
}

func (m *MemoryRepo) GetTemplate(id string) (*project.WorkItemTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.templates[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryRepo) ListTemplates() ([]*project.WorkItemTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*project.WorkItemTemplate{}
	for _, t := range m.templates {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryRepo) DeleteTemplate(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return ErrNotFound
	}
	delete(m.templates, id)
	return nil
}
