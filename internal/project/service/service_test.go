package service

import (
	"testing"

	"github.com/renoplan/renoplan/internal/project"
	"github.com/renoplan/renoplan/internal/project/repository"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	return New(repository.NewMemoryRepo())
}

func TestCreateProjectDefaultsToPlanned(t *testing.T) {
	svc := newTestService(t)
	p, err := svc.CreateProject("u1", "Kitchen", "full refit", "Elm St 4")
	require.NoError(t, err)
	require.Equal(t, project.StatusPlanned, p.Status)
	require.NotEmpty(t, p.ID)

	_, err = svc.CreateProject("u1", "", "", "")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestUpdateProjectRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(t)
	p, err := svc.CreateProject("u1", "Kitchen", "", "")
	require.NoError(t, err)

	bad := "finished"
	err = svc.UpdateProject(p.ID, project.ProjectUpdate{Status: &bad})
	require.ErrorIs(t, err, ErrInvalid)

	ok := project.StatusActive
	require.NoError(t, svc.UpdateProject(p.ID, project.ProjectUpdate{Status: &ok}))
}

func TestCreateTaskValidation(t *testing.T) {
	svc := newTestService(t)
	p, err := svc.CreateProject("u1", "Bath", "", "")
	require.NoError(t, err)

	// default status
	tk := &project.Task{ProjectID: p.ID, Name: "Tiling", CostEstimate: 300}
	_, err = svc.CreateTask(tk)
	require.NoError(t, err)
	require.Equal(t, project.TaskOpen, tk.Status)

	// unknown milestone rejected
	_, err = svc.CreateTask(&project.Task{ProjectID: p.ID, Name: "x", MilestoneID: "ghost"})
	require.ErrorIs(t, err, ErrInvalid)

	msID, err := svc.AddMilestone(p.ID, project.Milestone{Name: "Phase 1"})
	require.NoError(t, err)
	_, err = svc.CreateTask(&project.Task{ProjectID: p.ID, Name: "y", MilestoneID: msID})
	require.NoError(t, err)
}

func TestAddMilestoneDefaultsToPending(t *testing.T) {
	svc := newTestService(t)
	p, err := svc.CreateProject("u1", "Deck", "", "")
	require.NoError(t, err)

	msID, err := svc.AddMilestone(p.ID, project.Milestone{Name: "Framing"})
	require.NoError(t, err)

	got, err := svc.GetProject(p.ID)
	require.NoError(t, err)
	require.Equal(t, msID, got.Milestones[0].ID)
	require.Equal(t, project.MilestonePending, got.Milestones[0].Status)
}

func TestApplyTemplateInstantiatesAllTasks(t *testing.T) {
	svc := newTestService(t)
	p, err := svc.CreateProject("u1", "Bathroom", "", "")
	require.NoError(t, err)
	msID, err := svc.AddMilestone(p.ID, project.Milestone{Name: "Wet works"})
	require.NoError(t, err)

	tplID, err := svc.CreateTemplate(&project.WorkItemTemplate{
		Name:     "bathroom refit",
		Category: "sanitary",
		DefaultTasks: []project.TemplateTask{
			{Name: "Demolition", CostEstimate: 800},
			{Name: "Plumbing", Notes: "rough-in", CostEstimate: 2500},
			{Name: "Tiling", CostEstimate: 1800},
		},
	})
	require.NoError(t, err)

	created, err := svc.ApplyTemplate(p.ID, tplID, msID)
	require.NoError(t, err)
	require.Len(t, created, 3)
	for _, tk := range created {
		require.Equal(t, project.TaskOpen, tk.Status)
		require.Equal(t, msID, tk.MilestoneID)
	}

	tasks, err := svc.ListTasks(p.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
}

func TestApplyTemplateUnknownIDs(t *testing.T) {
	svc := newTestService(t)
	p, err := svc.CreateProject("u1", "Cellar", "", "")
	require.NoError(t, err)

	_, err = svc.ApplyTemplate(p.ID, "missing", "")
	require.ErrorIs(t, err, ErrNotFound)

	tplID, err := svc.CreateTemplate(&project.WorkItemTemplate{Name: "t", DefaultTasks: []project.TemplateTask{{Name: "a"}}})
	require.NoError(t, err)
	_, err = svc.ApplyTemplate("missing", tplID, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBudgetAggregation(t *testing.T) {
	svc := newTestService(t)
	p, err := svc.CreateProject("u1", "Loft", "", "")
	require.NoError(t, err)

	open := project.TaskOpen
	done := project.TaskDone
	for _, tc := range []struct {
		name   string
		status string
		cost   float64
	}{
		{"Windows", open, 4000},
		{"Floor", open, 1500},
		{"Permit", done, 250},
	} {
		tk := &project.Task{ProjectID: p.ID, Name: tc.name, Status: tc.status, CostEstimate: tc.cost}
		_, err := svc.CreateTask(tk)
		require.NoError(t, err)
	}

	sum, err := svc.Budget(p.ID)
	require.NoError(t, err)
	require.Equal(t, 3, sum.TaskCount)
	require.Equal(t, 5750.0, sum.EstimatedTotal)
	require.Equal(t, 5500.0, sum.ByStatus[project.TaskOpen])
	require.Equal(t, 250.0, sum.ByStatus[project.TaskDone])
}

func TestBudgetEmptyProject(t *testing.T) {
	svc := newTestService(t)
	p, err := svc.CreateProject("u1", "Shed", "", "")
	require.NoError(t, err)

	sum, err := svc.Budget(p.ID)
	require.NoError(t, err)
	require.Equal(t, 0, sum.TaskCount)
	require.Equal(t, 0.0, sum.EstimatedTotal)
	require.Empty(t, sum.ByStatus)

	_, err = svc.Budget("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateTaskMilestoneMustExist(t *testing.T) {
	svc := newTestService(t)
	p, err := svc.CreateProject("u1", "Porch", "", "")
	require.NoError(t, err)
	tk := &project.Task{ProjectID: p.ID, Name: "Paint"}
	_, err = svc.CreateTask(tk)
	require.NoError(t, err)

	ghost := "ghost"
	err = svc.UpdateTask(tk.ID, project.TaskUpdate{MilestoneID: &ghost})
	require.ErrorIs(t, err, ErrInvalid)
}
