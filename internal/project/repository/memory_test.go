package repository

import (
	"testing"
	"time"

	"github.com/renoplan/renoplan/internal/project"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepoProjectCRUD(t *testing.T) {
	r := NewMemoryRepo()
	p := &project.Project{OwnerID: "u1", Name: "Kitchen", Status: project.StatusPlanned}
	id, err := r.CreateProject(p)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := r.GetProject(id)
	require.NoError(t, err)
	require.Equal(t, "Kitchen", got.Name)
	require.NotNil(t, got.Milestones)

	name := "Kitchen v2"
	status := project.StatusActive
	err = r.UpdateProject(id, project.ProjectUpdate{Name: &name, Status: &status})
	require.NoError(t, err)
	got2, err := r.GetProject(id)
	require.NoError(t, err)
	require.Equal(t, "Kitchen v2", got2.Name)
	require.Equal(t, project.StatusActive, got2.Status)

	err = r.DeleteProject(id)
	require.NoError(t, err)
	_, err = r.GetProject(id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepoListProjectsNewestFirst(t *testing.T) {
	r := NewMemoryRepo()
	ids := []string{}
	for _, name := range []string{"one", "two", "three"} {
		p := &project.Project{OwnerID: "u1", Name: name, Status: project.StatusPlanned}
		id, err := r.CreateProject(p)
		require.NoError(t, err)
		ids = append(ids, id)
		time.Sleep(2 * time.Millisecond)
	}
	other := &project.Project{OwnerID: "u2", Name: "foreign", Status: project.StatusPlanned}
	_, err := r.CreateProject(other)
	require.NoError(t, err)

	list, err := r.ListProjects("u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, ids[2], list[0].ID)
	require.Equal(t, ids[0], list[2].ID)
}

func TestMemoryRepoMilestones(t *testing.T) {
	r := NewMemoryRepo()
	p := &project.Project{OwnerID: "u1", Name: "Bath", Status: project.StatusPlanned}
	pid, err := r.CreateProject(p)
	require.NoError(t, err)

	msID, err := r.AddMilestone(pid, project.Milestone{Name: "Demolition", Status: project.MilestonePending})
	require.NoError(t, err)
	require.NotEmpty(t, msID)

	err = r.UpdateMilestoneStatus(pid, msID, project.MilestoneDone)
	require.NoError(t, err)

	got, err := r.GetProject(pid)
	require.NoError(t, err)
	require.Len(t, got.Milestones, 1)
	require.Equal(t, project.MilestoneDone, got.Milestones[0].Status)

	err = r.UpdateMilestoneStatus(pid, "missing", project.MilestoneDone)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepoTasksCascadeOnProjectDelete(t *testing.T) {
	r := NewMemoryRepo()
	p := &project.Project{OwnerID: "u1", Name: "Attic", Status: project.StatusPlanned}
	pid, err := r.CreateProject(p)
	require.NoError(t, err)

	tid, err := r.CreateTask(&project.Task{ProjectID: pid, Name: "Insulation", Status: project.TaskOpen, CostEstimate: 1200})
	require.NoError(t, err)

	_, err = r.CreateTask(&project.Task{ProjectID: "nope", Name: "orphan", Status: project.TaskOpen})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, r.DeleteProject(pid))
	_, err = r.GetTask(tid)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryRepoListTasksOldestFirst(t *testing.T) {
	r := NewMemoryRepo()
	pid, err := r.CreateProject(&project.Project{OwnerID: "u1", Name: "Garage", Status: project.StatusPlanned})
	require.NoError(t, err)

	first, err := r.CreateTask(&project.Task{ProjectID: pid, Name: "first", Status: project.TaskOpen})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	_, err = r.CreateTask(&project.Task{ProjectID: pid, Name: "second", Status: project.TaskOpen})
	require.NoError(t, err)

	list, err := r.ListTasks(pid)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, first, list[0].ID)
}

func TestMemoryRepoTaskUpdatePartial(t *testing.T) {
	r := NewMemoryRepo()
	pid, err := r.CreateProject(&project.Project{OwnerID: "u1", Name: "Roof", Status: project.StatusPlanned})
	require.NoError(t, err)
	tid, err := r.CreateTask(&project.Task{ProjectID: pid, Name: "Tiles", Notes: "keep", Status: project.TaskOpen, CostEstimate: 500})
	require.NoError(t, err)

	cost := 750.0
	status := project.TaskInProgress
	require.NoError(t, r.UpdateTask(tid, project.TaskUpdate{CostEstimate: &cost, Status: &status}))

	got, err := r.GetTask(tid)
	require.NoError(t, err)
	require.Equal(t, "Tiles", got.Name)
	require.Equal(t, "keep", got.Notes)
	require.Equal(t, 750.0, got.CostEstimate)
	require.Equal(t, project.TaskInProgress, got.Status)
}

func TestMemoryRepoTemplates(t *testing.T) {
	r := NewMemoryRepo()
	for _, name := range []string{"zeta", "alpha"} {
		_, err := r.CreateTemplate(&project.WorkItemTemplate{
			Name:         name,
			DefaultTasks: []project.TemplateTask{{Name: "t", CostEstimate: 10}},
		})
		require.NoError(t, err)
	}

	list, err := r.ListTemplates()
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "alpha", list[0].Name)

	require.NoError(t, r.DeleteTemplate(list[0].ID))
	require.ErrorIs(t, r.DeleteTemplate(list[0].ID), ErrNotFound)
}
