package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/renoplan/renoplan/internal/models"
	"github.com/renoplan/renoplan/internal/project"
	"github.com/renoplan/renoplan/internal/project/service"
)

// RegisterProjectRoutes mounts the project, task, template and budget routes
// on the given group. The group must already carry the auth middleware, which
// puts the authenticated *models.User under the "user" context key.
func RegisterProjectRoutes(g *gin.RouterGroup, svc service.Service) {
	g.GET("/projects", func(c *gin.Context) {
		u := currentUser(c)
		if u == nil {
			return
		}
		list, err := svc.ListProjects(u.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, list)
	})

	g.POST("/projects", func(c *gin.Context) {
		u := currentUser(c)
		if u == nil {
			return
		}
		var req struct {
			Name        string `json:"name" binding:"required"`
			Description string `json:"description"`
			Address     string `json:"address"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		p, err := svc.CreateProject(u.ID, req.Name, req.Description, req.Address)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	})

	g.GET("/projects/:id", func(c *gin.Context) {
		p := ownedProject(c, svc)
		if p == nil {
			return
		}
		c.JSON(http.StatusOK, p)
	})

	g.PATCH("/projects/:id", func(c *gin.Context) {
		p := ownedProject(c, svc)
		if p == nil {
			return
		}
		var upd project.ProjectUpdate
		if err := c.ShouldBindJSON(&upd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := svc.UpdateProject(p.ID, upd); err != nil {
			writeServiceError(c, err)
			return
		}
		out, err := svc.GetProject(p.ID)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})

	g.DELETE("/projects/:id", func(c *gin.Context) {
		p := ownedProject(c, svc)
		if p == nil {
			return
		}
		if err := svc.DeleteProject(p.ID); err != nil {
			writeServiceError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	g.POST("/projects/:id/milestones", func(c *gin.Context) {
		p := ownedProject(c, svc)
		if p == nil {
			return
		}
		var req struct {
			Name    string    `json:"name" binding:"required"`
			DueDate time.Time `json:"dueDate"`
			Status  string    `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ms := project.Milestone{Name: req.Name, DueDate: req.DueDate, Status: req.Status}
		id, err := svc.AddMilestone(p.ID, ms)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id, "projectId": p.ID})
	})

	g.PATCH("/projects/:id/milestones/:milestoneId", func(c *gin.Context) {
		p := ownedProject(c, svc)
		if p == nil {
			return
		}
		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := svc.UpdateMilestoneStatus(p.ID, c.Param("milestoneId"), req.Status); err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": c.Param("milestoneId"), "status": req.Status})
	})

	g.GET("/projects/:id/tasks", func(c *gin.Context) {
		p := ownedProject(c, svc)
		if p == nil {
			return
		}
		list, err := svc.ListTasks(p.ID)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	g.POST("/projects/:id/tasks", func(c *gin.Context) {
		p := ownedProject(c, svc)
		if p == nil {
			return
		}
		var req struct {
			Name         string  `json:"name" binding:"required"`
			Notes        string  `json:"notes"`
			Status       string  `json:"status"`
			CostEstimate float64 `json:"costEstimate"`
			MilestoneID  string  `json:"milestoneId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		t := &project.Task{
			ProjectID:    p.ID,
			MilestoneID:  req.MilestoneID,
			Name:         req.Name,
			Notes:        req.Notes,
			Status:       req.Status,
			CostEstimate: req.CostEstimate,
		}
		if _, err := svc.CreateTask(t); err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, t)
	})

	g.GET("/projects/:id/tasks/:taskId", func(c *gin.Context) {
		t := ownedTask(c, svc)
		if t == nil {
			return
		}
		c.JSON(http.StatusOK, t)
	})

	g.PATCH("/projects/:id/tasks/:taskId", func(c *gin.Context) {
		t := ownedTask(c, svc)
		if t == nil {
			return
		}
		var upd project.TaskUpdate
		if err := c.ShouldBindJSON(&upd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := svc.UpdateTask(t.ID, upd); err != nil {
			writeServiceError(c, err)
			return
		}
		out, err := svc.GetTask(t.ID)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})

	g.DELETE("/projects/:id/tasks/:taskId", func(c *gin.Context) {
		t := ownedTask(c, svc)
		if t == nil {
			return
		}
		if err := svc.DeleteTask(t.ID); err != nil {
			writeServiceError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	g.POST("/projects/:id/apply-template", func(c *gin.Context) {
		p := ownedProject(c, svc)
		if p == nil {
			return
		}
		var req struct {
			TemplateID  string `json:"templateId" binding:"required"`
			MilestoneID string `json:"milestoneId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		tasks, err := svc.ApplyTemplate(p.ID, req.TemplateID, req.MilestoneID)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"projectId": p.ID, "created": tasks})
	})

	g.GET("/projects/:id/budget", func(c *gin.Context) {
		p := ownedProject(c, svc)
		if p == nil {
			return
		}
		sum, err := svc.Budget(p.ID)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, sum)
	})

	g.GET("/templates", func(c *gin.Context) {
		list, err := svc.ListTemplates()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		c.JSON(http.StatusOK, list)
	})

	g.POST("/templates", func(c *gin.Context) {
		var req struct {
			Name         string                 `json:"name" binding:"required"`
			Category     string                 `json:"category"`
			DefaultTasks []project.TemplateTask `json:"defaultTasks"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		t := &project.WorkItemTemplate{Name: req.Name, Category: req.Category, DefaultTasks: req.DefaultTasks}
		if t.DefaultTasks == nil {
			t.DefaultTasks = []project.TemplateTask{}
		}
		if _, err := svc.CreateTemplate(t); err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, t)
	})

	g.GET("/templates/:id", func(c *gin.Context) {
		t, err := svc.GetTemplate(c.Param("id"))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	})

	g.DELETE("/templates/:id", func(c *gin.Context) {
		if err := svc.DeleteTemplate(c.Param("id")); err != nil {
			writeServiceError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get("user")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return nil
	}
	u, ok := v.(*models.User)
	if !ok || u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return nil
	}
	return u
}

// ownedProject loads the :id project and enforces ownership. A project owned
// by somebody else reads as not found.
func ownedProject(c *gin.Context, svc service.Service) *project.Project {
	u := currentUser(c)
	if u == nil {
		return nil
	}
	p, err := svc.GetProject(c.Param("id"))
	if err != nil || p.OwnerID != u.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil
	}
	return p
}

func ownedTask(c *gin.Context, svc service.Service) *project.Task {
	p := ownedProject(c, svc)
	if p == nil {
		return nil
	}
	t, err := svc.GetTask(c.Param("taskId"))
	if err != nil || t.ProjectID != p.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return nil
	}
	return t
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
