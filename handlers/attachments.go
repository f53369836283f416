package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/renoplan/renoplan/internal/models"
	"github.com/renoplan/renoplan/internal/project/service"
	"github.com/renoplan/renoplan/internal/report"
	"github.com/renoplan/renoplan/pkg/logger"
)

const presignExpiry = 15 * time.Minute

// ObjectStore is the object-storage surface used for project attachments and
// rendered reports. Backed by MinIO in production.
type ObjectStore interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	DownloadFile(ctx context.Context, key string) (io.ReadCloser, error)
	GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// AttachmentHandler serves file attachments and budget reports for projects.
type AttachmentHandler struct {
	store    ObjectStore
	projects service.Service
	mongoURI string
	mongoDB  string
}

func NewAttachmentHandler(store ObjectStore, projects service.Service, mongoURI, mongoDB string) *AttachmentHandler {
	return &AttachmentHandler{store: store, projects: projects, mongoURI: mongoURI, mongoDB: mongoDB}
}

// Register mounts the attachment and report routes. The group must carry the
// auth middleware.
func (h *AttachmentHandler) Register(g *gin.RouterGroup) {
	g.POST("/projects/:id/attachments", h.Upload)
	g.GET("/projects/:id/attachments/:object", h.Download)
	g.GET("/projects/:id/attachments/:object/url", h.PresignedURL)
	g.POST("/projects/:id/report", h.GenerateReport)
}

func (h *AttachmentHandler) ownedProjectID(c *gin.Context) (string, bool) {
	uv, ok := c.Get("user")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return "", false
	}
	u, ok := uv.(*models.User)
	if !ok || u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return "", false
	}
	p, err := h.projects.GetProject(c.Param("id"))
	if err != nil || p.OwnerID != u.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return "", false
	}
	return p.ID, true
}

func objectKey(projectID, object string) string {
	return "projects/" + projectID + "/" + object
}

// Upload stores a multipart file under the project's attachment prefix.
func (h *AttachmentHandler) Upload(c *gin.Context) {
	pid, ok := h.ownedProjectID(c)
	if !ok {
		return
	}
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage not configured"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer f.Close()

	object := uuid.NewString() + "_" + fh.Filename
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := h.store.UploadFile(c.Request.Context(), objectKey(pid, object), f, fh.Size, contentType); err != nil {
		logger.Errorf("attachment upload failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"object":      object,
		"name":        fh.Filename,
		"size":        fh.Size,
		"contentType": contentType,
	})
}

// Download streams the attachment back to the client.
func (h *AttachmentHandler) Download(c *gin.Context) {
	pid, ok := h.ownedProjectID(c)
	if !ok {
		return
	}
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage not configured"})
		return
	}

	rc, err := h.store.DownloadFile(c.Request.Context(), objectKey(pid, c.Param("object")))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	defer rc.Close()
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		logger.Warnf("attachment stream interrupted: %v", err)
	}
}

// PresignedURL returns a short-lived direct download URL.
func (h *AttachmentHandler) PresignedURL(c *gin.Context) {
	pid, ok := h.ownedProjectID(c)
	if !ok {
		return
	}
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "object storage not configured"})
		return
	}

	u, err := h.store.GetPresignedURL(c.Request.Context(), objectKey(pid, c.Param("object")), presignExpiry)
	if err != nil {
		logger.Errorf("presign failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": u, "expiresIn": int64(presignExpiry.Seconds())})
}

// GenerateReport snapshots the project budget, uploads the rendered JSON to
// object storage when configured and persists the report metadata.
func (h *AttachmentHandler) GenerateReport(c *gin.Context) {
	pid, ok := h.ownedProjectID(c)
	if !ok {
		return
	}

	sum, err := h.projects.Budget(pid)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	now := time.Now().UTC()
	pr := &report.PersistedReport{
		ReportID:  uuid.NewString(),
		ProjectID: pid,
		Status:    "ready",
		CreatedAt: now,
		UpdatedAt: now,
		TaskCount: sum.TaskCount,
		Total:     sum.EstimatedTotal,
		ByStatus:  sum.ByStatus,
	}

	if h.store != nil {
		body, err := json.Marshal(pr)
		if err == nil {
			key := objectKey(pid, "report_"+pr.ReportID+".json")
			if err := h.store.UploadFile(c.Request.Context(), key, bytes.NewReader(body), int64(len(body)), "application/json"); err != nil {
				logger.Warnf("report upload failed: %v", err)
			} else {
				pr.ObjectKey = key
			}
		}
	}

	if err := report.Save(c.Request.Context(), h.mongoURI, h.mongoDB, pr); err != nil {
		logger.Errorf("report save failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, pr)
}
