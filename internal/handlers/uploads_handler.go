package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"apartment-ledger-backend/internal/jobs"
	"apartment-ledger-backend/internal/models"
	"apartment-ledger-backend/internal/repository"
	"apartment-ledger-backend/internal/services/ingest"
)

type UploadsHandler struct {
	db          *gorm.DB
	ingest      *ingest.Service
	queue       *jobs.Queue
	storageRoot string
}

func NewUploadsHandler(db *gorm.DB, ingestSvc *ingest.Service, queue *jobs.Queue, storageRoot string) *UploadsHandler {
	return &UploadsHandler{db: db, ingest: ingestSvc, queue: queue, storageRoot: storageRoot}
}

func (h *UploadsHandler) List(c *gin.Context) {
	uploads, err := repository.NewUploadRepository(h.db).List(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	parsedRepo := repository.NewParsedTransactionRepository(h.db)
	type uploadView struct {
		models.Upload
		TransactionCount int64 `json:"transaction_count"`
	}
	views := make([]uploadView, 0, len(uploads))
	for _, u := range uploads {
		count, err := parsedRepo.CountForUpload(u.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		views = append(views, uploadView{Upload: u, TransactionCount: count})
	}

	c.JSON(http.StatusOK, gin.H{"uploads": views})
}

// Create stores the submitted file, records the upload and queues its
// processing job.
func (h *UploadsHandler) Create(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	uploadType := models.UploadType(c.PostForm("type"))
	if uploadType != models.UploadTypeGpayScreenshot && uploadType != models.UploadTypeBankStatement {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be gpay_screenshot or bank_statement"})
		return
	}

	id := uuid.New()
	relPath := filepath.Join("uploads", fmt.Sprintf("%s_%s", id, filepath.Base(file.Filename)))
	if err := c.SaveUploadedFile(file, filepath.Join(h.storageRoot, relPath)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	upload := models.Upload{
		ID:       id,
		FilePath: relPath,
		Type:     uploadType,
		Status:   models.UploadStatusPending,
	}
	if err := h.db.Create(&upload).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	job := &jobs.ProcessUploadJob{
		UploadID: upload.ID,
		Password: c.PostForm("password"),
	}
	if err := h.queue.Publish(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"upload": upload})
}

// Retry purges the upload's previous results and queues a fresh run.
func (h *UploadsHandler) Retry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload ID"})
		return
	}

	var payload struct {
		Password string `json:"password"`
	}
	_ = c.BindJSON(&payload)

	upload, err := h.ingest.Retry(c.Request.Context(), id)
	if errors.Is(err, ingest.ErrAlreadyProcessing) {
		c.JSON(http.StatusConflict, gin.H{"error": "upload is already processing"})
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "upload not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	job := &jobs.ProcessUploadJob{UploadID: upload.ID, Password: payload.Password}
	if err := h.queue.Publish(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "upload queued for reprocessing"})
}

// Delete removes the upload and, by cascade, all of its parsed transactions.
func (h *UploadsHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid upload ID"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewParsedTransactionRepository(tx).DeleteForUpload(id); err != nil {
			return err
		}
		return tx.Delete(&models.Upload{}, "id = ?", id).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "upload deleted"})
}
