package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"apartment-ledger-backend/internal/models"
	"apartment-ledger-backend/internal/repository"
	"apartment-ledger-backend/internal/services/matching"
)

// ReviewHandler serves the human review queue: unmatched transactions the
// matcher could not place.
type ReviewHandler struct {
	db      *gorm.DB
	matcher *matching.Matcher
}

func NewReviewHandler(db *gorm.DB, matcher *matching.Matcher) *ReviewHandler {
	return &ReviewHandler{db: db, matcher: matcher}
}

func (h *ReviewHandler) List(c *gin.Context) {
	parsed, err := repository.NewParsedTransactionRepository(h.db).ListUnmatched()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": parsed})
}

func (h *ReviewHandler) AssignPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var payload struct {
		UnitID      string `json:"unit_id" binding:"required"`
		Description string `json:"description"`
		Date        string `json:"date"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	unitID, err := uuid.Parse(payload.UnitID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit ID"})
		return
	}

	paidDate, ok := parseOptionalDate(c, payload.Date)
	if !ok {
		return
	}

	payment, err := h.matcher.AssignPayment(c.Request.Context(), id, unitID, payload.Description, paidDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

func (h *ReviewHandler) AssignExpense(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	var payload struct {
		Category    string `json:"category" binding:"required"`
		Description string `json:"description"`
		Date        string `json:"date"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	category := models.ExpenseCategory(payload.Category)
	switch category {
	case models.ExpenseCategoryElectricity, models.ExpenseCategoryWater,
		models.ExpenseCategoryMaintenance, models.ExpenseCategoryService,
		models.ExpenseCategoryOther:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return
	}

	paidDate, ok := parseOptionalDate(c, payload.Date)
	if !ok {
		return
	}

	expense, err := h.matcher.AssignExpense(c.Request.Context(), id, category, payload.Description, paidDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"expense": expense})
}

func (h *ReviewHandler) Dismiss(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	if err := h.matcher.Dismiss(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "transaction dismissed"})
}

// parseOptionalDate writes the error response itself when the date is bad.
func parseOptionalDate(c *gin.Context, raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return nil, false
	}
	return &date, true
}
