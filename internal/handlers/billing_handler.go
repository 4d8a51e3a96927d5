package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"apartment-ledger-backend/internal/models"
	"apartment-ledger-backend/internal/repository"
	"apartment-ledger-backend/internal/services/billing"
)

type BillingHandler struct {
	db      *gorm.DB
	billing *billing.Service
}

func NewBillingHandler(db *gorm.DB, billingSvc *billing.Service) *BillingHandler {
	return &BillingHandler{db: db, billing: billingSvc}
}

// GenerateCharges creates the period's maintenance charges for every unit at
// its current slab rate.
func (h *BillingHandler) GenerateCharges(c *gin.Context) {
	var payload struct {
		BillingPeriod string `json:"billing_period" binding:"required"`
		DueDate       string `json:"due_date"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	dueDate, ok := parseOptionalDate(c, payload.DueDate)
	if !ok {
		return
	}

	charges, err := h.billing.GenerateMaintenanceCharges(c.Request.Context(), payload.BillingPeriod, dueDate)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"charges": charges, "created": len(charges)})
}

func (h *BillingHandler) ListCharges(c *gin.Context) {
	charges, err := repository.NewChargeRepository(h.db).Search(
		models.ChargeStatus(c.Query("status")),
		c.Query("billing_period"),
		c.Query("unit_id"),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"charges": charges})
}

func (h *BillingHandler) CreatePayment(c *gin.Context) {
	var payload struct {
		ChargeID  string `json:"charge_id"`
		UnitID    string `json:"unit_id"`
		Amount    string `json:"amount" binding:"required"`
		PaidDate  string `json:"paid_date" binding:"required"`
		Source    string `json:"source" binding:"required"`
		Reference string `json:"reference"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive number"})
		return
	}

	paidDate, err := time.Parse("2006-01-02", payload.PaidDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paid_date must be YYYY-MM-DD"})
		return
	}

	params := billing.PaymentParams{
		Amount:          amount,
		PaidDate:        paidDate,
		Source:          models.PaymentSource(payload.Source),
		ReferenceNumber: payload.Reference,
	}
	if payload.ChargeID != "" {
		chargeID, err := uuid.Parse(payload.ChargeID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid charge ID"})
			return
		}
		params.ChargeID = &chargeID
	}
	if payload.UnitID != "" {
		unitID, err := uuid.Parse(payload.UnitID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit ID"})
			return
		}
		params.UnitID = &unitID
	}

	payment, err := h.billing.RecordPayment(c.Request.Context(), params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"payment": payment})
}

// RelinkPayment moves a payment to a different charge; both charges are
// recomputed.
func (h *BillingHandler) RelinkPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}

	var payload struct {
		ChargeID *string `json:"charge_id"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	var newChargeID *uuid.UUID
	if payload.ChargeID != nil && *payload.ChargeID != "" {
		chargeID, err := uuid.Parse(*payload.ChargeID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid charge ID"})
			return
		}
		newChargeID = &chargeID
	}

	payment, err := h.billing.RelinkPayment(c.Request.Context(), id, newChargeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

func (h *BillingHandler) DeletePayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment ID"})
		return
	}

	if err := h.billing.DeletePayment(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "payment deleted"})
}

func (h *BillingHandler) ListPayments(c *gin.Context) {
	period := c.Query("billing_period")
	if period == "" {
		period = billing.CurrentPeriod()
	}

	start, end, err := billing.PeriodRange(period)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payments, err := repository.NewPaymentRepository(h.db).ListBetween(start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}

func (h *BillingHandler) CreateExpense(c *gin.Context) {
	var payload struct {
		Description string `json:"description" binding:"required"`
		Amount      string `json:"amount" binding:"required"`
		PaidDate    string `json:"paid_date" binding:"required"`
		Category    string `json:"category" binding:"required"`
		Source      string `json:"source" binding:"required"`
		Reference   string `json:"reference"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	amount, err := decimal.NewFromString(payload.Amount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be a positive number"})
		return
	}

	paidDate, err := time.Parse("2006-01-02", payload.PaidDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paid_date must be YYYY-MM-DD"})
		return
	}

	expense, err := h.billing.RecordExpense(c.Request.Context(), billing.ExpenseParams{
		Description:     payload.Description,
		Amount:          amount,
		PaidDate:        paidDate,
		Category:        models.ExpenseCategory(payload.Category),
		Source:          models.PaymentSource(payload.Source),
		ReferenceNumber: payload.Reference,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"expense": expense})
}

func (h *BillingHandler) ListExpenses(c *gin.Context) {
	period := c.Query("billing_period")
	if period == "" {
		period = billing.CurrentPeriod()
	}

	start, end, err := billing.PeriodRange(period)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expenses, err := repository.NewExpenseRepository(h.db).ListBetween(start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"expenses": expenses})
}
