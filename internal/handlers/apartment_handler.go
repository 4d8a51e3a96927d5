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
)

// ApartmentHandler covers the admin CRUD for units, residents and
// maintenance slabs.
type ApartmentHandler struct {
	db *gorm.DB
}

func NewApartmentHandler(db *gorm.DB) *ApartmentHandler {
	return &ApartmentHandler{db: db}
}

func (h *ApartmentHandler) ListUnits(c *gin.Context) {
	var units []models.Unit
	if err := h.db.Order("flat_number ASC").Find(&units).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"units": units})
}

func (h *ApartmentHandler) CreateUnit(c *gin.Context) {
	var payload struct {
		FlatNumber string `json:"flat_number" binding:"required"`
		FlatType   string `json:"flat_type" binding:"required"`
		Floor      int    `json:"floor"`
		AreaSqft   string `json:"area_sqft"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	flatType := models.FlatType(payload.FlatType)
	switch flatType {
	case models.FlatType1BHK, models.FlatType2BHK, models.FlatType3BHK:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "flat_type must be 1BHK, 2BHK or 3BHK"})
		return
	}

	area := decimal.Zero
	if payload.AreaSqft != "" {
		var err error
		if area, err = decimal.NewFromString(payload.AreaSqft); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid area_sqft"})
			return
		}
	}

	unit := models.Unit{
		ID:         uuid.New(),
		FlatNumber: payload.FlatNumber,
		FlatType:   flatType,
		Floor:      payload.Floor,
		AreaSqft:   area,
	}
	if err := h.db.Create(&unit).Error; err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"unit": unit})
}

func (h *ApartmentHandler) ListResidents(c *gin.Context) {
	residents, err := repository.NewResidentRepository(h.db).ListByUnit(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"residents": residents})
}

func (h *ApartmentHandler) CreateResident(c *gin.Context) {
	unitID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid unit ID"})
		return
	}

	var payload struct {
		Name     string `json:"name" binding:"required"`
		Phone    string `json:"phone"`
		Email    string `json:"email"`
		IsOwner  bool   `json:"is_owner"`
		GpayName string `json:"gpay_name"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	resident := models.Resident{
		ID:       uuid.New(),
		UnitID:   unitID,
		Name:     payload.Name,
		Phone:    payload.Phone,
		Email:    payload.Email,
		IsOwner:  payload.IsOwner,
		GpayName: payload.GpayName,
	}
	if err := h.db.Create(&resident).Error; err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"resident": resident})
}

func (h *ApartmentHandler) ListSlabs(c *gin.Context) {
	var slabs []models.MaintenanceSlab
	if err := h.db.Order("flat_type ASC, effective_from DESC").Find(&slabs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"slabs": slabs})
}

// CreateSlab appends a new rate row. Slabs are immutable; there is no update
// endpoint.
func (h *ApartmentHandler) CreateSlab(c *gin.Context) {
	var payload struct {
		FlatType      string `json:"flat_type" binding:"required"`
		Amount        string `json:"amount" binding:"required"`
		EffectiveFrom string `json:"effective_from" binding:"required"`
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

	effectiveFrom, err := time.Parse("2006-01-02", payload.EffectiveFrom)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "effective_from must be YYYY-MM-DD"})
		return
	}

	slab := models.MaintenanceSlab{
		ID:            uuid.New(),
		FlatType:      models.FlatType(payload.FlatType),
		Amount:        amount,
		EffectiveFrom: effectiveFrom,
	}
	if err := h.db.Create(&slab).Error; err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"slab": slab})
}
