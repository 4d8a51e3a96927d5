package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	handler "apartment-ledger-backend/internal/handlers"
	"apartment-ledger-backend/internal/jobs"
	"apartment-ledger-backend/internal/services/billing"
	"apartment-ledger-backend/internal/services/ingest"
	"apartment-ledger-backend/internal/services/matching"
)

type Deps struct {
	DB          *gorm.DB
	Billing     *billing.Service
	Matcher     *matching.Matcher
	Ingest      *ingest.Service
	Queue       *jobs.Queue
	StorageRoot string
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	uploadsHandler := handler.NewUploadsHandler(deps.DB, deps.Ingest, deps.Queue, deps.StorageRoot)
	reviewHandler := handler.NewReviewHandler(deps.DB, deps.Matcher)
	billingHandler := handler.NewBillingHandler(deps.DB, deps.Billing)
	apartmentHandler := handler.NewApartmentHandler(deps.DB)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	uploads := api.Group("/uploads")
	{
		uploads.GET("", uploadsHandler.List)
		uploads.POST("", uploadsHandler.Create)
		uploads.POST("/:id/retry", uploadsHandler.Retry)
		uploads.DELETE("/:id", uploadsHandler.Delete)
	}

	review := api.Group("/review-queue")
	{
		review.GET("", reviewHandler.List)
		review.POST("/:id/payment", reviewHandler.AssignPayment)
		review.POST("/:id/expense", reviewHandler.AssignExpense)
		review.POST("/:id/dismiss", reviewHandler.Dismiss)
	}

	charges := api.Group("/charges")
	{
		charges.GET("", billingHandler.ListCharges)
		charges.POST("/generate", billingHandler.GenerateCharges)
	}

	payments := api.Group("/payments")
	{
		payments.GET("", billingHandler.ListPayments)
		payments.POST("", billingHandler.CreatePayment)
		payments.PUT("/:id/charge", billingHandler.RelinkPayment)
		payments.DELETE("/:id", billingHandler.DeletePayment)
	}

	expenses := api.Group("/expenses")
	{
		expenses.GET("", billingHandler.ListExpenses)
		expenses.POST("", billingHandler.CreateExpense)
	}

	units := api.Group("/units")
	{
		units.GET("", apartmentHandler.ListUnits)
		units.POST("", apartmentHandler.CreateUnit)
		units.GET("/:id/residents", apartmentHandler.ListResidents)
		units.POST("/:id/residents", apartmentHandler.CreateResident)
	}

	slabs := api.Group("/slabs")
	{
		slabs.GET("", apartmentHandler.ListSlabs)
		slabs.POST("", apartmentHandler.CreateSlab)
	}
}
