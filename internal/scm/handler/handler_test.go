package handler

import (
	"testing"

	"github.com/bitfantasy/nimo-scm/internal/middleware"
	"github.com/bitfantasy/nimo-scm/internal/scm/repository"
	"github.com/bitfantasy/nimo-scm/internal/scm/service"
	"github.com/bitfantasy/nimo-scm/internal/scm/testutil"
	"go.uber.org/zap"
)

// setupHandlerTest wires the full service stack over an in-memory
// database and registers the API routes behind JWT auth.
func setupHandlerTest(t *testing.T) *testutil.TestEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	repos := repository.NewRepositories(db, logger)

	eligibilitySvc := service.NewEligibilityService(repos.Supplier, nil, logger)
	engine := service.NewAllocationEngine()
	distributionSvc := service.NewDistributionService(repos.Order, repos.Supplier, eligibilitySvc, engine, logger)
	orderSvc := service.NewOrderService(repos.Order, repos.ActivityLog)
	supplierSvc := service.NewSupplierService(repos.Supplier, eligibilitySvc)
	poSvc := service.NewPurchaseOrderService(repos.PO, repos.Order, supplierSvc, repos.ActivityLog, distributionSvc, logger)
	dashboardSvc := service.NewDashboardService(db)

	h := NewHandlers(orderSvc, supplierSvc, eligibilitySvc, distributionSvc, poSvc, dashboardSvc)

	r := testutil.SetupRouter()
	api := testutil.AuthGroup(r, "/api/v1/scm")

	orders := api.Group("/orders")
	{
		orders.GET("", h.Order.ListOrders)
		orders.POST("", h.Order.CreateOrder)
		orders.GET(":id", h.Order.GetOrder)
		orders.PUT(":id", h.Order.UpdateOrder)
		orders.DELETE(":id", middleware.RequireRole("scm_admin"), h.Order.DeleteOrder)
		orders.POST(":id/status", h.Order.UpdateOrderStatus)
		orders.POST(":id/cancel", h.Order.CancelOrder)
		orders.GET(":id/distribution-suggestion", h.Distribution.SuggestDistribution)
		orders.POST(":id/distribution-validation", h.Distribution.ValidateDistribution)
		orders.GET(":id/purchase-orders", h.PO.ListByCustomerOrder)
		orders.POST(":id/purchase-orders", h.PO.CreatePurchaseOrders)
		orders.GET(":id/fulfillment", h.Dashboard.GetFulfillmentProgress)
	}

	suppliers := api.Group("/suppliers")
	{
		suppliers.GET("/eligible", h.Distribution.ListEligibleSuppliers)
		suppliers.GET("", h.Supplier.ListSuppliers)
		suppliers.POST("", h.Supplier.CreateSupplier)
		suppliers.GET(":id", h.Supplier.GetSupplier)
		suppliers.PUT(":id", h.Supplier.UpdateSupplier)
		suppliers.DELETE(":id", middleware.RequireRole("scm_admin"), h.Supplier.DeleteSupplier)
		suppliers.PUT(":id/capabilities", h.Supplier.UpsertCapability)
		suppliers.PUT(":id/performance", h.Supplier.UpdatePerformance)
	}

	pos := api.Group("/purchase-orders")
	{
		pos.GET("", h.PO.ListPOs)
		pos.GET(":id", h.PO.GetPO)
		pos.POST(":id/confirm", h.PO.ConfirmPO)
		pos.POST(":id/reject", h.PO.RejectPO)
		pos.POST(":id/start-production", h.PO.StartProduction)
		pos.POST(":id/ready", h.PO.ReadyForShipment)
		pos.POST(":id/ship", h.PO.ShipPO)
		pos.POST(":id/deliver", h.PO.DeliverPO)
		pos.POST(":id/cancel", h.PO.CancelPO)
		pos.PUT(":id/items/:itemId", h.PO.UpdatePOItem)
	}

	dashboard := api.Group("/dashboard")
	{
		dashboard.GET("/order-summary", h.Dashboard.GetOrderSummary)
		dashboard.GET("/supplier-loads", h.Dashboard.GetSupplierLoads)
	}

	return &testutil.TestEnv{DB: db, Router: r, T: t}
}
