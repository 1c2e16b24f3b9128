package routes

import (
	"hotelpro-backend/config"
	"hotelpro-backend/controllers"
	"hotelpro-backend/events"
	"hotelpro-backend/repository"
	"hotelpro-backend/services"
	"hotelpro-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	Departments *services.DepartmentService
	Products    *services.ProductService
	Ledger      *services.Ledger
	Catalog     *services.ServiceCatalog
	Payments    *services.PaymentService
	Orders      *services.OrderService
	Transfers   *services.TransferService
	Units       *services.UnitService
	Customers   *services.CustomerService
}

type Options struct {
	JWTSecret   string
	CORSOrigins []string
}

func SetupRouter(opts Options, s Services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	allowed := make(map[string]bool, len(opts.CORSOrigins))
	for _, o := range opts.CORSOrigins {
		allowed[o] = true
	}
	r.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", controllers.IdempotencyHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) bool {
			return allowed[origin]
		},
	}))

	r.Use(config.PerformanceLogger())

	orderController := &controllers.OrderController{Orders: s.Orders, Payments: s.Payments}
	departmentController := &controllers.DepartmentController{Departments: s.Departments, Orders: s.Orders}
	inventoryController := &controllers.InventoryController{Departments: s.Departments, Products: s.Products, Ledger: s.Ledger}
	serviceController := &controllers.ServiceController{Catalog: s.Catalog}
	transferController := &controllers.TransferController{Transfers: s.Transfers}
	unitController := &controllers.UnitController{Units: s.Units}
	customerController := &controllers.CustomerController{Customers: s.Customers}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware(opts.JWTSecret))
	{
		// Order routes
		orders := api.Group("/orders")
		{
			orders.POST("", orderController.CreateOrder)
			orders.GET("/:id", orderController.GetOrder)
			orders.PUT("/:id/status", orderController.UpdateStatus)
			orders.PUT("/:id/lines/:lineId/status", orderController.UpdateLineStatus)
			orders.POST("/:id/cancel", orderController.CancelOrder)
			orders.POST("/:id/refund", orderController.RefundOrder)
			orders.POST("/:id/payments", orderController.RecordPayment)
		}

		// Department routes
		departments := api.Group("/departments")
		{
			departments.POST("", departmentController.CreateDepartment)
			departments.POST("/:code/sections", departmentController.CreateSection)
			departments.GET("/:code/orders", departmentController.GetQueue)
			departments.POST("/:code/transfers/:id/approve", transferController.ApproveTransfer)
			departments.POST("/:code/transfers/:id/reject", transferController.RejectTransfer)
		}

		// Inventory routes
		inventory := api.Group("/inventory")
		{
			inventory.POST("/items", inventoryController.CreateItem)
			inventory.POST("/stock", inventoryController.ReceiveStock)
			inventory.GET("/balance", inventoryController.GetBalance)
		}

		extras := api.Group("/extras")
		{
			extras.POST("", inventoryController.CreateExtra)
			extras.POST("/stock", inventoryController.ReceiveExtra)
		}

		// Service routes
		catalog := api.Group("/services")
		{
			catalog.POST("", serviceController.CreateService)
			catalog.GET("", serviceController.GetServices)
		}

		transfers := api.Group("/transfers")
		{
			transfers.POST("/items", transferController.TransferItems)
			transfers.POST("/extras", transferController.TransferExtras)
			transfers.POST("/services", transferController.TransferServices)
		}

		// Unit routes
		units := api.Group("/units")
		{
			units.POST("", unitController.CreateUnit)
			units.PUT("/:id/status", unitController.UpdateStatus)
			units.GET("/:id/history", unitController.GetHistory)
			units.POST("/:id/reservations", unitController.CreateReservation)
			units.POST("/:id/maintenance", unitController.OpenMaintenance)
		}
		api.POST("/maintenance/:id/verify", unitController.VerifyMaintenance)

		// Customer routes
		customers := api.Group("/customers")
		{
			customers.POST("", customerController.CreateCustomer)
			customers.GET("/:id", customerController.GetCustomer)
		}
	}

	return r
}

// NewServices wires every service onto one store.
func NewServices(store repository.Store, processor services.PaymentProcessor, orders services.OrderServiceConfig, pub events.Publisher, log *logrus.Logger) Services {
	payments := services.NewPaymentService(store, processor, pub, log)
	return Services{
		Departments: services.NewDepartmentService(store, pub, log),
		Products:    services.NewProductService(store, pub, log),
		Ledger:      services.NewLedger(store, pub, log),
		Catalog:     services.NewServiceCatalog(store, pub, log),
		Payments:    payments,
		Orders:      services.NewOrderService(store, payments, orders, pub, log),
		Transfers:   services.NewTransferService(store, pub, log),
		Units:       services.NewUnitService(store, pub, log),
		Customers:   services.NewCustomerService(store, pub, log),
	}
}
