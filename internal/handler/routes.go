package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kugelpos/kugel-backend/internal/middleware"
)

// Handlers bundles every HTTP handler the Register* functions wire up, one
// field per surface spec §6 describes. A given cmd/*/main.go only needs to
// populate the fields its own service touches - the rest are left nil and
// their Register* function is simply never called.
type Handlers struct {
	Auth        *AuthHandler
	Masterdata  *MasterdataHandler
	Terminal    *TerminalHandler
	Cart        *CartHandler
	Transaction *TransactionHandler
	Stock       *StockHandler
	Journal     *JournalHandler
	Report      *ReportHandler
	Callback    *CallbackHandler
}

// RegisterHealthRoute mounts the liveness probe every service exposes.
func RegisterHealthRoute(e *echo.Echo) {
	e.GET("/healthz", Health)
}

// RegisterAccountRoutes mounts the tenant-registration and account/auth
// surface (cmd/account), per spec §6.
func RegisterAccountRoutes(e *echo.Echo, h *Handlers, dual *middleware.DualAuthMiddleware) {
	api := e.Group("/api/v1")

	tenants := api.Group("/tenants")
	tenants.POST("", h.Auth.RegisterTenant)

	accounts := api.Group("/accounts")
	accounts.POST("/token", h.Auth.Token)
	accountsAuthed := accounts.Group("")
	accountsAuthed.Use(dual.JWTOnly())
	accountsAuthed.POST("/users", h.Auth.CreateUser)
	accountsAuthed.GET("/me", h.Auth.Me)
}

// RegisterMasterdataRoutes mounts the CRUD surface over items, tax rules,
// payment methods, categories, staff, settings and button-layout books
// (cmd/masterdata), per spec §4/§6. All of it is JWT-authenticated back
// office administration, same as reports/journals.
func RegisterMasterdataRoutes(e *echo.Echo, h *Handlers, dual *middleware.DualAuthMiddleware) {
	api := e.Group("/api/v1")
	md := api.Group("")
	md.Use(dual.JWTOnly())

	items := md.Group("/items")
	items.GET("/:store_code", h.Masterdata.ListItems)
	items.GET("/:store_code/:item_code", h.Masterdata.GetItem)
	items.PUT("/:store_code/:item_code", h.Masterdata.PutItem)
	items.DELETE("/:store_code/:item_code", h.Masterdata.DeleteItem)
	items.POST("/:store_code/:item_code/image", h.Masterdata.UploadItemImage)

	taxes := md.Group("/taxes")
	taxes.GET("", h.Masterdata.ListTaxRules)
	taxes.GET("/:tax_code", h.Masterdata.GetTaxRule)
	taxes.PUT("/:tax_code", h.Masterdata.PutTaxRule)
	taxes.DELETE("/:tax_code", h.Masterdata.DeleteTaxRule)

	payments := md.Group("/payments")
	payments.GET("", h.Masterdata.ListPaymentMethods)
	payments.GET("/:payment_code", h.Masterdata.GetPaymentMethod)
	payments.PUT("/:payment_code", h.Masterdata.PutPaymentMethod)
	payments.DELETE("/:payment_code", h.Masterdata.DeletePaymentMethod)

	categories := md.Group("/categories")
	categories.GET("", h.Masterdata.ListCategories)
	categories.GET("/:category_code", h.Masterdata.GetCategory)
	categories.PUT("/:category_code", h.Masterdata.PutCategory)
	categories.DELETE("/:category_code", h.Masterdata.DeleteCategory)

	staff := md.Group("/staff")
	staff.GET("", h.Masterdata.ListStaff)
	staff.GET("/:staff_id", h.Masterdata.GetStaff)
	staff.PUT("/:staff_id", h.Masterdata.PutStaff)
	staff.DELETE("/:staff_id", h.Masterdata.DeleteStaff)

	settings := md.Group("/settings")
	settings.GET("", h.Masterdata.ListSettings)
	settings.POST("", h.Masterdata.CreateSettings)
	settings.GET("/:name", h.Masterdata.GetSettings)
	settings.GET("/:name/value", h.Masterdata.GetSettingsValue)
	settings.PUT("/:name", h.Masterdata.UpdateSettings)
	settings.DELETE("/:name", h.Masterdata.DeleteSettings)

	layouts := md.Group("/button-layout-books")
	layouts.GET("/:store_code", h.Masterdata.ListButtonLayoutBooks)
	layouts.GET("/:store_code/:name", h.Masterdata.GetButtonLayoutBook)
	layouts.PUT("/:store_code/:name", h.Masterdata.PutButtonLayoutBook)
	layouts.DELETE("/:store_code/:name", h.Masterdata.DeleteButtonLayoutBook)
}

// RegisterTerminalRoutes mounts terminal registration and session
// lifecycle (cmd/terminal), per spec §6.
func RegisterTerminalRoutes(e *echo.Echo, h *Handlers, dual *middleware.DualAuthMiddleware) {
	api := e.Group("/api/v1")

	terminals := api.Group("/terminals")
	terminals.Use(dual.Authenticate())
	terminals.POST("", h.Terminal.Create)
	terminals.DELETE("/:store_code/:terminal_no", h.Terminal.Delete)
	terminals.POST("/:terminal_id/signin", h.Terminal.SignIn)
	terminals.POST("/:terminal_id/open", h.Terminal.Open)
	terminals.POST("/:terminal_id/close", h.Terminal.Close)
	terminals.POST("/:terminal_id/cash-in", h.Terminal.CashIn)
	terminals.POST("/:terminal_id/cash-out", h.Terminal.CashOut)
}

// RegisterCartRoutes mounts the cart engine and transaction surfaces
// (cmd/cart), per spec §6.
func RegisterCartRoutes(e *echo.Echo, h *Handlers, dual *middleware.DualAuthMiddleware) {
	api := e.Group("/api/v1")

	carts := api.Group("/carts")
	carts.Use(dual.APITokenOnly())
	carts.POST("", h.Cart.Create)
	carts.GET("/:cart_id", h.Cart.Get)
	carts.POST("/:cart_id/lineItems", h.Cart.AddItems)
	carts.POST("/:cart_id/lineItems/:line_no/cancel", h.Cart.CancelLine)
	carts.POST("/:cart_id/lineItems/:line_no/unitPrice", h.Cart.UnitPriceOverride)
	carts.POST("/:cart_id/lineItems/:line_no/discounts", h.Cart.AddLineDiscount)
	carts.POST("/:cart_id/discounts", h.Cart.AddSubtotalDiscount)
	carts.POST("/:cart_id/subtotal", h.Cart.Subtotal)
	carts.POST("/:cart_id/payments", h.Cart.AddPayments)
	carts.POST("/:cart_id/resume-item-entry", h.Cart.ResumeItemEntry)
	carts.POST("/:cart_id/cancel", h.Cart.Cancel)
	carts.POST("/:cart_id/bill", h.Cart.Bill)

	transactions := api.Group("/transactions")
	transactions.Use(dual.APITokenOnly())
	transactions.GET("/:transaction_no", h.Transaction.Get)
	transactions.POST("/:transaction_no/void", h.Transaction.Void)
	transactions.POST("/:transaction_no/return", h.Transaction.Return)
}

// RegisterStockRoutes mounts the stock ledger and alert stream
// (cmd/stock), per spec §6.
func RegisterStockRoutes(e *echo.Echo, h *Handlers, dual *middleware.DualAuthMiddleware) {
	api := e.Group("/api/v1")

	stock := api.Group("/stock")
	stock.Use(dual.JWTOnly())
	stock.GET("/stream", h.Stock.Stream)
	stock.GET("/snapshot-schedule", h.Stock.GetSchedule)
	stock.PUT("/snapshot-schedule", h.Stock.SetSchedule)
	stock.GET("/:store_code", h.Stock.List)
	stock.GET("/:store_code/snapshots", h.Stock.Snapshots)
	stock.GET("/:store_code/:item_code", h.Stock.Get)
	stock.POST("/:store_code/:item_code/adjust", h.Stock.Update)
	stock.PUT("/:store_code/:item_code/thresholds", h.Stock.SetThresholds)
	stock.GET("/:store_code/:item_code/history", h.Stock.History)
}

// RegisterJournalRoutes mounts the electronic journal surface
// (cmd/journal), per spec §6.
func RegisterJournalRoutes(e *echo.Echo, h *Handlers, dual *middleware.DualAuthMiddleware) {
	api := e.Group("/api/v1")

	journals := api.Group("/journals")
	journals.Use(dual.JWTOnly())
	journals.GET("", h.Journal.List)
}

// RegisterReportRoutes mounts the sales/item aggregation surface
// (cmd/report), per spec §6.
func RegisterReportRoutes(e *echo.Echo, h *Handlers, dual *middleware.DualAuthMiddleware) {
	api := e.Group("/api/v1")

	reports := api.Group("/reports")
	reports.Use(dual.JWTOnly())
	reports.GET("/sales", h.Report.Sales)
	reports.GET("/items", h.Report.Items)
}

// RegisterCallbackRoutes mounts the subscriber delivery-callback endpoint.
// It rides alongside whichever service owns event delivery bookkeeping.
func RegisterCallbackRoutes(e *echo.Echo, h *Handlers, pubsubNotifyAPIKey string) {
	api := e.Group("/api/v1")

	internal := api.Group("/internal")
	internal.Use(pubsubNotifyMiddleware(pubsubNotifyAPIKey))
	internal.POST("/delivery-callback", h.Callback.MarkDelivered)
}

// RegisterRoutes mounts every route group under /api/v1. It is retained
// for tests and tooling that want the whole surface in one Echo instance;
// each cmd/*/main.go instead calls only the Register*Routes functions for
// the routes its own service serves.
func RegisterRoutes(e *echo.Echo, h *Handlers, dual *middleware.DualAuthMiddleware, pubsubNotifyAPIKey string) {
	RegisterHealthRoute(e)
	RegisterAccountRoutes(e, h, dual)
	RegisterMasterdataRoutes(e, h, dual)
	RegisterTerminalRoutes(e, h, dual)
	RegisterCartRoutes(e, h, dual)
	RegisterStockRoutes(e, h, dual)
	RegisterJournalRoutes(e, h, dual)
	RegisterReportRoutes(e, h, dual)
	RegisterCallbackRoutes(e, h, pubsubNotifyAPIKey)
}

// pubsubNotifyMiddleware gates the delivery-callback endpoint behind the
// shared PUBSUB_NOTIFY_API_KEY (spec §4.5.2), since the caller is an
// out-of-process subscriber with no tenant principal to authenticate as.
func pubsubNotifyMiddleware(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if key == "" || c.Request().Header.Get("X-API-KEY") != key {
				return c.JSON(http.StatusUnauthorized, ApiResponse{
					Success: false, Code: http.StatusUnauthorized,
					Message: "invalid pubsub notify key", Operation: "deliveryCallback",
				})
			}
			return next(c)
		}
	}
}
