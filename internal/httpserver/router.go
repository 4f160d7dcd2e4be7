package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	catalogsvc "storefront/internal/service/catalog"
	ordersvc "storefront/internal/service/order"
	usersvc "storefront/internal/service/user"
)

type AuthService interface {
	Authenticator
	Register(ctx context.Context, in usersvc.RegisterInput) (*usersvc.Session, error)
	Login(ctx context.Context, email, password string) (*usersvc.Session, error)
	Me(ctx context.Context, caller domain.Identity) (*domain.User, error)
}

type CatalogService interface {
	List(ctx context.Context, q catalogsvc.ListQuery) ([]domain.Product, domain.Pagination, error)
	Get(ctx context.Context, caller domain.Identity, id string) (*domain.Product, error)
	Featured(ctx context.Context) ([]domain.Product, error)
	Categories(ctx context.Context) ([]domain.Category, error)
	Create(ctx context.Context, caller domain.Identity, in catalogsvc.ProductInput) (*domain.Product, error)
	Update(ctx context.Context, caller domain.Identity, id string, in catalogsvc.ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, caller domain.Identity, id string) error
	AddOrUpdateReview(ctx context.Context, caller domain.Identity, productID string, rating int, comment string) (*domain.Product, error)
}

type CartService interface {
	GetOrCreate(ctx context.Context, caller domain.Identity) (*domain.Cart, error)
	AddItem(ctx context.Context, caller domain.Identity, productID string, quantity int) (*domain.Cart, error)
	UpdateItem(ctx context.Context, caller domain.Identity, itemID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, caller domain.Identity, itemID string) (*domain.Cart, error)
	Clear(ctx context.Context, caller domain.Identity) (*domain.Cart, error)
}

type OrderService interface {
	PlaceOrder(ctx context.Context, caller domain.Identity, in ordersvc.PlaceInput) (*domain.Order, bool, error)
	CancelOrder(ctx context.Context, caller domain.Identity, orderID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, caller domain.Identity, orderID, status, note string) (*domain.Order, error)
	UpdatePaymentStatus(ctx context.Context, caller domain.Identity, orderID, externalID, status string) (*domain.Order, error)
	Get(ctx context.Context, caller domain.Identity, orderID string) (*domain.Order, error)
	ListMine(ctx context.Context, caller domain.Identity) ([]domain.Order, error)
	ListAll(ctx context.Context, caller domain.Identity, status string, page, limit int) ([]domain.Order, domain.Pagination, error)
}

type WishlistService interface {
	Get(ctx context.Context, caller domain.Identity) ([]domain.Product, error)
	Add(ctx context.Context, caller domain.Identity, productID string) ([]domain.Product, error)
	Remove(ctx context.Context, caller domain.Identity, productID string) ([]domain.Product, error)
}

type AdminService interface {
	Stats(ctx context.Context, caller domain.Identity) (*domain.DashboardStats, error)
	ListUsers(ctx context.Context, caller domain.Identity, page, limit int, search string) ([]domain.User, domain.Pagination, error)
	UpdateUserRole(ctx context.Context, caller domain.Identity, userID, role string) (*domain.User, error)
	DeactivateUser(ctx context.Context, caller domain.Identity, userID string) error
	DeleteUser(ctx context.Context, caller domain.Identity, userID string) error
}

// Deps groups the services the router dispatches to.
type Deps struct {
	Auth        AuthService
	Catalog     CatalogService
	Cart        CartService
	Orders      OrderService
	Wishlist    WishlistService
	Admin       AdminService
	CORSOrigins []string
}

func (d Deps) validate() error {
	if d.Auth == nil || d.Catalog == nil || d.Cart == nil || d.Orders == nil || d.Wishlist == nil || d.Admin == nil {
		return errors.New("httpserver: all services are required")
	}
	return nil
}

type handlers struct {
	Deps
	logger *zap.Logger
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db pinger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	h := &handlers{Deps: deps, logger: logger}

	router := gin.New()
	router.Use(requestID(), requestLogger(logger), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	api := router.Group("/api")
	required := authenticate(deps.Auth, logger, true)
	optional := authenticate(deps.Auth, logger, false)
	admin := requireAdmin()

	auth := api.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.GET("/me", required, h.me)

	products := api.Group("/products")
	products.GET("", h.listProducts)
	products.GET("/categories", h.categories)
	products.GET("/featured", h.featured)
	products.GET("/:id", optional, h.getProduct)
	products.POST("/:id/reviews", required, h.addReview)
	products.POST("", required, admin, h.createProduct)
	products.PUT("/:id", required, admin, h.updateProduct)
	products.DELETE("/:id", required, admin, h.deleteProduct)

	cart := api.Group("/cart", required)
	cart.GET("", h.getCart)
	cart.POST("/items", h.addCartItem)
	cart.PUT("/items/:itemId", h.updateCartItem)
	cart.DELETE("/items/:itemId", h.removeCartItem)
	cart.DELETE("", h.clearCart)

	orders := api.Group("/orders", required)
	orders.POST("", h.placeOrder)
	orders.GET("/my-orders", h.myOrders)
	orders.GET("/:id", h.getOrder)
	orders.PUT("/:id/cancel", h.cancelOrder)
	orders.PUT("/:id/payment", h.updatePayment)
	orders.GET("", admin, h.allOrders)
	orders.PUT("/:id/status", admin, h.updateOrderStatus)

	wishlist := api.Group("/wishlist", required)
	wishlist.GET("", h.getWishlist)
	wishlist.POST("/:productId", h.addToWishlist)
	wishlist.DELETE("/:productId", h.removeFromWishlist)

	adminGroup := api.Group("/admin", required, admin)
	adminGroup.GET("/stats", h.stats)
	adminGroup.GET("/users", h.listUsers)
	adminGroup.PUT("/users/:id/role", h.updateUserRole)
	adminGroup.PUT("/users/:id/deactivate", h.deactivateUser)
	adminGroup.DELETE("/users/:id", h.deleteUser)

	return router, nil
}

func queryDecimal(c *gin.Context, key string) (*decimal.Decimal, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, badRequest(key + " must be a number")
	}
	return &d, nil
}
