// Package router wires handlers to routes.  Routes are grouped by the
// middleware they share: public browse endpoints, the auth surface,
// authenticated user endpoints and the admin panel.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/repart/marketplace/internal/config"
	"github.com/repart/marketplace/internal/handler"
	"github.com/repart/marketplace/internal/middleware"
	"github.com/repart/marketplace/internal/model"
	"github.com/repart/marketplace/internal/repository"
)

// Handlers bundles every handler the route groups mount.
type Handlers struct {
	Auth      *handler.AuthHandler
	Reset     *handler.PasswordResetHandler
	Phone     *handler.PhoneAuthHandler
	TwoFactor *handler.TwoFactorHandler
	Passkeys  *handler.PasskeyHandler
	Listings  *handler.ListingHandler
	Orders    *handler.OrderHandler
	Disputes  *handler.DisputeHandler
	Carts     *handler.CartHandler
	Addresses *handler.AddressHandler
	Messages  *handler.MessageHandler
	Profile   *handler.ProfileHandler
	Uploads   *handler.UploadHandler

	AdminUsers         *handler.AdminUserHandler
	AdminListings      *handler.AdminListingHandler
	AdminDisputes      *handler.AdminDisputeHandler
	AdminFinance       *handler.AdminFinanceHandler
	AdminCatalog       *handler.AdminCatalogHandler
	AdminNotifications *handler.AdminNotificationHandler
	AdminAudit         *handler.AdminAuditHandler
}

// Deps carries the cross-cutting pieces the route groups need: config for
// secrets and the admin allow-list, the user repo for the ban check, and
// the optional redis-backed middlewares.
type Deps struct {
	Cfg       config.Config
	Users     *repository.UserRepo
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers unauthenticated browse endpoints: listing
// search and detail plus the sell-flow valuation.  The response cache only
// applies here; everything else is per-user.
func RegisterPublic(e *echo.Echo, h *Handlers, d Deps) {
	g := e.Group("/v1")
	if d.Cache != nil {
		g.Use(d.Cache)
	}
	g.GET("/listings", h.Listings.List)
	g.GET("/listings/:id", h.Listings.Get)
	g.GET("/valuation", h.Listings.Valuation)
}

// RegisterAuth registers the authentication surface.  Token issuance
// endpoints are public (and rate limited); enrollment endpoints that
// modify the account require a session.
func RegisterAuth(e *echo.Echo, h *Handlers, d Deps) {
	g := e.Group("/v1/auth")
	if d.RateLimit != nil {
		g.Use(d.RateLimit)
	}
	g.POST("/register", h.Auth.Register)
	g.POST("/login", h.Auth.Login)
	g.POST("/refresh", h.Auth.Refresh)
	g.POST("/refresh-access", h.Auth.RefreshAccess)
	g.POST("/logout", h.Auth.Logout)

	g.POST("/password-reset/request", h.Reset.Request)
	g.POST("/password-reset/confirm", h.Reset.Confirm)

	g.POST("/phone/request", h.Phone.RequestLoginCode)
	g.POST("/phone/login", h.Phone.LoginWithCode)

	g.POST("/2fa/verify", h.TwoFactor.Verify)

	g.POST("/passkeys/login/begin", h.Passkeys.BeginLogin)
	g.POST("/passkeys/login/finish", h.Passkeys.FinishLogin)

	// Account security management, behind a session.
	auth := e.Group("/v1/auth",
		middleware.JWTAuth(d.Cfg.JWTSecret),
		middleware.RejectBanned(d.Users),
	)
	auth.GET("/me", h.Auth.Me)
	auth.POST("/phone/verify/request", h.Phone.RequestVerifyCode)
	auth.POST("/phone/verify", h.Phone.VerifyPhone)
	auth.POST("/2fa/enroll", h.TwoFactor.Enroll)
	auth.POST("/2fa/confirm", h.TwoFactor.Confirm)
	auth.POST("/2fa/disable", h.TwoFactor.Disable)
	auth.POST("/passkeys/register/begin", h.Passkeys.BeginRegistration)
	auth.POST("/passkeys/register/finish", h.Passkeys.FinishRegistration)
	auth.GET("/passkeys", h.Passkeys.ListCredentials)
	auth.DELETE("/passkeys/:id", h.Passkeys.DeleteCredential)
}

// RegisterUser registers the authenticated marketplace surface.
func RegisterUser(e *echo.Echo, h *Handlers, d Deps) {
	g := e.Group("/v1",
		middleware.JWTAuth(d.Cfg.JWTSecret),
		middleware.RejectBanned(d.Users),
	)
	if d.RateLimit != nil {
		g.Use(d.RateLimit)
	}

	g.POST("/listings", h.Listings.Create)
	g.GET("/my-listings", h.Listings.MyListings)
	g.PUT("/listings/:id", h.Listings.Update)
	g.DELETE("/listings/:id", h.Listings.Delete)

	g.POST("/orders", h.Orders.Create)
	g.GET("/orders", h.Orders.List)
	g.GET("/orders/:id", h.Orders.Get)
	g.PATCH("/orders/:id", h.Orders.Action)
	g.GET("/orders/:id/payouts", h.Orders.Ledger)
	g.GET("/orders/:id/dispute", h.Disputes.GetForOrder)

	g.POST("/disputes", h.Disputes.Create)
	g.GET("/disputes/:id", h.Disputes.Get)

	g.POST("/cart", h.Carts.Add)
	g.GET("/cart", h.Carts.List)
	g.DELETE("/cart/:id", h.Carts.Remove)
	g.DELETE("/cart", h.Carts.Clear)

	g.POST("/addresses", h.Addresses.Create)
	g.GET("/addresses", h.Addresses.List)
	g.PUT("/addresses/:id", h.Addresses.Update)
	g.DELETE("/addresses/:id", h.Addresses.Delete)

	g.POST("/messages", h.Messages.Send)
	g.GET("/messages/threads", h.Messages.Threads)
	g.GET("/messages/unread-count", h.Messages.UnreadCount)
	g.GET("/messages/with/:id", h.Messages.Conversation)

	g.PATCH("/profile", h.Profile.Update)
	g.POST("/profile/password", h.Profile.ChangePassword)
	g.POST("/profile/payout-card", h.Profile.SetPayoutCard)

	g.POST("/uploads", h.Uploads.Upload)
}

// RegisterAdmin registers the back office.  Moderators reach moderation
// and the catalog; dispute resolution and escrow money stay admin-only.
// The email allow-list admits bootstrap admins regardless of role.
func RegisterAdmin(e *echo.Echo, h *Handlers, d Deps) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(d.Cfg.JWTSecret),
		middleware.RejectBanned(d.Users),
		middleware.AdminGate(d.Cfg.IsAdminEmail, model.RoleAdmin, model.RoleModerator),
	)

	g.GET("/users", h.AdminUsers.List)
	g.PATCH("/users/:id/ban", h.AdminUsers.SetBanned)
	g.PATCH("/users/:id/trust-score", h.AdminUsers.SetTrustScore)

	g.GET("/listings", h.AdminListings.List)
	g.PATCH("/listings/:id/moderate", h.AdminListings.Moderate)

	g.GET("/catalog/entries", h.AdminCatalog.ListEntries)
	g.POST("/catalog/entries", h.AdminCatalog.CreateEntry)
	g.PUT("/catalog/entries/:id", h.AdminCatalog.UpdateEntry)
	g.DELETE("/catalog/entries/:id", h.AdminCatalog.DeleteEntry)
	g.GET("/catalog/categories", h.AdminCatalog.ListCategories)
	g.POST("/catalog/categories", h.AdminCatalog.CreateCategory)
	g.PATCH("/catalog/categories/:id", h.AdminCatalog.ToggleCategory)
	g.DELETE("/catalog/categories/:id", h.AdminCatalog.DeleteCategory)

	g.GET("/notifications", h.AdminNotifications.List)
	g.POST("/notifications", h.AdminNotifications.Create)
	g.GET("/notifications/:id/recipients", h.AdminNotifications.Recipients)
	g.POST("/notifications/:id/send", h.AdminNotifications.Send)

	g.GET("/audit-logs", h.AdminAudit.List)

	admin := g.Group("", middleware.AdminGate(d.Cfg.IsAdminEmail, model.RoleAdmin))
	admin.PATCH("/users/:id/role", h.AdminUsers.SetRole)

	admin.GET("/disputes", h.AdminDisputes.List)
	admin.GET("/disputes/:id", h.AdminDisputes.Get)
	admin.POST("/disputes/:id/resolve", h.AdminDisputes.Resolve)

	admin.GET("/finance/overview", h.AdminFinance.Overview)
	admin.GET("/finance/orders", h.AdminFinance.ListOrders)
	admin.GET("/finance/payouts", h.AdminFinance.Ledger)
	admin.POST("/finance/orders/:id/release", h.AdminFinance.Release)
	admin.POST("/finance/orders/:id/refund", h.AdminFinance.Refund)
}
