package client

import (
	"context"

	"go.uber.org/zap"
)

// RouteMeta marks the access requirements of a page route.
type RouteMeta struct {
	Guest         bool
	RequiresAuth  bool
	RequiresAdmin bool
	RequiresKYC   bool
}

// Well-known page paths.
const (
	LoginPath     = "/login"
	RegisterPath  = "/register"
	DashboardPath = "/dashboard"
	KYCPath       = "/kyc"
	AdminKYCPath  = "/admin/kyc"
)

// DefaultRoutes is the application's route table.
func DefaultRoutes() map[string]RouteMeta {
	return map[string]RouteMeta{
		LoginPath:     {Guest: true},
		RegisterPath:  {Guest: true},
		DashboardPath: {RequiresAuth: true, RequiresKYC: true},
		KYCPath:       {RequiresAuth: true},
		AdminKYCPath:  {RequiresAuth: true, RequiresAdmin: true},
	}
}

// RouteGuard decides, before a navigation, whether the target page may
// render or where to redirect instead.
type RouteGuard struct {
	session *SessionStore
	kyc     *KYCStore
	routes  map[string]RouteMeta
	logger  *zap.Logger
}

func NewRouteGuard(session *SessionStore, kyc *KYCStore, routes map[string]RouteMeta, logger *zap.Logger) *RouteGuard {
	if routes == nil {
		routes = DefaultRoutes()
	}
	return &RouteGuard{session: session, kyc: kyc, routes: routes, logger: logger}
}

// Resolve returns the path that should actually render for a navigation to
// path. Checks run in order: session initialization (failure tolerated),
// guest-only routes, authentication, admin role, and finally the KYC gate,
// from which administrators are exempt.
func (g *RouteGuard) Resolve(ctx context.Context, path string) string {
	meta, known := g.routes[path]
	if !known {
		// Unknown paths land on the dashboard and take its checks.
		path = DashboardPath
		meta = g.routes[path]
	}

	if !g.session.Initialized() {
		if err := g.session.CheckAuth(ctx); err != nil {
			g.logger.Debug("Auth check failed during navigation", zap.Error(err))
		}
	}
	user := g.session.User()

	if meta.Guest {
		if user != nil {
			return DashboardPath
		}
		return path
	}

	if user == nil {
		return LoginPath
	}

	if meta.RequiresAdmin && user.Role != AdminRole {
		return DashboardPath
	}

	if meta.RequiresKYC && user.Role != AdminRole {
		if !g.kyc.Initialized() {
			if err := g.kyc.Status(ctx); err != nil {
				g.logger.Debug("KYC status fetch failed during navigation", zap.Error(err))
			}
		}
		kyc := g.kyc.UserKYC()
		if kyc == nil || kyc.Status != statusApproved {
			return KYCPath
		}
	}

	return path
}
