package test

import (
	"context"
	"net/http"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/privilege"
)

// This test intentionally guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = goSession.New
	_ = goSession.DefaultConfig

	var _ *goSession.Engine
	var _ goSession.Config
	var _ goSession.LoginRequest
	var _ goSession.Token
	var _ goSession.Identity
	var _ goSession.Profile
	var _ goSession.ProfileStore
	var _ goSession.TokenLog
	var _ goSession.Denylist
	var _ goSession.AuditSink
	var _ goSession.SecurityReport

	var _ error = goSession.ErrInvalidCredentials
	var _ error = goSession.ErrLoginThrottled
	var _ error = &goSession.ThrottleError{}
	var _ error = goSession.ErrTokenInvalid
	var _ error = goSession.ErrTokenExpired
	var _ error = goSession.ErrTokenRevoked
	var _ error = goSession.ErrUserNotFound

	var _ func(*goSession.Engine) func(http.Handler) http.Handler = middleware.Guard
	var _ func(*goSession.Engine, privilege.Mask) func(http.Handler) http.Handler = middleware.RequirePrivileges

	var _ func(*goSession.Engine, context.Context, goSession.LoginRequest) (*goSession.Token, error) = (*goSession.Engine).Login
	var _ func(*goSession.Engine, context.Context, string) (*goSession.Identity, error) = (*goSession.Engine).ValidateToken
	var _ func(*goSession.Engine, context.Context, string) error = (*goSession.Engine).Logout
	var _ func(*goSession.Engine, context.Context, string) (*goSession.Profile, error) = (*goSession.Engine).CurrentUser
	var _ func(*goSession.Engine, context.Context, int64) (int, error) = (*goSession.Engine).RevokeAllForUser
	var _ func(*goSession.Engine, context.Context, int64, string) (int, error) = (*goSession.Engine).PasswordChanged
}
