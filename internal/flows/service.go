package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Validate.Store != nil && s.deps.Login.ready()
}

func (s Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	return RunLogin(ctx, req, s.deps.Login)
}

func (s Service) Validate(ctx context.Context, opaque string) ValidateResult {
	return RunValidate(ctx, opaque, s.deps.Validate)
}

func (s Service) Logout(ctx context.Context, opaque string) (int64, error) {
	return RunLogout(ctx, opaque, s.deps.Logout)
}

func (s Service) LogoutAll(ctx context.Context, userID int64) (int, error) {
	return RunLogoutAll(ctx, userID, s.deps.Logout)
}

func (s Service) PasswordChanged(ctx context.Context, userID int64, oldHash string) (int, error) {
	return RunPasswordChanged(ctx, userID, oldHash, s.deps.Logout)
}
