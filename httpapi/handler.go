package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/middleware"
	"github.com/MrEthical07/goSession/privilege"
)

// Request headers read by the login route.
const (
	HeaderConnectingIP    = "CF-Connecting-IP"
	HeaderForwardedFor    = "X-Forwarded-For"
	HeaderTokenPrivileges = "Token-Privileges"
)

const defaultMaxBodyBytes = 4 << 10

// Options tunes a [Handler].
type Options struct {
	Logger *slog.Logger
	// TrustRemoteAddr uses the connection's peer address when neither
	// CF-Connecting-IP nor X-Forwarded-For is present. Leave it off behind a
	// proxy.
	TrustRemoteAddr bool
	MaxBodyBytes    int64
}

// Handler translates HTTP requests into engine calls.
type Handler struct {
	engine          *goSession.Engine
	logger          *slog.Logger
	trustRemoteAddr bool
	maxBodyBytes    int64
}

// New returns a Handler for engine.
func New(engine *goSession.Engine, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Handler{
		engine:          engine,
		logger:          logger,
		trustRemoteAddr: opts.TrustRemoteAddr,
		maxBodyBytes:    maxBody,
	}
}

// Routes returns a mux serving every /auth route.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

// Register mounts the /auth routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("GET /auth/check", h.check)
	mux.HandleFunc("GET /auth/logout", h.logout)
	mux.HandleFunc("GET /auth/@me", h.me)
}

type loginBody struct {
	Username string `json:"username"`
	PwMD5    string `json:"pw_md5"`
}

type tokenBody struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
}

type profileBody struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	SafeName   string `json:"safe_name"`
	Privileges uint64 `json:"priv"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err := dec.Decode(&body); err != nil || body.Username == "" || body.PwMD5 == "" {
		failure(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	addr := h.clientAddress(r)
	if addr == "" {
		failure(w, http.StatusBadRequest, "Could not determine client's IP address.")
		return
	}
	agent := r.UserAgent()
	if agent == "" {
		failure(w, http.StatusBadRequest, "Could not determine client's user agent.")
		return
	}

	mask, err := privilege.Parse(r.Header.Get(HeaderTokenPrivileges))
	if err != nil {
		failure(w, http.StatusBadRequest, "Invalid token privileges.")
		return
	}

	tok, err := h.engine.Login(r.Context(), goSession.LoginRequest{
		Username:       body.Username,
		FastCredential: body.PwMD5,
		ClientAddress:  addr,
		ClientAgent:    agent,
		RequestedMask:  mask,
	})
	if err != nil {
		h.loginFailure(w, r, err)
		return
	}

	noStore(w)
	success(w, tokenBody{Token: tok.Token, Expires: tok.ExpiresAt.Unix()})
}

func (h *Handler) loginFailure(w http.ResponseWriter, r *http.Request, err error) {
	var te *goSession.ThrottleError
	switch {
	case errors.As(err, &te):
		w.Header().Set("Retry-After", retryAfterSeconds(te.RetryAfter))
		failure(w, http.StatusTooManyRequests, throttleMessage(te.RetryAfter))
	case errors.Is(err, goSession.ErrInvalidCredentials):
		failure(w, http.StatusUnauthorized, "Invalid username or password.")
	case errors.Is(err, goSession.ErrClientMetadataRequired):
		failure(w, http.StatusBadRequest, "Client address and user agent are required.")
	case errors.Is(err, goSession.ErrPrivilegeNotGranted):
		failure(w, http.StatusForbidden, "Requested token privileges are not granted.")
	case errors.Is(err, goSession.ErrBackendUnavailable):
		h.logger.ErrorContext(r.Context(), "login backend unavailable", "error", err)
		failure(w, http.StatusServiceUnavailable, "Service unavailable.")
	default:
		h.logger.ErrorContext(r.Context(), "login failed", "error", err)
		failure(w, http.StatusInternalServerError, "Internal server error.")
	}
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.TokenFromRequest(r)
	if !ok {
		failure(w, http.StatusUnauthorized, "No token provided.")
		return
	}
	if _, err := h.engine.ValidateToken(r.Context(), token); err != nil {
		h.tokenFailure(w, r, err)
		return
	}
	success(w, map[string]bool{"valid": true})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.TokenFromRequest(r)
	if !ok {
		failure(w, http.StatusUnauthorized, "No token provided.")
		return
	}
	if err := h.engine.Logout(r.Context(), token); err != nil {
		h.tokenFailure(w, r, err)
		return
	}
	success(w, nil)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.TokenFromRequest(r)
	if !ok {
		failure(w, http.StatusUnauthorized, "No token provided.")
		return
	}
	profile, err := h.engine.CurrentUser(r.Context(), token)
	if err != nil {
		h.tokenFailure(w, r, err)
		return
	}
	noStore(w)
	success(w, profileBody{
		ID:         profile.ID,
		Name:       profile.Name,
		SafeName:   profile.SafeName,
		Privileges: profile.Privileges.Raw(),
	})
}

func (h *Handler) tokenFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, goSession.ErrTokenInvalid):
		failure(w, http.StatusUnauthorized, "Invalid token.")
	case errors.Is(err, goSession.ErrTokenExpired):
		failure(w, http.StatusUnauthorized, "Token expired.")
	case errors.Is(err, goSession.ErrTokenRevoked):
		failure(w, http.StatusUnauthorized, "Token revoked.")
	case errors.Is(err, goSession.ErrUserNotFound):
		failure(w, http.StatusUnauthorized, "User not found.")
	case errors.Is(err, goSession.ErrBackendUnavailable):
		h.logger.ErrorContext(r.Context(), "token backend unavailable", "error", err)
		failure(w, http.StatusServiceUnavailable, "Service unavailable.")
	default:
		h.logger.ErrorContext(r.Context(), "token request failed", "error", err)
		failure(w, http.StatusInternalServerError, "Internal server error.")
	}
}

// clientAddress prefers CF-Connecting-IP, then the first X-Forwarded-For hop.
func (h *Handler) clientAddress(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get(HeaderConnectingIP)); ip != "" {
		return ip
	}
	if fwd := r.Header.Get(HeaderForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if h.trustRemoteAddr {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return r.RemoteAddr
		}
		return host
	}
	return ""
}

func retryAfterSeconds(d time.Duration) string {
	return strconv.FormatInt(ceilSeconds(d), 10)
}

func ceilSeconds(d time.Duration) int64 {
	return max(int64(math.Ceil(d.Seconds())), 1)
}

// throttleMessage renders the remaining lockout, rounded up, in the largest
// whole unit.
func throttleMessage(d time.Duration) string {
	secs := ceilSeconds(d)
	n, unit := secs, "second"
	if secs >= 60 {
		n, unit = (secs+59)/60, "minute"
	}
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("Too many invalid login attempts. Wait %d %s before trying again.", n, unit)
}
