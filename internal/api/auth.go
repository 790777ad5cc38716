package api

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"seatbooking/internal/config"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	PermReadAvailability = "read:availability"
	PermReadBookings     = "read:bookings"
	PermWriteBookings    = "write:bookings"
	// PermManage grants every other permission.
	PermManage = "manage"

	apiKeyHeaderDefault = "x-api-key"
	clientKeyUnknown    = "unknown"
)

var (
	errMissingAPIKey    = errors.New("missing api key")
	errInvalidAPIKey    = errors.New("invalid api key")
	errPermissionDenied = errors.New("permission denied")
	errRateLimited      = errors.New("rate limit exceeded")
)

type clientContextKey struct{}

// Authenticator resolves API keys to clients, enforces per-route permissions
// and applies the per-key rate limit for both the HTTP and gRPC transports.
type Authenticator struct {
	enabled bool
	header  string
	clients []config.APIClientKey
	limiter *rateLimiter
}

func NewAuthenticator(cfg *config.APIConfig) *Authenticator {
	header := strings.ToLower(strings.TrimSpace(cfg.Auth.HeaderAPIKey))
	if header == "" {
		header = apiKeyHeaderDefault
	}
	return &Authenticator{
		enabled: cfg.Auth.Enabled,
		header:  header,
		clients: append([]config.APIClientKey(nil), cfg.Auth.APIKeys...),
		limiter: newRateLimiter(cfg.RateLimit),
	}
}

func (a *Authenticator) lookup(apiKey string) (*config.APIClientKey, error) {
	if apiKey == "" {
		return nil, errMissingAPIKey
	}
	var found *config.APIClientKey
	for i := range a.clients {
		if subtle.ConstantTimeCompare([]byte(a.clients[i].Key), []byte(apiKey)) == 1 {
			found = &a.clients[i]
		}
	}
	if found == nil {
		return nil, errInvalidAPIKey
	}
	return found, nil
}

// allowed reports whether client may use perm. A nil client means auth is
// disabled; an empty permission list allows everything.
func allowed(client *config.APIClientKey, perm string) bool {
	if client == nil || perm == "" || len(client.Permissions) == 0 {
		return true
	}
	for _, p := range client.Permissions {
		p = strings.TrimSpace(p)
		if p == perm || p == PermManage {
			return true
		}
	}
	return false
}

func clientFromContext(ctx context.Context) *config.APIClientKey {
	c, _ := ctx.Value(clientContextKey{}).(*config.APIClientKey)
	return c
}

// Middleware authenticates the request when auth is enabled and applies the
// rate limit. Permissions are checked per route by Require.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := strings.TrimSpace(r.Header.Get(a.header))

		if a.enabled {
			client, err := a.lookup(apiKey)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), clientContextKey{}, client))
		}

		key := apiKey
		if key == "" {
			key = remoteHost(r.RemoteAddr)
		}
		if !a.limiter.Allow(key) {
			writeError(w, http.StatusTooManyRequests, errRateLimited.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *Authenticator) Require(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed(clientFromContext(r.Context()), perm) {
				writeError(w, http.StatusForbidden, errPermissionDenied.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Unary is the gRPC counterpart of Middleware and Require.
func (a *Authenticator) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		apiKey := first(md.Get(a.header))

		if a.enabled {
			client, err := a.lookup(apiKey)
			if err != nil {
				return nil, status.Error(codes.Unauthenticated, err.Error())
			}
			if !allowed(client, requiredPermission(info.FullMethod)) {
				return nil, status.Error(codes.PermissionDenied, errPermissionDenied.Error())
			}
			ctx = context.WithValue(ctx, clientContextKey{}, client)
		}

		key := apiKey
		if key == "" {
			key = peerAddr(ctx)
		}
		if !a.limiter.Allow(key) {
			return nil, status.Error(codes.ResourceExhausted, errRateLimited.Error())
		}

		return handler(ctx, req)
	}
}

func requiredPermission(fullMethod string) string {
	if strings.HasPrefix(fullMethod, "/"+AvailabilityServiceName+"/") {
		return PermReadAvailability
	}
	return PermManage
}

func first(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return clientKeyUnknown
}
