package httpserver

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/kpath-io/kpath-search/internal/apierrors"
	"github.com/kpath-io/kpath-search/internal/catalog"
	"github.com/kpath-io/kpath-search/internal/config"
)

// Authenticator resolves one of the three credential mechanisms named
// in §4.8 step 1, tried in order: Bearer JWT, X-API-Key header, api_key
// query parameter.
type Authenticator struct {
	reader *catalog.Reader
}

func NewAuthenticator(reader *catalog.Reader) *Authenticator {
	return &Authenticator{reader: reader}
}

// Authenticate resolves r's credential into a Principal, or an
// apierrors AuthError if none of the three mechanisms produced one.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) (Principal, error) {
	var lastErr error
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token := strings.TrimPrefix(header, "Bearer ")
		p, err := a.authenticateBearer(token)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		p, err := a.authenticateAPIKey(ctx, key)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	if key := r.URL.Query().Get("api_key"); key != "" {
		p, err := a.authenticateAPIKey(ctx, key)
		if err == nil {
			return p, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return Principal{}, lastErr
	}
	return Principal{}, apierrors.NewAuthError("missing credentials: supply a bearer token, X-API-Key header, or api_key query parameter")
}

// authenticateBearer validates an HMAC-signed JWT per the configured
// secret/issuer (§4.8 step 1 "Bearer JWT").
func (a *Authenticator) authenticateBearer(tokenString string) (Principal, error) {
	secret := config.JWTHMACSecret.Get()
	if secret == "" {
		return Principal{}, apierrors.NewAuthError("bearer authentication is not configured")
	}

	parseOpts := []jwt.ParseOption{jwt.WithKey(jwa.HS256, []byte(secret)), jwt.WithValidate(true)}
	if issuer := config.JWTIssuer.Get(); issuer != "" {
		parseOpts = append(parseOpts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.ParseString(tokenString, parseOpts...)
	if err != nil {
		return Principal{}, apierrors.NewAuthError("invalid bearer token: " + err.Error())
	}

	userID, err := strconv.ParseUint(token.Subject(), 10, 64)
	if err != nil {
		return Principal{}, apierrors.NewAuthError("bearer token subject is not a numeric user id")
	}

	scopes := []string{"search"}
	if raw, ok := token.Get("scopes"); ok {
		if list, ok := raw.([]any); ok {
			scopes = scopes[:0]
			for _, s := range list {
				if str, ok := s.(string); ok {
					scopes = append(scopes, str)
				}
			}
		}
	}

	return Principal{
		UserID:    uint(userID),
		RawID:     token.Subject(),
		Scopes:    scopes,
		RateLimit: config.DefaultRateLimitPerHour.Get(),
		ViaBearer: true,
	}, nil
}

// authenticateAPIKey hashes key and looks up the matching unrevoked
// APIKey row (§4.8 step 1 "API key header/query param", §6 "only its
// SHA-256 hash is persisted").
func (a *Authenticator) authenticateAPIKey(ctx context.Context, key string) (Principal, error) {
	sum := sha256.Sum256([]byte(key))
	hash := hex.EncodeToString(sum[:])

	record, err := a.reader.APIKeyByHash(ctx, hash)
	if err != nil {
		return Principal{}, apierrors.NewAuthError("invalid or revoked API key")
	}
	// constant-time re-compare guards against timing side-channels on
	// the hash lookup despite the exact-match query above.
	if subtle.ConstantTimeCompare([]byte(record.KeyHash), []byte(hash)) != 1 {
		return Principal{}, apierrors.NewAuthError("invalid or revoked API key")
	}

	userID, err := strconv.ParseUint(record.PrincipalID, 10, 64)
	if err != nil {
		return Principal{}, apierrors.NewAuthError("API key principal is not a numeric user id")
	}

	rateLimit := record.DefaultRateLimitPerHour
	if rateLimit == 0 {
		rateLimit = config.DefaultRateLimitPerHour.Get()
	}

	var scopes []string
	if record.Scopes != "" {
		scopes = strings.Split(record.Scopes, ",")
	} else {
		scopes = []string{"search"}
	}

	go a.reader.TouchAPIKeyLastUsed(context.WithoutCancel(ctx), record.ID)

	return Principal{
		UserID:    uint(userID),
		RawID:     record.PrincipalID,
		APIKeyID:  record.ID,
		Scopes:    scopes,
		RateLimit: rateLimit,
		ViaAPIKey: true,
	}, nil
}

// authMiddleware resolves the principal and attaches it to the request
// context (§4.8 step 1-2). Scope enforcement happens per-route via
// requireScope.
func authMiddleware(authn *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authn.Authenticate(r.Context(), r)
			if err != nil {
				if ew, ok := w.(ErrorResponseWriter); ok {
					ew.RespondWithError(err)
					return
				}
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			ctx := withPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requireScope wraps a handler, rejecting requests whose principal
// lacks scope with a ForbiddenError (§4.8 step 2).
func requireScope(scope string, next func(ErrorResponseWriter, *http.Request)) func(ErrorResponseWriter, *http.Request) {
	return func(w ErrorResponseWriter, r *http.Request) {
		principal, ok := PrincipalFrom(r.Context())
		if !ok || !principal.HasScope(scope) {
			w.RespondWithError(apierrors.NewForbiddenError("principal lacks required scope: " + scope))
			return
		}
		next(w, r)
	}
}
