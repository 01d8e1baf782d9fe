package session

import (
	"context"
	"openpka/authority"
	"openpka/bizerror"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const TokenExpiration = 24 * time.Hour

var TokenCache = cache.New(TokenExpiration, 1*time.Minute)

const (
	KeySecCtx   = "SecCtx"
	KeySecToken = "sec_token"

	HeaderRequestID = "X-Request-Id"
)

// ExtractSessionFromGinContext returns a copy of the authenticated session bound to the request context,
// an anonymous session when the request is not authenticated.
func ExtractSessionFromGinContext(ctx *gin.Context) *Session {
	var s Session
	if value, found := ctx.Get(KeySecCtx); found {
		if s0, ok := value.(*Session); ok && s0.Token != "" {
			s = s0.Clone()
		}
	}
	s.Context = ctx.Request.Context() // trace context
	s.RequestID = ctx.GetHeader(HeaderRequestID)
	if s.RequestID == "" {
		s.RequestID = uuid.New().String()
	}
	s.RequestMeta = map[string]string{
		"clientIp":  ctx.ClientIP(),
		"userAgent": ctx.Request.UserAgent(),
		"route":     ctx.Request.Method + " " + ctx.FullPath(),
	}
	return &s
}

// RequirePerm extracts the session and panics with ErrForbidden unless it holds perm.
func RequirePerm(ctx *gin.Context, perm string) *Session {
	s := ExtractSessionFromGinContext(ctx)
	if !s.HasPerm(perm) {
		panic(bizerror.ErrForbidden)
	}
	return s
}

func SimpleAuthFilter() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := bearerToken(ctx)
		if token == "" {
			panic(bizerror.ErrUnauthenticated)
		}
		value, found := TokenCache.Get(token)
		if !found {
			panic(bizerror.ErrUnauthenticated)
		}
		s, ok := value.(*Session)
		if !ok {
			panic(bizerror.ErrUnauthenticated)
		}
		InjectSessionIntoGinContext(ctx, s)
		ctx.Next()
	}
}

func InjectSessionIntoGinContext(ctx *gin.Context, s *Session) {
	if s != nil && s.Token != "" {
		ctx.Set(KeySecCtx, s)
	}
}

// IssueToken registers a session for identity, authentication itself happens upstream.
func IssueToken(identity Identity, perms authority.Permissions, expiration time.Duration) *Session {
	s := &Session{
		Context:     context.Background(),
		Token:       uuid.New().String(),
		Identity:    identity,
		Perms:       perms,
		SigningTime: time.Now(),
	}
	TokenCache.Set(s.Token, s, expiration)
	return s
}

func RegisterToken(token string, identity Identity, perms authority.Permissions, expiration time.Duration) *Session {
	s := &Session{Context: context.Background(), Token: token, Identity: identity, Perms: perms, SigningTime: time.Now()}
	TokenCache.Set(token, s, expiration)
	return s
}

func bearerToken(ctx *gin.Context) string {
	if header := ctx.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	token, _ := ctx.Cookie(KeySecToken) // ErrNoCookie
	return token
}
