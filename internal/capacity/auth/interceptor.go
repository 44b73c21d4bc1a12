// Package auth provides a gRPC unary interceptor that validates JWT bearer
// tokens and enforces per-method role policies.
package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Interceptor holds the JWT secret and the roles allowed on each method.
// Methods absent from the policy are public.
type Interceptor struct {
	jwtSecret string
	policy    map[string][]Role
}

func NewAuthInterceptor(jwtSecret string, policy map[string][]Role) *Interceptor {
	return &Interceptor{
		jwtSecret: jwtSecret,
		policy:    policy,
	}
}

// Unary returns a gRPC unary interceptor that puts the caller's Actor into
// the context of every protected method.
func (i *Interceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		roles, protected := i.policy[info.FullMethod]
		if !protected {
			return handler(ctx, req)
		}

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "metadata missing")
		}
		tokenString, err := extractTokenFromMetadata(md)
		if err != nil {
			return nil, err
		}
		actor, err := validateToken(tokenString, i.jwtSecret)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}
		if !allowed(actor.Role, roles) {
			return nil, status.Errorf(codes.PermissionDenied, "role %q may not call %s", actor.Role, info.FullMethod)
		}

		return handler(WithActor(ctx, actor), req)
	}
}

func allowed(role Role, roles []Role) bool {
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// extractTokenFromMetadata retrieves a Bearer token from gRPC metadata.
func extractTokenFromMetadata(md metadata.MD) (string, error) {
	authHeaders := md.Get("authorization")
	if len(authHeaders) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization header missing")
	}

	headerValue := authHeaders[0]
	if !strings.HasPrefix(headerValue, "Bearer ") {
		return "", status.Error(codes.Unauthenticated, "invalid authorization format: missing Bearer prefix")
	}

	tokenString := strings.TrimPrefix(headerValue, "Bearer ")
	if tokenString == "" {
		return "", status.Error(codes.Unauthenticated, "invalid authorization format: empty token")
	}

	return tokenString, nil
}
