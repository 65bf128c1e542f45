package interceptor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"vehicle-checkpoint-backend/internal/security"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func call(t *testing.T, i *AuthInterceptor, ctx context.Context, method string) (string, error) {
	t.Helper()
	var seen string
	_, err := i.Unary()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: method}, func(ctx context.Context, req interface{}) (interface{}, error) {
		md, _ := metadata.FromIncomingContext(ctx)
		if v := md.Get(OperatorIDHeader); len(v) > 0 {
			seen = v[0]
		}
		return nil, nil
	})
	return seen, err
}

func TestAuthInterceptor(t *testing.T) {
	tm := security.NewTokenManager(testSecret, time.Hour)
	i := NewAuthInterceptor(tm)
	operator, err := tm.GenerateAccessToken("op-1", "", []string{security.RoleOperator})
	require.NoError(t, err)
	supervisor, err := tm.GenerateAccessToken("sup-1", "", []string{security.RoleSupervisor})
	require.NoError(t, err)

	t.Run("public method needs no token", func(t *testing.T) {
		_, err := call(t, i, context.Background(), "/grpc.health.v1.Health/Check")
		assert.NoError(t, err)
	})

	t.Run("missing metadata", func(t *testing.T) {
		_, err := call(t, i, context.Background(), "/checkpoint.v1.Ops/Drain")
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("invalid token", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer nope"))
		_, err := call(t, i, ctx, "/checkpoint.v1.Ops/Drain")
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("spoofed operator header is replaced", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
			"authorization", "Bearer "+operator,
			OperatorIDHeader, "someone-else",
		))
		seen, err := call(t, i, ctx, "/checkpoint.v1.Ops/Drain")
		require.NoError(t, err)
		assert.Equal(t, "op-1", seen)
	})

	t.Run("supervisor method", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", operator))
		_, err := call(t, i, ctx, "reviews.mark")
		assert.Equal(t, codes.PermissionDenied, status.Code(err))

		ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", supervisor))
		seen, err := call(t, i, ctx, "reviews.mark")
		require.NoError(t, err)
		assert.Equal(t, "sup-1", seen)
	})
}
