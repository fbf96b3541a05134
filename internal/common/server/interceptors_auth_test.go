package server

import (
	"context"
	"testing"
	"time"

	"github.com/RentalGrid/RentalGrid/internal/common/auth"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestUnaryNodeAuthInterceptor(t *testing.T) {
	secret := "test-secret"
	tokenStr, _, err := auth.GenerateNodeToken(secret, "branch-1", 1, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	ic := UnaryNodeAuthInterceptor(secret, nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/rentalgrid.cluster.Transport/Deliver"}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+tokenStr))
	_, err = ic(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		pi, ok := PeerFromContext(ctx)
		if !ok {
			t.Fatalf("missing peer info in ctx")
		}
		if pi.NodeName != "branch-1" || pi.ClusterID != 1 {
			t.Fatalf("peer mismatch: %+v", pi)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected allow, got err=%v", err)
	}

	// 无令牌应被拒绝
	_, err = ic(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	if err == nil {
		t.Fatalf("expected unauthenticated, got nil")
	}
}

func TestUnaryNodeAuthInterceptorDisabled(t *testing.T) {
	ic := UnaryNodeAuthInterceptor("", nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/rentalgrid.cluster.Transport/Deliver"}

	called := false
	_, err := ic(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		called = true
		return "ok", nil
	})
	if err != nil || !called {
		t.Fatalf("expected passthrough when secret empty, err=%v called=%v", err, called)
	}
}
