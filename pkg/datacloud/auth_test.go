package datacloud_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/natserract/datacloud/pkg/datacloud"
)

func listAllParams() datacloud.ListJobsParams {
	return datacloud.ListJobsParams{}
}

func TestAuthenticateExchangesTokens(t *testing.T) {
	t.Parallel()

	f := newFakeDataCloud(t)
	client := newTestClient(t, f)

	exchange, err := client.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if exchange.AccessToken != testOffcoreToken {
		t.Fatalf("expected off-core token, got %q", exchange.AccessToken)
	}
	if exchange.InstanceURL != f.server.URL {
		t.Fatalf("expected instance URL %q, got %q", f.server.URL, exchange.InstanceURL)
	}
}

func TestAuthenticateSignsExpectedClaims(t *testing.T) {
	t.Parallel()

	f := newFakeDataCloud(t)

	var assertion string
	f.onAssertion = func(a string) { assertion = a }

	client := newTestClient(t, f)
	if _, err := client.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if assertion == "" {
		t.Fatal("no assertion captured")
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(assertion, &claims, func(tok *jwt.Token) (interface{}, error) {
		return f.pubKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithoutClaimsValidation())
	if err != nil {
		t.Fatalf("parse assertion: %v", err)
	}
	if !token.Valid {
		t.Fatal("assertion signature invalid")
	}
	if claims.Issuer != "test-client-id" {
		t.Fatalf("expected issuer test-client-id, got %q", claims.Issuer)
	}
	if claims.Subject != "runner@tabemeadatacloud.demo" {
		t.Fatalf("expected subject runner@tabemeadatacloud.demo, got %q", claims.Subject)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != f.server.URL {
		t.Fatalf("unexpected audience: %v", claims.Audience)
	}
	if claims.ExpiresAt == nil {
		t.Fatal("expected an exp claim")
	}
}

func TestTokenCachedAcrossCalls(t *testing.T) {
	t.Parallel()

	f := newFakeDataCloud(t)
	f.mux.HandleFunc("GET /api/v1/ingest/jobs", func(w http.ResponseWriter, r *http.Request) {
		if !requireBearer(t, w, r) {
			return
		}
		w.Write([]byte(`{"data":[]}`))
	})

	client := newTestClient(t, f)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := client.ListJobs(ctx, listAllParams()); err != nil {
			t.Fatalf("ListJobs call %d: %v", i+1, err)
		}
	}

	if got := f.authCalls.Load(); got != 1 {
		t.Fatalf("expected 1 authentication, got %d", got)
	}
}

func TestInvalidateTokenForcesReauth(t *testing.T) {
	t.Parallel()

	f := newFakeDataCloud(t)
	f.mux.HandleFunc("GET /api/v1/ingest/jobs", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})

	client := newTestClient(t, f)
	ctx := context.Background()

	if _, err := client.ListJobs(ctx, listAllParams()); err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	client.InvalidateToken()
	if _, err := client.ListJobs(ctx, listAllParams()); err != nil {
		t.Fatalf("ListJobs after invalidate: %v", err)
	}

	if got := f.authCalls.Load(); got != 2 {
		t.Fatalf("expected 2 authentications, got %d", got)
	}
}
