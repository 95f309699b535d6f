package datacloud_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/natserract/datacloud/pkg/datacloud"
	"go.uber.org/zap"
)

const (
	testCoreToken    = "core-token"
	testOffcoreToken = "offcore-token"
)

// testKey generates an RSA key pair, writes the private key PEM to a temp
// file, and returns the path plus the public half for assertion checks.
func testKey(t *testing.T) (string, *rsa.PublicKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	path := filepath.Join(t.TempDir(), "server.key")
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	return path, &key.PublicKey
}

// fakeDataCloud is an httptest server standing in for both the core login
// host and the off-core Data Cloud instance.
type fakeDataCloud struct {
	server    *httptest.Server
	mux       *http.ServeMux
	authCalls atomic.Int32
	pubKey    *rsa.PublicKey

	// onAssertion, when set, observes the raw JWT presented to the token
	// endpoint
	onAssertion func(assertion string)
}

// newFakeDataCloud starts the fake server with the two token endpoints
// registered. API endpoints are added by each test on the returned mux.
func newFakeDataCloud(t *testing.T) *fakeDataCloud {
	t.Helper()

	f := &fakeDataCloud{mux: http.NewServeMux()}
	f.server = httptest.NewServer(f.mux)
	t.Cleanup(f.server.Close)

	f.mux.HandleFunc("POST /services/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if got := r.PostForm.Get("grant_type"); got != "urn:ietf:params:oauth:grant-type:jwt-bearer" {
			http.Error(w, "wrong grant_type: "+got, http.StatusBadRequest)
			return
		}
		assertion := r.PostForm.Get("assertion")
		if assertion == "" {
			http.Error(w, "missing assertion", http.StatusBadRequest)
			return
		}
		if f.onAssertion != nil {
			f.onAssertion(assertion)
		}
		f.authCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"` + testCoreToken + `","instance_url":"` + f.server.URL + `","token_type":"Bearer"}`))
	})

	f.mux.HandleFunc("POST /services/a360/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		if got := r.PostForm.Get("subject_token"); got != testCoreToken {
			http.Error(w, "wrong subject_token: "+got, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"` + testOffcoreToken + `","instance_url":"` + f.server.URL + `","token_type":"Bearer","expires_in":7200}`))
	})

	return f
}

// newTestClient wires a client at the fake server with a freshly generated key
func newTestClient(t *testing.T, f *fakeDataCloud) *datacloud.Client {
	t.Helper()

	keyPath, pubKey := testKey(t)
	f.pubKey = pubKey

	cfg := &datacloud.Config{
		LoginURL:       f.server.URL,
		ClientID:       "test-client-id",
		PrivateKeyFile: keyPath,
		UserName:       "runner@tabemeadatacloud.demo",
		TempDir:        t.TempDir(),
	}

	return datacloud.NewClientWithLogger(cfg, zap.NewNop())
}

// requireBearer fails the request unless the off-core token is presented
func requireBearer(t *testing.T, w http.ResponseWriter, r *http.Request) bool {
	t.Helper()
	if got := r.Header.Get("Authorization"); got != "Bearer "+testOffcoreToken {
		t.Errorf("unexpected Authorization header: %q", got)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}
