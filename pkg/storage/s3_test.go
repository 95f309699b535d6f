package storage_test

import (
	"testing"

	"github.com/natserract/datacloud/pkg/storage"
)

func TestMatchKey(t *testing.T) {
	t.Parallel()

	cases := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"BulkAPITests/*.csv", "BulkAPITests/runners.csv", true},
		{"BulkAPITests/*.csv", "BulkAPITests/runners.json", false},
		{"BulkAPITests/*.csv", "other/runners.csv", false},
		{"*.csv", "runners.csv", true},
		{"*.csv", "BulkAPITests/runners.csv", false},
		{"BulkAPITests/runners.csv", "BulkAPITests/runners.csv", true},
	}

	for _, tc := range cases {
		if got := storage.MatchKey(tc.pattern, tc.key); got != tc.want {
			t.Errorf("MatchKey(%q, %q) = %v, want %v", tc.pattern, tc.key, got, tc.want)
		}
	}
}

func TestLoadConfigRequiresEndpoint(t *testing.T) {
	t.Setenv("S3_ENDPOINT_URL", "")
	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("S3_BUCKET", "dc4t-1")

	if _, err := storage.LoadConfig(); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	t.Setenv("S3_ENDPOINT_URL", "https://minio.internal:9000")
	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("S3_BUCKET", "dc4t-1")
	t.Setenv("S3_REGION", "ap-southeast-2")

	cfg, err := storage.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Bucket != "dc4t-1" {
		t.Fatalf("unexpected bucket: %q", cfg.Bucket)
	}
	if cfg.Region != "ap-southeast-2" {
		t.Fatalf("unexpected region: %q", cfg.Region)
	}
	if !cfg.UseSSL {
		t.Fatal("expected SSL enabled by default")
	}
}
