package datacloud_test

import (
	"os"
	"strings"
	"testing"

	"github.com/natserract/datacloud/pkg/datacloud"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("clientId", "3MVG9...")
	t.Setenv("privateKeyFile", "server.key")
	t.Setenv("userName", "runner@tabemeadatacloud.demo")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("loginUrl", "")
	t.Setenv("tempDir", "")
	t.Setenv("inputFileEncoding", "")

	cfg, err := datacloud.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LoginURL != datacloud.DefaultLoginURL {
		t.Fatalf("expected default login URL, got %q", cfg.LoginURL)
	}
	if cfg.TempDir != os.TempDir() {
		t.Fatalf("expected default temp dir, got %q", cfg.TempDir)
	}
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("loginUrl", "test.salesforce.com")
	t.Setenv("tempDir", "tempfiles")
	t.Setenv("inputFileEncoding", "windows-1252")

	cfg, err := datacloud.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LoginURL != "test.salesforce.com" {
		t.Fatalf("unexpected login URL: %q", cfg.LoginURL)
	}
	if cfg.TempDir != "tempfiles" {
		t.Fatalf("unexpected temp dir: %q", cfg.TempDir)
	}
	if cfg.InputFileEncoding != "windows-1252" {
		t.Fatalf("unexpected encoding: %q", cfg.InputFileEncoding)
	}
}

func TestLoadConfigRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		unset string
	}{
		{"missing clientId", "clientId"},
		{"missing privateKeyFile", "privateKeyFile"},
		{"missing userName", "userName"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.unset, "")

			_, err := datacloud.LoadConfig()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.unset) {
				t.Fatalf("expected error to name %s, got %v", tc.unset, err)
			}
		})
	}
}
