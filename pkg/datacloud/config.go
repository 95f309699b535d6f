package datacloud

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Default login host when loginUrl is not set. Matches the vendor's
// production login endpoint; sandboxes use test.salesforce.com.
const DefaultLoginURL = "login.salesforce.com"

// Config holds the connected-app credentials and local settings for a
// Data Cloud instance. Environment keys follow the vendor's setup guide:
// clientId, privateKeyFile, userName, loginUrl, tempDir, inputFileEncoding.
type Config struct {
	LoginURL          string
	ClientID          string
	PrivateKeyFile    string
	UserName          string
	TempDir           string
	InputFileEncoding string
}

func LoadConfig() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		LoginURL:          os.Getenv("loginUrl"),
		ClientID:          os.Getenv("clientId"),
		PrivateKeyFile:    os.Getenv("privateKeyFile"),
		UserName:          os.Getenv("userName"),
		TempDir:           os.Getenv("tempDir"),
		InputFileEncoding: os.Getenv("inputFileEncoding"),
	}

	if cfg.LoginURL == "" {
		cfg.LoginURL = DefaultLoginURL
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("clientId is required")
	}
	if c.PrivateKeyFile == "" {
		return fmt.Errorf("privateKeyFile is required")
	}
	if c.UserName == "" {
		return fmt.Errorf("userName is required")
	}
	// tempDir and inputFileEncoding are optional, so we don't validate them
	return nil
}
