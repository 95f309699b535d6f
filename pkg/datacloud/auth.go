package datacloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// tokenValidity is how long an exchanged Data Cloud token is treated as
// usable before re-authenticating. The vendor session lasts two hours; we
// refresh at 115 minutes to never present a token near expiry.
const tokenValidity = 115 * time.Minute

// getAccessToken returns a valid Data Cloud token and off-core instance URL,
// using the cache if the current token is still fresh.
func (c *Client) getAccessToken(ctx context.Context) (string, string, error) {
	c.tokenCache.mu.RLock()
	if c.tokenCache.accessToken != "" && time.Now().Before(c.tokenCache.expiresAt) {
		token := c.tokenCache.accessToken
		instanceURL := c.tokenCache.instanceURL
		remaining := time.Until(c.tokenCache.expiresAt)
		c.tokenCache.mu.RUnlock()
		c.logger.Debug("Using cached access token", zap.Duration("remaining", remaining))
		return token, instanceURL, nil
	}
	c.tokenCache.mu.RUnlock()

	c.logger.Info("Access token expired or not available, authenticating")
	exchange, err := c.Authenticate(ctx)
	if err != nil {
		c.logger.Error("Failed to authenticate", zap.Error(err))
		return "", "", fmt.Errorf("failed to authenticate: %w", err)
	}

	instanceURL := normalizeBaseURL(exchange.InstanceURL)

	c.tokenCache.mu.Lock()
	c.tokenCache.accessToken = exchange.AccessToken
	c.tokenCache.instanceURL = instanceURL
	c.tokenCache.expiresAt = time.Now().Add(tokenValidity)
	c.tokenCache.mu.Unlock()

	c.logger.Info("Successfully authenticated and cached access token",
		zap.Time("expires_at", time.Now().Add(tokenValidity)))

	return exchange.AccessToken, instanceURL, nil
}

// Authenticate performs the full two-step login: the JWT bearer flow against
// the core org, then the Data Cloud token exchange against the returned
// instance. The exchanged token and off-core instance URL come back to the
// caller; getAccessToken handles caching.
func (c *Client) Authenticate(ctx context.Context) (*ExchangeResponse, error) {
	assertion, err := c.mintAssertion()
	if err != nil {
		return nil, fmt.Errorf("failed to build JWT assertion: %w", err)
	}

	tokenURL := normalizeBaseURL(c.config.LoginURL) + "/services/oauth2/token"
	c.logger.Info("Requesting core access token", zap.String("url", tokenURL))

	resp, err := c.httpClient.Post(ctx, tokenURL, nil, url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	})
	if err != nil {
		return nil, apiError("Get S2S Access Token", tokenURL, err)
	}
	if resp.StatusCode != 200 {
		return nil, unexpectedStatus("Get S2S Access Token", tokenURL, resp.StatusCode, resp.Body)
	}

	var authResp AuthResponse
	if err := json.Unmarshal(resp.Body, &authResp); err != nil {
		c.logger.Error("Failed to parse core token response", zap.Error(err))
		return nil, fmt.Errorf("failed to parse core token response: %w", err)
	}

	exchangeURL := normalizeBaseURL(authResp.InstanceURL) + "/services/a360/token"
	c.logger.Info("Requesting Data Cloud token exchange", zap.String("url", exchangeURL))

	resp, err = c.httpClient.Post(ctx, exchangeURL, nil, url.Values{
		"grant_type":         {"urn:salesforce:grant-type:external:cdp"},
		"subject_token":      {authResp.AccessToken},
		"subject_token_type": {"urn:ietf:params:oauth:token-type:access_token"},
	})
	if err != nil {
		return nil, apiError("Data Cloud Token Exchange", exchangeURL, err)
	}
	if resp.StatusCode != 200 {
		return nil, unexpectedStatus("Data Cloud Token Exchange", exchangeURL, resp.StatusCode, resp.Body)
	}

	var exchange ExchangeResponse
	if err := json.Unmarshal(resp.Body, &exchange); err != nil {
		c.logger.Error("Failed to parse token exchange response", zap.Error(err))
		return nil, fmt.Errorf("failed to parse token exchange response: %w", err)
	}

	c.logger.Info("Successfully authenticated",
		zap.String("token_type", exchange.TokenType),
		zap.String("instance_url", exchange.InstanceURL))

	return &exchange, nil
}

// InvalidateToken drops the cached token so the next call re-authenticates
func (c *Client) InvalidateToken() {
	c.tokenCache.mu.Lock()
	c.tokenCache.accessToken = ""
	c.tokenCache.expiresAt = time.Time{}
	c.tokenCache.mu.Unlock()
}

// mintAssertion signs the JWT used for the bearer flow. The audience is the
// bare login host and exp is now, per the connected-app setup guide.
func (c *Client) mintAssertion() (string, error) {
	keyPEM, err := os.ReadFile(c.config.PrivateKeyFile)
	if err != nil {
		return "", fmt.Errorf("failed to read private key file: %w", err)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(keyPEM)
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	claims := jwt.RegisteredClaims{
		Issuer:    c.config.ClientID,
		Subject:   c.config.UserName,
		Audience:  jwt.ClaimStrings{c.config.LoginURL},
		ExpiresAt: jwt.NewNumericDate(time.Now()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign assertion: %w", err)
	}

	return signed, nil
}

// authHeaders builds the Authorization header for an authenticated call and
// returns the off-core base URL requests should target.
func (c *Client) authHeaders(ctx context.Context) (map[string]string, string, error) {
	token, instanceURL, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, "", err
	}
	return map[string]string{
		"Authorization": "Bearer " + token,
	}, instanceURL, nil
}
