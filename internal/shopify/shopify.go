// Package shopify wraps the Shopify Admin API: app credentials, per-shop
// GraphQL and REST client factories, and webhook signature verification.
package shopify

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"invoice-generator/internal/config"
	"invoice-generator/internal/logger"

	"github.com/sirupsen/logrus"
)

// HMACHeader carries the webhook signature.
const HMACHeader = "X-Shopify-Hmac-Sha256"

// AccessTokenHeader authenticates Admin API calls.
const AccessTokenHeader = "X-Shopify-Access-Token"

var (
	ErrMissingCredentials = errors.New("shopify: api key and secret are required")
	ErrInvalidShop        = errors.New("shopify: invalid shop domain")
	ErrMissingToken       = errors.New("shopify: access token is required")
)

// API is the configured app. It holds no per-shop state.
type API struct {
	APIKey     string
	apiSecret  string
	Scopes     []string
	HostName   string
	HostScheme string
	APIVersion string
	Embedded   bool

	httpClient   *http.Client
	baseOverride string
	log          *logrus.Entry
}

type Option func(*API)

// WithHTTPClient replaces the client used by GraphQL and REST clients.
func WithHTTPClient(c *http.Client) Option {
	return func(a *API) { a.httpClient = c }
}

// WithBaseURL overrides the https://<shop> origin, for tests and proxies.
// Shop domain validation is skipped when set.
func WithBaseURL(baseURL string) Option {
	return func(a *API) { a.baseOverride = strings.TrimSuffix(baseURL, "/") }
}

func WithLogger(log *logrus.Logger) Option {
	return func(a *API) { a.log = log.WithField("component", "shopify") }
}

// New builds the app from configuration. Credentials are required.
func New(cfg config.ShopifyConfig, appURL string, production bool, opts ...Option) (*API, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrMissingCredentials
	}

	version := cfg.APIVersion
	if version == "" {
		version = config.LatestAPIVersion
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = config.DefaultScopes
	}

	log := logrus.New()
	log.SetOutput(logger.Logger.Out)
	log.SetFormatter(logger.Logger.Formatter)
	log.SetLevel(logger.ShopifyLogLevel(production))

	a := &API{
		APIKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		Scopes:     scopes,
		HostName:   cfg.HostName(appURL),
		HostScheme: cfg.HostScheme(production),
		APIVersion: version,
		Embedded:   cfg.Embedded,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.WithField("component", "shopify"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// AppURL is the public origin Shopify redirects to.
func (a *API) AppURL() string {
	return a.HostScheme + "://" + a.HostName
}

// ScopeString is the comma-joined scope list used in OAuth requests.
func (a *API) ScopeString() string {
	return strings.Join(a.Scopes, ",")
}

// VerifyWebhook reports whether hmacHeader is the base64 HMAC-SHA256 of body
// under the app secret. Any failure is logged and reported as false.
func (a *API) VerifyWebhook(hmacHeader string, body []byte) bool {
	if err := a.verify(hmacHeader, body); err != nil {
		a.log.WithError(err).Error("Webhook verification error")
		return false
	}
	return true
}

// VerifyWebhookRequest checks the signature header of r. The body is read and
// restored so handlers can decode it afterwards.
func (a *API) VerifyWebhookRequest(r *http.Request) bool {
	if r.Body == nil {
		return a.VerifyWebhook(r.Header.Get(HMACHeader), nil)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		a.log.WithError(err).Error("Webhook verification error")
		return false
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return a.VerifyWebhook(r.Header.Get(HMACHeader), body)
}

func (a *API) verify(hmacHeader string, body []byte) error {
	if hmacHeader == "" {
		return errors.New("missing " + HMACHeader + " header")
	}
	given, err := base64.StdEncoding.DecodeString(hmacHeader)
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	if !hmac.Equal(given, Sign(a.apiSecret, body)) {
		return errors.New("signature mismatch")
	}
	return nil
}

// Sign computes the raw HMAC-SHA256 of body.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// SignBase64 is Sign encoded the way Shopify sends it.
func SignBase64(secret string, body []byte) string {
	return base64.StdEncoding.EncodeToString(Sign(secret, body))
}

// NewGraphQLClient returns a client bound to one shop and access token.
func (a *API) NewGraphQLClient(shop, accessToken string) (*GraphQLClient, error) {
	base, err := a.adminBase(shop, accessToken)
	if err != nil {
		return nil, err
	}
	return &GraphQLClient{
		endpoint: base + "/graphql.json",
		token:    accessToken,
		http:     a.httpClient,
		log:      a.log.WithField("shop", shop),
	}, nil
}

// NewRESTClient returns a client bound to one shop and access token.
func (a *API) NewRESTClient(shop, accessToken string) (*RESTClient, error) {
	base, err := a.adminBase(shop, accessToken)
	if err != nil {
		return nil, err
	}
	return &RESTClient{
		base:  base,
		token: accessToken,
		http:  a.httpClient,
		log:   a.log.WithField("shop", shop),
	}, nil
}

func (a *API) adminBase(shop, accessToken string) (string, error) {
	shop = strings.ToLower(strings.TrimSpace(shop))
	if accessToken == "" {
		return "", ErrMissingToken
	}
	origin := a.baseOverride
	if origin == "" {
		if !ValidShopDomain(shop) {
			return "", fmt.Errorf("%w: %q", ErrInvalidShop, shop)
		}
		origin = "https://" + shop
	}
	return origin + "/admin/api/" + a.APIVersion, nil
}

// ValidShopDomain accepts <name>.myshopify.com where name is letters, digits and hyphens.
func ValidShopDomain(shop string) bool {
	name, ok := strings.CutSuffix(shop, ".myshopify.com")
	if !ok || name == "" || strings.HasPrefix(name, "-") {
		return false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}
