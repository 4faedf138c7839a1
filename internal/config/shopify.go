package config

import "strings"

// LatestAPIVersion is the newest stable Admin API release the app targets.
const LatestAPIVersion = "2026-10"

// DefaultScopes are requested when SHOPIFY_SCOPES is unset.
var DefaultScopes = []string{
	"read_products",
	"read_orders",
	"write_draft_orders",
	"read_customers",
	"write_orders",
	"read_inventory",
	"write_inventory",
}

type ShopifyConfig struct {
	APIKey     string   `env:"SHOPIFY_API_KEY"`
	APISecret  string   `env:"SHOPIFY_API_SECRET"`
	Scopes     []string `env:"SHOPIFY_SCOPES" envSeparator:","`
	APIVersion string   `env:"SHOPIFY_API_VERSION" envDefault:"2026-10"`
	Embedded   bool     `env:"SHOPIFY_EMBEDDED" envDefault:"true"`
}

// HostName strips the scheme from the public app URL.
func (c ShopifyConfig) HostName(appURL string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(appURL, "https://"), "http://")
	host = strings.TrimSuffix(host, "/")
	if host == "" {
		return "localhost:3001"
	}
	return host
}

func (c ShopifyConfig) HostScheme(production bool) string {
	if production {
		return "https"
	}
	return "http"
}

func normalizeScopes(scopes []string) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultScopes...)
	}
	return out
}
