package domain

import (
	"regexp"
	"strconv"
	"strings"
)

// UnstableAPIVersion is the moving Admin API version, compatible with everything
const UnstableAPIVersion = "unstable"

// PubSubMinAPIVersion is the first Admin API version accepting Pub/Sub webhook deliveries
const PubSubMinAPIVersion = "2021-07"

// AppConfig describes the Shopify app this service authenticates for
type AppConfig struct {
	APIKey        string
	APISecretKey  string
	Scopes        Scopes
	HostName      string
	APIVersion    string
	IsEmbeddedApp bool
	IsPrivateApp  bool
}

var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*\.myshopify\.(com|io)$`)

// ValidShop reports whether shop is a well formed myshopify domain
func ValidShop(shop string) bool {
	return shopDomainPattern.MatchString(shop)
}

// ShopFromDest strips the scheme from a session token "dest" claim
func ShopFromDest(dest string) string {
	return strings.TrimPrefix(dest, "https://")
}

// VersionCompatible reports whether current is at least reference.
// The unstable version is always compatible; unparsable versions never are.
func VersionCompatible(reference, current string) bool {
	if current == UnstableAPIVersion {
		return true
	}
	cur, err := numericVersion(current)
	if err != nil {
		return false
	}
	ref, err := numericVersion(reference)
	if err != nil {
		return false
	}
	return cur >= ref
}

func numericVersion(version string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(version, "-", ""))
}
