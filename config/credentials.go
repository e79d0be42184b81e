package config

import (
	"strings"
)

// CredentialKind classifies an API key by provider tier. The tier decides
// both request placement (query parameter vs header) and the rolling-window
// limits a fetch may use.
type CredentialKind int

const (
	CredentialNone CredentialKind = iota
	CredentialDemo
	CredentialPro
)

func (k CredentialKind) String() string {
	switch k {
	case CredentialDemo:
		return "demo"
	case CredentialPro:
		return "pro"
	default:
		return "none"
	}
}

// Credential is the resolved form of the raw key/header/query-param config
// fields. Exactly one of Header or QueryParam is set when Kind is not
// CredentialNone.
type Credential struct {
	Kind       CredentialKind
	Key        string
	Header     string
	QueryParam string
}

const (
	coingeckoDemoQueryParam = "x_cg_demo_api_key"
	coingeckoProHeader      = "x-cg-pro-api-key"
)

// resolveCoingeckoCredential applies the provider's placement rules once at
// load time. Explicit header or query-param configuration wins; otherwise the
// key prefix decides: CoinGecko hands out demo-tier keys prefixed "CG-",
// which authenticate through a query parameter, while pro keys go in a
// header. Unconfigured demo keys keep working because of the prefix check.
func resolveCoingeckoCredential(key, header, queryParam string) Credential {
	key = strings.TrimSpace(key)
	header = strings.TrimSpace(header)
	queryParam = strings.TrimSpace(queryParam)

	if key == "" {
		return Credential{Kind: CredentialNone}
	}

	if header != "" {
		kind := CredentialPro
		if strings.Contains(strings.ToLower(header), "x-cg-demo") {
			kind = CredentialDemo
		}
		return Credential{Kind: kind, Key: key, Header: header}
	}

	if queryParam != "" {
		kind := CredentialPro
		if strings.Contains(strings.ToLower(queryParam), "x_cg_demo") {
			kind = CredentialDemo
		}
		return Credential{Kind: kind, Key: key, QueryParam: queryParam}
	}

	if strings.HasPrefix(strings.ToUpper(key), "CG-") {
		return Credential{Kind: CredentialDemo, Key: key, QueryParam: coingeckoDemoQueryParam}
	}
	return Credential{Kind: CredentialPro, Key: key, Header: coingeckoProHeader}
}
