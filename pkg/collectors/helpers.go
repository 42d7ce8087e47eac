package collectors

import "strings"

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// ConfigString returns the trimmed string value for key from source.Config or a fallback.
func ConfigString(cfg Source, key, fallback string) string {
	if cfg.Config != nil {
		if raw, ok := cfg.Config[key]; ok {
			if val, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(val); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return fallback
}

const (
	ConfigUserAgentKey      = "user_agent"
	ConfigAcceptKey         = "accept"
	ConfigAcceptLanguageKey = "accept_language"
	ConfigCacheControlKey   = "cache_control"
	ConfigCityParamKey      = "city_param"
)

// Headers builds the common request headers from a source config (skips empty values).
func Headers(cfg Source) map[string]string {
	headers := make(map[string]string, 4)

	if v := ConfigString(cfg, ConfigUserAgentKey, ""); v != "" {
		headers["User-Agent"] = v
	}
	if v := ConfigString(cfg, ConfigAcceptKey, ""); v != "" {
		headers["Accept"] = v
	}
	if v := ConfigString(cfg, ConfigAcceptLanguageKey, ""); v != "" {
		headers["Accept-Language"] = v
	}
	if v := ConfigString(cfg, ConfigCacheControlKey, ""); v != "" {
		headers["Cache-Control"] = v
	}

	return headers
}
