// Package urlutil normalizes URLs so that history records for the same page
// de-duplicate regardless of tracking parameters and cosmetic differences.
package urlutil

import (
	"net/url"
	"sort"
	"strings"
)

// ignoredParams are query parameters that do not affect page content.
var ignoredParams = map[string]struct{}{
	// UTM tracking
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {},
	"utm_content": {}, "utm_id": {}, "utm_source_platform": {},
	"utm_creative_format": {}, "utm_marketing_tactic": {},

	// Google Analytics
	"gclid": {}, "gclsrc": {}, "dclid": {}, "gbraid": {}, "wbraid": {},

	// Facebook
	"fbclid": {}, "fb_action_ids": {}, "fb_action_types": {}, "fb_ref": {},
	"fb_source": {},

	// Twitter
	"twclid": {}, "twitterclickid": {},

	// Microsoft/Bing
	"msclkid": {}, "msclid": {},

	// Amazon affiliate
	"tag": {}, "linkcode": {}, "linkid": {}, "ref_": {}, "ref": {},

	// Generic tracking
	"source": {}, "medium": {}, "campaign": {}, "content": {}, "term": {},
	"affiliate": {}, "partner": {}, "referrer": {}, "ref_source": {},

	// Timestamps and sessions
	"timestamp": {}, "t": {}, "_t": {}, "ts": {}, "time": {},
	"sessionid": {}, "session_id": {}, "sid": {}, "_sid": {},
	"rand": {}, "random": {}, "_r": {}, "cache_bust": {}, "cb": {},

	// Debugging
	"debug": {}, "_debug": {}, "test": {}, "_test": {}, "preview": {},
	"nocache": {}, "no_cache": {}, "_nc": {}, "v": {}, "version": {},

	// Share parameters
	"share": {}, "shared": {}, "from": {}, "via": {}, "source_platform": {},
	"share_source": {}, "share_medium": {}, "shared_via": {},

	// Language hints rarely change the main content
	"hl": {}, "lang": {}, "language": {},

	// Cache busters
	"_": {}, "__": {}, "___": {},
}

var ignoredPrefixes = []string{
	"utm_", "ga_", "fb_", "tw_", "ig_", "li_", "pin_",
	"gclid", "fbclid", "msclkid", "_ga", "_gid",
	"mc_", "email_", "campaign_", "promo_", "coupon_",
}

var ignoredSuffixes = []string{"_source", "_medium", "_campaign", "_ref", "_id"}

// Normalize strips tracking parameters and fragments, sorts the remaining
// query parameters, and removes a trailing slash on non-root paths. Invalid
// URLs are returned unchanged.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Fragment = ""

	q := u.Query()
	for key := range q {
		if shouldIgnoreParam(key) {
			q.Del(key)
		}
	}
	u.RawQuery = encodeSorted(q)

	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}

	return u.String()
}

func shouldIgnoreParam(name string) bool {
	lower := strings.ToLower(name)

	if _, ok := ignoredParams[lower]; ok {
		return true
	}
	for _, prefix := range ignoredPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	for _, suffix := range ignoredSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// encodeSorted encodes query values with keys in sorted order so that
// normalized URLs compare stably.
func encodeSorted(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		for _, v := range q[k] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(url.QueryEscape(v))
		}
	}
	return sb.String()
}
