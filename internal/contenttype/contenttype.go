// Package contenttype classifies URLs by resource type and checks them
// against a configurable allow/deny-by-domain policy. The check is advisory
// to callers, not a security boundary.
package contenttype

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/streamwisdom/streamwisdom-api/internal/logging"
	"github.com/streamwisdom/streamwisdom-api/internal/models"
)

// TypePolicy is the per-type policy record from content-types.json.
type TypePolicy struct {
	Enabled           bool     `json:"enabled"`
	Description       string   `json:"description,omitempty"`
	Domains           []string `json:"domains"`
	RestrictedDomains []string `json:"restrictedDomains"`
}

// Policy is the full content-type policy configuration.
type Policy struct {
	Enabled             bool                  `json:"enabled"`
	AllowedContentTypes map[string]TypePolicy `json:"allowedContentTypes"`
	Restrictions        struct {
		AllowUnknownTypes bool `json:"allowUnknownTypes"`
	} `json:"restrictions"`
}

// Verdict is the result of classifying and policy-checking one URL.
type Verdict struct {
	Allowed     bool               `json:"allowed"`
	Reason      string             `json:"reason"`
	ContentType models.ContentType `json:"contentType,omitempty"`
}

// Checker classifies URLs against the policy file. The policy is re-read on
// every call so admin edits take effect without a restart.
type Checker struct {
	configPath string
	logger     *slog.Logger
}

// NewChecker creates a checker reading policy from
// <configDir>/content-types.json.
func NewChecker(configDir string, logger *slog.Logger) *Checker {
	return &Checker{
		configPath: filepath.Join(configDir, "content-types.json"),
		logger:     logging.Component(logger, "contenttype"),
	}
}

// DefaultPolicy returns the hardcoded policy used when the config file is
// missing or corrupt.
func DefaultPolicy() *Policy {
	p := &Policy{
		Enabled: true,
		AllowedContentTypes: map[string]TypePolicy{
			"pdf":  {Enabled: true, Domains: []string{"*"}},
			"html": {Enabled: true, Domains: []string{"*"}},
			"video": {
				Enabled: false,
				Domains: []string{"youtube.com", "youtu.be", "m.youtube.com"},
			},
		},
	}
	p.Restrictions.AllowUnknownTypes = true
	return p
}

// LoadPolicy reads the policy file, falling back to defaults on error.
func (c *Checker) LoadPolicy() *Policy {
	data, err := os.ReadFile(c.configPath)
	if err != nil {
		c.logger.Debug("content-type policy not readable, using defaults", "path", c.configPath, "error", err)
		return DefaultPolicy()
	}
	var p Policy
	if err := json.Unmarshal(data, &p); err != nil {
		c.logger.Warn("content-type policy corrupt, using defaults", "path", c.configPath, "error", err)
		return DefaultPolicy()
	}
	return &p
}

// SavePolicy persists a new policy to the config file.
func (c *Checker) SavePolicy(p *Policy) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.configPath, data, 0o644)
}

// Check classifies the URL and applies the policy. Classification is pure
// given (url, policy): calling twice with unchanged config yields the same
// verdict.
func (c *Checker) Check(rawURL string) Verdict {
	return c.checkWithPolicy(rawURL, c.LoadPolicy())
}

func (c *Checker) checkWithPolicy(rawURL string, policy *Policy) Verdict {
	if !policy.Enabled {
		return Verdict{Allowed: true, Reason: "内容类型限制已禁用"}
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return Verdict{Allowed: false, Reason: "URL格式无效"}
	}

	hostname := strings.ToLower(u.Hostname())
	pathname := strings.ToLower(u.Path)

	// Type checks in priority order; the first match wins.
	ctype := Classify(rawURL, hostname, pathname)
	return checkContentType(policy, ctype, hostname)
}

// pdfLinkPatterns cover publisher URLs whose PDF links carry no .pdf suffix.
var pdfLinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)dl\.acm\.org.*pdf`),
	regexp.MustCompile(`(?i)ieeexplore\.ieee\.org.*stamp`),
	regexp.MustCompile(`(?i)link\.springer\.com.*pdf`),
	regexp.MustCompile(`(?i)arxiv\.org.*pdf`),
	regexp.MustCompile(`(?i)researchgate\.net.*pdf`),
}

var videoHosts = []string{"youtube.com", "www.youtube.com", "m.youtube.com", "youtu.be"}

var codeHosts = []string{"github.com", "www.github.com", "raw.githubusercontent.com"}

var academicHosts = []string{
	"arxiv.org", "ieee.org", "ieeexplore.ieee.org", "acm.org", "dl.acm.org",
	"springer.com", "link.springer.com", "nature.com", "researchgate.net",
}

var docPathPatterns = []string{
	"/docs/", "/documentation/", "/api/", "/guide/", "/tutorial/",
	"/manual/", "/help/", "/wiki/", "/reference/",
}

var docDomainPrefixes = []string{
	"docs.", "documentation.", "wiki.", "manual.", "guide.", "help.", "api.",
}

// Classify derives the content type for a URL by priority:
// pdf > video > code > academic > documentation > html.
func Classify(rawURL, hostname, pathname string) models.ContentType {
	if isPDF(rawURL, pathname) {
		return models.ContentTypePDF
	}
	if containsHost(videoHosts, hostname) {
		return models.ContentTypeVideo
	}
	if containsHost(codeHosts, hostname) {
		return models.ContentTypeCode
	}
	for _, h := range academicHosts {
		if strings.Contains(hostname, h) {
			return models.ContentTypeAcademic
		}
	}
	if isDocumentation(hostname, pathname) {
		return models.ContentTypeDocumentation
	}
	return models.ContentTypeHTML
}

func isPDF(rawURL, pathname string) bool {
	if strings.HasSuffix(pathname, ".pdf") {
		return true
	}
	if strings.Contains(strings.ToLower(rawURL), "pdf") {
		return true
	}
	for _, re := range pdfLinkPatterns {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

func isDocumentation(hostname, pathname string) bool {
	for _, p := range docPathPatterns {
		if strings.Contains(pathname, p) {
			return true
		}
	}
	for _, p := range docDomainPrefixes {
		if strings.HasPrefix(hostname, p) {
			return true
		}
	}
	return false
}

func containsHost(hosts []string, hostname string) bool {
	for _, h := range hosts {
		if hostname == h {
			return true
		}
	}
	return false
}

func checkContentType(policy *Policy, ctype models.ContentType, hostname string) Verdict {
	typePolicy, ok := policy.AllowedContentTypes[string(ctype)]
	if !ok {
		allowed := policy.Restrictions.AllowUnknownTypes
		reason := "允许未知内容类型"
		if !allowed {
			reason = "不允许未知内容类型"
		}
		return Verdict{Allowed: allowed, Reason: reason, ContentType: ctype}
	}

	if !typePolicy.Enabled {
		desc := typePolicy.Description
		if desc == "" {
			desc = string(ctype)
		}
		return Verdict{Allowed: false, Reason: desc + "类型已被禁用", ContentType: ctype}
	}

	v := checkDomains(typePolicy, hostname)
	v.ContentType = ctype
	return v
}

// checkDomains applies the per-type domain policy. The deny list wins over
// the allow list.
func checkDomains(tp TypePolicy, hostname string) Verdict {
	for _, restricted := range tp.RestrictedDomains {
		if strings.Contains(hostname, strings.ToLower(restricted)) {
			return Verdict{Allowed: false, Reason: "域名 " + hostname + " 在禁止列表中"}
		}
	}

	if len(tp.Domains) > 0 {
		for _, allowed := range tp.Domains {
			if allowed == "*" {
				return Verdict{Allowed: true, Reason: "域名检查通过"}
			}
		}
		for _, allowed := range tp.Domains {
			if strings.Contains(hostname, strings.ToLower(allowed)) {
				return Verdict{Allowed: true, Reason: "域名检查通过"}
			}
		}
		return Verdict{Allowed: false, Reason: "域名 " + hostname + " 不在允许列表中"}
	}

	return Verdict{Allowed: true, Reason: "域名检查通过"}
}
