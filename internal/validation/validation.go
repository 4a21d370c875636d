// Package validation 提供链接与社交平台取值的纯函数校验。
package validation

import (
	"net/url"
	"regexp"
	"strings"
)

// 支持的社交平台
const (
	PlatformInstagram = "instagram"
	PlatformTwitter   = "twitter"
	PlatformGitHub    = "github"
	PlatformLinkedIn  = "linkedin"
	PlatformYouTube   = "youtube"
	PlatformTikTok    = "tiktok"
	PlatformEmail     = "email"
)

var platforms = []string{
	PlatformTwitter,
	PlatformInstagram,
	PlatformGitHub,
	PlatformLinkedIn,
	PlatformYouTube,
	PlatformTikTok,
	PlatformEmail,
}

var platformHosts = map[string][]string{
	PlatformInstagram: {"instagram.com"},
	PlatformTwitter:   {"twitter.com", "x.com"},
	PlatformGitHub:    {"github.com"},
	PlatformLinkedIn:  {"linkedin.com"},
	PlatformYouTube:   {"youtube.com", "youtu.be"},
	PlatformTikTok:    {"tiktok.com"},
}

var platformBaseURLs = map[string]string{
	PlatformInstagram: "https://instagram.com/",
	PlatformTwitter:   "https://twitter.com/",
	PlatformGitHub:    "https://github.com/",
	PlatformLinkedIn:  "https://linkedin.com/in/",
	PlatformYouTube:   "https://youtube.com/@",
	PlatformTikTok:    "https://www.tiktok.com/@",
	PlatformEmail:     "mailto:",
}

var socialUsernamePattern = regexp.MustCompile(`^[A-Za-z0-9@._/-]{1,80}$`)

// Platforms 返回支持的平台列表，顺序即默认展示顺序
func Platforms() []string {
	out := make([]string, len(platforms))
	copy(out, platforms)
	return out
}

// IsSupportedPlatform 判断平台是否在支持列表中
func IsSupportedPlatform(platform string) bool {
	for _, candidate := range platforms {
		if candidate == platform {
			return true
		}
	}
	return false
}

// IsValidHTTPURL 判断是否为带主机名的 http(s) 绝对地址
func IsValidHTTPURL(value string) bool {
	if value == "" {
		return false
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	return parsed.Host != "" && parsed.Hostname() != ""
}

// IsValidSocialURL 校验完整 URL 是否属于对应平台的域名；email 只要求包含 @
func IsValidSocialURL(platform, value string) bool {
	if platform == PlatformEmail {
		return strings.Contains(value, "@")
	}

	if !IsValidHTTPURL(value) {
		return false
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return false
	}
	host := stripWWW(parsed.Hostname())
	for _, allowed := range platformHosts[platform] {
		if host == allowed {
			return true
		}
	}
	return false
}

// IsValidSocialValue 允许用户名或完整 URL 两种写法。
// URL 需匹配平台域名，否则按用户名规则校验。
func IsValidSocialValue(platform, value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}

	if IsValidHTTPURL(trimmed) {
		return IsValidSocialURL(platform, trimmed)
	}

	return socialUsernamePattern.MatchString(trimmed)
}

// IsEmptyOrValidSocialValue 空值视为合法（表示删除）
func IsEmptyOrValidSocialValue(platform, value string) bool {
	return strings.TrimSpace(value) == "" || IsValidSocialValue(platform, value)
}

// BuildSocialURL 将用户名转换为平台主页地址，完整 URL 原样返回。
func BuildSocialURL(platform, value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if IsValidHTTPURL(trimmed) {
		return trimmed
	}

	base, ok := platformBaseURLs[platform]
	if !ok {
		return ""
	}
	normalized := strings.TrimPrefix(trimmed, "@")
	if platform == PlatformEmail {
		return base + normalized
	}
	return base + url.PathEscape(normalized)
}

func stripWWW(hostname string) string {
	return strings.TrimPrefix(strings.ToLower(hostname), "www.")
}
