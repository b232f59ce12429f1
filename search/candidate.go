package search

import (
	"net/url"
	"path"
	"strings"
)

// skipExtensions are file types no strategy can extract text from.
var skipExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".zip": true, ".rar": true, ".exe": true,
	".dmg": true, ".mp4": true, ".avi": true, ".mov": true, ".jpg": true,
	".jpeg": true, ".png": true, ".gif": true, ".svg": true, ".ico": true,
}

// skipSites are media pages with no article content.
var skipSites = []string{
	"youtube.com/watch", "twitter.com/status", "instagram.com/p/",
	"facebook.com/photo", "pinterest.com/pin", "tiktok.com",
}

// ValidURL reports whether rawURL is worth racing: an absolute http(s) URL
// that is neither a binary download nor a known media page.
func ValidURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if skipExtensions[strings.ToLower(path.Ext(u.Path))] {
		return false
	}
	lower := strings.ToLower(rawURL)
	for _, site := range skipSites {
		if strings.Contains(lower, site) {
			return false
		}
	}
	return true
}
