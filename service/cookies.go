package service

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// browserCookie is one entry of the JSON export format produced by browser
// cookie extensions.
type browserCookie struct {
	Domain         string  `json:"domain"`
	Path           string  `json:"path"`
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Secure         bool    `json:"secure"`
	ExpirationDate float64 `json:"expirationDate"`
}

// normalizeCookies converts a credential blob into the Netscape cookie-file
// format yt-dlp expects. A blob that already looks like a cookie file is
// passed through untouched; a JSON cookie list is converted.
func normalizeCookies(blob string) (string, error) {
	trimmed := strings.TrimSpace(blob)
	if trimmed == "" {
		return "", nil
	}
	if !strings.HasPrefix(trimmed, "[") {
		return blob, nil
	}

	var cookies []browserCookie
	if err := json.Unmarshal([]byte(trimmed), &cookies); err != nil {
		return "", fmt.Errorf("parse cookie list: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Netscape HTTP Cookie File\n")
	for _, c := range cookies {
		includeSubdomains := "FALSE"
		if strings.HasPrefix(c.Domain, ".") {
			includeSubdomains = "TRUE"
		}
		secure := "FALSE"
		if c.Secure {
			secure = "TRUE"
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		b.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			c.Domain, includeSubdomains, path, secure, int64(c.ExpirationDate), c.Name, c.Value))
	}
	return b.String(), nil
}

// writeCookieFile materializes the credential blob as a temp file and
// returns its path plus a cleanup func. The cleanup must run on every exit
// path of the invocation using the file. An empty blob yields an empty path
// and a no-op cleanup.
func writeCookieFile(blob string) (string, func(), error) {
	noop := func() {}
	content, err := normalizeCookies(blob)
	if err != nil {
		return "", noop, err
	}
	if content == "" {
		return "", noop, nil
	}

	f, err := os.CreateTemp("", "ytcookies-*.txt")
	if err != nil {
		return "", noop, fmt.Errorf("create cookie file: %w", err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", noop, fmt.Errorf("write cookie file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", noop, fmt.Errorf("close cookie file: %w", err)
	}
	path := f.Name()
	return path, func() { os.Remove(path) }, nil
}
