package fetcher

import (
	"bytes"
	"fmt"
	"net/http"
)

// BlockType describes the kind of interstitial served instead of the page.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// shellSize bounds the body length of pages that are only a script loader
// or a captcha form. Registry pages are far larger.
const shellSize = 2000

// BlockedError reports a 200 response whose body is an anti-bot challenge
// rather than registry content.
type BlockedError struct {
	Type BlockType
	URL  string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("fetcher: %s challenge served by %s", e.Type, e.URL)
}

// DetectBlock checks a successful response for signs of anti-bot
// protection.
func DetectBlock(header http.Header, body []byte) (bool, BlockType) {
	if header.Get("cf-mitigated") == "challenge" {
		return true, BlockCloudflare
	}

	lower := bytes.ToLower(body)

	// Cloudflare challenge page markers.
	if bytes.Contains(lower, []byte("checking your browser")) ||
		bytes.Contains(lower, []byte("cf-browser-verification")) ||
		bytes.Contains(lower, []byte("cf-chl-")) {
		return true, BlockCloudflare
	}

	if len(body) >= shellSize {
		return false, BlockNone
	}

	if bytes.Contains(lower, []byte("captcha")) {
		return true, BlockCaptcha
	}
	if bytes.Contains(lower, []byte("<noscript")) && bytes.Contains(lower, []byte("javascript")) {
		return true, BlockJSShell
	}
	if bytes.Contains(lower, []byte(`meta http-equiv="refresh"`)) {
		return true, BlockJSShell
	}

	return false, BlockNone
}
