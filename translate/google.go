package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// googleAPIURL is the direct (unofficial) Google Translate endpoint.
const googleAPIURL = "https://translate-pa.googleapis.com/v1/translateHtml"

// GoogleLight is a lightweight translator backed by the direct Google
// Translate HTML endpoint.
//
// Before sending, the text is split on configurable separator characters
// and each fragment is translated on its own, with separators and
// configured prefixes (list bullets and the like) passed through verbatim.
// Menu strings in class files often pack several items into one literal
// ("Open;Save;Exit"); splitting keeps the separators intact.
type GoogleLight struct {
	// APIKey authenticates against the endpoint.
	APIKey string
	// SplitChars are separators translated fragments are split on.
	// Default: ";" and "|".
	SplitChars []string
	// PrefixChars are leading marker characters preserved untranslated.
	// Default: "-".
	PrefixChars []string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the per-request timeout. Default: 10s.
	Timeout time.Duration

	client *http.Client
	once   sync.Once
}

// NewGoogleLight builds the engine with default split and prefix rules.
func NewGoogleLight(apiKey string) *GoogleLight {
	return &GoogleLight{
		APIKey:      apiKey,
		SplitChars:  []string{";", "|"},
		PrefixChars: []string{"-"},
		Timeout:     10 * time.Second,
	}
}

// Name implements Engine.
func (g *GoogleLight) Name() string { return "google-light" }

func (g *GoogleLight) httpClient() *http.Client {
	g.once.Do(func() {
		timeout := g.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		g.client = makeHTTPClient(g.Proxy, timeout)
	})
	return g.client
}

// Translate implements Engine. Empty text translates to itself.
func (g *GoogleLight) Translate(ctx context.Context, text, srcLang, dstLang string) (string, error) {
	if text == "" {
		return "", nil
	}
	if srcLang == "" {
		srcLang = "auto"
	}

	parts := splitKeeping(text, g.SplitChars)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || isSeparator(part, g.SplitChars) {
			out = append(out, part)
			continue
		}
		stripped := strings.TrimSpace(part)
		if stripped == "" {
			out = append(out, part)
			continue
		}

		prefix := ""
		for _, c := range g.PrefixChars {
			if c != "" && strings.HasPrefix(stripped, c) {
				prefix = c + " "
				stripped = strings.TrimLeft(strings.TrimPrefix(stripped, c), " ")
				break
			}
		}
		if stripped == "" {
			out = append(out, prefix)
			continue
		}

		translated, err := g.call(ctx, stripped, srcLang, dstLang)
		if err != nil {
			return "", err
		}
		out = append(out, prefix+translated)
	}
	return strings.Join(out, ""), nil
}

// call performs one request for one fragment.
func (g *GoogleLight) call(ctx context.Context, text, srcLang, dstLang string) (string, error) {
	body, err := json.Marshal([]any{[]any{[]string{text}, srcLang, dstLang}, "wt_lib"})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", googleAPIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "application/json+protobuf")
	req.Header.Set("X-Goog-Api-Key", g.APIKey)

	resp, err := g.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate endpoint returned status %d: %s", resp.StatusCode, truncate(string(respBody), 300))
	}

	// Response shape: [["translated text", ...], ...]
	var payload []json.RawMessage
	if err := json.Unmarshal(respBody, &payload); err != nil || len(payload) == 0 {
		return "", fmt.Errorf("unexpected translate response: %s", truncate(string(respBody), 300))
	}
	var texts []string
	if err := json.Unmarshal(payload[0], &texts); err != nil || len(texts) == 0 {
		return "", fmt.Errorf("unexpected translate response: %s", truncate(string(respBody), 300))
	}
	return html.UnescapeString(texts[0]), nil
}

// splitKeeping splits s on any of the single-character separators,
// keeping the separators as standalone elements.
func splitKeeping(s string, seps []string) []string {
	if len(seps) == 0 {
		return []string{s}
	}
	isSep := func(r byte) bool {
		for _, sep := range seps {
			if len(sep) == 1 && sep[0] == r {
				return true
			}
		}
		return false
	}

	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if isSep(s[i]) {
			parts = append(parts, s[start:i], s[i:i+1])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func isSeparator(part string, seps []string) bool {
	for _, sep := range seps {
		if part == sep {
			return true
		}
	}
	return false
}
