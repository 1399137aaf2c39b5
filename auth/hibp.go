package auth

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultHIBPURL is the public Pwned Passwords range endpoint.
	DefaultHIBPURL = "https://api.pwnedpasswords.com/range/"
	hibpUserAgent  = "vaulto/1.0"
)

// HIBPResult captures whether a password hash suffix was found in the HIBP dataset.
type HIBPResult struct {
	Found bool
	Count int
}

// HIBPClient queries a Pwned Passwords compatible range API.
type HIBPClient struct {
	BaseURL string
	HTTP    *http.Client
}

// NewHIBPClient returns a client for baseURL. An empty baseURL means
// DefaultHIBPURL.
func NewHIBPClient(baseURL string) *HIBPClient {
	if baseURL == "" {
		baseURL = DefaultHIBPURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &HIBPClient{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 4 * time.Second},
	}
}

// CheckHIBP queries the public HIBP range API with a default client.
func CheckHIBP(ctx context.Context, pw string) (HIBPResult, error) {
	return NewHIBPClient("").Check(ctx, pw)
}

// Check looks pw up using k-anonymity. Only the first five hex characters of
// SHA1(pw) leave the process; the suffix is matched locally against the
// "SUFFIX:COUNT" lines of the response.
//
// Network, status and parse failures are returned wrapped. The caller
// decides whether to fail open or closed.
func (c *HIBPClient) Check(ctx context.Context, pw string) (HIBPResult, error) {
	var result HIBPResult

	sum := sha1.Sum([]byte(pw))
	hashHex := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix := hashHex[:5]
	suffix := hashHex[5:]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+prefix, nil)
	if err != nil {
		return result, fmt.Errorf("hibp request: %w", err)
	}
	req.Header.Set("User-Agent", hibpUserAgent)
	req.Header.Set("Add-Padding", "true")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return result, fmt.Errorf("hibp query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("hibp query: unexpected status %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineSuffix, countStr, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(lineSuffix, suffix) {
			continue
		}

		count, err := strconv.Atoi(strings.TrimSpace(countStr))
		if err != nil {
			return result, fmt.Errorf("hibp parse count: %w", err)
		}
		// Padding entries carry a zero count.
		if count == 0 {
			continue
		}

		result.Found = true
		result.Count = count
		return result, nil
	}

	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("hibp read response: %w", err)
	}

	return result, nil
}
