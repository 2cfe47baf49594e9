package aemet

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

const (
	// DefaultBaseURL is the AEMET OpenData host.
	DefaultBaseURL = "https://opendata.aemet.es/"

	resolvePath = "opendata/api/prediccion/especifica/municipio/diaria/"

	// APIKeyHeader carries the static key on the resolve call.
	APIKeyHeader = "api_key"
)

// Client handles AEMET OpenData interactions
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient creates a new AEMET API client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	userAgent := os.Getenv("AEMET_USER_AGENT")
	if userAgent == "" {
		userAgent = "mitiempo/1.0"
	}

	return &Client{
		BaseURL:   baseURL,
		UserAgent: userAgent,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// resolveURL resolves ref against the base URL. Absolute references are
// returned as given.
func (c *Client) resolveURL(ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid url %q: %w", ref, err)
	}
	if r.IsAbs() {
		return ref, nil
	}

	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	return b.ResolveReference(r).String(), nil
}

func (c *Client) get(ctx context.Context, target string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}

	return normalizeBody(body, resp.Header.Get("Content-Type"))
}

// ResolveDataURL asks AEMET for the data URL of a municipality's daily forecast.
func (c *Client) ResolveDataURL(ctx context.Context, municipalityCode, apiKey string) (*ResolveResponse, error) {
	header := http.Header{}
	header.Set(APIKeyHeader, apiKey)

	target, err := c.resolveURL(resolvePath + url.PathEscape(municipalityCode))
	if err != nil {
		return nil, err
	}
	data, err := c.get(ctx, target, header)
	if err != nil {
		return nil, err
	}
	return decodeResolve(data)
}

// FetchForecast fetches the forecast array from a data URL returned by
// ResolveDataURL. The URL is used as given and must be absolute; the
// base URL plays no part in it.
func (c *Client) FetchForecast(ctx context.Context, dataURL string) (ForecastEnvelope, error) {
	u, err := url.Parse(dataURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, &DataURLError{URL: dataURL}
	}

	data, err := c.get(ctx, dataURL, nil)
	if err != nil {
		return nil, err
	}
	return decodeForecast(data)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// normalizeBody converts the body to UTF-8. AEMET serves its data
// documents as ISO-8859-15.
func normalizeBody(body []byte, contentType string) ([]byte, error) {
	if enc := charsetEncoding(contentType); enc != nil {
		decoded, err := enc.NewDecoder().Bytes(body)
		if err != nil {
			return nil, &DecodeError{Body: body, Err: fmt.Errorf("transcode: %w", err)}
		}
		body = decoded
	}
	return bytes.TrimPrefix(body, utf8BOM), nil
}

func charsetEncoding(contentType string) encoding.Encoding {
	if contentType == "" {
		return nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(params["charset"])) {
	case "iso-8859-15", "iso8859-15", "latin9", "latin-9":
		return charmap.ISO8859_15
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	}
	return nil
}
