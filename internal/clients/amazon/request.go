package amazon

import (
	"bufio"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
)

const (
	defaultAccept         = "application/json, text/plain, */*"
	defaultAcceptLanguage = "en-US,en;q=0.8"
	defaultUserAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0 Safari/537.36"
	defaultResultLimit    = 10
)

var (
	searchJSONPathRegex = regexp.MustCompile(`/search\.json\?`)

	// headers replayed from a browser dump, lower-cased. Accept-Encoding is left to net/http.
	keptHeaders = map[string]struct{}{
		"user-agent": {}, "accept": {}, "accept-language": {}, "cookie": {},
		"referer": {}, "origin": {}, "sec-fetch-mode": {}, "sec-fetch-site": {}, "sec-fetch-dest": {},
		"x-requested-with": {},
	}
)

// RequestSpec is the search endpoint with the headers sent on every page request.
type RequestSpec struct {
	URL     string
	Headers map[string]string
}

// NewRequestSpec prepares a search URL copied from the browser.
func NewRequestSpec(searchURL string) RequestSpec {
	spec := RequestSpec{URL: SanitizeURL(EnsureJSONEndpoint(searchURL)), Headers: map[string]string{}}
	spec.setDefaultHeaders()
	return spec
}

// ParseHeadersFile reads a plain-text dump with a "URL: ..." line followed by
// "Key: Value" header lines.
func ParseHeadersFile(path string) (RequestSpec, error) {

	file, err := os.Open(path)
	if err != nil {
		return RequestSpec{}, errors.Wrap(err, "open headers file")
	}
	defer file.Close()

	spec := RequestSpec{Headers: map[string]string{}}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		if strings.EqualFold(key, "url") {
			spec.URL = value
			continue
		}
		if _, keep := keptHeaders[strings.ToLower(key)]; keep {
			spec.Headers[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return RequestSpec{}, errors.Wrap(err, "read headers file")
	}

	if spec.URL == "" {
		return RequestSpec{}, errors.Errorf("did not find a URL in headers file %s, expected a 'URL: ...' line", path)
	}

	spec.URL = SanitizeURL(EnsureJSONEndpoint(spec.URL))
	spec.setDefaultHeaders()
	return spec, nil
}

func (s *RequestSpec) setDefaultHeaders() {
	s.setDefault("Accept", defaultAccept)
	s.setDefault("Accept-Language", defaultAcceptLanguage)
	s.setDefault("User-Agent", defaultUserAgent)
	s.setDefault("Referer", searchJSONPathRegex.ReplaceAllString(s.URL, "/search?"))
}

func (s *RequestSpec) setDefault(key, value string) {
	for existing := range s.Headers {
		if strings.EqualFold(existing, key) {
			return
		}
	}
	s.Headers[key] = value
}

// StripCookie removes the session cookie, for runs that must not depend on a browser login.
func (s *RequestSpec) StripCookie() bool {
	removed := false
	for key := range s.Headers {
		if strings.EqualFold(key, "cookie") {
			delete(s.Headers, key)
			removed = true
		}
	}
	return removed
}

// ResultLimit is the page size encoded in the URL.
func (s RequestSpec) ResultLimit() int {
	return IntQueryParam(s.URL, "result_limit", defaultResultLimit)
}

// PageURL is the search URL at the given offset.
func (s RequestSpec) PageURL(offset int) string {
	return SetQueryParam(s.URL, "offset", strconv.Itoa(offset))
}

// EnsureJSONEndpoint turns the HTML search path into the JSON one.
func EnsureJSONEndpoint(rawURL string) string {
	return strings.Replace(rawURL, "/search?", "/search.json?", 1)
}

// SanitizeURL drops empty query parameters and prefers normalized_country_code[]
// over country filters.
func SanitizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	query := parsed.Query()
	if _, ok := query["normalized_country_code[]"]; ok {
		query.Del("country[]")
		query.Del("country")
	}
	for key, values := range query {
		if lo.EveryBy(values, func(value string) bool { return value == "" }) {
			query.Del(key)
		}
	}

	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// SetQueryParam replaces every value of key with value, appending it when absent.
func SetQueryParam(rawURL, key, value string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	query := parsed.Query()
	query.Set(key, value)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

func IntQueryParam(rawURL, key string, fallback int) int {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	value, err := strconv.Atoi(parsed.Query().Get(key))
	if err != nil {
		return fallback
	}
	return value
}

// location parameters that conflict with the country checkbox of the HTML search page
var conflictingLocationParams = []string{
	"normalized_country_code[]", "latitude", "longitude", "radius", "distanceType",
	"loc_group_id", "loc_query", "base_query", "city", "country", "region", "county", "query_options",
}

// HTMLSearchURL turns a search URL into the one the interactive engine loads.
// The HTML page filters by country through country[], so when that filter is
// missing it is set to country and the location parameters fighting it are removed.
func HTMLSearchURL(rawURL, country string) string {

	rawURL = strings.Replace(rawURL, "/search.json?", "/search?", 1)
	if country == "" {
		return rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	query := parsed.Query()
	if HasCountryFilter(rawURL, country) {
		return rawURL
	}

	desired := lo.Ternary(query.Get("normalized_country_code[]") != "", query.Get("normalized_country_code[]"), country)
	for _, key := range conflictingLocationParams {
		query.Del(key)
	}
	query.Set("country[]", desired)

	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// HasCountryFilter reports whether country is among the country[] values of the URL.
func HasCountryFilter(rawURL, country string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return lo.Contains(parsed.Query()["country[]"], country)
}
