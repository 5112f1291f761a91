// Package urlutil provides URL helpers shared across the crawl pipeline.
package urlutil

import (
	"net/url"
	"strings"
)

// PathHierarchy decomposes a URL's path into its ordered hierarchy of
// cumulative prefixes, used as section tags for extracted records.
//
// "/foo/bar" yields ["foo", "foo/bar"]; "/" and "" yield nil.
// Leading and trailing slashes are ignored, as are query and fragment.
// The function is total: an unparsable URL yields nil.
func PathHierarchy(rawURL string) []string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return nil
	}

	parts := strings.Split(path, "/")
	result := make([]string, 0, len(parts))
	prefix := ""
	for _, dir := range parts {
		prefix += dir
		result = append(result, prefix)
		prefix += "/"
	}
	return result
}

// ResolveReference joins a possibly relative reference against a base URL,
// mirroring how sitemap entries are normalized to absolute page URLs.
// If the base cannot be parsed the reference is returned unchanged.
func ResolveReference(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
