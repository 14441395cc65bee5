package request

import (
	"net/http"
	"sort"
	"strings"
)

const headerPrefix = "HTTP_"

//extractHeaders selects every HTTP_-prefixed key of the environment mapping as a
//header named after the remainder of the key, underscores turned into hyphens.
//Unprefixed keys such as CONTENT_TYPE or CONTENT_LENGTH are never headers here.
func extractHeaders(env Params) http.Header {
	keys := make([]string, 0, len(env))
	for key := range env {
		if len(key) > len(headerPrefix) && strings.HasPrefix(key, headerPrefix) {
			keys = append(keys, key)
		}
	}

	//deterministic winner when two keys map to the same name
	sort.Strings(keys)

	h := make(http.Header, len(keys))
	for _, key := range keys {
		value, ok := env.String(key)
		if !ok {
			continue
		}

		name := strings.Replace(key[len(headerPrefix):], "_", "-", -1)
		h[http.CanonicalHeaderKey(name)] = []string{value}
	}

	return h
}
