package dedup

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"

	"SignalPipeline/internal/domain"
)

// trackingParams are query keys that never change the resource a URL points at.
var trackingParams = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"ref":     {},
	"ref_src": {},
	"igshid":  {},
	"spm":     {},
}

// NormalizeURL canonicalizes an origin URL so that cosmetic variants of the
// same resource compare equal.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("normalize url: empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("normalize url %q: %w", raw, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("normalize url %q: unsupported scheme", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("normalize url %q: missing host", raw)
	}

	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host = net.JoinHostPort(host, port)
	}

	u.Scheme = "https"
	u.Host = host
	u.User = nil
	// hash-routed pages (#/post/1, #!/post/1) address content by fragment
	if !strings.HasPrefix(u.Fragment, "/") && !strings.HasPrefix(u.Fragment, "!") {
		u.Fragment = ""
	}
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = cleanQuery(u.RawQuery)

	return u.String(), nil
}

// cleanQuery drops tracking pairs and sorts the rest. Pairs that do not
// decode are kept byte for byte so they still distinguish URLs.
func cleanQuery(raw string) string {
	if raw == "" {
		return ""
	}

	pairs := make([]string, 0, strings.Count(raw, "&")+1)
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawVal, _ := strings.Cut(pair, "=")
		key, kerr := url.QueryUnescape(rawKey)
		val, verr := url.QueryUnescape(rawVal)
		if kerr != nil || verr != nil {
			pairs = append(pairs, pair)
			continue
		}
		if isTrackingParam(key) {
			continue
		}
		pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(val))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "&")
}

func isTrackingParam(key string) bool {
	lk := strings.ToLower(key)
	if strings.HasPrefix(lk, "utm") {
		return true
	}
	_, ok := trackingParams[lk]
	return ok
}

// Identity returns the content-addressed primary key of an origin URL.
func Identity(raw string) (string, error) {
	normalized, err := NormalizeURL(raw)
	if err != nil {
		return "", err
	}
	return hashURL(normalized), nil
}

func hashURL(normalized string) string {
	h := sha1.Sum([]byte(normalized))
	return hex.EncodeToString(h[:])
}

// Keyed pairs a candidate with its identity.
type Keyed struct {
	ID        string
	Candidate domain.Candidate
}

// Assign computes identities for all candidates, collapsing in-run duplicates
// (first occurrence wins). Candidates whose URL cannot be normalized are
// returned separately.
func Assign(candidates []domain.Candidate) (keyed []Keyed, invalid []domain.Candidate) {
	seen := make(map[string]struct{}, len(candidates))
	keyed = make([]Keyed, 0, len(candidates))
	for _, c := range candidates {
		id, err := Identity(c.URL)
		if err != nil {
			invalid = append(invalid, c)
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keyed = append(keyed, Keyed{ID: id, Candidate: c})
	}
	return keyed, invalid
}

// IDs extracts the identities in order.
func IDs(keyed []Keyed) []string {
	ids := make([]string, len(keyed))
	for i, k := range keyed {
		ids[i] = k.ID
	}
	return ids
}

// Filter drops candidates whose identity is already known to storage.
func Filter(keyed []Keyed, known map[string]bool) []Keyed {
	out := make([]Keyed, 0, len(keyed))
	for _, k := range keyed {
		if known[k.ID] {
			continue
		}
		out = append(out, k)
	}
	return out
}
