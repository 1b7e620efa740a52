package search

import (
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/zeebo/blake3"
)

// maxCachedMatchers bounds the matcher cache; it is cleared when full.
const maxCachedMatchers = 1024

const (
	wordBefore = `(?<![\p{L}\p{N}_])`
	wordAfter  = `(?![\p{L}\p{N}_])`
)

// matcherCache holds compiled whole-word matchers keyed by a hash of the
// variant set, so the same group is compiled once across requests.
type matcherCache struct {
	mu sync.Mutex
	m  map[string]*regexp2.Regexp
}

func newMatcherCache() *matcherCache {
	return &matcherCache{m: make(map[string]*regexp2.Regexp)}
}

// variantKey hashes a variant set independent of its order.
func variantKey(variants []string) string {
	sorted := append([]string(nil), variants...)
	sort.Strings(sorted)
	sum := blake3.Sum256([]byte(strings.Join(sorted, "\x00")))
	return hex.EncodeToString(sum[:])
}

func (c *matcherCache) get(variants []string) (*regexp2.Regexp, error) {
	if len(variants) == 0 {
		return nil, nil
	}
	key := variantKey(variants)

	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.m[key]; ok {
		return re, nil
	}
	re, err := compileVariants(variants)
	if err != nil {
		return nil, err
	}
	if len(c.m) >= maxCachedMatchers {
		c.m = make(map[string]*regexp2.Regexp)
	}
	c.m[key] = re
	return re, nil
}

func (c *matcherCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// compileVariants builds one case-insensitive matcher accepting any variant
// as a whole word. Letters, digits and underscore on either side of a
// variant prevent a match; whitespace inside a variant matches any run of
// whitespace.
func compileVariants(variants []string) (*regexp2.Regexp, error) {
	alts := make([]string, 0, len(variants))
	for _, v := range variants {
		fields := strings.Fields(v)
		for i, f := range fields {
			fields[i] = regexp2.Escape(f)
		}
		alts = append(alts, strings.Join(fields, `\s+`))
	}
	// Longest first so a longer variant wins over its own prefix.
	sort.SliceStable(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })

	pattern := wordBefore + `(?:` + strings.Join(alts, "|") + `)` + wordAfter
	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = time.Second
	return re, nil
}

// matchWhole reports whether text contains a whole-word match. Timeouts
// count as no match.
func matchWhole(re *regexp2.Regexp, text string) bool {
	if re == nil || text == "" {
		return false
	}
	ok, err := re.MatchString(text)
	return err == nil && ok
}
