package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	lru "github.com/hashicorp/golang-lru/v2"

	authzDomain "github.com/usphq/usp/internal/authz/domain"
)

// DecisionCache memoizes decisions keyed on a request digest. Requests whose
// environment carries volatile signals (risk score, geo, travel flags, pinned
// clock) bypass the cache entirely: those decisions must not outlive the
// signal that produced them.
type DecisionCache struct {
	entries *lru.Cache[string, *authzDomain.Decision]
}

// NewDecisionCache creates a cache holding at most size decisions.
func NewDecisionCache(size int) (*DecisionCache, error) {
	entries, err := lru.New[string, *authzDomain.Decision](size)
	if err != nil {
		return nil, err
	}
	return &DecisionCache{entries: entries}, nil
}

// volatileEnvironmentKeys are the signals that make a request uncacheable.
var volatileEnvironmentKeys = []string{"risk_score", "geo", "impossible_travel", "now"}

// Cacheable reports whether the request may be served from or stored in the
// cache.
func Cacheable(req *authzDomain.DecisionRequest) bool {
	for _, key := range volatileEnvironmentKeys {
		if _, ok := req.EnvironmentAttributes[key]; ok {
			return false
		}
	}
	return true
}

// Get returns a cached decision, or false when absent or uncacheable.
func (c *DecisionCache) Get(req *authzDomain.DecisionRequest) (*authzDomain.Decision, bool) {
	if !Cacheable(req) {
		return nil, false
	}
	return c.entries.Get(requestDigest(req))
}

// Put stores a decision unless the request is uncacheable.
func (c *DecisionCache) Put(req *authzDomain.DecisionRequest, decision *authzDomain.Decision) {
	if !Cacheable(req) {
		return
	}
	c.entries.Add(requestDigest(req), decision)
}

// Purge drops every cached decision. Called on policy changes.
func (c *DecisionCache) Purge() {
	c.entries.Purge()
}

// requestDigest produces a stable key: encoding/json sorts map keys, so two
// equal requests always digest identically.
func requestDigest(req *authzDomain.DecisionRequest) string {
	serialized, _ := json.Marshal(req)
	digest := sha256.Sum256(serialized)
	return hex.EncodeToString(digest[:])
}
