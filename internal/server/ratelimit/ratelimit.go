// Package ratelimit implements per-client token buckets whose idle entries
// expire, so the limiter's memory stays bounded by the active client set.
package ratelimit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// Rule is a parsed "<n>/<unit>" limit: n events per unit, burst n.
type Rule struct {
	Limit rate.Limit
	Burst int
}

// Unlimited lets everything through.
var Unlimited = Rule{Limit: rate.Inf}

// Parse reads limits such as "5/minute", "10/hour" or "2/second". An empty
// string or "0" means Unlimited.
func Parse(s string) (Rule, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return Unlimited, nil
	}

	countStr, unit, ok := strings.Cut(s, "/")
	if !ok {
		return Rule{}, fmt.Errorf("rate limit %q: want <n>/<unit>", s)
	}
	count, err := strconv.Atoi(strings.TrimSpace(countStr))
	if err != nil || count <= 0 {
		return Rule{}, fmt.Errorf("rate limit %q: bad count", s)
	}

	var per time.Duration
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "s", "sec", "second":
		per = time.Second
	case "m", "min", "minute":
		per = time.Minute
	case "h", "hour":
		per = time.Hour
	case "d", "day":
		per = 24 * time.Hour
	default:
		return Rule{}, fmt.Errorf("rate limit %q: unknown unit %q", s, unit)
	}

	return Rule{Limit: rate.Every(per / time.Duration(count)), Burst: count}, nil
}

// MustParse is Parse for constants.
func MustParse(s string) Rule {
	r, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return r
}

// idleFor is how long a bucket must stay untouched before it can be
// dropped: long enough for it to refill completely.
func (r Rule) idleFor() time.Duration {
	if r.Limit == rate.Inf || r.Limit <= 0 {
		return time.Minute
	}
	refill := time.Duration(float64(r.Burst) / float64(r.Limit) * float64(time.Second))
	return time.Duration(math.Max(float64(refill), float64(time.Minute)))
}

// Keyed holds one token bucket per key.
type Keyed struct {
	rule    Rule
	buckets *ttlcache.Cache[string, *rate.Limiter]
}

// NewKeyed starts the expiry loop; call Stop when done.
func NewKeyed(rule Rule) *Keyed {
	// Concurrent first requests for one key share a single new bucket: the
	// load is suppressed per key and never replaces a bucket already stored.
	loader := ttlcache.NewSuppressedLoader[string, *rate.Limiter](
		ttlcache.LoaderFunc[string, *rate.Limiter](
			func(c *ttlcache.Cache[string, *rate.Limiter], key string) *ttlcache.Item[string, *rate.Limiter] {
				item, _ := c.GetOrSetFunc(key, func() *rate.Limiter {
					return rate.NewLimiter(rule.Limit, rule.Burst)
				})
				return item
			},
		),
		nil,
	)

	k := &Keyed{
		rule: rule,
		buckets: ttlcache.New[string, *rate.Limiter](
			ttlcache.WithTTL[string, *rate.Limiter](rule.idleFor()),
			ttlcache.WithLoader[string, *rate.Limiter](loader),
		),
	}
	go k.buckets.Start()
	return k
}

// Allow takes one token from key's bucket.
func (k *Keyed) Allow(key string) bool {
	if k.rule.Limit == rate.Inf {
		return true
	}
	return k.buckets.Get(key).Value().Allow()
}

// Len is the number of live buckets.
func (k *Keyed) Len() int {
	return k.buckets.Len()
}

// Stop ends the expiry loop.
func (k *Keyed) Stop() {
	k.buckets.Stop()
}
