package usecase

import (
	"sort"
	"sync"
	"time"
)

// ClaimSet marks jobs with an attempt in flight in this process.
type ClaimSet struct {
	mu     sync.Mutex
	claims map[string]time.Time
}

func NewClaimSet() *ClaimSet {
	return &ClaimSet{claims: make(map[string]time.Time)}
}

// TryClaim inserts jobID and reports whether it was absent.
func (c *ClaimSet) TryClaim(jobID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.claims[jobID]; ok {
		return false
	}
	c.claims[jobID] = time.Now()
	return true
}

func (c *ClaimSet) Release(jobID string) {
	c.mu.Lock()
	delete(c.claims, jobID)
	c.mu.Unlock()
}

func (c *ClaimSet) Has(jobID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.claims[jobID]
	return ok
}

// Snapshot returns the claimed ids in sorted order.
func (c *ClaimSet) Snapshot() []string {
	c.mu.Lock()
	ids := make([]string, 0, len(c.claims))
	for id := range c.claims {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	sort.Strings(ids)
	return ids
}

type Claim struct {
	JobID     string    `json:"jobId"`
	ClaimedAt time.Time `json:"claimedAt"`
}

// Claims lists the current claims, oldest first.
func (c *ClaimSet) Claims() []Claim {
	c.mu.Lock()
	out := make([]Claim, 0, len(c.claims))
	for id, at := range c.claims {
		out = append(out, Claim{JobID: id, ClaimedAt: at})
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ClaimedAt.Equal(out[j].ClaimedAt) {
			return out[i].JobID < out[j].JobID
		}
		return out[i].ClaimedAt.Before(out[j].ClaimedAt)
	})
	return out
}

func (c *ClaimSet) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.claims)
}

func (c *ClaimSet) Clear() {
	c.mu.Lock()
	c.claims = make(map[string]time.Time)
	c.mu.Unlock()
}
