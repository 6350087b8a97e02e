// Package apptcache holds the session's fetched appointment records.
//
// Records are grouped by the range they were fetched for (a month "YYYY-MM" or a day
// "YYYY-MM-DD"); merging a range replaces whatever was cached under that range's dates.
// There is no eviction: a cache lives as long as one dashboard session.
package apptcache

import (
	"strings"
	"sync"

	"groomdesk/internal/domain/appointment"
	"groomdesk/internal/domain/calendar"
)

// Cache is an in-memory appointment collection safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	records []appointment.Appointment
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{}
}

// MergeRange replaces every cached record whose date starts with prefix by records.
// Records outside the prefix are left untouched.
// PRE: prefix is "YYYY-MM" or "YYYY-MM-DD"
// POST: QueryByDate(d) for d within prefix returns exactly the given records dated d
func (c *Cache) MergeRange(records []appointment.Appointment, prefix string) error {
	if err := calendar.ValidatePrefix(prefix); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.records[:0:0]
	for _, r := range c.records {
		if !strings.HasPrefix(r.Date, prefix) {
			kept = append(kept, r)
		}
	}
	for _, r := range records {
		if strings.HasPrefix(r.Date, prefix) {
			kept = append(kept, r)
		}
	}
	c.records = kept
	return nil
}

// QueryByDate returns the cached records for date, optionally limited to one staff member.
// An empty staffID (or "all") means every staff member. Order is not guaranteed.
// POST: returned slice is a copy; callers may sort it
func (c *Cache) QueryByDate(date, staffID string) []appointment.Appointment {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []appointment.Appointment
	for _, r := range c.records {
		if r.Date != date {
			continue
		}
		if staffID != "" && staffID != AllStaff && r.StaffID != staffID {
			continue
		}
		out = append(out, r)
	}
	return out
}

// AllStaff is the staff filter value that disables filtering.
const AllStaff = "all"

// FindByID returns a cached record by id.
func (c *Cache) FindByID(id string) (appointment.Appointment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.records {
		if r.ID == id {
			return r, true
		}
	}
	return appointment.Appointment{}, false
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
