package restaurant

import "sort"

// Store exposes read-only restaurant state for prompt grounding. All methods
// are safe for unlimited concurrent readers.
type Store interface {
	Info() (Restaurant, bool)
	AvailableTables() []Table
	RecentMenuItems(limit int) []MenuItem
}

// MemoryStore implements Store with immutable seed data.
type MemoryStore struct {
	info   Restaurant
	tables []Table
	items  []MenuItem
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied state.
func NewMemoryStore(info Restaurant, tables []Table, items []MenuItem) *MemoryStore {
	return &MemoryStore{
		info:   info,
		tables: append([]Table(nil), tables...),
		items:  append([]MenuItem(nil), items...),
	}
}

// Info returns the restaurant identity block.
func (s *MemoryStore) Info() (Restaurant, bool) {
	if s.info.Name == "" {
		return Restaurant{}, false
	}
	return s.info, true
}

// AvailableTables returns tables currently in available status.
func (s *MemoryStore) AvailableTables() []Table {
	out := make([]Table, 0, len(s.tables))
	for _, tbl := range s.tables {
		if tbl.Status == TableAvailable {
			out = append(out, tbl)
		}
	}
	return out
}

// RecentMenuItems returns up to limit active items, most recently created
// first.
func (s *MemoryStore) RecentMenuItems(limit int) []MenuItem {
	out := make([]MenuItem, 0, len(s.items))
	for _, item := range s.items {
		if item.Active {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
