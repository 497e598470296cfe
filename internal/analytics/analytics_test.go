package analytics

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory implementation of all four store interfaces,
// good enough to exercise the bucketing and assembly logic without a
// database.
type memStore struct {
	mu sync.Mutex

	views    []memView
	uploads  []memUpload
	userRegs []time.Time
	rollups  map[string]Rollup

	// eventQueries counts raw event-table reads, to verify the
	// empty-user short circuit.
	eventQueries int

	// failing makes every method return an error.
	failing bool
}

type memView struct {
	at       time.Time
	uploadID uint
	ip       string
}

type memUpload struct {
	id      uint
	ownerID uint // 0 means anonymous
	at      time.Time
}

var errStore = errors.New("store unavailable")

func newMemStore() *memStore {
	return &memStore{rollups: make(map[string]Rollup)}
}

func (m *memStore) addView(at time.Time, uploadID uint, ip string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append(m.views, memView{at: at, uploadID: uploadID, ip: ip})
}

func (m *memStore) addUpload(id, ownerID uint, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, memUpload{id: id, ownerID: ownerID, at: at})
}

func (m *memStore) addUser(at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userRegs = append(m.userRegs, at)
}

func inRange(at, from, to time.Time) bool {
	return !at.Before(from) && at.Before(to)
}

func matchesFilter(uploadID uint, filter []uint) bool {
	if filter == nil {
		return true
	}
	for _, id := range filter {
		if id == uploadID {
			return true
		}
	}
	return false
}

func (m *memStore) CountViews(_ context.Context, from, to time.Time, uploadIDs []uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return 0, errStore
	}
	m.eventQueries++
	var n int64
	for _, v := range m.views {
		if inRange(v.at, from, to) && matchesFilter(v.uploadID, uploadIDs) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CountUniqueIPs(_ context.Context, from, to time.Time, uploadIDs []uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return 0, errStore
	}
	m.eventQueries++
	seen := make(map[string]struct{})
	for _, v := range m.views {
		if v.ip == "" {
			continue
		}
		if inRange(v.at, from, to) && matchesFilter(v.uploadID, uploadIDs) {
			seen[v.ip] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

func (m *memStore) CountCreated(_ context.Context, from, to time.Time, uploadIDs []uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return 0, errStore
	}
	var n int64
	for _, u := range m.uploads {
		if inRange(u.at, from, to) && matchesFilter(u.id, uploadIDs) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) OwnedUploadIDs(_ context.Context, userID uint) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, errStore
	}
	var ids []uint
	for _, u := range m.uploads {
		if u.ownerID == userID {
			ids = append(ids, u.id)
		}
	}
	return ids, nil
}

func (m *memStore) CountRegistered(_ context.Context, from, to time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return 0, errStore
	}
	var n int64
	for _, at := range m.userRegs {
		if inRange(at, from, to) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Upsert(_ context.Context, r Rollup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errStore
	}
	m.rollups[r.Day] = r
	return nil
}

func (m *memStore) ListRange(_ context.Context, fromDay, beforeDay string) ([]Rollup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return nil, errStore
	}
	var out []Rollup
	for day, r := range m.rollups {
		if day >= fromDay && day < beforeDay {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestService(m *memStore, now time.Time) *Service {
	return NewService(m, m, m, m, fixedClock(now))
}
