package realtime

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// DefaultDirectoryShards is used when a directory is created with a
// non-positive shard count.
const DefaultDirectoryShards = 32

// Directory maps recipient identities to their live connections.
// Identities are spread over independently locked shards so connect and
// disconnect events never serialize the whole directory.
type Directory struct {
	shards []*directoryShard
	size   atomic.Int64
}

type directoryShard struct {
	mu sync.RWMutex
	// identity -> connection id -> application
	conns map[string]map[string]string
}

// NewDirectory creates an empty directory.
func NewDirectory(shards int) *Directory {
	if shards <= 0 {
		shards = DefaultDirectoryShards
	}
	d := &Directory{shards: make([]*directoryShard, shards)}
	for i := range d.shards {
		d.shards[i] = &directoryShard{conns: make(map[string]map[string]string)}
	}
	return d
}

func (d *Directory) shard(identity string) *directoryShard {
	return d.shards[xxhash.Sum64String(identity)%uint64(len(d.shards))]
}

// Register records a live connection. Registering an existing connection id
// again updates its application.
func (d *Directory) Register(identity, application, connectionID string) {
	s := d.shard(identity)
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, ok := s.conns[identity]
	if !ok {
		conns = make(map[string]string)
		s.conns[identity] = conns
	}
	if _, exists := conns[connectionID]; !exists {
		d.size.Add(1)
	}
	conns[connectionID] = application
}

// Remove forgets a connection and reports whether it was registered.
func (d *Directory) Remove(identity, connectionID string) bool {
	s := d.shard(identity)
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, ok := s.conns[identity]
	if !ok {
		return false
	}
	if _, exists := conns[connectionID]; !exists {
		return false
	}
	delete(conns, connectionID)
	if len(conns) == 0 {
		delete(s.conns, identity)
	}
	d.size.Add(-1)
	return true
}

// Lookup returns the sorted ids of identity's connections for application.
// The application must match exactly.
func (d *Directory) Lookup(identity, application string) []string {
	s := d.shard(identity)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, app := range s.conns[identity] {
		if app == application {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Connections returns every live connection of identity, sorted by id.
func (d *Directory) Connections(identity string) []ConnectionRecord {
	s := d.shard(identity)
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]ConnectionRecord, 0, len(s.conns[identity]))
	for id, app := range s.conns[identity] {
		records = append(records, ConnectionRecord{ID: id, Application: app, Identity: identity})
	}
	slices.SortFunc(records, func(a, b ConnectionRecord) int {
		return strings.Compare(a.ID, b.ID)
	})
	return records
}

// Len reports the number of live connections.
func (d *Directory) Len() int {
	return int(d.size.Load())
}
