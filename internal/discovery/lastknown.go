package discovery

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

type backendIdentity struct {
	name    string
	version string
}

// lastKnown remembers the identity last reported by each backend URL so that
// an unavailable backend can still be described without guessing.
type lastKnown struct {
	cache *lru.Cache[string, backendIdentity]
}

func newLastKnown(size int) (*lastKnown, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, backendIdentity](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &lastKnown{cache: cache}, nil
}

func (l *lastKnown) remember(url, name, version string) {
	l.cache.Add(url, backendIdentity{name: name, version: version})
}

// recall returns empty strings for a backend never seen available
func (l *lastKnown) recall(url string) (name, version string) {
	id, ok := l.cache.Get(url)
	if !ok {
		return "", ""
	}
	return id.name, id.version
}
