package cty

import (
	"container/list"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

const defaultCacheCapacity = 10000

// Resolver maps on-air callsign prefixes to award entity identifiers. The
// table set is an immutable snapshot: a reload builds a brand-new Resolver
// and the owner swaps the reference, so readers never observe a half-built
// table.
type Resolver struct {
	prefixToRecord  map[string]EntityRecord
	countryToEntity map[string]string

	// cache memoizes prefix lookups (hits and misses) with a bounded LRU.
	cacheMu   sync.Mutex
	cacheList *list.List
	cacheMap  map[string]*list.Element
	cacheCap  int
}

type resolveEntry struct {
	entityID string
	ok       bool
}

type cacheItem struct {
	key   string
	entry resolveEntry
}

// NewResolver builds a resolver from a parsed prefix table and the external
// entityID -> country-name map. Either input may be nil; the result is then
// a permanently empty resolver whose lookups all miss.
func NewResolver(records map[string]EntityRecord, entityNames map[string]string) *Resolver {
	r := &Resolver{
		prefixToRecord:  records,
		countryToEntity: make(map[string]string),
		cacheCap:        defaultCacheCapacity,
		cacheList:       list.New(),
		cacheMap:        make(map[string]*list.Element),
	}
	if records == nil {
		r.prefixToRecord = make(map[string]EntityRecord)
	}
	if len(records) > 0 && len(entityNames) > 0 {
		r.countryToEntity = buildCountryToEntity(records, entityNames)
	}
	return r
}

// Empty returns a resolver with no data loaded. All lookups return false.
func Empty() *Resolver {
	return NewResolver(nil, nil)
}

// Load reads the country table and the entity-mapping JSON file and builds a
// resolver. A ".plist" country file takes the plist loader; anything else is
// read as flat cty.dat. When either source is missing or unreadable, the
// returned resolver is empty (never nil) and the error says why, so the
// caller can degrade instead of failing the pipeline.
func Load(countryPath, mappingPath string) (*Resolver, error) {
	var (
		records map[string]EntityRecord
		err     error
	)
	if strings.EqualFold(filepath.Ext(countryPath), ".plist") {
		records, err = LoadCountryPlist(countryPath)
	} else {
		records, err = LoadCountryFile(countryPath)
	}
	if err != nil {
		return Empty(), err
	}
	names, err := LoadEntityNames(mappingPath)
	if err != nil {
		return Empty(), err
	}
	return NewResolver(records, names), nil
}

// LoadEntityNames reads the entityID -> country-name JSON map.
func LoadEntityNames(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entity mapping: %w", err)
	}
	var names map[string]string
	if err := jsoniter.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("parse entity mapping: %w", err)
	}
	return names, nil
}

// Loaded reports whether both source tables produced usable data.
func (r *Resolver) Loaded() bool {
	return len(r.prefixToRecord) > 0 && len(r.countryToEntity) > 0
}

// Resolve maps a cluster prefix to an entity identifier. On a miss the
// prefix is shortened one trailing character at a time down to length 1
// ("IT9" falls back to "IT", then "I"). Results, including misses, are
// memoized.
func (r *Resolver) Resolve(prefix string) (string, bool) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", false
	}
	if entry, ok := r.cacheGet(prefix); ok {
		return entry.entityID, entry.ok
	}
	entry := r.resolveNoCache(prefix)
	r.cacheStore(prefix, entry)
	return entry.entityID, entry.ok
}

// Record returns the CTY metadata for a prefix, applying the same
// progressive-shortening fallback as Resolve.
func (r *Resolver) Record(prefix string) (EntityRecord, bool) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	for l := len(prefix); l >= 1; l-- {
		if rec, ok := r.prefixToRecord[prefix[:l]]; ok {
			return rec, true
		}
	}
	return EntityRecord{}, false
}

func (r *Resolver) resolveNoCache(prefix string) resolveEntry {
	rec, ok := r.Record(prefix)
	if !ok {
		return resolveEntry{}
	}
	entityID, ok := r.countryToEntity[rec.Country]
	if !ok {
		return resolveEntry{}
	}
	return resolveEntry{entityID: entityID, ok: true}
}

func (r *Resolver) cacheGet(prefix string) (resolveEntry, bool) {
	if r.cacheCap <= 0 {
		return resolveEntry{}, false
	}
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	elem, ok := r.cacheMap[prefix]
	if !ok {
		return resolveEntry{}, false
	}
	r.cacheList.MoveToFront(elem)
	return elem.Value.(*cacheItem).entry, true
}

func (r *Resolver) cacheStore(prefix string, entry resolveEntry) {
	if r.cacheCap <= 0 {
		return
	}
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	if elem, ok := r.cacheMap[prefix]; ok {
		elem.Value.(*cacheItem).entry = entry
		r.cacheList.MoveToFront(elem)
		return
	}
	elem := r.cacheList.PushFront(&cacheItem{key: prefix, entry: entry})
	r.cacheMap[prefix] = elem

	if len(r.cacheMap) > r.cacheCap {
		if tail := r.cacheList.Back(); tail != nil {
			r.cacheList.Remove(tail)
			delete(r.cacheMap, tail.Value.(*cacheItem).key)
		}
	}
}
