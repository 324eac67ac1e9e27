package docstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tanisharajgor/Mongo-Exploratory/pipeline"
)

// MemoryStore is an in-process DocumentStore. It evaluates the pipeline
// vocabulary with MongoDB's semantics, so queries behave the same on both
// backends. When created with NewFileStore every write is persisted to a
// snapshot file in canonical Extended JSON.
type MemoryStore struct {
	mu          sync.RWMutex
	filePath    string
	collections map[string][]bson.M
	ids         map[string]map[string]struct{}
	indexes     map[string][]pipeline.Index
}

type snapshot struct {
	Collections map[string][]bson.M     `bson:"collections"`
	Indexes     map[string][]indexEntry `bson:"indexes"`
}

type indexEntry struct {
	Field string `bson:"field"`
	Kind  string `bson:"kind"`
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]bson.M),
		ids:         make(map[string]map[string]struct{}),
		indexes:     make(map[string][]pipeline.Index),
	}
}

// NewFileStore opens a store persisted at filePath, loading any existing snapshot.
func NewFileStore(filePath string) (*MemoryStore, error) {
	store := NewMemoryStore()
	store.filePath = filePath
	if err := store.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return store, nil
}

func (s *MemoryStore) Collection(name string) Collection {
	return &memCollection{store: s, name: name}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Drop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections = make(map[string][]bson.M)
	s.ids = make(map[string]map[string]struct{})
	s.indexes = make(map[string][]pipeline.Index)
	return s.save()
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) load() error {
	if s.filePath == "" {
		return nil
	}
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}
	var snap snapshot
	if err := bson.UnmarshalExtJSON(data, true, &snap); err != nil {
		return fmt.Errorf("load %s: %w", s.filePath, err)
	}
	for name, docs := range snap.Collections {
		for _, doc := range docs {
			if err := s.add(name, doc); err != nil {
				return fmt.Errorf("load %s: %w", s.filePath, err)
			}
		}
	}
	for name, entries := range snap.Indexes {
		for _, e := range entries {
			s.indexes[name] = append(s.indexes[name], pipeline.Index{Field: e.Field, Kind: pipeline.IndexKind(e.Kind)})
		}
	}
	return nil
}

// add appends doc to the named collection, rejecting a duplicate _id.
// It must be called with the write lock held.
func (s *MemoryStore) add(name string, doc bson.M) error {
	key := canonicalKey(doc["_id"])
	ids := s.ids[name]
	if ids == nil {
		ids = make(map[string]struct{})
		s.ids[name] = ids
	}
	if _, dup := ids[key]; dup {
		return fmt.Errorf("E11000 duplicate key error collection: %s index: _id_ dup key: { _id: %v }", name, doc["_id"])
	}
	ids[key] = struct{}{}
	s.collections[name] = append(s.collections[name], doc)
	return nil
}

// save must be called with the write lock held.
func (s *MemoryStore) save() error {
	if s.filePath == "" {
		return nil
	}
	snap := snapshot{
		Collections: s.collections,
		Indexes:     make(map[string][]indexEntry, len(s.indexes)),
	}
	for name, idxs := range s.indexes {
		for _, idx := range idxs {
			snap.Indexes[name] = append(snap.Indexes[name], indexEntry{Field: idx.Field, Kind: string(idx.Kind)})
		}
	}
	data, err := bson.MarshalExtJSON(snap, true, false)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), filepath.Base(s.filePath)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.filePath)
}

type memCollection struct {
	store *MemoryStore
	name  string
}

func (c *memCollection) Name() string {
	return c.name
}

// documents returns the collection contents in insertion order. Stored
// documents are never mutated, so the slice can be read without the lock.
func (c *memCollection) documents() []bson.M {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	docs := c.store.collections[c.name]
	return docs[:len(docs):len(docs)]
}

func (c *memCollection) hasIndex(field string, kind pipeline.IndexKind) bool {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	for _, idx := range c.store.indexes[c.name] {
		if idx.Field == field && idx.Kind == kind {
			return true
		}
	}
	return false
}

func (c *memCollection) InsertOne(ctx context.Context, document interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := normalize(document)
	if err != nil {
		return nil, err
	}
	id, ok := doc["_id"]
	if !ok {
		id = primitive.NewObjectID()
		doc["_id"] = id
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if err := c.store.add(c.name, doc); err != nil {
		return nil, err
	}
	if err := c.store.save(); err != nil {
		return nil, err
	}
	return id, nil
}

func (c *memCollection) CountDocuments(ctx context.Context, filter pipeline.Filter) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	for _, doc := range c.documents() {
		ok, err := matchFilter(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (c *memCollection) Aggregate(ctx context.Context, p pipeline.Pipeline, results interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	docs, err := runPipeline(ctx, c.documents(), p)
	if err != nil {
		return err
	}
	return decodeAll(docs, results)
}

func (c *memCollection) Find(ctx context.Context, filter pipeline.Filter, projection pipeline.Projection, results interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var near *pipeline.NearSphere
	rest := make(pipeline.Filter, 0, len(filter))
	for _, cond := range filter {
		if ns, ok := cond.(pipeline.NearSphere); ok {
			if near != nil {
				return errors.New("too many geoNear expressions")
			}
			ns := ns
			near = &ns
			continue
		}
		rest = append(rest, cond)
	}
	if near != nil {
		if !c.hasIndex(near.Field, pipeline.Sphere2D) {
			return ErrNoGeoIndex
		}
		if near.MaxDistance < 0 {
			return errors.New("$maxDistance must be non-negative")
		}
	}

	var docs []bson.M
	for _, doc := range c.documents() {
		ok, err := matchFilter(doc, rest)
		if err != nil {
			return err
		}
		if ok {
			docs = append(docs, doc)
		}
	}
	if near != nil {
		docs = nearest(docs, *near)
	}
	if len(projection) > 0 {
		docs = projectAll(docs, projection)
	}
	return decodeAll(docs, results)
}

func (c *memCollection) EnsureIndex(ctx context.Context, idx pipeline.Index) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if idx.Field == "" {
		return errors.New("index key must not be empty")
	}
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	for _, existing := range c.store.indexes[c.name] {
		if existing == idx {
			return nil
		}
	}
	c.store.indexes[c.name] = append(c.store.indexes[c.name], idx)
	return c.store.save()
}
