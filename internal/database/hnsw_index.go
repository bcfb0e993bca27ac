package database

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWIndex wraps an in-memory HNSW graph over the face gallery. It only
// serves the advisory similar-faces lookup; the authentication decision path
// always runs an exact scan over a gallery snapshot.
type HNSWIndex struct {
	graph      *hnsw.Graph[string]
	savedGraph *hnsw.SavedGraph[string] // for persistence
	idToRecord map[string]*FaceRecord
	mu         sync.RWMutex
	path       string // path to save/load index
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{
		idToRecord: make(map[string]*FaceRecord),
	}
}

// BuildFromRecords builds the index from a slice of face records.
func (h *HNSWIndex) BuildFromRecords(records []FaceRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(records) == 0 {
		h.graph = nil
		h.savedGraph = nil
		h.idToRecord = make(map[string]*FaceRecord)
		return nil
	}

	g := hnsw.NewGraph[string]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // standard HNSW formula
	g.Distance = hnsw.EuclideanDistance

	h.idToRecord = make(map[string]*FaceRecord, len(records))

	for i := range records {
		rec := &records[i]
		if len(rec.Embedding) == 0 {
			continue
		}

		g.Add(hnsw.MakeNode(rec.ID, rec.Embedding))
		h.idToRecord[rec.ID] = rec
	}

	h.graph = g
	return nil
}

// Search finds the k nearest neighbors to the query embedding.
// Returns record IDs and their L2 distances.
func (h *HNSWIndex) Search(query []float32, k int) ([]string, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil && h.savedGraph == nil {
		return nil, nil, errors.New("index not initialized")
	}

	var neighbors []hnsw.Node[string]
	if h.savedGraph != nil {
		neighbors = h.savedGraph.Search(query, k)
	} else {
		neighbors = h.graph.Search(query, k)
	}

	ids := make([]string, len(neighbors))
	distances := make([]float64, len(neighbors))

	for i, n := range neighbors {
		ids[i] = n.Key
		if len(n.Value) > 0 {
			distances[i] = EuclideanDistance(query, n.Value)
		}
	}

	return ids, distances, nil
}

// GetRecord returns the face record for a given ID.
func (h *HNSWIndex) GetRecord(id string) *FaceRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.idToRecord[id]
}

// Add adds a single face record to the index.
func (h *HNSWIndex) Add(rec *FaceRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(rec.Embedding) == 0 {
		return nil
	}

	if h.graph == nil {
		h.graph = hnsw.NewGraph[string]()
		h.graph.M = HNSWMaxNeighbors
		h.graph.Ml = 1.0 / float64(HNSWMaxNeighbors)
		h.graph.Distance = hnsw.EuclideanDistance
	}

	h.graph.Add(hnsw.MakeNode(rec.ID, rec.Embedding))
	h.idToRecord[rec.ID] = rec

	return nil
}

// Delete removes a face record from the index (marks as deleted).
func (h *HNSWIndex) Delete(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.idToRecord, id)
	// HNSW doesn't support true deletion, but removing from idToRecord
	// effectively removes it from search results since we filter by lookup.
}

// SetPath sets the path for saving/loading the index.
func (h *HNSWIndex) SetPath(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.path = path
}

// Save persists the index to disk.
func (h *HNSWIndex) Save() error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.path == "" {
		return nil // no path set
	}

	if h.graph == nil {
		// Remove existing file if index is empty (best-effort cleanup).
		_ = os.Remove(h.path)
		return nil
	}

	f, err := os.Create(h.path)
	if err != nil {
		return fmt.Errorf("failed to create HNSW index file: %w", err)
	}
	defer f.Close()

	if err := h.graph.Export(f); err != nil {
		return fmt.Errorf("exporting HNSW graph: %w", err)
	}
	return nil
}

// Load loads the index from disk.
func (h *HNSWIndex) Load(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.path = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // no index file, will build from records
	}

	saved, err := hnsw.LoadSavedGraph[string](path)
	if err != nil {
		return fmt.Errorf("failed to load HNSW index: %w", err)
	}

	h.savedGraph = saved
	return nil
}

// GraphLen returns the number of nodes in the underlying graph, which may
// differ from Count after soft deletes.
func (h *HNSWIndex) GraphLen() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.savedGraph != nil {
		return h.savedGraph.Len()
	}
	if h.graph != nil {
		return h.graph.Len()
	}
	return 0
}

// Count returns the number of indexed face records.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idToRecord)
}

// IsEmpty returns true if the index has no graph data loaded.
// Note: idToRecord is populated separately by RebuildFromRecords after loading.
func (h *HNSWIndex) IsEmpty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph == nil && h.savedGraph == nil
}

// RebuildFromRecords rebuilds the idToRecord map from records.
// Called after loading the index from disk.
func (h *HNSWIndex) RebuildFromRecords(records []FaceRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.idToRecord = make(map[string]*FaceRecord, len(records))
	for i := range records {
		h.idToRecord[records[i].ID] = &records[i]
	}
}
