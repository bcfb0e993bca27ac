package database

// FaceEmbeddingDim is the default dimension for face embeddings
// (128 for dlib ResNet face descriptors).
const FaceEmbeddingDim = 128

// DefaultMaxFacesPerUser is the default cap on registered faces per user.
const DefaultMaxFacesPerUser = 5

// DefaultHistoryLimit bounds audit history queries when no limit is given.
const DefaultHistoryLimit = 10

// HNSW index parameters for face embeddings
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWSearchMultiplier is the factor to request more candidates from HNSW
	// to ensure we have enough after distance filtering.
	HNSWSearchMultiplier = 3
)
