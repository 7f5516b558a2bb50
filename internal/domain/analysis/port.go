package analysis

import "context"

// Repository port (interface for persistence)
type Repository interface {
	Save(ctx context.Context, a *Analysis) error
	Get(ctx context.Context, owner string, id AnalysisID) (*Analysis, error)
	List(ctx context.Context, owner string, kind Kind, page, pageSize int) ([]*Analysis, error)
	ListAll(ctx context.Context, owner string) ([]*Analysis, error)
	Delete(ctx context.Context, owner string, id AnalysisID) error
}

// Cache port. Get returns ("", false) on a miss; a disabled cache
// implementation degrades to always-miss, never to an error.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	SetWithTTL(ctx context.Context, key, value string, ttlSeconds int)
	Delete(ctx context.Context, keys ...string)
}

// Cache key layout, shared by writers (invalidation) and readers.
func DigestCacheKey(owner string) string { return "digest:" + owner }
func StatsCacheKey(owner string) string  { return "stats:" + owner }
func ListCacheKey(owner string) string   { return "analyses:" + owner }

// ArtifactStore port (interface for archiving source artifacts)
type ArtifactStore interface {
	Archive(ctx context.Context, name, contentType string, data []byte) (ArchiveResult, error)
}

// ArchiveResult describes where an archived artifact landed.
type ArchiveResult struct {
	URL  string `json:"url"`
	Key  string `json:"key,omitempty"`
	Name string `json:"name,omitempty"`
	Size int64  `json:"size,omitempty"`
}
