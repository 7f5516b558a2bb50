package analyses

import (
	"fmt"
	"strings"

	"github.com/ahmad9059/sehatscan/internal/domain/analysis"
)

// Constraints bound a submitted upload before any network work begins.
type Constraints struct {
	AllowedTypes []string
	MaxBytes     int64
}

var (
	imageTypes    = []string{"image/jpeg", "image/png", "image/webp"}
	documentTypes = []string{"application/pdf", "image/jpeg", "image/png"}
)

// ConstraintsFor returns the upload constraints for an analysis kind.
func ConstraintsFor(kind analysis.Kind, maxImage, maxDocument int64) Constraints {
	if kind == analysis.KindReport {
		return Constraints{AllowedTypes: documentTypes, MaxBytes: maxDocument}
	}
	return Constraints{AllowedTypes: imageTypes, MaxBytes: maxImage}
}

// ValidateArtifact checks an upload against kind constraints. Pure
// function, no side effects. Rules run in order and each produces a
// distinct failure.
func ValidateArtifact(art *analysis.Artifact, c Constraints) error {
	if art == nil {
		return fmt.Errorf("no file provided")
	}
	if art.Size == 0 {
		return fmt.Errorf("file is empty")
	}
	if art.Size > c.MaxBytes {
		return fmt.Errorf("file too large (max %dMB)", c.MaxBytes>>20)
	}
	ct := normalizeContentType(art.ContentType)
	for _, allowed := range c.AllowedTypes {
		if ct == allowed {
			return nil
		}
	}
	return fmt.Errorf("unsupported type %q (allowed: %s)", art.ContentType, strings.Join(c.AllowedTypes, ", "))
}

func normalizeContentType(ct string) string {
	// strip parameters like "; charset=binary"
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
