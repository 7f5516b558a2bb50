package analyses

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ahmad9059/sehatscan/internal/domain/analysis"
)

func imageConstraints() Constraints {
	return ConstraintsFor(analysis.KindFace, 10<<20, 20<<20)
}

func TestValidateArtifact_NoFile(t *testing.T) {
	err := ValidateArtifact(nil, imageConstraints())
	require.EqualError(t, err, "no file provided")
}

func TestValidateArtifact_Empty(t *testing.T) {
	art := &analysis.Artifact{Name: "a.jpg", ContentType: "image/jpeg", Size: 0}
	err := ValidateArtifact(art, imageConstraints())
	require.EqualError(t, err, "file is empty")
}

func TestValidateArtifact_EmptyFailsRegardlessOfType(t *testing.T) {
	for _, ct := range []string{"image/jpeg", "application/pdf", "text/plain", ""} {
		art := &analysis.Artifact{Name: "a", ContentType: ct, Size: 0}
		err := ValidateArtifact(art, imageConstraints())
		require.EqualError(t, err, "file is empty", "content type %q", ct)
	}
}

func TestValidateArtifact_TooLarge(t *testing.T) {
	art := &analysis.Artifact{Name: "a.jpg", ContentType: "image/jpeg", Size: 11 << 20}
	err := ValidateArtifact(art, imageConstraints())
	require.Error(t, err)
	require.Contains(t, err.Error(), "file too large")
	require.Contains(t, err.Error(), "10MB")
}

func TestValidateArtifact_UnsupportedType(t *testing.T) {
	art := &analysis.Artifact{Name: "a.gif", ContentType: "image/gif", Size: 100}
	err := ValidateArtifact(art, imageConstraints())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported type")
}

func TestValidateArtifact_OK(t *testing.T) {
	art := &analysis.Artifact{Name: "a.jpg", ContentType: "image/jpeg", Size: 100}
	require.NoError(t, ValidateArtifact(art, imageConstraints()))
}

func TestValidateArtifact_ContentTypeParamsIgnored(t *testing.T) {
	art := &analysis.Artifact{Name: "a.jpg", ContentType: "IMAGE/JPEG; charset=binary", Size: 100}
	require.NoError(t, ValidateArtifact(art, imageConstraints()))
}

func TestConstraintsFor_ReportAllowsPDF(t *testing.T) {
	art := &analysis.Artifact{Name: "labs.pdf", ContentType: "application/pdf", Size: 100}
	require.NoError(t, ValidateArtifact(art, ConstraintsFor(analysis.KindReport, 10<<20, 20<<20)))

	// but a face scan does not
	require.Error(t, ValidateArtifact(art, imageConstraints()))
}
