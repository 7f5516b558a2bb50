package analysis

// Artifact is the uploaded byte payload (image or document) submitted
// for analysis.
type Artifact struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}
