package result

// Result is a single search hit.
type Result struct {
	id         string
	sourcePath string
	filename   string
	score      float64
}

// New creates a search result.
func New(id, sourcePath, filename string, score float64) Result {
	return Result{id: id, sourcePath: sourcePath, filename: filename, score: score}
}

// ID returns the index record identifier.
func (r *Result) ID() string { return r.id }

// SourcePath returns the path of the matched image.
func (r *Result) SourcePath() string { return r.sourcePath }

// Filename returns the base name of the matched image.
func (r *Result) Filename() string { return r.filename }

// Score returns the late-interaction relevance score.
func (r *Result) Score() float64 { return r.score }
