package export

// ExportRequest asks for an EDL of a saved project to be written to disk.
// An empty OutputDir only renders the EDL into the response.
type ExportRequest struct {
	Format    string `json:"format"`
	OutputDir string `json:"output_dir"`
}

type ExportResponse struct {
	Status     string `json:"status"`
	Format     string `json:"format"`
	OutputPath string `json:"output_path,omitempty"`
	EventCount int    `json:"event_count"`
	EDL        string `json:"edl,omitempty"`
}

// Event is one placed segment in record and source frames.
type Event struct {
	ClipName   string
	MediaPath  string
	SourceIn   int
	SourceOut  int
	RecordIn   int
	RecordOut  int
	Transition int
}
