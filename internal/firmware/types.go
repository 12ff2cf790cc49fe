package firmware

// ProgressCallback is called during long operations to report progress.
// current and total are byte counts, description is a human-readable phase name.
type ProgressCallback func(current, total int64, description string)

// TransferProgress tracks a chunked transfer for display.
type TransferProgress struct {
	BytesSent   int64
	TotalBytes  int64
	ChunksSent  int
	TotalChunks int
	Phase       string // "fetch", "upload", "ota"
}

// Percent returns the progress as a fraction (0.0 to 1.0). When the byte
// total is unknown the chunk counters are used instead.
func (p TransferProgress) Percent() float64 {
	switch {
	case p.TotalBytes > 0:
		return float64(p.BytesSent) / float64(p.TotalBytes)
	case p.TotalChunks > 0:
		return float64(p.ChunksSent) / float64(p.TotalChunks)
	}
	return 0
}

// Image file names staged for the supervisor that applies updates
const (
	FlashImage = "flash.bin"
	FSImage    = "fs.bin"
)
