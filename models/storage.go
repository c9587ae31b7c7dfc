package models

// StorageType selects one of the three blob store partitions.
type StorageType string

const (
	StorageBulk   StorageType = "bulk"
	StorageFresh  StorageType = "fresh"
	StorageViewer StorageType = "viewer"
)

// ValidStorageType reports whether s names a known partition.
func ValidStorageType(s string) bool {
	switch StorageType(s) {
	case StorageBulk, StorageFresh, StorageViewer:
		return true
	}
	return false
}

// StorageTypes lists the partitions in a stable order.
func StorageTypes() []StorageType {
	return []StorageType{StorageBulk, StorageFresh, StorageViewer}
}

// FileInfo describes one stored PDF as seen on the filesystem.
type FileInfo struct {
	Filename    string      `json:"filename"`
	DocID       string      `json:"doc_id"`
	Path        string      `json:"path"`
	StorageType StorageType `json:"storage_type"`
	Size        int64       `json:"size"`
	Modified    int64       `json:"modified"`
}

// ClearStats reports the outcome of clearing one partition.
type ClearStats struct {
	FilesRemoved int      `json:"files_removed"`
	Errors       []string `json:"errors,omitempty"`
}

// PartitionHealth is the writability probe result for one partition.
type PartitionHealth struct {
	Directory string `json:"directory"`
	Exists    bool   `json:"exists"`
	Writable  bool   `json:"writable"`
	Healthy   bool   `json:"healthy"`
	Error     string `json:"error,omitempty"`
}
