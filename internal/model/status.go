package model

// DownloadStatus represents the state reported by a download progress update
type DownloadStatus string

const (
	// DownloadStatusStarting means the extraction engine was invoked but reported nothing yet
	DownloadStatusStarting DownloadStatus = "Starting"

	// DownloadStatusDownloading means bytes are being transferred
	DownloadStatusDownloading DownloadStatus = "Downloading"

	// DownloadStatusPostProcessing means the engine is merging or transcoding
	DownloadStatusPostProcessing DownloadStatus = "PostProcessing"

	// DownloadStatusFinished means the engine exited successfully
	DownloadStatusFinished DownloadStatus = "Finished"

	// DownloadStatusError means the engine failed, timed out or produced no file
	DownloadStatusError DownloadStatus = "Error"
)

// String returns the string representation of DownloadStatus
func (ds DownloadStatus) String() string {
	return string(ds)
}

// IsActive returns true while the engine is still working
func (ds DownloadStatus) IsActive() bool {
	return ds == DownloadStatusStarting || ds == DownloadStatusDownloading || ds == DownloadStatusPostProcessing
}

// IsFinished returns true for terminal states
func (ds DownloadStatus) IsFinished() bool {
	return ds == DownloadStatusFinished || ds == DownloadStatusError
}
