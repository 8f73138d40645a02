package util

import (
	"path/filepath"
	"strings"
)

// videoExtensions lists the container extensions FindVideoFiles treats as
// dashcam footage; unknown extensions (thumbnails, sidecar metadata) are
// skipped silently.
var videoExtensions = map[string]bool{
	".mkv": true, ".mp4": true, ".webm": true,
	".avi": true, ".mov": true, ".m4v": true, ".ts": true,
}

// IsVideoFile reports whether path has a recognized video container
// extension, case-insensitively.
func IsVideoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return videoExtensions[ext]
}
