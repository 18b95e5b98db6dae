package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Scratch file naming
const (
	BaseNamePrefix   = "media"
	RandomSuffixSize = 8
	MaxFileNameLen   = 200
)

// OutputExtensions are tried in order when the extraction engine rewrote the output extension
var OutputExtensions = []string{".mp4", ".webm", ".mkv", ".mp3", ".m4a", ".ogg"}

// File extensions to skip
var (
	SkippedExtensions = []string{".part", ".ytdl"}
)

var unsafeFileChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]+`)

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// GenerateBaseName returns a collision-resistant scratch file stem: media_<unix-millis>_<8 hex>
func GenerateBaseName() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return CleanFilename(fmt.Sprintf("%s_%d_%s", BaseNamePrefix, time.Now().UnixMilli(), id[:RandomSuffixSize]))
}

// CleanFilename replaces characters that are unsafe on common filesystems and bounds the length
func CleanFilename(name string) string {
	cleaned := unsafeFileChars.ReplaceAllString(name, "_")
	cleaned = strings.Trim(strings.TrimSpace(cleaned), ".")
	if len(cleaned) > MaxFileNameLen {
		cleaned = cleaned[:MaxFileNameLen]
	}
	if cleaned == "" {
		return "file"
	}
	return cleaned
}

// ResolveOutputFile locates the file the extraction engine produced for basePath.
// The engine does not promise an exact output name, so resolution is best-effort:
// exact path, then basePath plus each of OutputExtensions, then the first regular
// file in the directory whose name starts with the stem.
func ResolveOutputFile(basePath string) (string, error) {
	if basePath == "" {
		return "", fmt.Errorf("file path is empty")
	}

	if isRegularFile(basePath) {
		return basePath, nil
	}

	stem := strings.TrimSuffix(basePath, filepath.Ext(basePath))
	for _, candidate := range []string{basePath, stem} {
		for _, ext := range OutputExtensions {
			if p := candidate + ext; isRegularFile(p) {
				return p, nil
			}
		}
	}

	matches, err := filepath.Glob(globEscape(stem) + "*")
	if err != nil {
		return "", fmt.Errorf("failed to glob %s: %w", stem, err)
	}
	sort.Strings(matches)
	for _, m := range matches {
		if isSkipped(m) || !isRegularFile(m) {
			continue
		}
		return m, nil
	}

	return "", fmt.Errorf("file not found: %s", basePath)
}

// RemoveIfExists deletes path, treating an already-absent file as success
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isSkipped(name string) bool {
	for _, ext := range SkippedExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// globEscape escapes glob metacharacters in a literal path
func globEscape(p string) string {
	replacer := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`)
	return replacer.Replace(p)
}
