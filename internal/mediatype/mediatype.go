// Package mediatype validates upload filenames and infers content types.
package mediatype

import (
	"fmt"
	"sort"
	"strings"
)

// MaxFileSizeBytes caps the size of a single upload.
const MaxFileSizeBytes = 500 * 1024 * 1024 // 500MB

// contentTypes is the extension whitelist with its MIME mapping.
var contentTypes = map[string]string{
	// audio
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"m4a":  "audio/mp4",
	"flac": "audio/flac",
	"aac":  "audio/aac",
	"ogg":  "audio/ogg",
	// video
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
	// documents
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"txt":  "text/plain",
	// images
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
	"tiff": "image/tiff",
}

// blockedExtensions rejects executables, archives, and scripts outright,
// even if someone adds them to the whitelist later.
var blockedExtensions = map[string]bool{
	"exe": true, "bat": true, "cmd": true, "com": true, "scr": true, "msi": true,
	"sh": true, "bash": true, "zsh": true, "csh": true,
	"app": true, "dmg": true, "pkg": true,
	"zip": true, "rar": true, "7z": true, "tar": true, "gz": true, "bz2": true,
	"jar": true, "war": true,
	"apk": true, "ipa": true,
	"js": true, "vbs": true, "wsf": true, "ps1": true,
	"html": true, "htm": true, "svg": true,
}

func extension(filename string) (string, error) {
	idx := strings.LastIndexByte(filename, '.')
	if filename == "" || idx < 0 || idx == len(filename)-1 {
		return "", fmt.Errorf("filename must include a file extension")
	}
	return strings.ToLower(filename[idx+1:]), nil
}

// ValidateFilename checks the upload filename against the blocklist and
// the whitelist.
func ValidateFilename(filename string) error {
	ext, err := extension(filename)
	if err != nil {
		return err
	}
	if blockedExtensions[ext] {
		return fmt.Errorf("file type .%s is not allowed for security reasons", ext)
	}
	if _, ok := contentTypes[ext]; !ok {
		return fmt.Errorf("file type .%s is not supported, allowed types: %s", ext, strings.Join(AllowedExtensions(), ", "))
	}
	return nil
}

// ContentType returns the MIME type for an allowed filename.
func ContentType(filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	ext, _ := extension(filename)
	return contentTypes[ext], nil
}

// AllowedExtensions lists the whitelist, sorted.
func AllowedExtensions() []string {
	exts := make([]string, 0, len(contentTypes))
	for ext := range contentTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// ValidateSize rejects uploads over the cap. Zero and negative declared
// sizes are rejected as well.
func ValidateSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file size must be positive")
	}
	if sizeBytes > MaxFileSizeBytes {
		return fmt.Errorf("file size %d exceeds the %d byte limit", sizeBytes, MaxFileSizeBytes)
	}
	return nil
}
