package storage

import (
	"path/filepath"
	"strings"
)

var extTypes = map[string]string{
	".jpg": "image", ".jpeg": "image", ".png": "image", ".gif": "image",
	".bmp": "image", ".webp": "image", ".svg": "image",

	".mp4": "video", ".mkv": "video", ".avi": "video", ".mov": "video",
	".webm": "video",

	".mp3": "audio", ".wav": "audio", ".flac": "audio", ".ogg": "audio",
	".m4a": "audio",

	".pdf": "document", ".doc": "document", ".docx": "document",
	".txt": "document", ".md": "document", ".rtf": "document",
	".xls": "document", ".xlsx": "document", ".csv": "document",
	".ppt": "document", ".pptx": "document",

	".zip": "archive", ".tar": "archive", ".gz": "archive",
	".rar": "archive", ".7z": "archive",
}

// ClassifyFileType buckets a file by its extension; unknown extensions are
// "other".
func ClassifyFileType(name string) string {
	if t, ok := extTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return "other"
}
