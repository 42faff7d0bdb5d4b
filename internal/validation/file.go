package validation

import (
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// FileConstraints defines validation rules for file uploads
type FileConstraints struct {
	// AllowedExtensions maps a lowercase extension to the MIME type recorded
	// for it.
	AllowedExtensions map[string]string
	// AllowedMimeTypes lists the sniffed content types that may be stored.
	AllowedMimeTypes map[string]bool
	MaxSize          int64
}

var imageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

var (
	// ImageConstraints applies to initiative cover images
	ImageConstraints = FileConstraints{
		AllowedExtensions: imageExtensions,
		AllowedMimeTypes: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/gif":  true,
			"image/webp": true,
		},
		MaxSize: 10 << 20, // 10MB
	}

	// DocumentConstraints applies to supporting documents and proposals
	DocumentConstraints = FileConstraints{
		AllowedExtensions: merge(imageExtensions, map[string]string{
			".pdf":  "application/pdf",
			".txt":  "text/plain",
			".csv":  "text/csv",
			".rtf":  "application/rtf",
			".doc":  "application/msword",
			".xls":  "application/vnd.ms-excel",
			".ppt":  "application/vnd.ms-powerpoint",
			".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
			".odt":  "application/vnd.oasis.opendocument.text",
			".ods":  "application/vnd.oasis.opendocument.spreadsheet",
			".odp":  "application/vnd.oasis.opendocument.presentation",
		}),
		AllowedMimeTypes: map[string]bool{
			"application/pdf":          true,
			"application/zip":          true, // OOXML and OpenDocument
			"application/octet-stream": true, // legacy OLE office files
			"text/plain":               true,
			"image/jpeg":               true,
			"image/png":                true,
			"image/gif":                true,
			"image/webp":               true,
		},
		MaxSize: 20 << 20, // 20MB
	}
)

// DetectMimeType sniffs the first 512 bytes and drops any parameters.
func DetectMimeType(data []byte) string {
	detected := http.DetectContentType(sniff(data))
	mediaType, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return detected
	}
	return mediaType
}

// TypeForName returns the MIME type recorded for a filename, or "" when its
// extension is not accepted as a document.
func TypeForName(filename string) string {
	return DocumentConstraints.AllowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// InlineSafe reports whether a stored type may be rendered by the browser.
// Everything else is served as an attachment.
func InlineSafe(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/gif", "image/webp", "application/pdf":
		return true
	}
	return false
}

// ValidateFile checks an upload against constraints and returns the MIME type
// to record. The type comes from the extension and the sniffed content must
// agree with it, so a renamed file cannot pass as an image or a PDF.
func ValidateFile(data []byte, filename string, constraints FileConstraints) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("file is empty")
	}

	if constraints.MaxSize > 0 && int64(len(data)) > constraints.MaxSize {
		maxMB := constraints.MaxSize / (1 << 20)
		return "", fmt.Errorf("file too large: maximum size is %d MB", maxMB)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	mimeType, ok := constraints.AllowedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("file extension %q is not allowed", ext)
	}

	detected := DetectMimeType(data)
	if !constraints.AllowedMimeTypes[detected] || !matches(mimeType, detected) {
		return "", fmt.Errorf("invalid file type (detected: %s)", detected)
	}

	return mimeType, nil
}

// matches checks the sniffed type against the type the extension claims.
func matches(mimeType, detected string) bool {
	switch {
	case strings.HasPrefix(mimeType, "image/"), mimeType == "application/pdf":
		return detected == mimeType
	case strings.HasPrefix(mimeType, "text/"), mimeType == "application/rtf":
		return detected == "text/plain"
	default:
		return detected == "application/zip" || detected == "application/octet-stream"
	}
}

func merge(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func sniff(data []byte) []byte {
	if len(data) > 512 {
		return data[:512]
	}
	return data
}
