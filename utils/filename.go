package utils

import (
	"path/filepath"
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9]`)

// SanitizeName replaces every character outside [A-Za-z0-9] with an underscore.
// Distinct names may collapse to the same result; callers accept that.
func SanitizeName(name string) string {
	return nonAlphanumeric.ReplaceAllString(name, "_")
}

// CardFileName builds the archive entry name for one student's card
// Example: "Asha Rao" -> "Asha_Rao_idcard.png"
func CardFileName(displayName, ext string) string {
	return SanitizeName(displayName) + "_idcard." + strings.TrimPrefix(ext, ".")
}

var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
}

// ContentTypeFromFileName maps a file extension to a MIME type (case-insensitive)
func ContentTypeFromFileName(filename string) string {
	if ct, ok := imageExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}
