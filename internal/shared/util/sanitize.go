package util

import (
	"errors"
	"path/filepath"
	"strings"
)

// promptStripper removes characters that can alter prompt structure (code fences, headings, emphasis).
var promptStripper = strings.NewReplacer("`", "", "#", "", "*", "")

// SanitizePromptText strips backticks, '#' and '*' from user-supplied text before it is embedded in a prompt.
func SanitizePromptText(s string) string {
	return promptStripper.Replace(s)
}

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// TitleFromFileName derives a display title from an uploaded file name.
func TitleFromFileName(name string) string {
	clean, err := SanitizeFileName(name)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(clean, filepath.Ext(clean))
}
