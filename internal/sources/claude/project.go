package claude

import (
	"os"
	"strings"
)

// DecodeDirName recovers a real filesystem path from a Claude project
// directory name. Claude encodes a project's absolute path by
// replacing every path separator with "-" (e.g. "/Users/evan/brainstm"
// becomes "-Users-evan-brainstm"), which is ambiguous whenever the
// original path itself contains a literal hyphen. We resolve the
// ambiguity by preferring candidate paths that actually exist on disk.
func DecodeDirName(dirName string) string {
	if dirName == "" {
		return dirName
	}

	naive := strings.ReplaceAll(dirName, "-", "/")
	if naive != "" && pathExists(naive) {
		return naive
	}

	if decoded, ok := decodeWindowsDrive(dirName); ok {
		return decoded
	}

	return decodeGreedy(dirName)
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// decodeWindowsDrive handles names like "C-Users-evan-brainstm" where
// the first segment is a single drive letter.
func decodeWindowsDrive(dirName string) (string, bool) {
	trimmed := strings.TrimPrefix(dirName, "-")
	parts := strings.Split(trimmed, "-")
	if len(parts) == 0 || len(parts[0]) != 1 {
		return "", false
	}
	c := parts[0][0]
	if !((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')) {
		return "", false
	}
	candidate := strings.ToUpper(parts[0]) + `:\` + strings.Join(parts[1:], `\`)
	if pathExists(candidate) {
		return candidate, true
	}
	return "", false
}

// decodeGreedy rebuilds the path segment by segment, at each step
// preferring to treat "-" as a path separator when the resulting
// directory exists on disk, and otherwise treating it as a literal
// hyphen within the current segment.
func decodeGreedy(dirName string) string {
	rest := strings.TrimPrefix(dirName, "-")
	tokens := strings.Split(rest, "-")
	if len(tokens) == 0 {
		return strings.ReplaceAll(dirName, "-", "/")
	}

	built := ""
	current := tokens[0]
	for i := 1; i < len(tokens); i++ {
		asSeparator := built + "/" + current
		if pathExists(asSeparator) {
			built = asSeparator
			current = tokens[i]
			continue
		}
		current = current + "-" + tokens[i]
	}
	final := built + "/" + current
	return final
}
