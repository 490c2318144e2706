package models

import "unicode"

// Format limits for user-supplied names and metadata.
const (
	MinBasenameChars = 1
	MaxBasenameChars = 512

	MaxCommentChars = 1024

	MaxMediumNameChars = 128

	MaxTagKeyChars   = 128
	MaxTagValueChars = 512
)

func validPathChar(ch rune) bool {
	if ch == '/' || ch == '\\' {
		return false
	}
	return !unicode.IsControl(ch)
}

// BasenameValid reports whether the given string is usable as an item
// basename: no path separators, no control characters, no leading or
// trailing whitespace, bounded length. Interior whitespace is allowed.
func BasenameValid(given string) bool {
	runes := []rune(given)
	count := len(runes)

	if count < MinBasenameChars || count > MaxBasenameChars {
		return false
	}

	first, last := runes[0], runes[count-1]
	if unicode.IsSpace(first) || !validPathChar(first) {
		return false
	}
	if unicode.IsSpace(last) || !validPathChar(last) {
		return false
	}

	for i := 1; i < count-1; i++ {
		if !validPathChar(runes[i]) {
			return false
		}
	}

	return true
}

// checkControlLeadingTrailing rejects control characters anywhere and
// whitespace at either end, with an optional length cap.
func checkControlLeadingTrailing(given string, maxChars int) bool {
	runes := []rune(given)
	count := len(runes)

	if count == 0 || (maxChars > 0 && count > maxChars) {
		return false
	}

	if unicode.IsSpace(runes[0]) || unicode.IsSpace(runes[count-1]) {
		return false
	}

	for _, ch := range runes {
		if unicode.IsControl(ch) {
			return false
		}
	}

	return true
}

// CommentValid reports whether the given string is usable as an item or
// medium comment.
func CommentValid(given string) bool {
	return checkControlLeadingTrailing(given, MaxCommentChars)
}

// MediumNameValid reports whether the given string is usable as a storage
// medium display name.
func MediumNameValid(given string) bool {
	return checkControlLeadingTrailing(given, MaxMediumNameChars)
}

// TagKeyValid reports whether the given string is usable as a tag key.
func TagKeyValid(given string) bool {
	return checkControlLeadingTrailing(given, MaxTagKeyChars)
}

// TagValueValid reports whether the given string is usable as a tag value.
func TagValueValid(given string) bool {
	return checkControlLeadingTrailing(given, MaxTagValueChars)
}
