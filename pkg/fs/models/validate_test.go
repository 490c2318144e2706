package models

import (
	"strings"
	"testing"
)

func TestBasenameValid(t *testing.T) {
	valid := []string{
		"file_name.txt",
		"a",
		"with interior spaces.md",
		strings.Repeat("x", MaxBasenameChars),
	}
	for _, test := range valid {
		if !BasenameValid(test) {
			t.Errorf("valid basename rejected: %q", test)
		}
	}

	invalid := []string{
		"",
		"/leading_slash",
		"trailing_slash/",
		"middle/slash",
		"\\leading_back_slash",
		"trailing_back_slash\\",
		"middle\\back_slash",
		" leading space",
		"trailing space ",
		"control\x07char",
		strings.Repeat("x", MaxBasenameChars+1),
	}
	for _, test := range invalid {
		if BasenameValid(test) {
			t.Errorf("invalid basename accepted: %q", test)
		}
	}
}

func TestCommentValid(t *testing.T) {
	valid := []string{
		"a comment that describes what this thing is in greater detail",
		"comments may hold other utf-8 characters ÿƿ€",
	}
	for _, test := range valid {
		if !CommentValid(test) {
			t.Errorf("valid comment rejected: %q", test)
		}
	}

	invalid := []string{
		"",
		" leading",
		"trailing ",
		"has\ncontrol",
		strings.Repeat("x", MaxCommentChars+1),
	}
	for _, test := range invalid {
		if CommentValid(test) {
			t.Errorf("invalid comment accepted: %q", test)
		}
	}
}

func TestValidateTagMap(t *testing.T) {
	value := "a value"

	if err := ValidateTagMap(TagMap{"env": &value, "flag": nil}); err != nil {
		t.Errorf("valid tag map rejected: %v", err)
	}

	if err := ValidateTagMap(TagMap{"": &value}); err == nil {
		t.Error("empty tag key accepted")
	}

	long := strings.Repeat("v", MaxTagValueChars+1)
	if err := ValidateTagMap(TagMap{"key": &long}); err == nil {
		t.Error("oversized tag value accepted")
	}
}

func TestItemFullPath(t *testing.T) {
	root := Item{Type: TypeRoot, Basename: "media"}
	if got := root.FullPath(); got != "" {
		t.Errorf("root full path = %q, want empty", got)
	}

	dir := Item{Type: TypeDirectory, Path: "", Basename: "docs"}
	if got := dir.FullPath(); got != "docs" {
		t.Errorf("dir full path = %q, want docs", got)
	}

	file := Item{Type: TypeFile, Path: "docs", Basename: "a.txt"}
	if got := file.FullPath(); got != "docs/a.txt" {
		t.Errorf("file full path = %q, want docs/a.txt", got)
	}
}
