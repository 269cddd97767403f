// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gitx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresRoot(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)

	c, err := NewClient("/tmp/repo")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/repo", c.Root())
}

func TestParseNameStatus(t *testing.T) {
	output := "M\tapp/Cart.php\n" +
		"A\tapp/New.php\n" +
		"D\tapp/Dead.php\n" +
		"R100\tapp/Old.php\tapp/Renamed.php\n" +
		"C75\tapp/Src.php\tapp/Copy.php\n" +
		"\n" +
		"T\tapp/Link.php\n"

	files, err := parseNameStatus(output)
	require.NoError(t, err)
	require.Len(t, files, 6)

	assert.Equal(t, ChangedFile{Path: "app/Cart.php", Kind: ChangeModified}, files[0])
	assert.Equal(t, ChangedFile{Path: "app/New.php", Kind: ChangeAdded}, files[1])
	assert.Equal(t, ChangedFile{Path: "app/Dead.php", Kind: ChangeDeleted}, files[2])
	assert.Equal(t, ChangedFile{Path: "app/Renamed.php", OldPath: "app/Old.php", Kind: ChangeRenamed}, files[3])
	assert.Equal(t, ChangedFile{Path: "app/Copy.php", OldPath: "app/Src.php", Kind: ChangeCopied}, files[4])

	// Unrecognized statuses fall back to modified.
	assert.Equal(t, ChangedFile{Path: "app/Link.php", Kind: ChangeModified}, files[5])
}

func TestParseNameStatusEmpty(t *testing.T) {
	files, err := parseNameStatus("")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestParseNameStatusSkipsMalformedLines(t *testing.T) {
	files, err := parseNameStatus("M\n\nM\tapp/Real.php\n")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "app/Real.php", files[0].Path)
}

func TestClassifyShowError(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{
			name:   "path missing at revision",
			stderr: "fatal: path 'app/New.php' does not exist in 'HEAD~1'",
			want:   ErrPathNotInRevision,
		},
		{
			name:   "path only on disk",
			stderr: "fatal: path 'app/New.php' exists on disk, but not in 'HEAD'",
			want:   ErrPathNotInRevision,
		},
		{
			name:   "bad object name",
			stderr: "fatal: invalid object name 'nope'",
			want:   ErrUnknownRevision,
		},
		{
			name:   "unknown revision",
			stderr: "fatal: bad revision 'nope'",
			want:   ErrUnknownRevision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := fmt.Errorf("git show: exit status 128: %s", tt.stderr)
			got := classifyShowError(raw, "rev", "path")
			assert.True(t, errors.Is(got, tt.want), "got %v", got)
		})
	}
}

func TestClassifyShowErrorPassthrough(t *testing.T) {
	raw := fmt.Errorf("git show: signal: killed")
	got := classifyShowError(raw, "rev", "path")
	assert.False(t, errors.Is(got, ErrPathNotInRevision))
	assert.False(t, errors.Is(got, ErrUnknownRevision))
	assert.Equal(t, raw, got)
}

func TestParseDiffStats(t *testing.T) {
	diffText := `diff --git a/app/Cart.php b/app/Cart.php
index 1111111..2222222 100644
--- a/app/Cart.php
+++ b/app/Cart.php
@@ -1,4 +1,5 @@
 <?php
 class Cart {
-    private $items = [];
+    private $items = [];
+    private $total = 0;
 }
diff --git a/app/Old.php b/app/Old.php
deleted file mode 100644
index 3333333..0000000
--- a/app/Old.php
+++ /dev/null
@@ -1,2 +0,0 @@
-<?php
-class Old {}
`

	stats, err := ParseDiffStats(diffText)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, FileStat{Path: "app/Cart.php", LinesAdded: 2, LinesRemoved: 1}, stats[0])
	assert.True(t, stats[0].Touched())

	assert.Equal(t, FileStat{Path: "app/Old.php", LinesAdded: 0, LinesRemoved: 2}, stats[1])
}

func TestParseDiffStatsEmpty(t *testing.T) {
	stats, err := ParseDiffStats("")
	require.NoError(t, err)
	assert.Nil(t, stats)

	stats, err = ParseDiffStats("   \n\t\n")
	require.NoError(t, err)
	assert.Nil(t, stats)
}

func TestFileStatTouched(t *testing.T) {
	assert.False(t, FileStat{Path: "a.php"}.Touched())
	assert.True(t, FileStat{Path: "a.php", LinesAdded: 1}.Touched())
	assert.True(t, FileStat{Path: "a.php", LinesRemoved: 1}.Touched())
}
