// Copyright (c) 2025-2026, thenunner and the orphanage contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package relate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{"/data/torrents/Some.Movie.2021.1080p.BluRay.x264-GRP", "some movie"},
		{"/data/torrents/Some.Show.S01.1080p.WEB-DL", "some show"},
		{"/data/torrents/Some.Show.S01E05.1080p.WEB", "some show"},
		// no release anchors: deepest non-trivial segment, normalized
		{"/data/misc/Random_Folder Name", "random folder name"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractTitle(tt.path), "path %q", tt.path)
	}
}

func TestTitlesAgree(t *testing.T) {
	t.Parallel()

	assert.True(t, TitlesAgree("some movie", "Some.Movie"))
	assert.True(t, TitlesAgree("some movie", "some movie extended"))
	assert.True(t, TitlesAgree("the grand tour", "the grand toure"))
	assert.False(t, TitlesAgree("some movie", "other film"))
	assert.False(t, TitlesAgree("", "some movie"))
	// short fragments never agree by containment
	assert.False(t, TitlesAgree("up", "upstairs neighbors"))
}
