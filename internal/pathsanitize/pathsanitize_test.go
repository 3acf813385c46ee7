/*
 * Copyright 2021 National Library of Norway.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package pathsanitize

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeComponent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty string", "", "_"},
		{"single dot", ".", "_"},
		{"two dots", "..", "__"},
		{"three dots", "...", "___"},
		{"nul byte", "\x00", "_"},
		{"del byte", "\x7f", "_"},
		{"reserved characters", "\"* /: <> ?\\ |", "__ __ __ __ _"},
		{"trailing space", "file ", "file_"},
		{"trailing dot", "file.", "file_"},
		{"device name without extension", "nul", "nul_"},
		{"device name with extension", "nul.txt", "nul_.txt"},
		{"not a device name despite prefix", "nul.abc.txt", "nul.abc.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeComponent(tt.in))
		})
	}
}

func TestSanitizeComponent_longComponentIsTruncatedWithHashSuffix(t *testing.T) {
	long := strings.Repeat("a", 250)

	h := fnv.New64a()
	_, _ = h.Write([]byte(long))
	want := long[:maxComponentLength] + fmt.Sprintf("_%016x", h.Sum64())

	assert.Equal(t, want, SanitizeComponent(long))
	assert.Len(t, SanitizeComponent(long), maxComponentLength+1+16)
}

func TestSanitizeComponent_truncationKeepsWholeRunes(t *testing.T) {
	// 200 four-byte runes is 800 bytes; truncation must land on a rune
	// boundary, leaving the 50 runes that fit in 200 bytes.
	long := strings.Repeat("😀", 200)

	h := fnv.New64a()
	_, _ = h.Write([]byte(long))
	want := strings.Repeat("😀", 50) + fmt.Sprintf("_%016x", h.Sum64())

	got := SanitizeComponent(long)
	assert.Equal(t, want, got)
	assert.True(t, utf8.ValidString(got))
}

func TestURLToPathComponents(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want []string
	}{
		{"plain http host", "http://example.com/", []string{"http", "example.com"}},
		{
			"https downgraded to http, port and path segments",
			"https://example.com:8080/a/b/c.html",
			[]string{"http", "example.com,8080", "a", "b", "c.html"},
		},
		{
			"reserved character in host sanitized",
			"http://|.com/123:456/",
			[]string{"http", "_.com", "123_456"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, URLToPathComponents(tt.url))
		})
	}
}

func TestURLToPathComponents_opaqueURL(t *testing.T) {
	// A URL with no host and no path segments falls back to sanitizing
	// everything after the scheme as a single component.
	assert.Equal(t, []string{"other", "abc"}, URLToPathComponents("other:abc"))
}

func TestDeduplicatePath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		dirs  []string
		files []string
	}{
		{"no conflict", "a.txt", "a.txt", nil, nil},
		{"parent dir exists, no conflict", "a/b.txt", "a/b.txt", []string{"a"}, nil},
		{"file exists, numbered", "a.txt", "a.txt_1", nil, []string{"a.txt"}},
		{"intermediate component is a file, numbered", "a/b.txt", "a_1/b.txt", nil, []string{"a"}},
		{"intermediate dir and final file both exist", "a/b.txt", "a/b.txt_1", []string{"a"}, []string{"a/b.txt"}},
		{"numbered intermediate also a file", "a/b.txt", "a_2/b.txt", nil, []string{"a", "a_1"}},
		{"numbered intermediate is a dir, descended into", "a/b.txt", "a_1/b.txt", []string{"a_1"}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, d := range tt.dirs {
				require.NoError(t, os.MkdirAll(filepath.Join(dir, d), 0755))
			}
			for _, f := range tt.files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, f), nil, 0644))
			}

			got := DeduplicatePath(filepath.Join(dir, tt.input))
			assert.Equal(t, filepath.Join(dir, tt.want), got)
		})
	}
}
