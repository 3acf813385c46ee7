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

// Package pathsanitize turns a WARC-Target-URI into a filesystem path safe
// to write to on any of the CLI's supported platforms, for the "warc
// extract" subcommand.
package pathsanitize

import (
	"fmt"
	"hash/fnv"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/nlnwa/whatwg-url/url"
)

// dosDevices matches reserved Windows device names, with or without an
// extension, case-insensitively.
var dosDevices = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[1-9]|lpt[0-9])(\.[^.]+)?$`)

const maxComponentLength = 200

// URLToPathComponents converts rawURL into a slice of sanitized path
// components, one per URL segment: scheme, host[,port], path segments, and
// query, in that order. Scheme aliasing collapses "https"->"http" and
// "wss"->"ws" so that secure and insecure variants of the same site share a
// directory tree.
func URLToPathComponents(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return []string{SanitizeComponent(rawURL)}
	}

	var components []string
	components = append(components, SanitizeComponent(normalizeScheme(u.Protocol())))

	if host := u.Hostname(); host != "" {
		if port := u.Port(); port != "" {
			components = append(components, SanitizeComponent(host+","+port))
		} else {
			components = append(components, SanitizeComponent(host))
		}
	}

	if p := u.Pathname(); p != "" {
		for _, seg := range strings.Split(p, "/") {
			if seg != "" {
				components = append(components, SanitizeComponent(seg))
			}
		}
	}

	if q := strings.TrimPrefix(u.Search(), "?"); q != "" {
		components = append(components, SanitizeComponent(q))
	}

	if len(components) == 1 {
		_, rest, found := strings.Cut(rawURL, ":")
		if !found {
			rest = rawURL
		}
		components = append(components, SanitizeComponent(rest))
	}

	return components
}

// URLToPath is URLToPathComponents joined with "/" separators.
func URLToPath(rawURL string) string {
	return path.Join(URLToPathComponents(rawURL)...)
}

func normalizeScheme(scheme string) string {
	scheme = strings.TrimSuffix(scheme, ":")
	switch scheme {
	case "https":
		return "http"
	case "wss":
		return "ws"
	default:
		return scheme
	}
}

// SanitizeComponent rewrites a single path component so it is safe on any
// major filesystem: reserved Windows characters and control bytes become
// "_", reserved DOS device names get a disambiguating "_" inserted before
// their extension, trailing space/dot is replaced with "_", and components
// longer than 200 bytes are truncated with a deterministic hash suffix so
// distinct long components don't collide once truncated.
func SanitizeComponent(part string) string {
	if part == "" {
		return "_"
	}

	isDots := strings.Count(part, ".") == len(part)
	h := fnv.New64a()
	_, _ = h.Write([]byte(part))
	hash := h.Sum64()

	var sb strings.Builder
	for _, r := range part {
		switch {
		case isDots, r < 0x20, r == 0x7f, strings.ContainsRune(`<>:"/\|?*`, r):
			sb.WriteByte('_')
		default:
			sb.WriteRune(r)
		}
	}
	out := sb.String()

	if dosDevices.MatchString(out) {
		if i := strings.IndexByte(out, '.'); i >= 0 {
			out = out[:i] + "_" + out[i:]
		} else {
			out += "_"
		}
	}

	if out != "" {
		last := out[len(out)-1]
		if last == ' ' || last == '.' {
			out = out[:len(out)-1] + "_"
		}
	}

	if len(out) > maxComponentLength {
		// Trim whole runes so the truncated component stays valid UTF-8.
		for len(out) > maxComponentLength {
			_, size := utf8.DecodeLastRuneInString(out)
			out = out[:len(out)-size]
		}
		out += fmt.Sprintf("_%016x", hash)
	}

	if out == "" {
		out = "_"
	}
	return out
}

// DeduplicatePath appends "_N" (N = 1, 2, ...) to path components that
// conflict with something already on disk, walking the path component by
// component. The final component is renumbered while any file or directory
// exists at it; an intermediate component is renumbered only while a
// regular file is in the way, since an existing directory can be descended
// into but a file at an intermediate segment would make MkdirAll fail.
func DeduplicatePath(p string) string {
	components := strings.Split(filepath.Clean(p), string(filepath.Separator))
	newPath := ""
	for i, component := range components {
		if component == "" {
			// Root of an absolute path.
			newPath = string(filepath.Separator)
			continue
		}
		isLast := i == len(components)-1
		candidate := filepath.Join(newPath, component)
		for n := 1; pathConflicts(candidate, isLast); n++ {
			candidate = filepath.Join(newPath, fmt.Sprintf("%s_%d", component, n))
		}
		newPath = candidate
	}
	return newPath
}

// pathConflicts reports whether p cannot be used for its position in the
// path: anything existing conflicts with the final component, while only an
// existing non-directory conflicts with an intermediate one.
func pathConflicts(p string, isLast bool) bool {
	fi, err := os.Stat(p)
	if err != nil {
		return false
	}
	return isLast || !fi.IsDir()
}
