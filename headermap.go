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

package gowarc

import (
	"io"
	"strings"
)

// FieldName is a header field name, keeping both the lossy-decoded text and,
// when the field came off the wire, the original raw bytes.
type FieldName struct {
	Text       string
	Raw        []byte
	normalized string
}

// NewFieldName builds a FieldName from decoded text and optional raw bytes.
func NewFieldName(text string, raw []byte) FieldName {
	return FieldName{Text: text, Raw: raw, normalized: asciiLower(text)}
}

// Normalized returns the ASCII-lowercased text, used for case-insensitive lookup.
func (n FieldName) Normalized() string {
	if n.normalized == "" && n.Text != "" {
		return asciiLower(n.Text)
	}
	return n.normalized
}

// FieldValue is a header field value, keeping both the lossy-decoded text and
// the original raw bytes when available.
type FieldValue struct {
	Text string
	Raw  []byte
}

// NewFieldValue builds a FieldValue from decoded text and optional raw bytes.
func NewFieldValue(text string, raw []byte) FieldValue {
	return FieldValue{Text: text, Raw: raw}
}

// FieldPair is a single name/value entry in a HeaderMap.
type FieldPair struct {
	Name  FieldName
	Value FieldValue
}

// HeaderMap is an ordered, case-insensitive multimap of header field pairs.
// Insertion order and duplicate entries are preserved; lookups are
// case-insensitive on the normalized field name.
type HeaderMap struct {
	pairs []FieldPair
}

// NewHeaderMap returns an empty HeaderMap.
func NewHeaderMap() *HeaderMap {
	return &HeaderMap{}
}

// Append adds a field pair, keeping any prior entries with the same name.
func (h *HeaderMap) Append(name, value string) {
	h.AppendPair(FieldPair{Name: NewFieldName(name, nil), Value: NewFieldValue(value, nil)})
}

// AppendPair is like Append but takes a pre-built FieldPair, preserving raw bytes.
func (h *HeaderMap) AppendPair(pair FieldPair) {
	h.pairs = append(h.pairs, pair)
}

// Insert removes any prior entries with the same name, then appends the new one.
func (h *HeaderMap) Insert(name, value string) {
	h.InsertPair(FieldPair{Name: NewFieldName(name, nil), Value: NewFieldValue(value, nil)})
}

// InsertPair is like Insert but takes a pre-built FieldPair.
func (h *HeaderMap) InsertPair(pair FieldPair) {
	norm := pair.Name.Normalized()
	kept := h.pairs[:0:0]
	for _, p := range h.pairs {
		if p.Name.Normalized() != norm {
			kept = append(kept, p)
		}
	}
	h.pairs = append(kept, pair)
}

// Add is an alias of Append, matching the name used by WarcRecord.WarcHeader()
// callers elsewhere in this module.
func (h *HeaderMap) Add(name, value string) {
	h.Append(name, value)
}

// Set is an alias of Insert, matching the name used by WarcRecord.WarcHeader()
// callers elsewhere in this module.
func (h *HeaderMap) Set(name, value string) {
	h.Insert(name, value)
}

// Get returns the first value associated with name, or "" if absent.
func (h *HeaderMap) Get(name string) string {
	norm := asciiLower(name)
	for _, p := range h.pairs {
		if p.Name.Normalized() == norm {
			return p.Value.Text
		}
	}
	return ""
}

// GetAll returns every value associated with name, in insertion order.
func (h *HeaderMap) GetAll(name string) []string {
	norm := asciiLower(name)
	var out []string
	for _, p := range h.pairs {
		if p.Name.Normalized() == norm {
			out = append(out, p.Value.Text)
		}
	}
	return out
}

// GetList returns the values of name parsed as an RFC 7230 comma-separated
// list: every value associated with name is itself split on commas and
// trimmed of surrounding whitespace.
func (h *HeaderMap) GetList(name string) []string {
	var out []string
	for _, v := range h.GetAll(name) {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Has reports whether name has at least one value.
func (h *HeaderMap) Has(name string) bool {
	norm := asciiLower(name)
	for _, p := range h.pairs {
		if p.Name.Normalized() == norm {
			return true
		}
	}
	return false
}

// Delete removes every entry with the given name.
func (h *HeaderMap) Delete(name string) {
	norm := asciiLower(name)
	kept := h.pairs[:0:0]
	for _, p := range h.pairs {
		if p.Name.Normalized() != norm {
			kept = append(kept, p)
		}
	}
	h.pairs = kept
}

// Len returns the number of field pairs, including duplicates.
func (h *HeaderMap) Len() int {
	return len(h.pairs)
}

// Pairs returns the field pairs in insertion order. The returned slice must
// not be mutated by the caller.
func (h *HeaderMap) Pairs() []FieldPair {
	return h.pairs
}

// Write formats the header map using a default HeaderFormatter and writes it
// to w, returning the number of bytes written.
func (h *HeaderMap) Write(w io.Writer) (int64, error) {
	n, err := (&HeaderFormatter{}).Format(h, w)
	return int64(n), err
}

func (h *HeaderMap) String() string {
	var sb strings.Builder
	_, _ = h.Write(&sb)
	return sb.String()
}

func asciiLower(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
