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

// WarcHeaderMetadata is the low-level record header produced while a
// the Unmarshaler parses a record's version line and header block: the raw
// bytes behind the decoded fields, the declared block length, and the
// stream positions the record occupies. It underlies the higher-level
// WarcRecord, which layers block parsing and digest handling on top of it.
//
// FileOffset is the record's position in the logical, uncompressed record
// stream (the concatenation of every record's version line, header block
// and content block, with compression removed). RawFileOffset is the
// record's position in the physical file. For a gzip-framed WARC file it is
// the byte offset of the record's compression member. For a zstd-framed file
// the decoder reads ahead of frame boundaries, so it is the count of
// compressed bytes consumed when the record began, which can lie past the
// start of the record's frame.
//
// A WarcHeaderMetadata is only valid for the record it was produced for;
// callers that need it past that record's lifetime should copy it.
type WarcHeaderMetadata struct {
	VersionText   string
	VersionRaw    []byte
	Fields        *HeaderMap
	HeaderRaw     []byte
	BlockLength   int64
	FileOffset    int64
	RawFileOffset int64
}
