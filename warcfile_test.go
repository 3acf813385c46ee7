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
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestRecord() WarcRecord {
	builder := NewRecordBuilder(Response, WithFixDigest(false), WithStrictValidation())
	_, err := builder.WriteString("HTTP/1.1 200 OK\r\nContent-Length: 19\r\nContent-Type: text/plain\r\n\r\nThis is the content")
	if err != nil {
		panic(err)
	}
	builder.AddWarcHeader(WarcRecordID, "<urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>")
	builder.AddWarcHeader(WarcDate, "2006-01-02T15:04:05Z")
	builder.AddWarcHeader(ContentType, "application/http;msgtype=response")

	wr, _, err := builder.Build()
	if err != nil {
		panic(err)
	}
	return wr
}

func TestWarcFileWriter_Write_uncompressed(t *testing.T) {
	now = func() time.Time {
		return time.Date(2001, 9, 12, 5, 30, 20, 0, time.UTC)
	}
	defer func() { now = time.Now }()

	testdir := t.TempDir()
	nameGenerator := &PatternNameGenerator{Prefix: "foo-", Directory: testdir, Pattern: "%{prefix}s%{ts}s-%04{serial}d.warc"}

	w := NewWarcFileWriter(
		WithCompression(false),
		WithFileNameGenerator(nameGenerator),
		WithMaxFileSize(0),
		WithMaxConcurrentWriters(1))

	res := w.Write(createTestRecord())
	require.NoError(t, res[0].Err)
	assert.Equal(t, int64(0), res[0].FileOffset)
	assert.Regexp(t, `^foo-20010912053020-0001\.warc$`, res[0].FileName)
	firstSize := res[0].BytesWritten

	res = w.Write(createTestRecord())
	require.NoError(t, res[0].Err)
	assert.Equal(t, firstSize, res[0].FileOffset)

	assert.NoError(t, w.Close())
}

func TestWarcFileWriter_Write_compressed(t *testing.T) {
	now = func() time.Time {
		return time.Date(2001, 9, 12, 5, 30, 20, 0, time.UTC)
	}
	defer func() { now = time.Now }()

	testdir := t.TempDir()
	nameGenerator := &PatternNameGenerator{Prefix: "foo-", Directory: testdir, Pattern: "%{prefix}s%{ts}s-%04{serial}d.warc"}

	w := NewWarcFileWriter(
		WithCompression(true),
		WithFileNameGenerator(nameGenerator),
		WithMaxFileSize(0),
		WithMaxConcurrentWriters(1))

	res := w.Write(createTestRecord())
	require.NoError(t, res[0].Err)
	assert.Regexp(t, `^foo-20010912053020-0001\.warc\.gz$`, res[0].FileName)

	assert.NoError(t, w.Close())
}

func TestWarcFileWriter_Write_zstd(t *testing.T) {
	now = func() time.Time {
		return time.Date(2001, 9, 12, 5, 30, 20, 0, time.UTC)
	}
	defer func() { now = time.Now }()

	testdir := t.TempDir()
	nameGenerator := &PatternNameGenerator{Prefix: "foo-", Directory: testdir, Pattern: "%{prefix}s%{ts}s-%04{serial}d.warc"}

	w := NewWarcFileWriter(
		WithCompressionFormat(CompressionZstd),
		WithFileNameGenerator(nameGenerator),
		WithMaxFileSize(0),
		WithMaxConcurrentWriters(1))

	res := w.Write(createTestRecord())
	require.NoError(t, res[0].Err)
	assert.Regexp(t, `^foo-20010912053020-0001\.warc\.zst$`, res[0].FileName)

	assert.NoError(t, w.Close())

	rf, err := NewWarcFileReader(testdir+"/"+res[0].FileName, 0)
	require.NoError(t, err)
	defer rf.Close()

	record, _, _, err := rf.Next()
	require.NoError(t, err)
	assert.Equal(t, "<urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>", record.WarcHeader().Get(WarcRecordID))
}

func TestWarcFileWriter_Write_warcinfo(t *testing.T) {
	now = func() time.Time {
		return time.Date(2001, 9, 12, 5, 30, 20, 0, time.UTC)
	}
	defer func() { now = time.Now }()

	testdir := t.TempDir()
	nameGenerator := &PatternNameGenerator{Prefix: "foo-", Directory: testdir, Pattern: "%{prefix}s%{ts}s-%04{serial}d.warc"}

	w := NewWarcFileWriter(
		WithCompression(false),
		WithFileNameGenerator(nameGenerator),
		WithMaxFileSize(0),
		WithMaxConcurrentWriters(1),
		WithWarcInfoFunc(func(recordBuilder WarcRecordBuilder) error {
			recordBuilder.AddWarcHeader(WarcRecordID, "<urn:uuid:4f271dba-fdfa-4915-ab7e-3e4e1fc0791b>")
			return nil
		}))

	res := w.Write(createTestRecord())
	require.NoError(t, res[0].Err)
	// The warcinfo record occupies the start of the file, so the first
	// payload record is offset past it.
	assert.Greater(t, res[0].FileOffset, int64(0))

	assert.NoError(t, w.Close())
}

func TestWarcFileWriter_Write_multi_with_crossreference(t *testing.T) {
	now = func() time.Time {
		return time.Date(2001, 9, 12, 5, 30, 20, 0, time.UTC)
	}
	defer func() { now = time.Now }()

	testdir := t.TempDir()
	nameGenerator := &PatternNameGenerator{Prefix: "foo-", Directory: testdir, Pattern: "%{prefix}s%{ts}s-%04{serial}d.warc"}

	w := NewWarcFileWriter(
		WithCompression(false),
		WithFileNameGenerator(nameGenerator),
		WithMaxFileSize(0),
		WithMaxConcurrentWriters(1),
		WithAddWarcConcurrentToHeader(true),
	)

	rec1 := createTestRecord()
	rec1.WarcHeader().Set(WarcRecordID, "<urn:uuid:aaaaaaaa-0221-11e7-adb1-0242ac120008>")
	rec2 := createTestRecord()
	rec2.WarcHeader().Set(WarcRecordID, "<urn:uuid:bbbbbbbb-0221-11e7-adb1-0242ac120008>")
	rec3 := createTestRecord()
	rec3.WarcHeader().Set(WarcRecordID, "<urn:uuid:cccccccc-0221-11e7-adb1-0242ac120008>")

	res := w.Write(rec1, rec2, rec3)
	require.Len(t, res, 3)
	for _, r := range res {
		require.NoError(t, r.Err)
	}

	assert.NotContains(t, rec1.WarcHeader().GetAll(WarcConcurrentTo), rec1.WarcHeader().Get(WarcRecordID))
	assert.Contains(t, rec1.WarcHeader().GetAll(WarcConcurrentTo), rec2.WarcHeader().Get(WarcRecordID))
	assert.Contains(t, rec1.WarcHeader().GetAll(WarcConcurrentTo), rec3.WarcHeader().Get(WarcRecordID))

	assert.NotContains(t, rec2.WarcHeader().GetAll(WarcConcurrentTo), rec2.WarcHeader().Get(WarcRecordID))
	assert.Contains(t, rec2.WarcHeader().GetAll(WarcConcurrentTo), rec1.WarcHeader().Get(WarcRecordID))

	assert.NoError(t, w.Close())
}

func TestWarcFileWriter_rotatesOnMaxFileSize(t *testing.T) {
	now = func() time.Time {
		return time.Date(2001, 9, 12, 5, 30, 20, 0, time.UTC)
	}
	defer func() { now = time.Now }()

	testdir := t.TempDir()
	nameGenerator := &PatternNameGenerator{Prefix: "foo-", Directory: testdir, Pattern: "%{prefix}s%{ts}s-%04{serial}d.warc"}

	w := NewWarcFileWriter(
		WithCompression(false),
		WithFileNameGenerator(nameGenerator),
		WithMaxFileSize(1),
		WithMaxConcurrentWriters(1))

	for i := 0; i < 3; i++ {
		res := w.Write(createTestRecord())
		require.NoError(t, res[0].Err)
	}
	assert.NoError(t, w.Close())

	entries, err := os.ReadDir(testdir)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2)
	for _, e := range entries {
		assert.Regexp(t, `^foo-20010912053020-\d{4}\.warc$`, e.Name())
	}
}

func TestPatternNameGenerator_NewWarcfileName(t *testing.T) {
	now = func() time.Time {
		return time.Date(2001, 9, 12, 5, 30, 20, 0, time.UTC)
	}
	defer func() { now = time.Now }()

	tests := []struct {
		name      string
		generator PatternNameGenerator
		wantDir   string
		wantMatch string
	}{
		{"default", PatternNameGenerator{}, "", `^20010912053020-\d{4}-(?:\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}|unknown)\.warc$`},
		{"prefix", PatternNameGenerator{Prefix: "foo-"}, "", `^foo-20010912053020-\d{4}-(?:\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}|unknown)\.warc$`},
		{"dir", PatternNameGenerator{Directory: "mydir"}, "mydir", `^20010912053020-\d{4}-(?:\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}|unknown)\.warc$`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotDir, gotName := tt.generator.NewWarcfileName()
			assert.Equal(t, tt.wantDir, gotDir)
			matched, err := regexp.MatchString(tt.wantMatch, gotName)
			require.NoError(t, err)
			assert.True(t, matched, "name %q did not match %q", gotName, tt.wantMatch)
		})
	}
}

// TestWarcFileWriter_WarcFileReader_roundtrip_twoRecords writes two records
// and reads both back with successive Next() calls, across every
// compression framing, to guard against the footer/frame boundary being
// left unconsumed between records.
func TestWarcFileWriter_WarcFileReader_roundtrip_twoRecords(t *testing.T) {
	for _, format := range []CompressionFormat{CompressionRaw, CompressionGzip, CompressionZstd} {
		t.Run(format.String(), func(t *testing.T) {
			testdir := t.TempDir()
			nameGenerator := &PatternNameGenerator{Directory: testdir, Pattern: "roundtrip.warc"}

			w := NewWarcFileWriter(
				WithCompressionFormat(format),
				WithFileNameGenerator(nameGenerator),
				WithMaxFileSize(0),
				WithMaxConcurrentWriters(1))

			rec1 := createTestRecord()
			rec1.WarcHeader().Set(WarcRecordID, "<urn:uuid:aaaaaaaa-0221-11e7-adb1-0242ac120008>")
			rec2 := createTestRecord()
			rec2.WarcHeader().Set(WarcRecordID, "<urn:uuid:bbbbbbbb-0221-11e7-adb1-0242ac120008>")

			res := w.Write(rec1, rec2)
			require.Len(t, res, 2)
			require.NoError(t, res[0].Err)
			require.NoError(t, res[1].Err)
			require.NoError(t, w.Close())

			reader, err := NewWarcFileReader(testdir+"/"+res[0].FileName, 0)
			require.NoError(t, err)
			defer reader.Close()

			got1, _, validation, err := reader.Next()
			require.NoError(t, err)
			assert.True(t, validation.Valid())
			assert.Equal(t, "<urn:uuid:aaaaaaaa-0221-11e7-adb1-0242ac120008>", got1.WarcHeader().Get(WarcRecordID))
			require.NotNil(t, got1.Metadata())
			assert.Equal(t, int64(0), got1.Metadata().FileOffset)

			got2, _, validation, err := reader.Next()
			require.NoError(t, err)
			assert.True(t, validation.Valid())
			require.NotNil(t, got2.Metadata())
			assert.Greater(t, got2.Metadata().FileOffset, got1.Metadata().FileOffset)
			assert.GreaterOrEqual(t, got2.Metadata().RawFileOffset, got1.Metadata().RawFileOffset)
			assert.Equal(t, "<urn:uuid:bbbbbbbb-0221-11e7-adb1-0242ac120008>", got2.WarcHeader().Get(WarcRecordID))
			require.NoError(t, got2.Close())

			_, _, _, err = reader.Next()
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestWarcFileWriter_WarcFileReader_roundtrip(t *testing.T) {
	testdir := t.TempDir()
	nameGenerator := &PatternNameGenerator{Directory: testdir, Pattern: "roundtrip.warc"}

	w := NewWarcFileWriter(
		WithCompression(false),
		WithFileNameGenerator(nameGenerator),
		WithMaxFileSize(0),
		WithMaxConcurrentWriters(1))

	res := w.Write(createTestRecord())
	require.NoError(t, res[0].Err)
	require.NoError(t, w.Close())

	reader, err := NewWarcFileReader(testdir+"/roundtrip.warc", 0)
	require.NoError(t, err)
	defer reader.Close()

	record, _, validation, err := reader.Next()
	require.NoError(t, err)
	defer record.Close()

	assert.True(t, validation.Valid())
	assert.Equal(t, Response, record.Type())
}
