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

// Package pack implements "warc pack", the inverse of "warc extract": it
// walks a directory tree and writes each regular file into a new warc file
// as a "resource" record, with WARC-Target-URI synthesized from the file's
// path relative to the input directory.
package pack

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/webaves/webaves"
	"github.com/webaves/webaves/internal/timestamp"
)

func NewCommand() *cobra.Command {
	var compression string
	var baseURI string
	cmd := &cobra.Command{
		Use:   "pack <input-dir> <out.warc>",
		Short: "Pack every regular file under input-dir into out.warc as resource records",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return errors.New("usage: warc pack <input-dir> <out.warc>")
			}
			format, err := parseCompressionFormat(compression)
			if err != nil {
				return err
			}
			return runE(args[0], args[1], baseURI, format)
		},
	}
	cmd.Flags().StringVar(&compression, "compression", "gzip", "per-record compression framing: raw, gzip or zstd")
	cmd.Flags().StringVar(&baseURI, "base-uri", "file://", "scheme+host prefix used to synthesize WARC-Target-URI from each file's relative path")
	return cmd
}

func parseCompressionFormat(name string) (gowarc.CompressionFormat, error) {
	switch strings.ToLower(name) {
	case "raw", "none":
		return gowarc.CompressionRaw, nil
	case "gzip", "gz":
		return gowarc.CompressionGzip, nil
	case "zstd", "zst":
		return gowarc.CompressionZstd, nil
	default:
		return gowarc.CompressionRaw, fmt.Errorf("unknown compression format %q (want raw, gzip or zstd)", name)
	}
}

func runE(inputDir, outFile, baseURI string, format gowarc.CompressionFormat) error {
	var bytesWritten int64
	progress := color.New(color.FgCyan)
	ww := gowarc.NewWarcFileWriter(
		gowarc.WithFileNameGenerator(&gowarc.PatternNameGenerator{Directory: dirOf(outFile), Prefix: baseOf(outFile)}),
		gowarc.WithCompressionFormat(format),
		gowarc.WithProgressFunc(func(delta int64) {
			bytesWritten += delta
			progress.Fprintf(os.Stderr, "\rpacked %d bytes", bytesWritten)
		}),
	)
	defer func() { _ = ww.Close() }()
	defer fmt.Fprintln(os.Stderr)

	count := 0
	walkErr := filepath.Walk(inputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(inputDir, path)
		if err != nil {
			return err
		}

		if err := packOne(ww, path, baseURI+filepath.ToSlash(rel)); err != nil {
			log.Warnf("%s: %v", path, err)
			return nil
		}
		count++
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("walking %s: %w", inputDir, walkErr)
	}
	log.Infof("packed %d files into %s", count, outFile)
	return nil
}

func packOne(ww *gowarc.WarcFileWriter, path, targetURI string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rb := gowarc.NewRecordBuilder(gowarc.Resource,
		gowarc.WithAddMissingRecordId(true),
		gowarc.WithAddMissingContentLength(true),
		gowarc.WithAddMissingDigest(true))
	rb.AddWarcHeader(gowarc.WarcDate, timestamp.UTCW3cIso8601(time.Now()))
	rb.AddWarcHeader(gowarc.WarcTargetURI, sanitizeTargetURI(targetURI))
	rb.AddWarcHeader(gowarc.ContentType, contentTypeFor(path))

	if _, err := rb.ReadFrom(f); err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	record, _, err := rb.Build()
	if err != nil {
		return fmt.Errorf("building record: %w", err)
	}

	for _, resp := range ww.Write(record) {
		if resp.Err != nil {
			return fmt.Errorf("writing record: %w", resp.Err)
		}
	}
	return nil
}

// sanitizeTargetURI percent-escapes path components so an arbitrary
// filesystem path round-trips as a valid WARC-Target-URI.
func sanitizeTargetURI(targetURI string) string {
	i := strings.Index(targetURI, "://")
	if i < 0 {
		return targetURI
	}
	scheme, rest := targetURI[:i+3], targetURI[i+3:]
	parts := strings.Split(rest, "/")
	for j, p := range parts {
		parts[j] = url.PathEscape(p)
	}
	return scheme + strings.Join(parts, "/")
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return "text/html"
	case ".txt":
		return "text/plain"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func dirOf(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return "."
}

func baseOf(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(strings.TrimSuffix(base, ".gz"), ".zst")
	return strings.TrimSuffix(base, ".warc")
}
