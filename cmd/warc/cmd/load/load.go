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

// Package load implements "warc load", the inverse of "warc dump": it reads
// a JSON-line stream from stdin and writes a warc file.
package load

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/webaves/webaves"
	"github.com/spf13/cobra"
)

var recordTypeByName = map[string]gowarc.RecordType{
	"warcinfo":     gowarc.Warcinfo,
	"response":     gowarc.Response,
	"resource":     gowarc.Resource,
	"request":      gowarc.Request,
	"metadata":     gowarc.Metadata,
	"revisit":      gowarc.Revisit,
	"conversion":   gowarc.Conversion,
	"continuation": gowarc.Continuation,
}

type headerRecord struct {
	Version string            `json:"version"`
	Fields  map[string]string `json:"fields"`
}

type blockRecord struct {
	Data string `json:"data"`
}

type loadLine struct {
	Header      *headerRecord `json:"Header"`
	Block       *blockRecord  `json:"Block"`
	EndOfRecord *struct{}     `json:"EndOfRecord"`
}

func NewCommand() *cobra.Command {
	var compression string
	cmd := &cobra.Command{
		Use:   "load <out.warc>",
		Short: "Build a warc file from the JSON-line stream produced by \"warc dump\"",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing output file name")
			}
			format, err := parseCompressionFormat(compression)
			if err != nil {
				return err
			}
			return runE(args[0], format)
		},
	}
	cmd.Flags().StringVar(&compression, "compression", "gzip", "per-record compression framing: raw, gzip or zstd")
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

func runE(outFile string, format gowarc.CompressionFormat) error {
	ww := gowarc.NewWarcFileWriter(
		gowarc.WithFileNameGenerator(&gowarc.PatternNameGenerator{Directory: dirOf(outFile), Prefix: baseOf(outFile)}),
		gowarc.WithCompressionFormat(format),
	)
	defer func() { _ = ww.Close() }()

	dec := json.NewDecoder(bufio.NewReader(os.Stdin))

	var rb gowarc.WarcRecordBuilder

	for {
		var line loadLine
		if err := dec.Decode(&line); err == io.EOF {
			break
		} else if err != nil {
			return fmt.Errorf("decoding dump line: %w", err)
		}

		switch {
		case line.Header != nil:
			header := line.Header
			recordType := recordTypeByName[strings.ToLower(header.Fields[gowarc.WarcType])]
			rb = gowarc.NewRecordBuilder(recordType, gowarc.WithNoValidation())
			for name, value := range header.Fields {
				if name == gowarc.WarcType {
					continue
				}
				rb.AddWarcHeader(name, value)
			}
		case line.Block != nil:
			if rb == nil {
				return errors.New("Block line with no preceding Header line")
			}
			data, err := base64.StdEncoding.DecodeString(line.Block.Data)
			if err != nil {
				return fmt.Errorf("decoding block data: %w", err)
			}
			if _, err := rb.Write(data); err != nil {
				return err
			}
		case line.EndOfRecord != nil:
			if rb == nil {
				return errors.New("EndOfRecord line with no preceding Header line")
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
			rb = nil
		}
	}
	return nil
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
