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

// Package extract implements "warc extract": writes the extracted body of
// every record an ExtractorDispatcher accepts to a file under an output
// directory, named after a sanitized WARC-Target-URI.
package extract

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/webaves/webaves"
	"github.com/webaves/webaves/internal/pathsanitize"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <file> <output-dir>",
		Short: "Extract the body of every response/resource record into output-dir",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return errors.New("usage: warc extract <file> <output-dir>")
			}
			return runE(args[0], args[1])
		},
	}
	return cmd
}

func runE(fileName, outputDir string) error {
	wf, err := gowarc.NewWarcFileReader(fileName, 0, gowarc.WithNoValidation())
	if err != nil {
		return fmt.Errorf("opening %s: %w", fileName, err)
	}
	defer func() { _ = wf.Close() }()

	var bytesRead int64
	progress := color.New(color.FgCyan)
	wf.SetProgressFunc(func(delta int64) {
		bytesRead += delta
		progress.Fprintf(os.Stderr, "\rread %d bytes", bytesRead)
	})
	defer fmt.Fprintln(os.Stderr)

	dispatcher := gowarc.NewExtractorDispatcher()

	count, extracted := 0, 0
	for {
		record, offset, _, err := wf.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Warnf("offset %d: %v", offset, err)
			continue
		}
		count++

		if !dispatcher.CanAcceptAny(record) {
			continue
		}
		targetURI := record.WarcHeader().Get(gowarc.WarcTargetURI)
		if targetURI == "" {
			continue
		}

		raw, err := record.Block().RawBytes()
		if err != nil {
			log.Warnf("%s: reading block: %v", targetURI, err)
			continue
		}
		ext, err := dispatcher.Begin(record, raw)
		if err != nil {
			log.Warnf("%s: beginning extraction: %v", targetURI, err)
			continue
		}

		if err := extractOne(outputDir, targetURI, ext); err != nil {
			log.Warnf("%s: %v", targetURI, err)
			continue
		}
		extracted++
	}
	log.Infof("Count: %d, extracted: %d", count, extracted)
	return nil
}

func extractOne(outputDir, targetURI string, ext gowarc.Extractor) error {
	path := pathsanitize.DeduplicatePath(filepath.Join(outputDir, pathsanitize.URLToPath(targetURI)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, ext); err != nil {
		return fmt.Errorf("reading extracted body: %w", err)
	}
	if _, err := ext.Finish(); err != nil {
		return fmt.Errorf("finishing extraction: %w", err)
	}
	log.Debugf("extracted %s -> %s", targetURI, path)
	return nil
}
