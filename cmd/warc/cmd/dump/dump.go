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

// Package dump implements "warc dump": a JSON-line rendering of a warc file
// that "warc load" can read back.
package dump

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/webaves/webaves"
	"github.com/spf13/cobra"
)

type headerRecord struct {
	Version string            `json:"version"`
	Fields  map[string]string `json:"fields"`
}

type dumpLine struct {
	Header      *headerRecord `json:"Header,omitempty"`
	Block       *blockRecord  `json:"Block,omitempty"`
	EndOfRecord *struct{}     `json:"EndOfRecord,omitempty"`
}

type blockRecord struct {
	Data string `json:"data"`
}

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Dump a warc file as a stream of JSON lines",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing file name")
			}
			return runE(args[0])
		},
	}
	return cmd
}

func runE(fileName string) error {
	wf, err := gowarc.NewWarcFileReader(fileName, 0, gowarc.WithNoValidation())
	if err != nil {
		return fmt.Errorf("opening %s: %w", fileName, err)
	}
	defer func() { _ = wf.Close() }()

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	enc := json.NewEncoder(w)

	for {
		record, offset, _, err := wf.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error at offset %d: %v\n", offset, err)
			continue
		}

		fields := make(map[string]string)
		for _, p := range record.WarcHeader().Pairs() {
			fields[p.Name.Text] = p.Value.Text
		}
		if err := enc.Encode(dumpLine{Header: &headerRecord{Version: record.Version().String(), Fields: fields}}); err != nil {
			return err
		}

		raw, err := record.Block().RawBytes()
		if err != nil {
			return fmt.Errorf("reading block at offset %d: %w", offset, err)
		}
		data, err := io.ReadAll(raw)
		if err != nil {
			return fmt.Errorf("reading block at offset %d: %w", offset, err)
		}
		if err := enc.Encode(dumpLine{Block: &blockRecord{Data: base64.StdEncoding.EncodeToString(data)}}); err != nil {
			return err
		}
		if err := enc.Encode(dumpLine{EndOfRecord: &struct{}{}}); err != nil {
			return err
		}
	}
}
