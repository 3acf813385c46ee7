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

// Package list implements "warc list": a tabular dump of selected header
// fields, one row per record, as CSV or JSON.
package list

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/webaves/webaves"
	"github.com/spf13/cobra"
)

type conf struct {
	fileName string
	fields   []string
	format   string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List selected header fields of records in a warc file, one row per record",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing file name")
			}
			c.fileName = args[0]
			if len(c.fields) == 0 {
				c.fields = []string{gowarc.WarcRecordID, gowarc.WarcType, gowarc.WarcTargetURI}
			}
			return runE(c)
		},
	}

	cmd.Flags().StringArrayVar(&c.fields, "field", nil, "header field to include (repeatable); defaults to id, type, target-uri")
	cmd.Flags().StringVarP(&c.format, "format", "f", "csv", "output format: csv or json")

	return cmd
}

func runE(c *conf) error {
	wf, err := gowarc.NewWarcFileReader(c.fileName, 0, gowarc.WithNoValidation())
	if err != nil {
		return fmt.Errorf("opening %s: %w", c.fileName, err)
	}
	defer func() { _ = wf.Close() }()

	switch c.format {
	case "csv":
		return listCSV(c, wf)
	case "json":
		return listJSON(c, wf)
	default:
		return fmt.Errorf("unknown format %q, valid formats are: csv, json", c.format)
	}
}

// typeColor returns the color used to report progress for a record of the
// given type on stderr, so a long-running listing gives a sense of the mix
// of record types going by without cluttering the CSV/JSON data on stdout.
func typeColor(rt gowarc.RecordType) *color.Color {
	switch rt {
	case gowarc.Response:
		return color.New(color.FgGreen)
	case gowarc.Request:
		return color.New(color.FgCyan)
	case gowarc.Revisit:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgWhite)
	}
}

func listCSV(c *conf, wf *gowarc.WarcFileReader) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write(c.fields); err != nil {
		return err
	}
	return forEachRecord(wf, func(record gowarc.WarcRecord) error {
		row := make([]string, len(c.fields))
		for i, f := range c.fields {
			row[i] = record.WarcHeader().Get(f)
		}
		typeColor(record.Type()).Fprint(os.Stderr, record.Type().String()[:1])
		return w.Write(row)
	})
}

func listJSON(c *conf, wf *gowarc.WarcFileReader) error {
	enc := json.NewEncoder(os.Stdout)
	return forEachRecord(wf, func(record gowarc.WarcRecord) error {
		row := make(map[string]string, len(c.fields))
		for _, f := range c.fields {
			row[f] = record.WarcHeader().Get(f)
		}
		return enc.Encode(row)
	})
}

func forEachRecord(wf *gowarc.WarcFileReader, fn func(gowarc.WarcRecord) error) error {
	for {
		record, offset, _, err := wf.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error at offset %d: %v\n", offset, err)
			continue
		}
		if err := fn(record); err != nil {
			return err
		}
	}
}
