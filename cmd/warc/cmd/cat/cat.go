/*
 * Copyright 2019 National Library of Norway.
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
package cat

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/webaves/webaves"
	"github.com/webaves/webaves/cmd/warc/internal"
	"github.com/spf13/cobra"
)

type conf struct {
	offset      int64
	recordCount int
	header      bool
	strict      bool
	fileName    string
	id          []string
}

func NewCommand() *cobra.Command {
	c := &conf{}
	var cmd = &cobra.Command{
		Use:   "cat",
		Short: "Print the content of records in a warc file",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("missing file name")
			}
			c.fileName = args[0]
			if c.offset >= 0 && c.recordCount == 0 {
				c.recordCount = 1
			}
			if c.offset < 0 {
				c.offset = 0
			}
			sort.Strings(c.id)
			return runE(c)
		},
	}

	cmd.Flags().Int64VarP(&c.offset, "offset", "o", -1, "record offset")
	cmd.Flags().IntVarP(&c.recordCount, "record-count", "c", 0, "The maximum number of records to show")
	cmd.Flags().BoolVar(&c.header, "header", false, "show header")
	cmd.Flags().BoolVarP(&c.strict, "strict", "s", false, "strict parsing")
	cmd.Flags().StringArrayVar(&c.id, "id", []string{}, "id")

	return cmd
}

func runE(c *conf) error {
	return readFile(c, c.fileName)
}

func readFile(c *conf, fileName string) error {
	var opts []gowarc.WarcRecordOption
	if c.strict {
		opts = append(opts, gowarc.WithStrictValidation())
	} else {
		opts = append(opts, gowarc.WithNoValidation())
	}
	wf, err := gowarc.NewWarcFileReader(fileName, c.offset, opts...)
	if err != nil {
		return fmt.Errorf("opening %s: %w", fileName, err)
	}
	defer func() { _ = wf.Close() }()

	count := 0

	for {
		wr, currentOffset, _, err := wf.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v, rec num: %v, Offset %v\n", err.Error(), strconv.Itoa(count), currentOffset)
			break
		}
		if len(c.id) > 0 {
			if !internal.Contains(c.id, wr.WarcHeader().Get(gowarc.WarcRecordID)) {
				continue
			}
		}
		count++

		printRecord(c, currentOffset, wr)

		if c.recordCount > 0 && count >= c.recordCount {
			break
		}
	}
	fmt.Fprintln(os.Stderr, "Count: ", count)
	return nil
}

func printRecord(c *conf, offset int64, record gowarc.WarcRecord) {
	fmt.Printf("%v\t%s\t%s\t%s\n", offset, record.WarcHeader().Get(gowarc.WarcRecordID), record.Type(), record.WarcHeader().Get(gowarc.WarcTargetURI))

	if c.header {
		fmt.Print(record.WarcHeader().String())
	}

	raw, err := record.Block().RawBytes()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error reading block: %v\n", err)
		return
	}
	if _, err := io.Copy(os.Stdout, raw); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error reading block: %v\n", err)
	}
	fmt.Println()
}
