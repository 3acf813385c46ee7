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

// Package serve implements "warc serve": a small ad-hoc HTTP server that
// replays response/resource bodies out of a directory of warc files,
// looking a record up by its WARC-Target-URI. It is a test/debugging aid,
// not a production CDX index or search service.
package serve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/webaves/webaves"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <warc-dir>",
		Short: "Serve response/resource bodies from a directory of warc files over HTTP",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runE(dir)
		},
	}

	cmd.Flags().IntP("port", "p", 9999, "Server listening port")
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		log.Fatalf("Failed to bind serve flags: %v", err)
	}

	return cmd
}

// location records which warc file and byte offset a record's header
// begins at, so a request can re-open just that record without rescanning
// the whole tree.
type location struct {
	file   string
	offset int64
}

// index maps a WARC-Target-URI to the location of the most recently seen
// response/resource record for it.
type index struct {
	mu    sync.RWMutex
	byURI map[string]location
}

func buildIndex(dir string) (*index, error) {
	idx := &index{byURI: map[string]location{}}

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isWarcFile(path) {
			return nil
		}

		wf, err := gowarc.NewWarcFileReader(path, 0, gowarc.WithNoValidation())
		if err != nil {
			log.Warnf("%s: %v", path, err)
			return nil
		}
		defer func() { _ = wf.Close() }()

		dispatcher := gowarc.NewExtractorDispatcher()
		for {
			record, offset, _, err := wf.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				log.Warnf("%s: offset %d: %v", path, offset, err)
				break
			}
			if !dispatcher.CanAcceptAny(record) {
				continue
			}
			uri := record.WarcHeader().Get(gowarc.WarcTargetURI)
			if uri == "" {
				continue
			}
			idx.mu.Lock()
			idx.byURI[uri] = location{file: path, offset: offset}
			idx.mu.Unlock()
		}
		return nil
	})
	return idx, err
}

func isWarcFile(path string) bool {
	name := strings.ToLower(path)
	return strings.HasSuffix(name, ".warc") || strings.HasSuffix(name, ".warc.gz")
}

func (idx *index) lookup(uri string) (location, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	loc, ok := idx.byURI[uri]
	return loc, ok
}

func runE(dir string) error {
	idx, err := buildIndex(dir)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", dir, err)
	}
	log.Infof("indexed %d target URIs from %s", len(idx.byURI), dir)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		handleRequest(idx, w, r)
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%v", viper.GetInt("port")),
		Handler: mux,
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctx)
	}()

	log.Infof("Starting web server at http://localhost:%v", viper.GetInt("port"))
	err = httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func handleRequest(idx *index, w http.ResponseWriter, r *http.Request) {
	uri := requestedURI(r)
	loc, ok := idx.lookup(uri)
	if !ok {
		http.NotFound(w, r)
		return
	}

	wf, err := gowarc.NewWarcFileReader(loc.file, loc.offset, gowarc.WithNoValidation())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer func() { _ = wf.Close() }()

	record, _, _, err := wf.Next()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dispatcher := gowarc.NewExtractorDispatcher()
	raw, err := record.Block().RawBytes()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ext, err := dispatcher.Begin(record, raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if ct := record.WarcHeader().Get(gowarc.ContentType); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	if _, err := io.Copy(w, ext); err != nil {
		log.Warnf("%s: writing response body: %v", uri, err)
	}
	_, _ = dispatcher.Finish()
}

// requestedURI reconstructs the absolute URI a replayed record would have
// been fetched at, from the incoming proxy-style request.
func requestedURI(r *http.Request) string {
	if r.URL.IsAbs() {
		return r.URL.String()
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
