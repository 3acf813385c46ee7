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

// Package echo implements "echo": a minimal HTTP echo service and client,
// used as a fetch-pipeline test fixture. The server reflects each request's
// start line, headers and body back as the response body. Both sides are
// framed with this module's own HTTP message codec rather than net/http, so
// the subcommand doubles as an end-to-end exercise of HttpMessageReader and
// HttpMessageWriter over a real socket.
package echo

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/webaves/webaves"
)

func NewCommand() *cobra.Command {
	var client bool
	var addr string
	cmd := &cobra.Command{
		Use:   "echo",
		Short: "Run a minimal HTTP echo service, or a client exercising one",
		Long:  ``,
		RunE: func(cmd *cobra.Command, args []string) error {
			if client {
				return runClient(addr)
			}
			return runServer(addr)
		},
	}
	cmd.Flags().BoolVar(&client, "client", false, "run as a client against an already-running echo server")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9998", "address to listen on, or to connect to with --client")
	return cmd
}

func runServer(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	defer ln.Close()
	log.Infof("echo server listening on %s", addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go serveConn(conn)
	}
}

func serveConn(conn net.Conn) {
	defer conn.Close()
	r := gowarc.NewHttpMessageReader(bufio.NewReader(conn), gowarc.ZeroNineDisallow)
	w := gowarc.NewHttpMessageWriter(bufio.NewWriter(conn))

	for {
		req, err := r.BeginRequest()
		if err != nil {
			if err != io.EOF {
				log.Debugf("echo: reading request: %v", err)
			}
			return
		}

		body, err := r.ReadBody()
		if err != nil {
			log.Warnf("echo: reading request body: %v", err)
			return
		}
		var echoed bytes.Buffer
		fmt.Fprintf(&echoed, "%s %s HTTP/%d.%d\r\n", req.Line.Method, req.Line.Target, req.Line.VersionMajor, req.Line.VersionMinor)
		for _, p := range req.Fields.Pairs() {
			fmt.Fprintf(&echoed, "%s: %s\r\n", p.Name.Text, p.Value.Text)
		}
		echoed.WriteString("\r\n")
		if _, err := io.Copy(&echoed, body); err != nil {
			log.Warnf("echo: reading request body: %v", err)
			return
		}
		if err := r.EndMessage(); err != nil {
			log.Warnf("echo: finishing request: %v", err)
			return
		}

		fields := gowarc.NewHeaderMap()
		fields.Append("Content-Type", "text/plain")
		fields.Append("Content-Length", strconv.Itoa(echoed.Len()))
		resp := gowarc.ResponseHeader{
			Line:   gowarc.StatusLine{VersionMajor: 1, VersionMinor: 1, StatusCode: 200, Reason: "OK"},
			Fields: fields,
		}
		if err := w.BeginResponse(resp); err != nil {
			log.Warnf("echo: writing response: %v", err)
			return
		}
		if _, err := w.WriteBody().Write(echoed.Bytes()); err != nil {
			log.Warnf("echo: writing response body: %v", err)
			return
		}
		if err := w.EndMessage(); err != nil {
			log.Warnf("echo: flushing response: %v", err)
			return
		}
	}
}

func runClient(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	w := gowarc.NewHttpMessageWriter(bufio.NewWriter(conn))
	r := gowarc.NewHttpMessageReader(bufio.NewReader(conn), gowarc.ZeroNineDisallow)

	payload := "Hello world!"
	fields := gowarc.NewHeaderMap()
	fields.Append("Host", addr)
	fields.Append("Content-Length", strconv.Itoa(len(payload)))
	req := gowarc.RequestHeader{
		Line:   gowarc.RequestLine{Method: "POST", Target: "/echo", VersionMajor: 1, VersionMinor: 1},
		Fields: fields,
	}
	if err := w.BeginRequest(req); err != nil {
		return fmt.Errorf("writing request: %w", err)
	}
	if _, err := io.WriteString(w.WriteBody(), payload); err != nil {
		return fmt.Errorf("writing request body: %w", err)
	}
	if err := w.EndMessage(); err != nil {
		return fmt.Errorf("flushing request: %w", err)
	}

	resp, err := r.BeginResponse(&req)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	body, err := r.ReadBody()
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	fmt.Printf("%d %s\n%s", resp.Line.StatusCode, resp.Line.Reason, b)
	return r.EndMessage()
}
