// SPDX-License-Identifier: GPL-3.0-or-later

package fanhttp

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

// ErrMissingContentLength is returned when a response's headers end without
// a Content-Length header. Chunked transfer encoding and identity-to-EOF
// bodies are not supported; a missing Content-Length is a terminal,
// non-recoverable error.
var ErrMissingContentLength = errors.New("fanhttp: response is missing Content-Length")

// ErrMalformedStatusLine is returned when a response's first line does not
// parse as "PROTO STATUS [reason]".
var ErrMalformedStatusLine = errors.New("fanhttp: malformed status line")

// EncodeRequest serializes a request line, headers, and body into wire
// bytes: "METHOD SP path[?query] SP PROTOCOL CRLF", then each header field
// verbatim as "Name: Value CRLF" in submission order, then a blank line,
// then the body verbatim. No header normalization or escaping is performed;
// callers are responsible for passing pre-encoded binary values.
func EncodeRequest(method, path, query, protocol string, head Header, body []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(method)
	buf.WriteByte(' ')
	buf.WriteString(path)
	if query != "" {
		buf.WriteByte('?')
		buf.WriteString(query)
	}
	buf.WriteByte(' ')
	buf.WriteString(protocol)
	buf.WriteString("\r\n")
	for _, f := range head {
		buf.WriteString(f.Name)
		buf.WriteString(": ")
		buf.WriteString(f.Value)
		buf.WriteString("\r\n")
	}
	buf.WriteString("\r\n")
	buf.Write(body)
	return buf.Bytes()
}

// Response is a response built incrementally by [ResponseParser]. Fields are
// only well-defined once [ResponseParser.Feed] reports the response complete.
type Response struct {
	Proto  string
	Status int
	Head   Header
	Body   []byte
}

// ResponseParser incrementally parses an HTTP/1.x response head and
// body-by-Content-Length from a byte stream fed via [ResponseParser.Feed].
//
// Headers end at the first CRLFCRLF. A missing Content-Length is reported as
// [ErrMissingContentLength]. Bytes beyond the declared Content-Length are
// not part of the body: once the declared length is reached, any trailing
// bytes already fed are ignored. The parser does not limit what its caller
// reads from the socket, so excess bytes delivered by the same read are
// discarded rather than left unread.
type ResponseParser struct {
	buf           bytes.Buffer
	resp          *Response
	contentLength int
	headDone      bool
}

// NewResponseParser returns a ready-to-use [*ResponseParser].
func NewResponseParser() *ResponseParser {
	return &ResponseParser{}
}

// Feed appends data to the parser and reports whether the response is now
// fully parsed (headers plus exactly Content-Length bytes of body).
func (p *ResponseParser) Feed(data []byte) (done bool, err error) {
	p.buf.Write(data)

	if !p.headDone {
		idx := bytes.Index(p.buf.Bytes(), []byte("\r\n\r\n"))
		if idx < 0 {
			return false, nil
		}
		headBytes := p.buf.Bytes()[:idx]
		rest := append([]byte(nil), p.buf.Bytes()[idx+4:]...)

		resp, perr := parseHead(headBytes)
		if perr != nil {
			return false, perr
		}
		raw, ok := resp.Head.Get("Content-Length")
		if !ok {
			return false, ErrMissingContentLength
		}
		n, nerr := strconv.Atoi(strings.TrimSpace(raw))
		if nerr != nil || n < 0 {
			return false, ErrMissingContentLength
		}

		p.resp = resp
		p.contentLength = n
		p.headDone = true
		p.buf.Reset()
		p.buf.Write(rest)
	}

	if p.buf.Len() >= p.contentLength {
		p.resp.Body = append([]byte{}, p.buf.Bytes()[:p.contentLength]...)
		return true, nil
	}
	return false, nil
}

// Response returns the parsed response. Only valid once Feed has reported done.
func (p *ResponseParser) Response() *Response {
	return p.resp
}

// parseHead parses a response's status line and headers, excluding the
// trailing CRLFCRLF separator.
func parseHead(b []byte) (*Response, error) {
	lines := strings.Split(string(b), "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, ErrMalformedStatusLine
	}

	parts := strings.SplitN(lines[0], " ", 3)
	if len(parts) < 2 {
		return nil, ErrMalformedStatusLine
	}
	status, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, ErrMalformedStatusLine
	}

	resp := &Response{Proto: parts[0], Status: status}
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		resp.Head.Add(line[:idx], strings.TrimSpace(line[idx+1:]))
	}
	return resp, nil
}
