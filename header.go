// SPDX-License-Identifier: GPL-3.0-or-later

package fanhttp

import "strings"

// HeaderField is a single header name/value pair.
//
// Request headers preserve submission order and allow duplicate names; the
// wire codec serializes them verbatim, in order, with no normalization.
type HeaderField struct {
	Name  string
	Value string
}

// Header is an ordered, duplicate-preserving sequence of header fields.
//
// [EncodeRequest] serializes a Header verbatim, in order. [ResponseParser]
// populates a Header from incoming bytes. Lookups via [Header.Get] and
// [Header.Values] are case-insensitive, matching HTTP's header-name
// semantics, even though the underlying storage is an ordered slice rather
// than a map.
type Header []HeaderField

// Add appends a new field, preserving any existing fields with the same name.
func (h *Header) Add(name, value string) {
	*h = append(*h, HeaderField{Name: name, Value: value})
}

// Get returns the first value for name (case-insensitive), or ("", false)
// if name is absent.
func (h Header) Get(name string) (string, bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Values returns every value for name (case-insensitive), in submission order.
func (h Header) Values(name string) (out []string) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return
}

// HasToken reports whether any value of name contains token as a
// comma-separated, case-insensitive token, e.g. HasToken("Connection", "close").
func (h Header) HasToken(name, token string) bool {
	for _, v := range h.Values(name) {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}
