// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package bridge

import (
	"fmt"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Options is an insertion-ordered set of command-line options. A value is
// either a string (rendered as "--name value") or a bool (rendered as
// "--name" when true and omitted when false).
type Options struct {
	keys   []string
	values map[string]any
}

// NewOptions returns an empty option set.
func NewOptions() *Options {
	return &Options{values: make(map[string]any)}
}

// Set adds or replaces a string option. Replacing keeps the original position.
func (o *Options) Set(name, value string) *Options {
	o.put(name, value)
	return o
}

// Flag adds or replaces a boolean option.
func (o *Options) Flag(name string, on bool) *Options {
	o.put(name, on)
	return o
}

// Add adds a value of either supported kind. Other types are formatted
// with fmt and treated as strings.
func (o *Options) Add(name string, value any) *Options {
	switch v := value.(type) {
	case bool:
		o.put(name, v)
	case string:
		o.put(name, v)
	default:
		o.put(name, fmt.Sprint(v))
	}
	return o
}

func (o *Options) put(name string, value any) {
	if o.values == nil {
		o.values = make(map[string]any)
	}
	if _, exists := o.values[name]; !exists {
		o.keys = append(o.keys, name)
	}
	o.values[name] = value
}

// Len returns the number of options, including false flags.
func (o *Options) Len() int {
	return len(o.keys)
}

// Args renders the options as argv tokens in insertion order.
func (o *Options) Args() []string {
	args := make([]string, 0, len(o.keys)*2)
	for _, k := range o.keys {
		switch v := o.values[k].(type) {
		case bool:
			if v {
				args = append(args, "--"+k)
			}
		case string:
			args = append(args, "--"+k, v)
		}
	}
	return args
}

// Suffix renders the options as a command-line suffix with a leading
// space, e.g. " --a x --b". An empty set renders as "".
func (o *Options) Suffix() string {
	args := o.Args()
	if len(args) == 0 {
		return ""
	}
	return " " + JoinArgs(args)
}

var plainWord = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)

// QuoteArg quotes s for display in a shell command line. Words made only
// of shell-safe characters are returned unchanged.
func QuoteArg(s string) string {
	if plainWord.MatchString(s) {
		return s
	}
	q, err := syntax.Quote(s, syntax.LangBash)
	if err != nil {
		// Bash cannot represent NUL bytes; fall back to Go quoting.
		return fmt.Sprintf("%q", s)
	}
	return q
}

// JoinArgs renders argv as a single display string.
func JoinArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = QuoteArg(a)
	}
	return strings.Join(quoted, " ")
}
