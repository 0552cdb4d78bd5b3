// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package bridge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mvdan.cc/sh/v3/shell"
)

// Command is one external process invocation.
type Command struct {
	// Label names the command in metrics and logs ("compute_homography",
	// "shell", ...). It never reaches the process.
	Label string
	Path  string
	Args  []string
	Dir   string
}

// String renders the command line for logs and task records.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return QuoteArg(c.Path)
	}
	return QuoteArg(c.Path) + " " + JoinArgs(c.Args)
}

// Result is the captured outcome of a finished process.
type Result struct {
	ExitCode  int           `json:"exit_code"`
	Stdout    string        `json:"stdout"`
	Stderr    string        `json:"stderr"`
	Duration  time.Duration `json:"duration"`
	Truncated bool          `json:"truncated,omitempty"`
}

// ParseCommandLine splits a configured command line using shell word
// rules. Environment references are expanded; command substitution is
// not supported.
func ParseCommandLine(label, line string) (Command, error) {
	fields, err := shell.Fields(line, os.Getenv)
	if err != nil {
		return Command{}, fmt.Errorf("parse %s command %q: %w", label, line, err)
	}
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("parse %s command: %w", label, errors.New("empty command line"))
	}
	return Command{Label: label, Path: fields[0], Args: fields[1:]}, nil
}

// ScriptCommand builds "<interpreter> <script> --mode <mode> <options...>".
func ScriptCommand(interpreter, script, mode string, opts *Options) Command {
	args := []string{script, "--mode", mode}
	if opts != nil {
		args = append(args, opts.Args()...)
	}
	return Command{Label: mode, Path: interpreter, Args: args}
}

// ResolveDir returns dir as an absolute path, or "" when dir is empty.
func ResolveDir(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve work dir %s: %w", dir, err)
	}
	return abs, nil
}
