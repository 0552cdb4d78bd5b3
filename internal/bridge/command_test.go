// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

package bridge

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseCommandLine(t *testing.T) {
	t.Setenv("HB_TEST_SCRIPT_DIR", "/opt/scripts")

	tests := []struct {
		line     string
		wantPath string
		wantArgs []string
		wantErr  bool
	}{
		{"python ./resources/demo.py", "python", []string{"./resources/demo.py"}, false},
		{"python3 -u 'start process.py'", "python3", []string{"-u", "start process.py"}, false},
		{"python $HB_TEST_SCRIPT_DIR/stop.py", "python", []string{"/opt/scripts/stop.py"}, false},
		{"  ", "", nil, true},
		{"python 'unterminated", "", nil, true},
	}

	for _, tt := range tests {
		cmd, err := ParseCommandLine("shell", tt.line)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseCommandLine(%q) expected error", tt.line)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseCommandLine(%q) error: %v", tt.line, err)
			continue
		}
		if cmd.Path != tt.wantPath || !reflect.DeepEqual(cmd.Args, tt.wantArgs) {
			t.Errorf("ParseCommandLine(%q) = %q %q, want %q %q", tt.line, cmd.Path, cmd.Args, tt.wantPath, tt.wantArgs)
		}
		if cmd.Label != "shell" {
			t.Errorf("Label = %q", cmd.Label)
		}
	}
}

func TestScriptCommand(t *testing.T) {
	opts := NewOptions().
		Set("image_points_path", "ip.json").
		Set("map_points_path", "mp.json").
		Set("output_dir", "out")
	cmd := ScriptCommand("python", "./resources/homography.py", "compute_homography", opts)

	want := []string{
		"./resources/homography.py", "--mode", "compute_homography",
		"--image_points_path", "ip.json", "--map_points_path", "mp.json", "--output_dir", "out",
	}
	if cmd.Path != "python" || !reflect.DeepEqual(cmd.Args, want) {
		t.Errorf("ScriptCommand = %q %q", cmd.Path, cmd.Args)
	}
	if cmd.Label != "compute_homography" {
		t.Errorf("Label = %q", cmd.Label)
	}

	wantLine := "python ./resources/homography.py --mode compute_homography --image_points_path ip.json --map_points_path mp.json --output_dir out"
	if cmd.String() != wantLine {
		t.Errorf("String() = %q, want %q", cmd.String(), wantLine)
	}
}

func TestCommandString_NoArgs(t *testing.T) {
	if got := (Command{Path: "python"}).String(); got != "python" {
		t.Errorf("String() = %q", got)
	}
}

func TestProcessError(t *testing.T) {
	err := error(&ProcessError{Command: "apply_homography", ExitCode: 2, Stderr: "AssertionError"})
	if !errors.Is(err, ErrProcessFailed) {
		t.Error("ProcessError should match ErrProcessFailed")
	}
	if !strings.Contains(err.Error(), "exit status 2") {
		t.Errorf("Error() = %q", err.Error())
	}
	var pe *ProcessError
	if !errors.As(err, &pe) || pe.Stderr != "AssertionError" {
		t.Errorf("errors.As = %+v", pe)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{&ProcessError{ExitCode: 1}, "failed"},
		{ErrTimeout, "timeout"},
		{ErrStartFailed, "start_failed"},
		{ErrUnavailable, "rejected"},
		{errors.New("other"), "error"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestCappedBuffer(t *testing.T) {
	head := &cappedBuffer{limit: 5}
	_, _ = head.Write([]byte("abc"))
	_, _ = head.Write([]byte("defgh"))
	if head.String() != "abcde" || !head.truncated {
		t.Errorf("head buffer = %q truncated=%v", head.String(), head.truncated)
	}

	tail := &cappedBuffer{limit: 5, keepTail: true}
	_, _ = tail.Write([]byte("abc"))
	n, err := tail.Write([]byte("defgh"))
	if n != 5 || err != nil {
		t.Errorf("Write = %d, %v; want full length accepted", n, err)
	}
	if tail.String() != "defgh" || !tail.truncated {
		t.Errorf("tail buffer = %q truncated=%v", tail.String(), tail.truncated)
	}

	small := &cappedBuffer{limit: 10}
	_, _ = small.Write([]byte("ok"))
	if small.truncated {
		t.Error("short output should not be marked truncated")
	}
}
