package main

import (
	"bytes"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"timestamp", []string{"convert", "1740324600"}, "Sun Feb 23 15:30:00 2025 (day 54 of the year)\n"},
		{"epoch", []string{"convert", "0"}, "Thu Jan  1 00:00:00 1970 (day 1 of the year)\n"},
		{"date", []string{"convert", "--date", "2025-02-23T15:30:00"}, "1740324600\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := execute(t, tt.args...)
			if err != nil {
				t.Fatalf("execute() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConvert_Errors(t *testing.T) {
	for _, args := range [][]string{
		{"convert"},
		{"convert", "soon"},
		{"convert", "--date", "2025-02-23"},
	} {
		if _, err := execute(t, args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestFrameEncodeDecode(t *testing.T) {
	enc, err := execute(t, "frame", "encode", "2025-02-23T15:30:00")
	if err != nil {
		t.Fatalf("encode error = %v", err)
	}
	if !strings.Contains(enc, "frame:     0x00945e3aa6140000") {
		t.Errorf("encode output = %s", enc)
	}

	dec, err := execute(t, "frame", "decode", "0x945e3aa6140000")
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	for _, want := range []string{
		"time:      Sun Feb 23 15:30:00 2025 CET",
		"timestamp: 1740324600",
		"parity:    true",
	} {
		if !strings.Contains(dec, want) {
			t.Errorf("decode output missing %q:\n%s", want, dec)
		}
	}
}

func TestFrameDecode_Errors(t *testing.T) {
	for _, arg := range []string{"zz", "0x1000000000000000"} {
		if _, err := execute(t, "frame", "decode", arg); err == nil {
			t.Errorf("decode %s: expected error", arg)
		}
	}
}

func TestRootFlags(t *testing.T) {
	root := newRootCmd()
	if root.Flags().Lookup("port") == nil || root.Flags().Lookup("mqtt-broker") == nil {
		t.Fatal("receiver flags missing")
	}
}
