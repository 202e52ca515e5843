// Package fs implements file backed adapters: capture files as an edge
// source, a capture recorder, and a sink that keeps the last decoded frame
// on disk.
//
// A capture file holds one sample per line:
//
//	# comment
//	<millis> <level>
//
// where millis is the sample time in milliseconds (decimal, wrapping at
// 2^32) and level is 0 or 1. Blank lines and text after '#' are ignored.
package fs
