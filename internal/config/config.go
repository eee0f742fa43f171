/*
   config - plain key=value configuration file parser.

   One key=value pair per line, '#' starts a comment, keys are
   case-insensitive. The configurable surface (kernel base, MMIO bases,
   image size, timer tick) is flat, so there is no sectioning or
   per-device registration scheme.

   Copyright 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// Config holds the parsed key=value pairs from a configuration file.
type Config struct {
	values map[string]string
}

// Load reads and parses a configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := &Config{values: make(map[string]string)}
	scanner := bufio.NewScanner(f)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		if err := c.parseLine(scanner.Text()); err != nil {
			return nil, fmt.Errorf("config: line %d: %w", lineNumber, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) parseLine(line string) error {
	line = stripComment(line)
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	eq := strings.IndexByte(line, '=')
	if eq < 0 {
		return fmt.Errorf("expected key=value, got %q", line)
	}
	key := strings.TrimSpace(line[:eq])
	val := strings.TrimSpace(line[eq+1:])
	if key == "" || !unicode.IsLetter(rune(key[0])) {
		return fmt.Errorf("invalid key %q", key)
	}
	val = strings.Trim(val, `"`)
	c.values[strings.ToLower(key)] = val
	return nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

// String returns the value for key, or def if unset.
func (c *Config) String(key, def string) string {
	if v, ok := c.values[strings.ToLower(key)]; ok {
		return v
	}
	return def
}

// Int returns the value for key parsed as an integer, or def if unset or
// unparseable (base 0 accepts the guest's preferred 0x/0 prefixes).
func (c *Config) Int(key string, def int64) int64 {
	v, ok := c.values[strings.ToLower(key)]
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		return def
	}
	return n
}

// Bool returns the value for key parsed as a boolean, or def if unset.
func (c *Config) Bool(key string, def bool) bool {
	v, ok := c.values[strings.ToLower(key)]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
