// Copyright 2026 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package spikeglx

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

var ErrMissingKey = errors.New("spikeglx: missing meta key")

// Meta holds the content of a SpikeGLX .meta file.
type Meta struct {
	keys []string // keys, in file order
	vals map[string]string
}

// OpenMeta reads the named SpikeGLX metadata file.
func OpenMeta(fname string) (*Meta, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("spikeglx: could not open meta file: %w", err)
	}
	defer f.Close()

	meta, err := ReadMeta(f)
	if err != nil {
		return nil, fmt.Errorf("spikeglx: could not read meta file %q: %w", fname, err)
	}
	return meta, nil
}

// ReadMeta parses SpikeGLX metadata from r.
// Each line holds a key=value pair. Keys that contain a '~' are list
// valued, e.g. "~imroTbl=(0,384)(0 1 0 500 250)(1 1 0 500 250)".
func ReadMeta(r io.Reader) (*Meta, error) {
	meta := &Meta{vals: make(map[string]string)}

	var (
		scan = bufio.NewScanner(r)
		line int
	)
	scan.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scan.Scan() {
		line++
		txt := strings.TrimRight(scan.Text(), "\r\n")
		if strings.TrimSpace(txt) == "" {
			continue
		}
		i := strings.Index(txt, "=")
		if i < 0 {
			return nil, xerrors.Errorf("spikeglx: invalid meta line %d: missing '=' in %q", line, txt)
		}
		var (
			k = strings.TrimSpace(txt[:i])
			v = strings.TrimSpace(txt[i+1:])
		)
		if k == "" {
			return nil, xerrors.Errorf("spikeglx: invalid meta line %d: empty key", line)
		}
		if _, dup := meta.vals[k]; !dup {
			meta.keys = append(meta.keys, k)
		}
		meta.vals[k] = v
	}

	if err := scan.Err(); err != nil {
		return nil, xerrors.Errorf("spikeglx: could not scan meta data: %w", err)
	}

	return meta, nil
}

// Keys returns the metadata keys, in file order.
func (meta *Meta) Keys() []string {
	keys := make([]string, len(meta.keys))
	copy(keys, meta.keys)
	return keys
}

// Has reports whether the key is present.
func (meta *Meta) Has(key string) bool {
	_, ok := meta.vals[key]
	return ok
}

// String returns the raw value associated with key.
func (meta *Meta) String(key string) (string, error) {
	v, ok := meta.vals[key]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrMissingKey, key)
	}
	return v, nil
}

// Float returns the value associated with key, as a number.
func (meta *Meta) Float(key string) (float64, error) {
	v, err := meta.String(key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, xerrors.Errorf("spikeglx: meta key %q is not numeric: %w", key, err)
	}
	return f, nil
}

// Int returns the value associated with key, as an integer.
func (meta *Meta) Int(key string) (int, error) {
	v, err := meta.String(key)
	if err != nil {
		return 0, err
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, xerrors.Errorf("spikeglx: meta key %q is not an integer: %w", key, err)
	}
	return i, nil
}

// List returns the entries of a list-valued key.
// Non-list keys are returned as a single-entry list.
func (meta *Meta) List(key string) ([]string, error) {
	v, err := meta.String(key)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(key, "~") {
		return []string{v}, nil
	}
	v = strings.TrimPrefix(v, "(")
	v = strings.TrimSuffix(v, ")")
	return strings.Split(v, ")("), nil
}

// Type returns the stream type of the recording ("imec", "nidq", ...).
func (meta *Meta) Type() (string, error) {
	return meta.String("typeThis")
}

// SampleRate returns the sampling rate of the recorded stream, in Hz.
func (meta *Meta) SampleRate() (float64, error) {
	typ, err := meta.Type()
	if err != nil {
		return 0, fmt.Errorf("spikeglx: could not find stream type: %w", err)
	}

	key := "imSampRate"
	if typ != "imec" {
		if len(typ) < 2 {
			return 0, fmt.Errorf("spikeglx: invalid stream type %q", typ)
		}
		key = typ[:2] + "SampRate"
	}
	return meta.Float(key)
}

// NSavedChans returns the number of channels stored in the binary file.
func (meta *Meta) NSavedChans() (int, error) {
	return meta.Int("nSavedChans")
}

// SyncChan returns the 0-based index of the sync channel: the last saved one.
func (meta *Meta) SyncChan() (int, error) {
	n, err := meta.NSavedChans()
	if err != nil {
		return 0, err
	}
	return n - 1, nil
}

// Duration returns the length of the recording, in seconds.
func (meta *Meta) Duration() (float64, error) {
	return meta.Float("fileTimeSecs")
}
