// Copyright 2026 Google LLC. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package loader initialises RAM from the load table of a flash image, the
// way a boot ROM does before handing over to the image's entry point.
package loader

import (
	"errors"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/rwinit/api"
	"github.com/google/rwinit/codec"
	"github.com/google/rwinit/memory"
	"github.com/google/rwinit/table"
)

// Loader applies descriptors to a bus.
type Loader struct {
	// Bus is the address space holding both flash and RAM.
	Bus memory.Bus
	// Codecs supplies decoders for compressed payloads. A nil Set means codec.Default().
	Codecs codec.Set
}

// New returns a Loader for b using the default decoders.
func New(b memory.Bus) *Loader {
	return &Loader{Bus: b, Codecs: codec.Default()}
}

// Result summarises a successful LoadProgram.
type Result struct {
	// Segments is the number of descriptors applied.
	Segments int
	// Bytes is the number of RAM bytes initialised.
	Bytes uint64
	// Descriptors lists the applied descriptors in the order they were applied.
	Descriptors []api.Descriptor
}

// SegmentError is returned by LoadProgram when a descriptor could not be applied.
type SegmentError struct {
	// Index is the position of the descriptor in walk order.
	Index int
	// Descriptor is the offending descriptor.
	Descriptor api.Descriptor
	Err        error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment %d (%v): %v", e.Index, e.Descriptor, e.Err)
}

func (e *SegmentError) Unwrap() error {
	return e.Err
}

func (l *Loader) codecs() codec.Set {
	if l.Codecs == nil {
		return codec.Default()
	}
	return l.Codecs
}

// LoadSegment materialises the region described by d.
//
// The content is written at d.VMA: DataSize bytes from the payload followed
// by BSSSize zero bytes. On error the region may be partially written.
func (l *Loader) LoadSegment(d api.Descriptor) error {
	if d.Method == api.MethodUnknown {
		return fmt.Errorf("%w: unknown method code %d", api.ErrInvalidDescriptor, d.Code)
	}
	if err := d.Validate(); err != nil {
		return fmt.Errorf("%w: %w", api.ErrInvalidDescriptor, err)
	}

	switch d.Method {
	case api.MethodZero:
		return busError(memory.Fill(l.Bus, d.VMA, 0, d.TotalSize))
	case api.MethodVerbatim:
		if d.StoredSize != 0 && d.StoredSize != d.DataSize() {
			return fmt.Errorf("%w: verbatim payload of %d bytes stored for %d bytes of data", api.ErrInvalidDescriptor, d.StoredSize, d.DataSize())
		}
		if err := memory.Copy(l.Bus, d.VMA, d.LMA, d.DataSize()); err != nil {
			return busError(err)
		}
	default:
		dec, err := l.codecs().Lookup(d.Method)
		if err != nil {
			return err
		}
		consumed, err := dec.Decode(l.Bus, d.VMA, d.LMA, d.DataSize())
		if err != nil {
			return busError(err)
		}
		if d.StoredSize != 0 && consumed > d.StoredSize {
			return fmt.Errorf("%w: %v payload overran its %d stored bytes (consumed %d)", api.ErrInvalidDescriptor, d.Method, d.StoredSize, consumed)
		}
	}
	return busError(memory.Fill(l.Bus, d.VMA+d.DataSize(), 0, d.BSSSize))
}

// busError classifies bus faults as invalid descriptors, since only a bad
// address in a descriptor can send the loader outside the memory map.
func busError(err error) error {
	var fault *memory.FaultError
	if errors.As(err, &fault) {
		return fmt.Errorf("%w: %w", api.ErrInvalidDescriptor, err)
	}
	return err
}

// LoadProgram applies every descriptor of the table at addr, in table order.
//
// Loading stops at the first failure. Segments applied before it stay
// applied, and nothing past it is read or written. Errors caused by a
// particular descriptor are returned as *SegmentError.
func (l *Loader) LoadProgram(f table.Format, addr uint32) (Result, error) {
	var res Result
	err := f.Walk(l.Bus, addr, func(d api.Descriptor) error {
		glog.V(2).Infof("Loading segment %d: %v", res.Segments, d)
		if err := l.LoadSegment(d); err != nil {
			return &SegmentError{Index: res.Segments, Descriptor: d, Err: err}
		}
		res.Segments++
		res.Bytes += uint64(d.TotalSize)
		res.Descriptors = append(res.Descriptors, d)
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("loading %s table at 0x%08x: %w", f, addr, err)
	}
	glog.V(1).Infof("Loaded %d segments (%d bytes) from %s table at 0x%08x", res.Segments, res.Bytes, f, addr)
	return res, nil
}
