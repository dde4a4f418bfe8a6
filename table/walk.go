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

package table

import (
	"fmt"
	"hash/crc32"

	"github.com/google/rwinit/api"
	"github.com/google/rwinit/memory"
)

const crcChunk = 256

// Walk calls fn with every descriptor of the table at addr, in the order in
// which the segments must be loaded.
//
// Each descriptor, including its link, is read completely before fn is called
// so fn may overwrite any RAM it likes. An error from fn stops the walk and is
// returned as is.
func (f Format) Walk(b memory.Bus, addr uint32, fn func(d api.Descriptor) error) error {
	switch f.Kind {
	case FlatTable:
		return f.walkFlat(b, addr, fn)
	case Chain:
		return f.walkChain(b, addr, fn)
	}
	return fmt.Errorf("unknown table format %v", f.Kind)
}

// List returns all descriptors of the table at addr without loading anything.
func (f Format) List(b memory.Bus, addr uint32) ([]api.Descriptor, error) {
	var ds []api.Descriptor
	err := f.Walk(b, addr, func(d api.Descriptor) error {
		ds = append(ds, d)
		return nil
	})
	return ds, err
}

// ReadHeader reads the flat table header at addr and checks it.
func (f Format) ReadHeader(b memory.Bus, addr uint32) (api.TableHeader, error) {
	w, err := f.readWords(b, addr, api.TableHeaderSize/4)
	if err != nil {
		return api.TableHeader{}, fmt.Errorf("reading header at 0x%08x: %w: %w", addr, api.ErrHeaderMismatch, err)
	}
	h := api.TableHeader{Magic: w[0], TableSize: w[1], ItemSize: w[2], CRC32: w[3]}
	if h.Magic != api.TableMagic {
		return h, fmt.Errorf("%w: magic 0x%08x, want 0x%08x", api.ErrHeaderMismatch, h.Magic, api.TableMagic)
	}
	if h.ItemSize < api.TableItemSize {
		return h, fmt.Errorf("%w: item size %d, want at least %d", api.ErrHeaderMismatch, h.ItemSize, api.TableItemSize)
	}
	if h.TableSize%h.ItemSize != 0 {
		return h, fmt.Errorf("%w: table size %d is not a multiple of item size %d", api.ErrHeaderMismatch, h.TableSize, h.ItemSize)
	}
	if n := h.Entries(); n > f.limit() {
		return h, fmt.Errorf("%w: %d entries exceed capacity %d", api.ErrHeaderMismatch, n, f.limit())
	}
	return h, nil
}

func (f Format) walkFlat(b memory.Bus, addr uint32, fn func(d api.Descriptor) error) error {
	h, err := f.ReadHeader(b, addr)
	if err != nil {
		return err
	}
	items := addr + api.TableHeaderSize
	if h.CRC32 != 0 {
		got, err := checksum(b, items, h.TableSize)
		if err != nil {
			return fmt.Errorf("%w: reading items: %w", api.ErrHeaderMismatch, err)
		}
		if got != h.CRC32 {
			return fmt.Errorf("%w: crc32 0x%08x, want 0x%08x", api.ErrHeaderMismatch, got, h.CRC32)
		}
	}

	for i := uint32(0); i < h.Entries(); i++ {
		at := items + i*h.ItemSize
		w, err := f.readWords(b, at, api.TableItemSize/4)
		if err != nil {
			return fmt.Errorf("item %d at 0x%08x: %w: %w", i, at, api.ErrInvalidDescriptor, err)
		}
		d := api.Descriptor{
			VMA:       w[0],
			LMA:       w[1],
			TotalSize: w[2],
			Code:      w[3],
			Method:    f.Method(w[3]),
			Link:      i,
			Addr:      at,
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

func (f Format) walkChain(b memory.Bus, addr uint32, fn func(d api.Descriptor) error) error {
	for n := uint32(0); addr != 0; n++ {
		if n == f.limit() {
			return fmt.Errorf("%w: chain longer than %d entries", api.ErrInvalidDescriptor, f.limit())
		}
		w, err := f.readWords(b, addr, api.ChainHeaderSize/4)
		if err != nil {
			return fmt.Errorf("descriptor at 0x%08x: %w: %w", addr, api.ErrInvalidDescriptor, err)
		}
		d := api.Descriptor{
			Link:       w[0],
			Code:       w[1],
			Method:     f.Method(w[1]),
			VMA:        w[2],
			LMA:        w[3],
			TotalSize:  w[4],
			StoredSize: w[5],
			BSSSize:    w[6],
			Addr:       addr,
		}
		if err := fn(d); err != nil {
			return err
		}
		addr = d.Link
	}
	return nil
}

// checksum returns the IEEE CRC-32 of the n bytes at addr. Memory use does
// not depend on n.
func checksum(b memory.Bus, addr, n uint32) (uint32, error) {
	h := crc32.NewIEEE()
	buf := make([]byte, crcChunk)
	for n > 0 {
		c := buf[:min(n, crcChunk)]
		if err := memory.ReadBytes(b, addr, c); err != nil {
			return 0, err
		}
		h.Write(c)
		addr, n = addr+uint32(len(c)), n-uint32(len(c))
	}
	return h.Sum32(), nil
}

// readWords reads n consecutive 32-bit fields at addr.
func (f Format) readWords(b memory.Bus, addr uint32, n int) ([]uint32, error) {
	buf := make([]byte, 4*n)
	if err := memory.ReadBytes(b, addr, buf); err != nil {
		return nil, err
	}
	w := make([]uint32, n)
	for i := range w {
		w[i] = f.order().Uint32(buf[4*i:])
	}
	return w, nil
}
