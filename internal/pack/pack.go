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

// Package pack turns linked ELF executables into flash images carrying a
// load table for their initialised data and zeroed regions.
package pack

import (
	"bytes"
	"context"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/golang/glog"
	"github.com/google/rwinit/api"
	"github.com/google/rwinit/codec"
	"github.com/google/rwinit/devices/dummy/rom"
	"github.com/google/rwinit/internal/config"
	"github.com/google/rwinit/memory"
	"github.com/google/rwinit/table"
	"golang.org/x/sync/errgroup"
)

// Encoders are the payload encodings the packer may choose from, keyed by
// method. LZ77 has no encoder so it is never chosen.
var Encoders = map[api.Method]func([]byte) []byte{
	api.MethodVerbatim:      func(b []byte) []byte { return b },
	api.MethodRunLengthZero: codec.EncodeZeroRLE,
}

// Source is a loadable ELF segment whose runtime and load addresses differ.
type Source struct {
	// Index is the position of the segment in the program header table.
	Index int
	VMA   uint32
	// LMA is the load address recorded in the ELF file.
	LMA     uint32
	Data    []byte
	MemSize uint32
}

// Sources returns the segments of f which must be copied to RAM at boot.
func Sources(f *elf.File) ([]Source, error) {
	var srcs []Source
	for i, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Vaddr == p.Paddr {
			continue
		}
		if p.Vaddr+p.Memsz > math.MaxUint32+1 || p.Paddr > math.MaxUint32 {
			return nil, fmt.Errorf("segment %d at 0x%x does not fit a 32-bit address space", i, p.Vaddr)
		}
		if p.Filesz > p.Memsz {
			return nil, fmt.Errorf("segment %d has file size %d larger than memory size %d", i, p.Filesz, p.Memsz)
		}
		data := make([]byte, p.Filesz)
		if len(data) > 0 {
			if _, err := p.ReadAt(data, 0); err != nil {
				return nil, fmt.Errorf("failed to read segment %d: %w", i, err)
			}
		}
		srcs = append(srcs, Source{
			Index:   i,
			VMA:     uint32(p.Vaddr),
			LMA:     uint32(p.Paddr),
			Data:    data,
			MemSize: uint32(p.Memsz),
		})
	}
	return srcs, nil
}

// candidates is the order in which encodings are tried. Earlier entries win
// ties, so the cheapest to load comes first.
var candidates = []api.Method{api.MethodVerbatim, api.MethodRunLengthZero}

// Choose returns the smallest encoding of data.
func Choose(data []byte) (api.Method, []byte) {
	m, best := api.MethodVerbatim, data
	for _, cand := range candidates {
		if out := Encoders[cand](data); len(out) < len(best) {
			m, best = cand, out
		}
	}
	return m, best
}

// Row is one line of the packing report.
type Row struct {
	// Index is the program header index of the segment.
	Index int
	// Type is "rw" for initialised data or "bss" for the zeroed tail.
	Type    string
	VMA     uint32
	LMA     uint32
	NewSize uint32
	OldSize uint32
	Method  api.Method
}

// Ratio returns the stored size as a fraction of the original size.
func (r Row) Ratio() float64 {
	if r.OldSize == 0 {
		return 0
	}
	return float64(r.NewSize) / float64(r.OldSize)
}

// Result is a packed image with the information needed to boot and report on it.
type Result struct {
	Image   *table.Image
	Sources []Source
	Rows    []Row
	// Entry is the entry point of the ELF file.
	Entry uint32
}

// Pack builds a flash image at base for the segments of f which need
// initialising at boot. Segments are encoded concurrently.
func Pack(ctx context.Context, f *elf.File, format table.Format, base uint32) (*Result, error) {
	if f.Entry > math.MaxUint32 {
		return nil, fmt.Errorf("entry point 0x%x does not fit a 32-bit address space", f.Entry)
	}
	order := format.Order
	if order == nil {
		order = binary.LittleEndian
	}
	if f.ByteOrder != order {
		return nil, fmt.Errorf("ELF file is %v but the %s table is %v", f.ByteOrder, format.Kind, order)
	}
	srcs, err := Sources(f)
	if err != nil {
		return nil, err
	}

	segs := make([]table.Segment, len(srcs))
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range srcs {
		i, s := i, s // per-iteration copies; go directive lowered from 1.24 to 1.21
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			seg := table.Segment{
				Method:    api.MethodZero,
				VMA:       s.VMA,
				TotalSize: s.MemSize,
				BSSSize:   s.MemSize - uint32(len(s.Data)),
			}
			if len(s.Data) > 0 {
				seg.Method, seg.Payload = Choose(s.Data)
			}
			glog.V(1).Infof("Segment %d: %d data bytes as %v in %d bytes, %d bss bytes", s.Index, len(s.Data), seg.Method, len(seg.Payload), seg.BSSSize)
			segs[i] = seg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	img, err := format.Build(base, segs)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s table: %w", format, err)
	}
	return &Result{
		Image:   img,
		Sources: srcs,
		Rows:    report(srcs, segs, img),
		Entry:   uint32(f.Entry),
	}, nil
}

// report describes how each source ended up in the image.
func report(srcs []Source, segs []table.Segment, img *table.Image) []Row {
	lma := make(map[uint32]uint32)
	for _, d := range img.Descriptors {
		if d.Method.HasPayload() && d.DataSize() > 0 {
			lma[d.VMA] = d.LMA
		}
	}
	var rows []Row
	for i, s := range srcs {
		seg := segs[i]
		if len(s.Data) > 0 {
			rows = append(rows, Row{
				Index:   s.Index,
				Type:    "rw",
				VMA:     s.VMA,
				LMA:     lma[s.VMA],
				NewSize: uint32(len(seg.Payload)),
				OldSize: uint32(len(s.Data)),
				Method:  seg.Method,
			})
		}
		if seg.BSSSize > 0 {
			rows = append(rows, Row{
				Index:   s.Index,
				Type:    "bss",
				VMA:     s.VMA + seg.DataSize(),
				OldSize: seg.BSSSize,
				Method:  api.MethodZero,
			})
		}
	}
	return rows
}

// Contents returns the bytes a source must hold in RAM once loaded.
func (s Source) Contents() []byte {
	b := make([]byte, s.MemSize)
	copy(b, s.Data)
	return b
}

// Verify boots the packed image on the machine described by m and checks
// that RAM then holds the contents of every source.
func Verify(m *config.Machine, res *Result) error {
	st, err := rom.PowerOn(m, res.Image.Data)
	if err != nil {
		return err
	}
	for _, s := range res.Sources {
		got := make([]byte, s.MemSize)
		if err := memory.ReadBytes(st.RAM, s.VMA, got); err != nil {
			return fmt.Errorf("segment %d: %w", s.Index, err)
		}
		if !bytes.Equal(got, s.Contents()) {
			return fmt.Errorf("segment %d at 0x%08x: loaded contents differ from the ELF file", s.Index, s.VMA)
		}
	}
	return nil
}
