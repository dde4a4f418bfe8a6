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
)

// payloadAlign is the alignment of payloads in built images, so that
// word aligned regions can be copied a word at a time.
const payloadAlign = 4

// Segment is the producer's view of one region to initialise.
type Segment struct {
	// Method is the encoding of Payload.
	Method api.Method
	// VMA is the runtime address of the region.
	VMA uint32
	// TotalSize is the size of the region once loaded, including BSSSize.
	TotalSize uint32
	// BSSSize is the size of the zero filled tail.
	BSSSize uint32
	// Payload holds the DataSize bytes of content, encoded with Method.
	Payload []byte
}

// DataSize returns the size of the region excluding its BSS tail.
func (s Segment) DataSize() uint32 {
	return s.TotalSize - s.BSSSize
}

// Image is a flash image holding a load table and its payloads.
type Image struct {
	// Base is the address at which Data must be programmed.
	Base uint32
	// Data is the content of flash from Base onwards.
	Data []byte
	// Table is the address to pass to Walk.
	Table uint32
	// Descriptors holds the table entries in the order Walk returns them.
	Descriptors []api.Descriptor
}

// Build lays out segs and their load table in a flash image starting at base.
//
// Flat tables cannot express a BSS tail, so segments with both content and a
// tail take two items. Chains are built so that segs[0] is linked first, which
// means it is loaded last.
func (f Format) Build(base uint32, segs []Segment) (*Image, error) {
	for i, s := range segs {
		if s.BSSSize > s.TotalSize {
			return nil, fmt.Errorf("segment %d: bss size %d exceeds total size %d", i, s.BSSSize, s.TotalSize)
		}
		if s.Method == api.MethodZero && len(s.Payload) != 0 {
			return nil, fmt.Errorf("segment %d: zero segment has a payload", i)
		}
	}
	switch f.Kind {
	case FlatTable:
		return f.buildFlat(base, segs)
	case Chain:
		return f.buildChain(base, segs)
	}
	return nil, fmt.Errorf("unknown table format %v", f.Kind)
}

func (f Format) buildFlat(base uint32, segs []Segment) (*Image, error) {
	type item struct {
		d       api.Descriptor
		payload []byte
	}
	var items []item
	for _, s := range segs {
		switch {
		case s.Method == api.MethodZero:
			items = append(items, item{d: api.Descriptor{Method: api.MethodZero, VMA: s.VMA, TotalSize: s.TotalSize}})
		case s.DataSize() == 0:
			items = append(items, item{d: api.Descriptor{Method: api.MethodZero, VMA: s.VMA, TotalSize: s.BSSSize}})
		default:
			items = append(items, item{d: api.Descriptor{Method: s.Method, VMA: s.VMA, TotalSize: s.DataSize()}, payload: s.Payload})
			if s.BSSSize > 0 {
				items = append(items, item{d: api.Descriptor{Method: api.MethodZero, VMA: s.VMA + s.DataSize(), TotalSize: s.BSSSize}})
			}
		}
	}
	if uint32(len(items)) > f.limit() {
		return nil, fmt.Errorf("%d items exceed flat table capacity %d", len(items), f.limit())
	}

	tableSize := uint32(len(items)) * api.TableItemSize
	img := &Image{Base: base, Table: base}
	data := make([]byte, api.TableHeaderSize+tableSize)
	for i := range items {
		if len(items[i].payload) == 0 {
			continue
		}
		data = pad(data, payloadAlign)
		items[i].d.LMA = base + uint32(len(data))
		data = append(data, items[i].payload...)
	}

	o := f.order()
	for i, it := range items {
		code, err := f.Code(it.d.Method)
		if err != nil {
			return nil, err
		}
		at := api.TableHeaderSize + i*api.TableItemSize
		o.PutUint32(data[at:], it.d.VMA)
		o.PutUint32(data[at+4:], it.d.LMA)
		o.PutUint32(data[at+8:], it.d.TotalSize)
		o.PutUint32(data[at+12:], code)

		it.d.Code = code
		it.d.Link = uint32(i)
		it.d.Addr = base + uint32(at)
		img.Descriptors = append(img.Descriptors, it.d)
	}
	o.PutUint32(data[0:], api.TableMagic)
	o.PutUint32(data[4:], tableSize)
	o.PutUint32(data[8:], api.TableItemSize)
	o.PutUint32(data[12:], crc32.ChecksumIEEE(data[api.TableHeaderSize:api.TableHeaderSize+tableSize]))

	img.Data = data
	return img, nil
}

func (f Format) buildChain(base uint32, segs []Segment) (*Image, error) {
	if uint32(len(segs))+1 > f.limit() {
		return nil, fmt.Errorf("%d segments exceed chain limit %d", len(segs), f.limit())
	}
	var (
		data []byte
		prev uint32
		ds   []api.Descriptor
	)
	for _, s := range segs {
		data = pad(data, payloadAlign)
		at := base + uint32(len(data))
		d := api.Descriptor{
			Method:     s.Method,
			VMA:        s.VMA,
			TotalSize:  s.TotalSize,
			BSSSize:    s.BSSSize,
			StoredSize: uint32(len(s.Payload)),
			Link:       prev,
			Addr:       at,
		}
		if len(s.Payload) > 0 {
			d.LMA = at + api.ChainHeaderSize
		}
		hdr, err := f.marshalChainEntry(&d)
		if err != nil {
			return nil, err
		}
		data = append(data, hdr...)
		data = append(data, s.Payload...)
		ds = append(ds, d)
		prev = at
	}

	data = pad(data, payloadAlign)
	head := base + uint32(len(data))
	hd := api.Descriptor{Method: api.MethodVerbatim, VMA: head, LMA: head, Link: prev, Addr: head}
	hdr, err := f.marshalChainEntry(&hd)
	if err != nil {
		return nil, err
	}
	data = append(data, hdr...)

	img := &Image{Base: base, Data: data, Table: head, Descriptors: []api.Descriptor{hd}}
	for i := len(ds) - 1; i >= 0; i-- {
		img.Descriptors = append(img.Descriptors, ds[i])
	}
	return img, nil
}

// marshalChainEntry encodes d as a chain descriptor, filling in d.Code.
func (f Format) marshalChainEntry(d *api.Descriptor) ([]byte, error) {
	code, err := f.Code(d.Method)
	if err != nil {
		return nil, err
	}
	d.Code = code
	o := f.order()
	b := make([]byte, api.ChainHeaderSize)
	for i, v := range []uint32{d.Link, code, d.VMA, d.LMA, d.TotalSize, d.StoredSize, d.BSSSize, 0} {
		o.PutUint32(b[4*i:], v)
	}
	return b, nil
}

// pad extends b with zeros to a multiple of n bytes.
func pad(b []byte, n int) []byte {
	for len(b)%n != 0 {
		b = append(b, 0)
	}
	return b
}
