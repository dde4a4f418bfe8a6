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

package api

const (
	// TableMagic identifies a flat load table.
	TableMagic uint32 = 0xDEADBEEF

	// TableHeaderSize is the packed size of TableHeader.
	TableHeaderSize = 16
	// TableItemSize is the packed size of one flat table item.
	TableItemSize = 16
	// ChainHeaderSize is the packed size of one chain descriptor.
	ChainHeaderSize = 32
)

// TableHeader precedes the items of a flat load table.
type TableHeader struct {
	// Magic must be TableMagic.
	Magic uint32
	// TableSize is the byte length of the items following the header.
	TableSize uint32
	// ItemSize is the byte length of one item.
	ItemSize uint32
	// CRC32 is the IEEE CRC-32 of the item bytes, or 0 if it was not computed.
	CRC32 uint32
}

// Entries returns the number of items announced by the header.
func (h TableHeader) Entries() uint32 {
	if h.ItemSize == 0 {
		return 0
	}
	return h.TableSize / h.ItemSize
}
