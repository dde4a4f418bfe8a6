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

package memory_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/rwinit/memory"
)

const (
	srcBase = 0x08000000
	dstBase = 0x20000000
	regSize = 64
	guard   = 0xEE
)

func mustRAM(t *testing.T, order binary.ByteOrder) *memory.RAM {
	t.Helper()
	r, err := memory.NewRAM(order,
		memory.Region{Name: "flash", Base: srcBase, Size: regSize, ReadOnly: true},
		memory.Region{Name: "sram", Base: dstBase, Size: regSize})
	if err != nil {
		t.Fatalf("NewRAM: %v", err)
	}
	return r
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + 1)
	}
	return b
}

func TestNewRAM(t *testing.T) {
	for _, test := range []struct {
		desc    string
		order   binary.ByteOrder
		regions []memory.Region
		wantErr bool
	}{
		{
			desc:    "ok",
			order:   binary.LittleEndian,
			regions: []memory.Region{{Name: "a", Base: 0, Size: 16}, {Name: "b", Base: 16, Size: 16}},
		}, {
			desc:    "nil order",
			regions: []memory.Region{{Name: "a", Base: 0, Size: 16}},
			wantErr: true,
		}, {
			desc:    "zero size",
			order:   binary.LittleEndian,
			regions: []memory.Region{{Name: "a", Base: 0}},
			wantErr: true,
		}, {
			desc:    "overlap",
			order:   binary.LittleEndian,
			regions: []memory.Region{{Name: "a", Base: 0, Size: 16}, {Name: "b", Base: 8, Size: 16}},
			wantErr: true,
		}, {
			desc:    "duplicate name",
			order:   binary.LittleEndian,
			regions: []memory.Region{{Name: "a", Base: 0, Size: 16}, {Name: "a", Base: 32, Size: 16}},
			wantErr: true,
		}, {
			desc:    "wraps",
			order:   binary.LittleEndian,
			regions: []memory.Region{{Name: "a", Base: 0xfffffff0, Size: 32}},
			wantErr: true,
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			_, err := memory.NewRAM(test.order, test.regions...)
			if gotErr := err != nil; gotErr != test.wantErr {
				t.Errorf("NewRAM() = %v, want err %t", err, test.wantErr)
			}
			if test.order == nil {
				return
			}
			if err := memory.CheckRegions(test.regions...); (err != nil) != test.wantErr {
				t.Errorf("CheckRegions() = %v, want err %t", err, test.wantErr)
			}
		})
	}
}

func TestRAMFaults(t *testing.T) {
	r := mustRAM(t, binary.LittleEndian)
	for _, test := range []struct {
		desc string
		op   func() error
		want memory.FaultKind
	}{
		{
			desc: "unmapped read",
			op: func() error {
				_, err := r.Read8(0x10000000)
				return err
			},
			want: memory.FaultUnmapped,
		}, {
			desc: "read past end of region",
			op: func() error {
				_, err := r.Read8(dstBase + regSize)
				return err
			},
			want: memory.FaultUnmapped,
		}, {
			desc: "write to flash",
			op: func() error { return r.Write8(srcBase, 1) },
			want: memory.FaultReadOnly,
		}, {
			desc: "word write to flash",
			op: func() error { return r.Write32(srcBase, 1) },
			want: memory.FaultReadOnly,
		}, {
			desc: "misaligned word read",
			op: func() error {
				_, err := r.Read32(dstBase + 1)
				return err
			},
			want: memory.FaultMisaligned,
		}, {
			desc: "misaligned word write",
			op: func() error { return r.Write32(dstBase+2, 1) },
			want: memory.FaultMisaligned,
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			err := test.op()
			var fe *memory.FaultError
			if !errors.As(err, &fe) {
				t.Fatalf("got error %v, want *FaultError", err)
			}
			if fe.Kind != test.want {
				t.Errorf("got fault kind %v, want %v", fe.Kind, test.want)
			}
		})
	}
}

func TestRAMByteOrder(t *testing.T) {
	for _, test := range []struct {
		order binary.ByteOrder
		want  []byte
	}{
		{order: binary.LittleEndian, want: []byte{0x44, 0x33, 0x22, 0x11}},
		{order: binary.BigEndian, want: []byte{0x11, 0x22, 0x33, 0x44}},
	} {
		t.Run(test.order.String(), func(t *testing.T) {
			r := mustRAM(t, test.order)
			if err := r.Write32(dstBase, 0x11223344); err != nil {
				t.Fatalf("Write32: %v", err)
			}
			got := make([]byte, 4)
			if err := memory.ReadBytes(r, dstBase, got); err != nil {
				t.Fatalf("ReadBytes: %v", err)
			}
			if !bytes.Equal(got, test.want) {
				t.Errorf("got % x, want % x", got, test.want)
			}
		})
	}
}

func TestProgramAndSnapshot(t *testing.T) {
	r := mustRAM(t, binary.LittleEndian)
	if err := r.Program(srcBase+4, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Program: %v", err)
	}
	if err := r.Program(srcBase+regSize-1, []byte{1, 2}); err == nil {
		t.Error("Program past end of region succeeded")
	}
	snap, err := r.Snapshot("flash")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got, want := snap[4:7], []byte{1, 2, 3}; !bytes.Equal(got, want) {
		t.Errorf("snapshot got % x, want % x", got, want)
	}
	if _, err := r.Snapshot("nope"); err == nil {
		t.Error("Snapshot of unknown region succeeded")
	}
}

func TestCopy(t *testing.T) {
	src := pattern(regSize)
	for dOff := uint32(0); dOff < memory.WordSize; dOff++ {
		for sOff := uint32(0); sOff < memory.WordSize; sOff++ {
			for n := uint32(0); n <= 19; n++ {
				t.Run(fmt.Sprintf("dst+%d/src+%d/n=%d", dOff, sOff, n), func(t *testing.T) {
					r := mustRAM(t, binary.LittleEndian)
					if err := r.Program(srcBase, src); err != nil {
						t.Fatalf("Program: %v", err)
					}
					if err := memory.Fill(r, dstBase, guard, regSize); err != nil {
						t.Fatalf("Fill: %v", err)
					}
					c := &memory.Counter{Bus: r}
					dst, from := dstBase+8+dOff, srcBase+8+sOff
					if err := memory.Copy(c, dst, from, n); err != nil {
						t.Fatalf("Copy: %v", err)
					}

					want := bytes.Repeat([]byte{guard}, regSize)
					copy(want[8+dOff:], src[8+sOff:8+sOff+n])
					got, _ := r.Snapshot("sram")
					if diff := cmp.Diff(want, got); diff != "" {
						t.Errorf("sram diff (-want +got):\n%s", diff)
					}

					var wantWords uint64
					if dOff == sOff {
						pro := (memory.WordSize - dOff) % memory.WordSize
						if pro > n {
							pro = n
						}
						wantWords = uint64((n - pro) / memory.WordSize)
					}
					if c.Writes32 != wantWords {
						t.Errorf("got %d word writes, want %d", c.Writes32, wantWords)
					}
					if got := c.BytesWritten(); got != uint64(n) {
						t.Errorf("BytesWritten() = %d, want %d", got, n)
					}
				})
			}
		}
	}
}

func TestFill(t *testing.T) {
	for off := uint32(0); off < memory.WordSize; off++ {
		for n := uint32(0); n <= 19; n++ {
			for _, v := range []byte{0x00, 0x5A, 0xFF} {
				t.Run(fmt.Sprintf("dst+%d/n=%d/v=%02x", off, n, v), func(t *testing.T) {
					r := mustRAM(t, binary.BigEndian)
					if err := memory.WriteBytes(r, dstBase, bytes.Repeat([]byte{guard}, regSize)); err != nil {
						t.Fatalf("WriteBytes: %v", err)
					}
					c := &memory.Counter{Bus: r}
					if err := memory.Fill(c, dstBase+8+off, v, n); err != nil {
						t.Fatalf("Fill: %v", err)
					}

					want := bytes.Repeat([]byte{guard}, regSize)
					copy(want[8+off:], bytes.Repeat([]byte{v}, int(n)))
					got, _ := r.Snapshot("sram")
					if diff := cmp.Diff(want, got); diff != "" {
						t.Errorf("sram diff (-want +got):\n%s", diff)
					}

					var wantWords uint64
					if n >= memory.WordSize {
						wantWords = uint64((n - (memory.WordSize-off)%memory.WordSize) / memory.WordSize)
					}
					if c.Writes32 != wantWords {
						t.Errorf("got %d word writes, want %d", c.Writes32, wantWords)
					}
				})
			}
		}
	}
}

func TestPrimitivesFault(t *testing.T) {
	r := mustRAM(t, binary.LittleEndian)
	var fe *memory.FaultError
	if err := memory.Fill(r, srcBase, 0, 8); !errors.As(err, &fe) || fe.Kind != memory.FaultReadOnly {
		t.Errorf("Fill(flash) = %v, want read-only fault", err)
	}
	if err := memory.Copy(r, dstBase+regSize-2, srcBase, 8); !errors.As(err, &fe) || fe.Kind != memory.FaultUnmapped {
		t.Errorf("Copy past end of sram = %v, want unmapped fault", err)
	}
}

func TestMappedSize(t *testing.T) {
	got := memory.MappedSize(memory.Region{Size: 0x1000}, memory.Region{Size: 0xC0000000})
	if want := uint64(0xC0001000); got != want {
		t.Errorf("MappedSize() = 0x%x, want 0x%x", got, want)
	}
}
