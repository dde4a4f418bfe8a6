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

package impl

import (
	"context"
	"strings"
	"testing"

	"github.com/google/rwinit/api"
	"github.com/google/rwinit/internal/pack"
)

func TestWriteReport(t *testing.T) {
	var b strings.Builder
	rows := []pack.Row{
		{Index: 1, Type: "rw", VMA: 0x20000000, LMA: 0x08001830, NewSize: 10, OldSize: 40, Method: api.MethodRunLengthZero},
		{Index: 1, Type: "bss", VMA: 0x20000028, OldSize: 4, Method: api.MethodZero},
	}
	if err := writeReport(&b, rows); err != nil {
		t.Fatalf("writeReport: %v", err)
	}
	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), b.String())
	}
	for i, want := range [][]string{
		{"index", "type", "vma", "lma", "newsz", "oldsz", "ratio", "method"},
		{"1", "rw", "0x20000000", "0x08001830", "10", "40", "0.25", "ZERO_RLE"},
		{"1", "bss", "0x20000028", "-", "0", "4", "0.00", "ZERO"},
	} {
		if got := strings.Fields(lines[i]); strings.Join(got, " ") != strings.Join(want, " ") {
			t.Errorf("line %d = %q, want fields %q", i, lines[i], want)
		}
	}
}

func TestMainRequiresFlags(t *testing.T) {
	for _, test := range []struct {
		desc string
		opts PackOpts
	}{
		{desc: "no elf", opts: PackOpts{OutDir: t.TempDir()}},
		{desc: "no out dir", opts: PackOpts{ELFFile: "fw.elf"}},
		{desc: "no machine", opts: PackOpts{ELFFile: "fw.elf", OutDir: t.TempDir()}},
	} {
		t.Run(test.desc, func(t *testing.T) {
			if err := Main(context.Background(), test.opts); err == nil {
				t.Error("Main() succeeded, want error")
			}
		})
	}
}
