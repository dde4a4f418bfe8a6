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

// Package impl is the implementation of the image packer.
package impl

import (
	"context"
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/golang/glog"
	"github.com/google/rwinit/devices/dummy"
	"github.com/google/rwinit/internal/client"
	"github.com/google/rwinit/internal/config"
	"github.com/google/rwinit/internal/pack"
)

// PackOpts encapsulates the packer parameters.
type PackOpts struct {
	ELFFile        string
	MachineFile    string
	OutDir         string
	Verify         bool
	ImageServerURL string

	// Report receives the packing report. Defaults to stdout.
	Report io.Writer
}

// Main packs the ELF file and writes the image and its machine config.
func Main(ctx context.Context, opts PackOpts) error {
	if opts.ELFFile == "" {
		return errors.New("must specify elf")
	}
	if opts.OutDir == "" {
		return errors.New("must specify out_dir")
	}
	m, err := config.Load(opts.MachineFile)
	if err != nil {
		return fmt.Errorf("failed to load machine template: %w", err)
	}
	format, err := m.TableFormat()
	if err != nil {
		return err
	}

	f, err := elf.Open(opts.ELFFile)
	if err != nil {
		return fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer f.Close()

	res, err := pack.Pack(ctx, f, format, m.ImageBase)
	if err != nil {
		return fmt.Errorf("failed to pack %q: %w", opts.ELFFile, err)
	}
	m.TableAddress = res.Image.Table
	m.Entry = res.Entry
	if err := m.Validate(); err != nil {
		return fmt.Errorf("packed image does not fit the machine: %w", err)
	}

	w := opts.Report
	if w == nil {
		w = os.Stdout
	}
	if err := writeReport(w, res.Rows); err != nil {
		return err
	}

	if opts.Verify {
		if err := pack.Verify(m, res); err != nil {
			return fmt.Errorf("packed image failed verification: %w", err)
		}
		glog.Info("Packed image verified")
	}

	raw, err := m.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create out_dir: %w", err)
	}
	for name, b := range map[string][]byte{
		dummy.FlashPath:   res.Image.Data,
		dummy.MachinePath: raw,
	} {
		p := filepath.Join(opts.OutDir, name)
		if err := os.WriteFile(p, b, 0o644); err != nil {
			return fmt.Errorf("failed to write %q: %w", p, err)
		}
	}
	glog.Infof("Wrote %d byte image with %s table at 0x%08x to %q", len(res.Image.Data), format, res.Image.Table, opts.OutDir)

	if opts.ImageServerURL == "" {
		return nil
	}
	u, err := url.Parse(opts.ImageServerURL)
	if err != nil {
		return fmt.Errorf("image_server_url is invalid: %w", err)
	}
	c := client.ImageClient{URL: u}
	info, err := c.AddImage(ctx, raw, res.Image.Data)
	if err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}
	glog.Infof("Uploaded image %v", info)
	return nil
}

func writeReport(w io.Writer, rows []pack.Row) error {
	tw := tabwriter.NewWriter(w, 0, 8, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "index\ttype\tvma\tlma\tnewsz\toldsz\tratio\tmethod\t")
	for _, r := range rows {
		lma := "-"
		if r.Type == "rw" {
			lma = fmt.Sprintf("0x%08x", r.LMA)
		}
		fmt.Fprintf(tw, "%d\t%s\t0x%08x\t%s\t%d\t%d\t%.2f\t%v\t\n", r.Index, r.Type, r.VMA, lma, r.NewSize, r.OldSize, r.Ratio(), r.Method)
	}
	return tw.Flush()
}
