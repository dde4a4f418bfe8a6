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

package memory

// Copy copies n bytes from src to dst.
//
// When dst and src share the same alignment modulo WordSize, bytes are copied
// until dst is word aligned, then whole words, then the remaining bytes.
// Otherwise the whole range is copied a byte at a time. The ranges must not
// overlap.
func Copy(b Bus, dst, src, n uint32) error {
	if (dst^src)&wordMask == 0 {
		for dst&wordMask != 0 && n > 0 {
			if err := copyByte(b, dst, src); err != nil {
				return err
			}
			dst, src, n = dst+1, src+1, n-1
		}
		for n >= WordSize {
			w, err := b.Read32(src)
			if err != nil {
				return err
			}
			if err := b.Write32(dst, w); err != nil {
				return err
			}
			dst, src, n = dst+WordSize, src+WordSize, n-WordSize
		}
	}
	for n > 0 {
		if err := copyByte(b, dst, src); err != nil {
			return err
		}
		dst, src, n = dst+1, src+1, n-1
	}
	return nil
}

func copyByte(b Bus, dst, src uint32) error {
	v, err := b.Read8(src)
	if err != nil {
		return err
	}
	return b.Write8(dst, v)
}

// Fill sets n bytes starting at dst to v.
//
// Ranges shorter than a word are filled a byte at a time. Longer ranges are
// filled bytewise up to the first word boundary, then with words holding v in
// every lane, then bytewise again for the tail.
func Fill(b Bus, dst uint32, v uint8, n uint32) error {
	if n >= WordSize {
		for dst&wordMask != 0 {
			if err := b.Write8(dst, v); err != nil {
				return err
			}
			dst, n = dst+1, n-1
		}
		w := uint32(v) * 0x01010101
		for n >= WordSize {
			if err := b.Write32(dst, w); err != nil {
				return err
			}
			dst, n = dst+WordSize, n-WordSize
		}
	}
	for n > 0 {
		if err := b.Write8(dst, v); err != nil {
			return err
		}
		dst, n = dst+1, n-1
	}
	return nil
}
