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

package http_test

//go:generate mockgen -write_package_comment=false -self_package github.com/google/rwinit/internal/http_test -package http_test -destination mock_store_test.go github.com/google/rwinit/internal/http ImageStore

import (
	"bytes"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/rwinit/api"
	ihttp "github.com/google/rwinit/internal/http"
	"github.com/google/rwinit/table"
	"github.com/gorilla/mux"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const machineYAML = `byte_order: little
format: flat
image_base: 0x08000000
table_address: 0x08000000
entry: 0x08000101
flash_region: flash
regions:
  - name: flash
    base: 0x08000000
    size: 0x1000
    read_only: true
  - name: sram
    base: 0x20000000
    size: 0x100
`

func testImage(t *testing.T) []byte {
	t.Helper()
	img, err := table.Format{Kind: table.FlatTable}.Build(0x08000000, []table.Segment{
		{Method: api.MethodVerbatim, VMA: 0x20000000, TotalSize: 8, Payload: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{Method: api.MethodZero, VMA: 0x20000010, TotalSize: 16},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return img.Data
}

func createTestEnv(s ihttp.ImageStore) (*httptest.Server, func()) {
	r := mux.NewRouter()
	server := ihttp.NewServer(s)
	server.RegisterHandlers(r)
	ts := httptest.NewServer(r)
	return ts, ts.Close
}

func multipartBody(t *testing.T, parts ...[]byte) (*bytes.Buffer, string) {
	t.Helper()
	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	for i, p := range parts {
		pw, err := w.CreateFormFile(fmt.Sprintf("part%d", i), fmt.Sprintf("part%d", i))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := pw.Write(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &b, w.FormDataContentType()
}

func TestAddImage(t *testing.T) {
	image := testImage(t)
	hash := sha512.Sum512(image)
	for _, test := range []struct {
		desc       string
		parts      [][]byte
		plain      bool
		wantStore  bool
		storeErr   error
		wantStatus int
	}{
		{
			desc:       "not multipart",
			plain:      true,
			parts:      [][]byte{[]byte("garbage")},
			wantStatus: http.StatusBadRequest,
		}, {
			desc:       "missing image",
			parts:      [][]byte{[]byte(machineYAML)},
			wantStatus: http.StatusBadRequest,
		}, {
			desc:       "bad machine",
			parts:      [][]byte{[]byte("format: tree\n"), image},
			wantStatus: http.StatusBadRequest,
		}, {
			desc:       "no load table",
			parts:      [][]byte{[]byte(machineYAML), []byte("not a table")},
			wantStatus: http.StatusBadRequest,
		}, {
			desc:       "memory map too large",
			parts:      [][]byte{[]byte(strings.Replace(machineYAML, "size: 0x100\n", "size: 0xC0000000\n", 1)), image},
			wantStatus: http.StatusBadRequest,
		}, {
			desc:       "valid request",
			parts:      [][]byte{[]byte(machineYAML), image},
			wantStore:  true,
			wantStatus: http.StatusOK,
		}, {
			desc:       "store failure",
			parts:      [][]byte{[]byte(machineYAML), image},
			wantStore:  true,
			storeErr:   errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			s := NewMockImageStore(ctrl)
			if test.wantStore {
				s.EXPECT().Store(gomock.Any(), gomock.Eq(hash[:]), gomock.Eq(image), gomock.Eq([]byte(machineYAML))).Return(test.storeErr)
			}
			ts, close := createTestEnv(s)
			defer close()

			var (
				body io.Reader
				ct   string
			)
			if test.plain {
				body, ct = bytes.NewReader(test.parts[0]), "application/octet-stream"
			} else {
				body, ct = multipartBody(t, test.parts...)
			}
			resp, err := ts.Client().Post(fmt.Sprintf("%s/%s", ts.URL, api.HTTPAddImage), ct, body)
			if err != nil {
				t.Fatalf("error response: %v", err)
			}
			defer resp.Body.Close()
			if got, want := resp.StatusCode, test.wantStatus; got != want {
				t.Fatalf("status code got != want (%d, %d)", got, want)
			}
			if resp.StatusCode != http.StatusOK {
				return
			}
			var info api.ImageInfo
			if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if diff := cmp.Diff(api.ImageInfo{SHA512: hash[:], Size: len(image)}, info); diff != "" {
				t.Errorf("response differs (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGet(t *testing.T) {
	image := testImage(t)
	hash := sha512.Sum512(image)
	segs, err := json.Marshal([]api.SegmentInfo{
		{Index: 0, Method: api.MethodVerbatim, VMA: 0x20000000, LMA: 0x08000030, TotalSize: 8},
		{Index: 1, Method: api.MethodZero, VMA: 0x20000010, TotalSize: 16},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range []struct {
		desc       string
		path       string
		hash       string
		found      bool
		retrieve   bool
		wantStatus int
		wantBody   []byte
	}{
		{
			desc:       "image",
			path:       api.HTTPGetImage,
			hash:       hex.EncodeToString(hash[:]),
			found:      true,
			retrieve:   true,
			wantStatus: http.StatusOK,
			wantBody:   image,
		}, {
			desc:       "machine",
			path:       api.HTTPGetMachine,
			hash:       hex.EncodeToString(hash[:]),
			found:      true,
			retrieve:   true,
			wantStatus: http.StatusOK,
			wantBody:   []byte(machineYAML),
		}, {
			desc:       "segments",
			path:       api.HTTPGetSegments,
			hash:       hex.EncodeToString(hash[:]),
			found:      true,
			retrieve:   true,
			wantStatus: http.StatusOK,
			wantBody:   segs,
		}, {
			desc:       "not found",
			path:       api.HTTPGetImage,
			hash:       hex.EncodeToString(hash[:]),
			retrieve:   true,
			wantStatus: http.StatusNotFound,
		}, {
			desc:       "short hash",
			path:       api.HTTPGetImage,
			hash:       "abcd",
			wantStatus: http.StatusBadRequest,
		}, {
			desc:       "not hex",
			path:       api.HTTPGetSegments,
			hash:       "xyz",
			wantStatus: http.StatusNotFound,
		},
	} {
		t.Run(test.desc, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			s := NewMockImageStore(ctrl)
			if test.retrieve {
				if test.found {
					s.EXPECT().Retrieve(gomock.Any(), gomock.Eq(hash[:])).Return(image, []byte(machineYAML), nil)
				} else {
					s.EXPECT().Retrieve(gomock.Any(), gomock.Eq(hash[:])).Return(nil, nil, status.Error(codes.NotFound, "nope"))
				}
			}
			ts, close := createTestEnv(s)
			defer close()

			resp, err := ts.Client().Get(fmt.Sprintf("%s/%s/%s", ts.URL, test.path, test.hash))
			if err != nil {
				t.Fatalf("error response: %v", err)
			}
			defer resp.Body.Close()
			if got, want := resp.StatusCode, test.wantStatus; got != want {
				t.Fatalf("status code got != want (%d, %d)", got, want)
			}
			if test.wantBody == nil {
				return
			}
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("failed to read body: %v", err)
			}
			if diff := cmp.Diff(test.wantBody, body); diff != "" {
				t.Errorf("body differs (-want +got):\n%s", diff)
			}
		})
	}
}
