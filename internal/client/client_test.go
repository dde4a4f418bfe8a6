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

package client

import (
	"context"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/rwinit/api"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newClient(t *testing.T, h http.HandlerFunc) ImageClient {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	u, err := url.Parse(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	return ImageClient{URL: u, HTTP: ts.Client()}
}

func TestGetImage(t *testing.T) {
	image := []byte("image")
	hash := sha512.Sum512(image)
	for _, test := range []struct {
		desc     string
		status   int
		wantCode codes.Code
	}{
		{desc: "ok", status: http.StatusOK, wantCode: codes.OK},
		{desc: "not found", status: http.StatusNotFound, wantCode: codes.NotFound},
		{desc: "server error", status: http.StatusInternalServerError, wantCode: codes.Internal},
	} {
		t.Run(test.desc, func(t *testing.T) {
			var gotPath string
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.WriteHeader(test.status)
				w.Write(image)
			})
			got, err := c.GetImage(context.Background(), hash[:])
			if code := status.Code(err); code != test.wantCode {
				t.Fatalf("GetImage: %v, want code %v", err, test.wantCode)
			}
			if wantPath := fmt.Sprintf("/%s/%x", api.HTTPGetImage, hash); gotPath != wantPath {
				t.Errorf("requested %q, want %q", gotPath, wantPath)
			}
			if err == nil && string(got) != string(image) {
				t.Errorf("GetImage() = %q, want %q", got, image)
			}
		})
	}
}

func TestGetSegments(t *testing.T) {
	want := []api.SegmentInfo{{Index: 0, Method: api.MethodRunLengthZero, VMA: 0x20000000, LMA: 0x08000040, TotalSize: 12, BSSSize: 4, StoredSize: 6}}
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"Index":0,"Method":"ZERO_RLE","VMA":536870912,"LMA":134217792,"TotalSize":12,"BSSSize":4,"StoredSize":6}]`)
	})
	got, err := c.GetSegments(context.Background(), []byte{1})
	if err != nil {
		t.Fatalf("GetSegments: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("segments differ (-want +got):\n%s", diff)
	}
}

func TestAddImage(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/"+api.HTTPAddImage {
			http.Error(w, "wrong endpoint", http.StatusNotFound)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if len(r.MultipartForm.File["machine"]) != 1 || len(r.MultipartForm.File["image"]) != 1 {
			http.Error(w, "missing parts", http.StatusBadRequest)
			return
		}
		io.WriteString(w, `{"SHA512":"AQI=","Size":2}`)
	})
	info, err := c.AddImage(context.Background(), []byte("format: flat"), []byte{1, 2})
	if err != nil {
		t.Fatalf("AddImage: %v", err)
	}
	if diff := cmp.Diff(api.ImageInfo{SHA512: []byte{1, 2}, Size: 2}, info); diff != "" {
		t.Errorf("info differs (-want +got):\n%s", diff)
	}
}

func TestRetryable(t *testing.T) {
	for _, test := range []struct {
		err  error
		want bool
	}{
		{err: errors.New("connection refused"), want: true},
		{err: status.Error(codes.Unavailable, "later"), want: true},
		{err: status.Error(codes.NotFound, "never"), want: false},
		{err: status.Error(codes.InvalidArgument, "bad"), want: false},
	} {
		if got := Retryable(test.err); got != test.want {
			t.Errorf("Retryable(%v) = %t, want %t", test.err, got, test.want)
		}
	}
}
