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

// Package http contains the handlers of the image server, which stores packed
// flash images and lets devices fetch them.
package http

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/google/rwinit/api"
	"github.com/google/rwinit/internal/config"
	"github.com/gorilla/mux"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MaxMappedSize bounds the memory map of machine configs the server accepts,
// since checking an image means building that machine.
const MaxMappedSize = 64 << 20

// ImageStore is the interface to the content addressable store for images.
type ImageStore interface {
	// Store puts the image and its machine config under the key.
	Store(ctx context.Context, key, image, machine []byte) error

	// Retrieve gets an image and machine config that were previously stored.
	// Must return status code NotFound if no such image exists.
	Retrieve(ctx context.Context, key []byte) ([]byte, []byte, error)
}

// Server is the core handler implementation of the image server.
type Server struct {
	s ImageStore
}

// NewServer creates a new server backed by the given store.
func NewServer(s ImageStore) *Server {
	return &Server{
		s: s,
	}
}

// addImage handles requests to store new images.
// It expects a mime/multipart POST consisting of the machine config and then
// the flash image.
func (s *Server) addImage(w http.ResponseWriter, r *http.Request) {
	rawMachine, image, err := parseAddImageRequest(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to parse request: %q", err.Error()), http.StatusBadRequest)
		return
	}
	m, err := config.Parse(rawMachine)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Refuse images whose load table cannot be read back.
	ds, err := Segments(m, image)
	if err != nil {
		http.Error(w, fmt.Sprintf("image has no usable load table: %v", err), http.StatusBadRequest)
		return
	}
	glog.V(1).Infof("Got %d byte image with %d segments", len(image), len(ds))

	h := sha512.Sum512(image)
	if err := s.s.Store(r.Context(), h[:], image, rawMachine); err != nil {
		http.Error(w, fmt.Sprintf("failed to store image: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, api.ImageInfo{SHA512: h[:], Size: len(image)})
}

// parseAddImageRequest returns the bytes for the machine config and the
// flash image respectively.
func parseAddImageRequest(r *http.Request) ([]byte, []byte, error) {
	h := r.Header["Content-Type"]
	if len(h) == 0 {
		return nil, nil, fmt.Errorf("no content-type header")
	}

	mediaType, mediaParams, err := mime.ParseMediaType(h[0])
	if err != nil {
		return nil, nil, err
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, nil, fmt.Errorf("expecting mime multipart body")
	}
	boundary := mediaParams["boundary"]
	if len(boundary) == 0 {
		return nil, nil, fmt.Errorf("invalid mime multipart header - no boundary specified")
	}
	mr := multipart.NewReader(r.Body, boundary)

	p, err := mr.NextPart()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find machine config in request body: %v", err)
	}
	machine, err := io.ReadAll(p)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read body of machine config: %v", err)
	}

	p, err = mr.NextPart()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find flash image in request body: %v", err)
	}
	image, err := io.ReadAll(p)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read body of flash image: %v", err)
	}
	return machine, image, nil
}

// retrieve looks up the image named by the hash path parameter, writing an
// error response and returning false if that fails.
func (s *Server) retrieve(w http.ResponseWriter, r *http.Request) ([]byte, []byte, bool) {
	hash, err := hex.DecodeString(mux.Vars(r)["hash"])
	if err != nil || len(hash) != sha512.Size {
		http.Error(w, "hash should be a hex encoded SHA-512", http.StatusBadRequest)
		return nil, nil, false
	}
	image, machine, err := s.s.Retrieve(r.Context(), hash)
	if err != nil {
		glog.Warningf("failed to retrieve image %x: %v", hash, err)
		http.Error(w, err.Error(), httpForCode(status.Code(err)))
		return nil, nil, false
	}
	return image, machine, true
}

// getImage returns a flash image stored in the CAS.
func (s *Server) getImage(w http.ResponseWriter, r *http.Request) {
	image, _, ok := s.retrieve(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/binary")
	w.Header().Set("Content-Length", strconv.Itoa(len(image)))
	if _, err := w.Write(image); err != nil {
		glog.Errorf("w.Write(): %v", err)
	}
}

// getMachine returns the machine config an image was packed for.
func (s *Server) getMachine(w http.ResponseWriter, r *http.Request) {
	_, machine, ok := s.retrieve(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	if _, err := w.Write(machine); err != nil {
		glog.Errorf("w.Write(): %v", err)
	}
}

// getSegments returns the load table of an image.
func (s *Server) getSegments(w http.ResponseWriter, r *http.Request) {
	image, rawMachine, ok := s.retrieve(w, r)
	if !ok {
		return
	}
	m, err := config.Parse(rawMachine)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	ds, err := Segments(m, image)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	infos := make([]api.SegmentInfo, 0, len(ds))
	for i, d := range ds {
		infos = append(infos, api.SegmentInfoFromDescriptor(i, d))
	}
	writeJSON(w, infos)
}

// Segments programs image into the flash of machine m and reads back its
// load table without loading anything.
func Segments(m *config.Machine, image []byte) ([]api.Descriptor, error) {
	if n := m.MappedSize(); n > MaxMappedSize {
		return nil, fmt.Errorf("machine maps %d bytes, more than the %d allowed", n, MaxMappedSize)
	}
	ram, err := m.NewRAM()
	if err != nil {
		return nil, err
	}
	if err := ram.Program(m.ImageBase, image); err != nil {
		return nil, fmt.Errorf("image does not fit at 0x%08x: %w", m.ImageBase, err)
	}
	f, err := m.TableFormat()
	if err != nil {
		return nil, err
	}
	return f.List(ram, m.TableAddress)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	js, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(js); err != nil {
		glog.Errorf("w.Write(): %v", err)
	}
}

// RegisterHandlers registers HTTP handlers for the image server endpoints.
func (s *Server) RegisterHandlers(r *mux.Router) {
	hash := "{hash:[0-9a-fA-F]+}"
	r.HandleFunc(fmt.Sprintf("/%s", api.HTTPAddImage), s.addImage).Methods("POST")
	r.HandleFunc(fmt.Sprintf("/%s/%s", api.HTTPGetImage, hash), s.getImage).Methods("GET")
	r.HandleFunc(fmt.Sprintf("/%s/%s", api.HTTPGetMachine, hash), s.getMachine).Methods("GET")
	r.HandleFunc(fmt.Sprintf("/%s/%s", api.HTTPGetSegments, hash), s.getSegments).Methods("GET")
}

func httpForCode(c codes.Code) int {
	switch c {
	case codes.NotFound:
		return http.StatusNotFound
	case codes.InvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
