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

// image_server stores packed flash images and serves them to flash tools.
//
// Usage:
//   go run ./cmd/image_server --logtostderr --db_driver=sqlite3 --db_dsn=/tmp/images.db
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/golang/glog"
	"github.com/google/rwinit/cmd/image_server/impl"
)

var (
	listenAddr = flag.String("listen", ":8000", "address:port to listen for requests on")
	dbDriver   = flag.String("db_driver", "sqlite3", "Database driver, one of [sqlite3, mysql]")
	dbDSN      = flag.String("db_dsn", "", "Data source name of the image database")
)

func main() {
	flag.Parse()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := impl.Main(ctx, impl.ServerOpts{
		ListenAddr: *listenAddr,
		DBDriver:   *dbDriver,
		DBDSN:      *dbDSN,
	}); err != nil {
		glog.Exitf("image server: %v", err)
	}
}
