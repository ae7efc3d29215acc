// Copyright 2026 the Jidhr authors
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

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jidhr/internal/app"
	"jidhr/internal/app/api"
	"jidhr/pkg/config"
)

func main() {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	bootstrap, err := app.NewBootstrap(cfg)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}
	if missing := cfg.Validate(); len(missing) > 0 {
		bootstrap.Logger.Warn("missing credentials", "names", missing)
	}

	application, err := api.NewApp(bootstrap)
	if err != nil {
		log.Fatalf("create api app failed: %v", err)
	}

	addr := ":8080"
	if cfg.API.Port > 0 {
		host := cfg.API.Host
		addr = fmt.Sprintf("%s:%d", host, cfg.API.Port)
	}

	go func() {
		if err := application.Run(addr); err != nil {
			log.Printf("api server exited: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := application.Shutdown(ctx); err != nil {
		log.Printf("shutdown failed: %v", err)
	}
	log.Println("api server stopped")
}
