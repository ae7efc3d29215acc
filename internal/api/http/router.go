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

package http

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/hertz-contrib/jwt"

	"jidhr/internal/api/http/middleware"
)

// Router wires handlers and middleware onto a Hertz server.
type Router struct {
	handler    *Handler
	middleware *middleware.Middleware
	auth       *jwt.HertzJWTMiddleware // nil disables auth
}

// NewRouter creates the router. auth may be nil to leave the API open
// (local development).
func NewRouter(handler *Handler, mw *middleware.Middleware, auth *jwt.HertzJWTMiddleware) *Router {
	return &Router{handler: handler, middleware: mw, auth: auth}
}

// Build creates the Hertz server, registers all routes, and returns it.
func (r *Router) Build(addr string, opts ...hertzconfig.Option) *server.Hertz {
	opts = append([]hertzconfig.Option{server.WithHostPorts(addr)}, opts...)
	hertz := server.Default(opts...)

	hertz.Use(r.middleware.CORS())

	hertz.GET("/metrics", r.handler.Metrics)

	api := hertz.Group("/api")
	api.GET("/health", r.handler.Health)

	chat := api.Group("")
	if r.auth != nil {
		api.POST("/login", r.auth.LoginHandler)
		api.GET("/refresh_token", r.auth.RefreshHandler)
		chat.Use(r.auth.MiddlewareFunc())
	}
	chat.POST("/chat", r.handler.Chat)
	chat.POST("/sessions/:id/clear", r.handler.ClearSession)

	return hertz
}
