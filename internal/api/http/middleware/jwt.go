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

package middleware

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/hertz-contrib/jwt"
)

// JWTConfig configures the staff login gate.
type JWTConfig struct {
	Key           string
	Timeout       time.Duration
	MaxRefresh    time.Duration
	AdminUser     string
	AdminPassword string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

const identityKey = "user"

// NewJWTAuth builds the JWT middleware: POST /api/login issues tokens for
// the configured staff credentials; protected routes require a bearer token.
func NewJWTAuth(config JWTConfig) (*jwt.HertzJWTMiddleware, error) {
	if config.Timeout <= 0 {
		config.Timeout = time.Hour
	}
	if config.MaxRefresh <= 0 {
		config.MaxRefresh = 24 * time.Hour
	}

	return jwt.New(&jwt.HertzJWTMiddleware{
		Realm:       "jidhr",
		Key:         []byte(config.Key),
		Timeout:     config.Timeout,
		MaxRefresh:  config.MaxRefresh,
		IdentityKey: identityKey,
		PayloadFunc: func(data interface{}) jwt.MapClaims {
			if username, ok := data.(string); ok {
				return jwt.MapClaims{identityKey: username}
			}
			return jwt.MapClaims{}
		},
		IdentityHandler: func(ctx context.Context, c *app.RequestContext) interface{} {
			claims := jwt.ExtractClaims(ctx, c)
			return claims[identityKey]
		},
		Authenticator: func(ctx context.Context, c *app.RequestContext) (interface{}, error) {
			var request loginRequest
			if err := c.BindAndValidate(&request); err != nil {
				return nil, jwt.ErrMissingLoginValues
			}
			if request.Username == config.AdminUser && request.Password == config.AdminPassword &&
				config.AdminUser != "" {
				return request.Username, nil
			}
			return nil, jwt.ErrFailedAuthentication
		},
		Unauthorized: func(ctx context.Context, c *app.RequestContext, code int, message string) {
			c.JSON(code, utils.H{"error": message})
		},
	})
}
