package middleware

import (
	"crypto/subtle"

	"github.com/valyala/fasthttp"

	"floofy/internal/config"
)

// AdminAuth returns middleware that checks the X-Admin-Token header
// against the configured admin token. With no token configured, every
// admin endpoint answers 404 so the surface is invisible.
func AdminAuth(cfg *config.Config) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			if cfg.AdminToken == "" {
				ctx.SetStatusCode(fasthttp.StatusNotFound)
				return
			}

			token := ctx.Request.Header.Peek("X-Admin-Token")
			if subtle.ConstantTimeCompare(token, []byte(cfg.AdminToken)) != 1 {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("invalid admin token")
				return
			}
			next(ctx)
		}
	}
}
