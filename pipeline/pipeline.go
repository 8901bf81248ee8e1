// Package pipeline wires the per-request middleware every ais/ handler
// runs behind: correlation id propagation, Accept-version negotiation,
// and bearer-token authentication (§4.11). Grounded on the teacher's
// cmn/urlpaths.go (version parsing) and the request-handling prologue
// every ais proxy handler repeats inline (parseAPIBckObj and friends),
// generalized here into reusable net/http middleware instead of being
// duplicated per handler.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package pipeline

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/nicolaslallier/Beacon-Library-sub000/authn"
	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

// Product is the media-type product token this service's Accept-version
// negotiation checks for: "vnd.library.v<N>+json".
const Product = "library"

// SupportedVersions lists the API versions this build understands;
// AcceptVersion rejects anything else with a typed validation error.
var SupportedVersions = map[int]bool{1: true}

type identityCtxKey int

const idKey identityCtxKey = iota

// Middleware is a net/http middleware function, matching the teacher's
// handler-wrapping convention (proxy/target register plain http.HandlerFunc
// and chain concerns by composition rather than via a third-party router).
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares in the order given, outermost first.
func Chain(h http.Handler, mw ...Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// WithCorrelation assigns every request a correlation id, from the
// inbound header if present, minted otherwise, and logs it on the
// response (§4.11).
func WithCorrelation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Correlation-ID")
		if id == "" {
			id = cmn.NewCorrelationID()
		}
		w.Header().Set("X-Correlation-ID", id)
		ctx := cmn.WithCorrelationID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithVersion parses the Accept header's vnd.library.vN+json parameter,
// rejecting unsupported versions with a 400. A request with no such
// parameter is treated as the latest supported version (lenient default
// for browsers/tools that never set a custom Accept type).
func WithVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept := r.Header.Get("Accept")
		if n, ok := cmn.AcceptVersion(accept, Product); ok {
			if !SupportedVersions[n] {
				cmn.WriteErr(w, r, cmn.NewError(cmn.KindValidation, "unsupported API version %d", n))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// WithAuth validates the Authorization bearer token and stores the
// decoded Identity in the request context for downstream handlers.
func WithAuth(v *authn.Validator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.ValidateBearer(r.Header.Get("Authorization"))
			if err != nil {
				cmn.WriteErr(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), idKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFrom retrieves the Identity WithAuth placed in the request
// context. Handlers call this rather than re-parsing the header.
func IdentityFrom(ctx context.Context) *authn.Identity {
	id, _ := ctx.Value(idKey).(*authn.Identity)
	return id
}

// Log is a thin access-log middleware in the teacher's zerolog idiom,
// emitted after the handler completes so it can report the resolved
// correlation id.
func Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("correlation_id", cmn.CorrelationID(r.Context())).
			Msg("request")
	})
}
