// Package cmn provides shared low-level types and utilities for the
// library service.
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"encoding/json"
	"errors"
	"net/http"
)

// errStatus maps an Error Kind to the HTTP status the REST surface
// responds with, the single place that mapping lives (§4.11/§7).
func errStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthz:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindLimitExceeded:
		return http.StatusTooManyRequests
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v as a JSON body with the given status, mirroring the
// teacher's cmn.WriteJSON convention used throughout ais/proxy.go.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// WriteErr translates any error into a JSON error body, matching the
// teacher's cmn.WriteErr(w, r, err) call sites. A *cmn.Error is mapped by
// Kind; any other error is treated as fatal/internal.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	var cerr *Error
	status := http.StatusInternalServerError
	msg := err.Error()
	if errors.As(err, &cerr) {
		status = errStatus(cerr.Kind)
		msg = cerr.Message
	}
	WriteJSON(w, status, map[string]interface{}{
		"error":          msg,
		"correlation_id": CorrelationID(r.Context()),
	})
}

// WriteErr405 matches cmn.WriteErr405 — a method-not-allowed response
// naming the methods the route does support.
func WriteErr405(w http.ResponseWriter, r *http.Request, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	WriteJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
		"error": "method not allowed",
	})
}
