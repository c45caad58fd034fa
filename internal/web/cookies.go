// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package web

import (
	"net/http"
	"strconv"

	"github.com/socialcamp/campauth/internal/auth"
)

// Cookie names shared with the front end.
const (
	CookiePublicID = "publicId"
	CookieIsMaster = "isMaster"
)

func (h *Handler) setIdentityCookies(w http.ResponseWriter, id *auth.Identity) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookiePublicID,
		Value:    id.PublicID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	// isMaster is read by the front end to toggle camp-master UI.
	http.SetCookie(w, &http.Cookie{
		Name:     CookieIsMaster,
		Value:    strconv.FormatBool(id.IsMaster),
		Path:     "/",
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearIdentityCookies(w http.ResponseWriter) {
	for _, name := range []string{CookiePublicID, CookieIsMaster} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: name == CookiePublicID,
			Secure:   h.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// publicIDFrom returns the publicId cookie value, or "" when absent.
func publicIDFrom(r *http.Request) string {
	c, err := r.Cookie(CookiePublicID)
	if err != nil {
		return ""
	}
	return c.Value
}
