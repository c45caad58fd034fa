// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package web_test

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialcamp/campauth/internal/auth"
	"github.com/socialcamp/campauth/internal/auth/memory"
	"github.com/socialcamp/campauth/internal/web"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	hasher := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1})
	svc, err := auth.NewAuthService(memory.NewUserRepository(), memory.NewSessionRegistry(0), hasher)
	require.NoError(t, err)
	h, err := web.NewHandler(svc)
	require.NoError(t, err)

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func post(t *testing.T, c *http.Client, url, body string) *http.Response {
	t.Helper()
	resp, err := c.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func get(t *testing.T, c *http.Client, url string) *http.Response {
	t.Helper()
	resp, err := c.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestCookieSessionLifecycle(t *testing.T) {
	srv := newServer(t)
	client := newClient(t)

	resp := get(t, client, srv.URL+"/auth/users")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, client, srv.URL+"/auth/users",
		`{"email":"Ann@Camp.io","publicId":"ann","password":"correct horse","isMaster":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, client, srv.URL+"/auth/users")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "register signs the user in")

	resp = get(t, client, srv.URL+"/auth/users/signout")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, client, srv.URL+"/auth/users")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, client, srv.URL+"/auth/users/signin", `{"email":"ann@camp.io","password":"wrong horse"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, client, srv.URL+"/auth/users/signin", `{"publicId":"ann","password":"correct horse"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, client, srv.URL+"/auth/users")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	other := newClient(t)
	resp = post(t, other, srv.URL+"/auth/users",
		`{"email":"ANN@camp.io","publicId":"anne","password":"correct horse"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = post(t, other, srv.URL+"/auth/users/duplicatePublicId", `{"publicId":"ann"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
