/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-throttle/restapi"
)

func requireAPIErrorInRecorder(t *testing.T, resp *httptest.ResponseRecorder, wantStatus int, wantDomain, wantCode string) {
	t.Helper()
	require.Equal(t, wantStatus, resp.Code)
	require.Equal(t, restapi.ContentTypeAppJSON, resp.Header().Get("Content-Type"))
	var apiErr restapi.Error
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &apiErr))
	require.Equal(t, wantDomain, apiErr.Domain)
	require.Equal(t, wantCode, apiErr.Code)
}
