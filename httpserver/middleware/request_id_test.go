/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNextHandler struct {
	called  int
	request *http.Request
}

func (h *mockNextHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	h.called++
	h.request = r
}

func TestRequestIDHandler_ServeHTTP(t *testing.T) {
	const genExtReqID = "generated-external-request-id"
	const genIntReqID = "generated-internal-request-id"

	reqIDOpts := RequestIDOpts{
		GenerateID:         func() string { return genExtReqID },
		GenerateInternalID: func() string { return genIntReqID },
	}

	tests := []struct {
		name          string
		headerReqID   string
		wantExtReqID  string
		wantIntReqID  string
		reqIDOpts     RequestIDOpts
		checkXIDValid bool
	}{
		{
			name:         "external request id is taken from request",
			headerReqID:  "header-request-id",
			wantExtReqID: "header-request-id",
			wantIntReqID: genIntReqID,
			reqIDOpts:    reqIDOpts,
		},
		{
			name:         "external request id is generated",
			wantExtReqID: genExtReqID,
			wantIntReqID: genIntReqID,
			reqIDOpts:    reqIDOpts,
		},
		{
			name:          "ids are generated with xid by default",
			checkXIDValid: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &mockNextHandler{}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.headerReqID != "" {
				req.Header.Set(headerRequestID, tt.headerReqID)
				req.Header.Set(headerInternalRequestID, tt.headerReqID)
			}
			resp := httptest.NewRecorder()
			RequestIDWithOpts(tt.reqIDOpts)(next).ServeHTTP(resp, req)

			require.Equal(t, 1, next.called)
			extReqID := GetRequestIDFromContext(next.request.Context())
			intReqID := GetInternalRequestIDFromContext(next.request.Context())
			assert.Equal(t, extReqID, resp.Header().Get(headerRequestID))
			assert.Equal(t, intReqID, resp.Header().Get(headerInternalRequestID))

			if tt.checkXIDValid {
				_, err := xid.FromString(extReqID)
				assert.NoError(t, err)
				_, err = xid.FromString(intReqID)
				assert.NoError(t, err)
				assert.NotEqual(t, extReqID, intReqID)
				return
			}
			assert.Equal(t, tt.wantExtReqID, extReqID)
			assert.Equal(t, tt.wantIntReqID, intReqID)
		})
	}
}
