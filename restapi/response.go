/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-throttle/log"
)

// ContentTypeAppJSON represents MIME media type for JSON.
const ContentTypeAppJSON = "application/json"

// Does JSON marshaling with disabled HTML escaping
func jsonMarshal(v interface{}) ([]byte, error) {
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return buffer.Bytes()[:buffer.Len()-1], nil
}

// RespondJSON sends response with 200 HTTP status code, does JSON marshaling of data and writes result in response's body.
func RespondJSON(rw http.ResponseWriter, respData interface{}, logger log.FieldLogger) {
	RespondCodeAndJSON(rw, http.StatusOK, respData, logger)
}

// RespondCodeAndJSON sends a response with the passed status code and sets the "Content-Type"
// to "application/json" if it's not already set. It performs JSON marshaling of the data and
// writes the result to the response's body.
func RespondCodeAndJSON(rw http.ResponseWriter, statusCode int, respData interface{}, logger log.FieldLogger) {
	if respData == nil {
		rw.WriteHeader(statusCode)
		return
	}

	if rw.Header().Get("Content-Type") == "" {
		rw.Header().Set("Content-Type", ContentTypeAppJSON)
	}

	respJSON, err := jsonMarshal(respData)
	if err != nil {
		if logger != nil {
			logger.Error("error while marshaling json for response body", log.Error(err))
		}
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	rw.WriteHeader(statusCode)
	if _, err = rw.Write(respJSON); err != nil && logger != nil {
		logger.Error("error while writing response body", log.Error(err))
	}
}

// RespondError sets HTTP status code in response and writes error in body in JSON format.
// Also, it logs info (code and message) about error.
func RespondError(rw http.ResponseWriter, httpStatusCode int, err *Error, logger log.FieldLogger) {
	logAndCollectMetricsForError(err, logger)
	RespondCodeAndJSON(rw, httpStatusCode, err, logger)
}

// RespondInternalError sends response with 500 HTTP status code and internal error in body in JSON format.
func RespondInternalError(rw http.ResponseWriter, domain string, logger log.FieldLogger) {
	RespondError(rw, http.StatusInternalServerError, NewInternalError(domain), logger)
}

func logAndCollectMetricsForError(err *Error, logger log.FieldLogger) {
	if logger != nil {
		flds := []log.Field{log.String("error_code", err.Code), log.String("error_message", err.Message)}
		if err.Context != nil {
			ctxLines := make([]string, 0, len(err.Context))
			for k, v := range err.Context {
				ctxLines = append(ctxLines, fmt.Sprintf("%s: %v", k, v))
			}
			sort.Strings(ctxLines)
			flds = append(flds, log.Strings("error_context", ctxLines))
		}
		logger.Error("error in response", flds...)
	}
	if metricsResponseErrors != nil {
		metricsResponseErrors.With(prometheus.Labels{
			metricsLabelResponseErrorDomain: err.Domain,
			metricsLabelResponseErrorCode:   err.Code,
		}).Inc()
	}
}
