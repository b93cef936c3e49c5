package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/server"
)

func encodeRequestBody(body any) (io.Reader, error) {
	if body == nil {
		return nil, nil
	}
	if payload, ok := body.(resource.Payload); ok && payload == nil {
		return nil, nil
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, validationError("failed to encode request body", err)
	}
	return bytes.NewReader(encoded), nil
}

// decodeJSONResponse returns nil for an empty body, as answered by some
// mutating endpoints.
func decodeJSONResponse(body []byte) (resource.Payload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	return resource.DecodePayload(body)
}

func decodeAnyJSON(body []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, server.NewListPayloadShapeError("list response is not valid JSON", err)
	}
	return resource.Normalize(value)
}

func classifyStatusError(method string, requestPath string, status int, body []byte) error {
	message := fmt.Sprintf("%s %s returned status %d", method, normalizeRequestPath(requestPath), status)
	if summary := summarizeBody(body); summary != "" {
		message += ": " + summary
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return authError(message, nil)
	case status == http.StatusNotFound:
		return notFoundError(message, nil)
	case status == http.StatusConflict:
		return conflictError(message, nil)
	case status >= 400 && status < 500:
		return validationError(message, nil)
	default:
		return transportError(message, nil)
	}
}

func summarizeBody(body []byte) string {
	const limit = 512

	text := strings.TrimSpace(string(body))
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
