package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

const (
	// SubscriptionLimitReached is the detail.error value the backend returns
	// with 402 when the usage quota is exhausted.
	SubscriptionLimitReached = "SUBSCRIPTION_LIMIT_REACHED"

	unauthorizedMessage = "Unauthorized"
	defaultErrorMessage = "API Request Failed"
)

var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrSubscriptionLimit = errors.New("subscription limit reached")
)

// RequestError is returned for every failed call: non-2xx responses,
// transport failures and undecodable bodies. Message is the human-readable
// text a caller shows to the user.
type RequestError struct {
	// StatusCode is zero for transport failures.
	StatusCode int
	Status     string
	Message    string
	// Detail holds the decoded "detail" field of the error body, if any.
	Detail any
	Err    error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// errorPayload is the FastAPI-shaped error body.
type errorPayload map[string]any

func parseErrorPayload(data []byte) (errorPayload, bool) {
	var payload errorPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload == nil {
		return nil, false
	}

	return payload, true
}

// subscriptionLimit reports whether detail.error carries the quota sentinel.
func (p errorPayload) subscriptionLimit() bool {
	detail, ok := p["detail"].(map[string]any)
	if !ok {
		return false
	}

	code, _ := detail["error"].(string)
	return code == SubscriptionLimitReached
}

// message picks the error text: string detail, then detail.msg or the whole
// detail serialized, then top-level message. Empty when none applies.
func (p errorPayload) message() string {
	switch detail := p["detail"].(type) {
	case string:
		return detail
	case map[string]any:
		if msg, ok := detail["msg"].(string); ok && msg != "" {
			return msg
		}
		return serialize(detail)
	case []any:
		return serialize(detail)
	}

	if msg, ok := p["message"].(string); ok && msg != "" {
		return msg
	}

	return ""
}

func serialize(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// statusText strips the numeric code from resp.Status ("404 Not Found").
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

// newStatusError builds the error for a non-2xx, non-401 response.
func newStatusError(resp *http.Response, data []byte) *RequestError {
	reqErr := &RequestError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}

	payload, ok := parseErrorPayload(data)
	if ok {
		reqErr.Detail = payload["detail"]
		reqErr.Message = payload.message()
		if resp.StatusCode == http.StatusPaymentRequired && payload.subscriptionLimit() {
			reqErr.Err = ErrSubscriptionLimit
		}
	}

	if reqErr.Message == "" {
		reqErr.Message = statusText(resp)
	}

	if reqErr.Message == "" {
		reqErr.Message = defaultErrorMessage
	}

	return reqErr
}
