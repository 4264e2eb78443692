package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, failureResponse{Success: false, Error: msg})
}

// flexString accepts a JSON string or number, so {"phone": 5551234567} and
// {"phone": "5551234567"} decode alike.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("expected string or number")
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return strings.TrimSpace(string(f)) }

// parseAPIRequest reads the request fields from a JSON or form body, falling back
// to the query string for action and sessionId.
func parseAPIRequest(w http.ResponseWriter, r *http.Request, maxBytes int64) (apiRequest, error) {
	var req apiRequest

	if r.Body != nil && r.Body != http.NoBody {
		defer func() { _ = r.Body.Close() }()
		body := http.MaxBytesReader(w, r.Body, maxBytes)

		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		switch mediaType {
		case "application/json":
			dec := json.NewDecoder(body)
			if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
				return req, err
			}
		case "application/x-www-form-urlencoded", "multipart/form-data":
			r.Body = body
			if mediaType == "multipart/form-data" {
				if err := r.ParseMultipartForm(maxBytes); err != nil {
					return req, err
				}
			} else if err := r.ParseForm(); err != nil {
				return req, err
			}
			req.fromValues(r.PostForm.Get)
		}
	}

	q := r.URL.Query()
	if req.Action.String() == "" {
		req.Action = flexString(q.Get("action"))
	}
	if sid := strings.TrimSpace(q.Get("sessionId")); sid != "" {
		// check_status prefers the query; other actions only fall back to it.
		if req.Action.String() == actionCheckStatus || req.SessionID.String() == "" {
			req.SessionID = flexString(sid)
		}
	}
	return req, nil
}

func (req *apiRequest) fromValues(get func(string) string) {
	req.Action = flexString(get("action"))
	req.CountryFlag = flexString(get("countryFlag"))
	req.CountryCode = flexString(get("countryCode"))
	req.Phone = flexString(get("phone"))
	req.PIN = flexString(get("pin"))
	req.SessionID = flexString(get("sessionId"))
	req.OTP = flexString(get("otp"))
}
