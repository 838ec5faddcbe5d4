package payple

import (
	"encoding/json"
	"strings"
)

// Result is the normalized outcome of one gateway call. The raw payload
// is kept because the gateway's error bodies are the only diagnostic we
// get back.
type Result struct {
	OK      bool
	Code    string
	Message string
	Raw     map[string]any
}

// resultSpec describes how one endpoint signals success. The gateway's
// sub-APIs disagree: partner auth uses a lowercase "result" field with
// the literal "success", the legacy oauth endpoint uses a "T0000"
// sentinel on the same field, and payment endpoints use PCD_PAY_RST.
type resultSpec struct {
	field     string
	sentinel  string // empty means "success" (case-insensitive)
	msgField  string
	codeField string
}

var (
	authResult    = resultSpec{field: "result", msgField: "result_msg", codeField: "result"}
	oauthResult   = resultSpec{field: "result", sentinel: "T0000", msgField: "result_msg", codeField: "result"}
	paymentResult = resultSpec{field: "PCD_PAY_RST", msgField: "PCD_PAY_MSG", codeField: "PCD_PAY_CODE"}
)

func (s resultSpec) normalize(body []byte) Result {
	raw := map[string]any{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Result{OK: false, Message: "unparseable response: " + string(body), Raw: raw}
	}

	value, _ := raw[s.field].(string)
	ok := false
	if s.sentinel != "" {
		ok = value == s.sentinel
	} else {
		ok = strings.EqualFold(value, "success")
	}

	code, _ := raw[s.codeField].(string)
	if code == "" {
		code = value
	}
	msg, _ := raw[s.msgField].(string)

	return Result{OK: ok, Code: code, Message: msg, Raw: raw}
}

func (r Result) str(key string) string {
	v, _ := r.Raw[key].(string)
	return v
}
