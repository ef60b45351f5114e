package devkit

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// JSONResponse scripts a successful response with the given JSON body.
func JSONResponse(body string) TransportScript {
	return StatusResponse(http.StatusOK, body)
}

// StatusResponse scripts a response with an explicit status code.
func StatusResponse(status int, body string) TransportScript {
	script := TransportScript{}
	script.Response.StatusCode = status
	script.Response.Headers = map[string]string{"Content-Type": "application/json"}
	script.Response.Body = []byte(body)
	return script
}

// TokenResponse scripts a token endpoint answer carrying accessToken.
func TokenResponse(accessToken string) TransportScript {
	return JSONResponse(MustJSON(map[string]any{
		"access_token": accessToken,
		"token_type":   "bearer",
	}))
}

// Pages scripts one successful response per JSON body, for listings that
// follow a cursor until the provider stops returning one.
func Pages(bodies ...string) []TransportScript {
	scripts := make([]TransportScript, 0, len(bodies))
	for _, body := range bodies {
		scripts = append(scripts, JSONResponse(body))
	}
	return scripts
}

// ErrorResponse scripts a transport level failure.
func ErrorResponse(err error) TransportScript {
	if err == nil {
		err = fmt.Errorf("devkit: scripted transport failure")
	}
	return TransportScript{Err: err}
}

// MustJSON marshals value for use in scripted bodies.
func MustJSON(value any) string {
	payload, err := json.Marshal(value)
	if err != nil {
		panic(fmt.Sprintf("devkit: marshal fixture: %v", err))
	}
	return string(payload)
}
