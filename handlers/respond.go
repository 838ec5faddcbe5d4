package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"podoMarketAPI/internal/payple"
	"podoMarketAPI/services"
)

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithProviderError maps gateway failures to 502 with the raw
// provider payload attached for diagnosis; anything else is a 500.
func respondWithProviderError(w http.ResponseWriter, err error) {
	var authErr *payple.AuthError
	if errors.As(err, &authErr) {
		respondWithJSON(w, http.StatusBadGateway, map[string]any{
			"error":    authErr.Error(),
			"provider": authErr.Result.Raw,
		})
		return
	}
	var provErr *services.ProviderError
	if errors.As(err, &provErr) {
		respondWithJSON(w, http.StatusBadGateway, map[string]any{
			"error":    provErr.Error(),
			"provider": provErr.Result.Raw,
		})
		return
	}
	respondWithError(w, http.StatusInternalServerError, err.Error())
}

// respondWithRedirect answers a gateway callback with a small HTML
// snippet that bounces the mobile client to its custom URI scheme,
// echoing the payload as query parameters.
func respondWithRedirect(w http.ResponseWriter, clientURI string, fields map[string]string) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(redirectHTML(clientURI, fields)))
}

func redirectHTML(clientURI string, fields map[string]string) string {
	params := url.Values{}
	for k, v := range fields {
		params.Set(k, v)
	}
	return fmt.Sprintf(`<script>location.href = %q;</script>`, clientURI+"?"+params.Encode())
}

// parseCallbackFields flattens a gateway callback body into a string
// map. The gateway posts either a JSON object or form data depending on
// the payment window.
func parseCallbackFields(r *http.Request) (map[string]string, error) {
	fields := map[string]string{}

	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		// UseNumber keeps numeric fields in their literal form; the
		// default float64 decoding turns large totals into "1e+07".
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var raw map[string]any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode callback body: %w", err)
		}
		for k, v := range raw {
			fields[k] = fmt.Sprintf("%v", v)
		}
		return fields, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse callback form: %w", err)
	}
	for k := range r.PostForm {
		fields[k] = r.PostForm.Get(k)
	}
	return fields, nil
}
