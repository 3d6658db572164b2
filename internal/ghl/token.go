package ghl

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// extractLocationID pulls the location_id claim out of a GoHighLevel JWT
// access token. The signature is not verified; the claim is only used as a
// query parameter hint and the API rejects bad tokens on its own. Returns ""
// for non-JWT tokens.
func extractLocationID(token string) string {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return ""
	}
	var claims struct {
		LocationID string `json:"location_id"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return ""
	}
	return claims.LocationID
}
