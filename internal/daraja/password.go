package daraja

import (
	"encoding/base64"
	"time"
)

const timestampLayout = "20060102150405"

// password derives the time-bound push credential the gateway's signature
// scheme requires: base64(shortcode + passkey + timestamp).
func password(shortcode, passkey string, at time.Time) (pw, timestamp string) {
	timestamp = at.Format(timestampLayout)
	pw = base64.StdEncoding.EncodeToString([]byte(shortcode + passkey + timestamp))
	return pw, timestamp
}
