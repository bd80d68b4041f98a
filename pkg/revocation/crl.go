package revocation

import (
	"bytes"
	"encoding/base64"
	"strings"
)

// pemCRLMarker identifies a PEM wrapped CRL body.
const pemCRLMarker = "BEGIN X509 CRL"

// ExtractCRLDER returns the DER bytes of a CRL download.
//
// Distribution points serve either DER or PEM. For PEM, every line that
// starts with the "---" delimiter is dropped and the remaining lines are
// concatenated and base64 decoded. If decoding fails the body is returned
// unchanged.
func ExtractCRLDER(content []byte) []byte {
	if !bytes.Contains(content, []byte(pemCRLMarker)) {
		return content
	}

	var body strings.Builder
	for _, line := range strings.Split(string(content), "\n") {
		if strings.HasPrefix(line, "---") {
			continue
		}
		body.WriteString(strings.TrimSpace(line))
	}

	der, err := base64.StdEncoding.DecodeString(body.String())
	if err != nil {
		return content
	}
	return der
}
