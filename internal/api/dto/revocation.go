package dto

import "github.com/remiblancher/signpdfkit/pkg/revocation"

// RevocationCollectRequest asks the server to fetch evidence for items
// as the sign workflow would.
type RevocationCollectRequest struct {
	CMS   string            `json:"cms"`
	Items []revocation.Item `json:"items"`
}

// RevocationCollectResponse is the assembled bundle plus the reasons
// dropped items failed.
type RevocationCollectResponse struct {
	Bundle *revocation.Bundle `json:"bundle"`
	Failed []FailedItem       `json:"failed,omitempty"`
}

// FailedItem is one item that produced no evidence.
type FailedItem struct {
	Kind  string `json:"kind"`
	URL   string `json:"url"`
	Error string `json:"error"`
}
