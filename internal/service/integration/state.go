package integration

import (
	"encoding/base64"
	"encoding/json"

	"github.com/google/uuid"

	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
)

// OAuthState rides through the provider's authorization redirect and
// comes back on the callback, tying the code exchange to the org and
// user that initiated it.
type OAuthState struct {
	OrganizationID uuid.UUID `json:"org_id"`
	UserID         uuid.UUID `json:"user_id"`
}

func EncodeState(orgID, userID uuid.UUID) string {
	raw, _ := json.Marshal(OAuthState{OrganizationID: orgID, UserID: userID})
	return base64.URLEncoding.EncodeToString(raw)
}

func DecodeState(encoded string) (*OAuthState, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperrors.BadRequest("invalid oauth state", err)
	}
	var state OAuthState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, apperrors.BadRequest("invalid oauth state", err)
	}
	if state.OrganizationID == uuid.Nil || state.UserID == uuid.Nil {
		return nil, apperrors.BadRequest("invalid oauth state", nil)
	}
	return &state, nil
}
