package v1

import (
	"github.com/pocketledger/backend/internal/uuid"
)

type URIUser struct {
	UserID uuid.UUID `uri:"userId"` // ID of the user
}

type URIID struct {
	ID uuid.UUID `uri:"id"` // ID of the resource
}

type URIAccount struct {
	AccountID uuid.UUID `uri:"accountId"` // ID of the account
}

type URIAccountTransaction struct {
	AccountID uuid.UUID `uri:"accountId"` // ID of the account
	ID        uuid.UUID `uri:"id"`        // ID of the transaction
}
