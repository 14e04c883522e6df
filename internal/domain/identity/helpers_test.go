package identity

import (
	"errors"

	"github.com/distrib/backend/internal/domain/shared"
)

func errCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
