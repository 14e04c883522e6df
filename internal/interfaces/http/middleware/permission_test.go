package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/distrib/backend/internal/domain/identity"
	"github.com/distrib/backend/internal/interfaces/http/dto"
)

func TestRequireAdmin(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	r := protectedRouter(JWTConfig{JWTService: svc}, RequireAdmin())

	admin, _ := issue(t, svc, identity.RoleAdmin)
	assert.Equal(t, http.StatusOK, get(r, "/protected", "Bearer "+admin.AccessToken).Code)

	distributor, _ := issue(t, svc, identity.RoleDistributor)
	rec := get(r, "/protected", "Bearer "+distributor.AccessToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, dto.ErrCodeForbidden, errorCode(t, rec))
}

func TestRequireRole_WithoutAuthentication(t *testing.T) {
	r := protectedRouter(JWTConfig{JWTService: newTestJWTService(time.Minute), SkipPaths: []string{"/protected"}},
		RequireRole(identity.RoleDistributor))

	rec := get(r, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
