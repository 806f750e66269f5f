package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskhub-backend/shared/database"
	"taskhub-backend/shared/database/models"
	utils "taskhub-backend/shared/utils/auth"
)

// withMockDB points the package-global connection at a sqlmock-backed
// gorm instance for the duration of the test.
func withMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	database.DB = db
	t.Cleanup(func() {
		database.DB = nil
		sqlDB.Close()
	})
	return mock
}

func newProtectedRouter(t *testing.T) (*gin.Engine, *Actor) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var seen Actor
	router := gin.New()
	router.GET("/ping", AuthMiddleware(), func(c *gin.Context) {
		actor, ok := CurrentActor(c)
		require.True(t, ok)
		seen = actor
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router, &seen
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	router, _ := newProtectedRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	router, _ := newProtectedRouter(t)

	for _, header := range []string{"token-without-scheme", "Basic abc123", "Bearer"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Authorization", header)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestAuthMiddlewareGarbageToken(t *testing.T) {
	router, _ := newProtectedRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer not.a.jwt")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareResolvesActorFromToken(t *testing.T) {
	router, seen := newProtectedRouter(t)

	userID := uuid.New()
	orgID := uuid.New()
	token, err := utils.GenerateJWT(userID, "admin@taskhub.local", models.RoleAdmin, orgID)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, seen.ID)
	assert.Equal(t, orgID, seen.OrganizationID)
	assert.Equal(t, models.RoleAdmin, seen.Role)
	assert.Equal(t, "admin@taskhub.local", seen.Email)
}

// A verified token whose user row has been deleted is rejected: the
// reachable database is authoritative over the token payload.
func TestAuthMiddlewareRejectsDeletedUser(t *testing.T) {
	mock := withMockDB(t)
	router, _ := newProtectedRouter(t)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	token, err := utils.GenerateJWT(uuid.New(), "ghost@taskhub.local", models.RoleAdmin, uuid.New())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "no longer exists")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A deactivated account is shut out before token expiry.
func TestAuthMiddlewareRejectsDeactivatedUser(t *testing.T) {
	mock := withMockDB(t)
	router, _ := newProtectedRouter(t)
	userID := uuid.New()
	orgID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role", "is_active", "organization_id"}).
			AddRow(userID.String(), "benched@taskhub.local", "VIEWER", false, orgID.String()))

	token, err := utils.GenerateJWT(userID, "benched@taskhub.local", models.RoleViewer, orgID)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A demotion takes effect on the next request, not at token expiry.
func TestAuthMiddlewareRefreshesRoleFromDatabase(t *testing.T) {
	mock := withMockDB(t)
	router, seen := newProtectedRouter(t)
	userID := uuid.New()
	orgID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role", "is_active", "organization_id"}).
			AddRow(userID.String(), "demoted@taskhub.local", "VIEWER", true, orgID.String()))

	// The token still carries the old ADMIN role.
	token, err := utils.GenerateJWT(userID, "demoted@taskhub.local", models.RoleAdmin, orgID)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleViewer, seen.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Tokens carrying a role outside the known set are rejected outright
// instead of being downgraded to a default.
func TestAuthMiddlewareRejectsUnknownRole(t *testing.T) {
	router, _ := newProtectedRouter(t)

	token, err := utils.GenerateJWT(uuid.New(), "x@taskhub.local", models.Role("SUPERUSER"), uuid.New())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// Refresh tokens verify but carry no role or organization claims, so
// they cannot be used against protected routes.
func TestAuthMiddlewareRejectsRefreshToken(t *testing.T) {
	router, _ := newProtectedRouter(t)

	token, err := utils.GenerateRefreshJWT(uuid.New(), "x@taskhub.local")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
