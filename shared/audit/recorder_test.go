package audit

import (
	"regexp"
	"testing"

	"taskhub-backend/shared/database/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestRecordAppendsEntry(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "audit_logs"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))

	Record(db, Entry{
		ActorID:        uuid.New(),
		Action:         models.AuditActionCreate,
		Resource:       models.AuditResourceTask,
		OrganizationID: uuid.New(),
		Details:        "Created task: quarterly report",
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

// A failing append must be swallowed; the caller's operation is unaffected.
func TestRecordSwallowsPersistenceFailure(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "audit_logs"`)).
		WillReturnError(assert.AnError)

	assert.NotPanics(t, func() {
		Record(db, Entry{
			ActorID:        uuid.New(),
			Action:         models.AuditActionDelete,
			Resource:       models.AuditResourceUser,
			OrganizationID: uuid.New(),
		})
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForOrganizationNewestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	orgID := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "user_id", "action", "resource", "organization_id"}).
		AddRow(uuid.New().String(), uuid.New().String(), "DELETE", "TASK", orgID.String()).
		AddRow(uuid.New().String(), uuid.New().String(), "CREATE", "TASK", orgID.String())

	mock.ExpectQuery(`SELECT .* FROM "audit_logs" WHERE organization_id = .* ORDER BY created_at DESC`).
		WillReturnRows(rows)

	entries, err := ListForOrganization(db, orgID, 50)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "DELETE", entries[0].Action)
}
