package audit

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreInsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	created := time.Date(2026, 2, 2, 2, 2, 2, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO audit_log").
		WithArgs("laakari", "login", "failure", "expired", "", `{"kind":"staff"}`, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

	e := &Entry{Actor: "laakari", Action: ActionLogin, Outcome: OutcomeFailure, Reason: "expired",
		Fields: map[string]interface{}{"kind": "staff"}}
	require.NoError(t, NewStore(db).Record(context.Background(), e))
	assert.Equal(t, int64(42), e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ts := time.Date(2026, 2, 2, 2, 2, 2, 0, time.UTC)

	mock.ExpectQuery("WHERE 1=1 AND actor = \\$1 AND outcome = \\$2 ORDER BY ts DESC LIMIT 200").
		WithArgs("jyl", "success").
		WillReturnRows(sqlmock.NewRows([]string{"id", "actor", "action", "outcome", "reason", "page_id", "fields", "ts", "created_at"}).
			AddRow(int64(1), "jyl", "page_permission_set", "success", "", "kuvantaminen", []byte(`{"roles":["PHYSICIAN"]}`), ts, ts))

	entries, err := NewStore(db).List(context.Background(), Filter{Actor: "jyl", Outcome: OutcomeSuccess})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ActionPagePermissionSet, entries[0].Action)
	assert.Equal(t, "kuvantaminen", entries[0].PageID)
	assert.Contains(t, entries[0].Fields, "roles")
	assert.NoError(t, mock.ExpectationsWereMet())
}
