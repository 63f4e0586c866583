package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, KeyHistory)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Set(ctx, KeyCredential, []byte("sk-plain-text")))
	got, err := store.Get(ctx, KeyCredential)
	require.NoError(t, err)
	assert.Equal(t, "sk-plain-text", string(got))

	type entry struct {
		ID    string `json:"id"`
		Pages int    `json:"pages"`
	}
	require.NoError(t, SetJSON(ctx, store, KeyHistory, []entry{{ID: "a", Pages: 3}}))
	require.NoError(t, SetJSON(ctx, store, KeyHistory, []entry{{ID: "b", Pages: 5}, {ID: "a", Pages: 3}}))
	var entries []entry
	require.NoError(t, GetJSON(ctx, store, KeyHistory, &entries))
	assert.Equal(t, []entry{{ID: "b", Pages: 5}, {ID: "a", Pages: 3}}, entries)

	require.NoError(t, SetJSON(ctx, store, KeySelectedModel, "gpt-4"))
	var model string
	require.NoError(t, GetJSON(ctx, store, KeySelectedModel, &model))
	assert.Equal(t, "gpt-4", model)

	require.NoError(t, store.Delete(ctx, KeyCredential))
	_, err = store.Get(ctx, KeyCredential)
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, store.Delete(ctx, KeyCredential))

	text, err := GetString(ctx, store, KeyCredential)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestFileStore(t *testing.T) {
	t.Parallel()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "state.json"))
	require.NoError(t, err)
	defer store.Close()
	exerciseStore(t, store)
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()

	first, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, KeySystemPrompt, []byte(`{"id":"socratic"}`)))
	require.NoError(t, first.Set(ctx, KeyCredential, []byte("sk-abc")))

	second, err := NewFileStore(path)
	require.NoError(t, err)
	got, err := second.Get(ctx, KeySystemPrompt)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"socratic"}`, string(got))
	cred, err := GetString(ctx, second, KeyCredential)
	require.NoError(t, err)
	assert.Equal(t, "sk-abc", cred)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file should be renamed away")
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	store, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = store.Get(context.Background(), KeyHistory)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return client, mr, func() {
		client.Close()
		mr.Close()
	}
}

func TestRedisStore(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()
	exerciseStore(t, NewRedisStore(client, "test:"))
}

func TestRedisStoreUsesPrefix(t *testing.T) {
	client, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	store := NewRedisStore(client, "")

	require.NoError(t, store.Set(context.Background(), KeySelectedModel, []byte(`"gpt-4"`)))
	raw, err := mr.Get(defaultKeyPrefix + KeySelectedModel)
	require.NoError(t, err)
	assert.Equal(t, `"gpt-4"`, raw)
}

func TestOpenSelectsBackend(t *testing.T) {
	_, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	fileStore, err := Open(ctx, Config{}, t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, fileStore)

	redisStore, err := Open(ctx, Config{Driver: DriverRedis, RedisURL: "redis://" + mr.Addr() + "/0"}, "")
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, redisStore)
	exerciseStore(t, redisStore)
	require.NoError(t, redisStore.Close())

	_, err = Open(ctx, Config{Driver: "etcd"}, "")
	assert.Error(t, err)
}

func newMockSQLStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return &SQLStore{db: db}, mock
}

const upsertRecordSQL = `INSERT INTO "kv_records" \("name","value","updated_at"\) VALUES \(\$1,\$2,\$3\) ON CONFLICT \("name"\) DO UPDATE SET "value"="excluded"\."value","updated_at"="excluded"\."updated_at"`

func TestSQLStoreSetUpsertsByName(t *testing.T) {
	store, mock := newMockSQLStore(t)
	ctx := context.Background()

	mock.ExpectExec(upsertRecordSQL).
		WithArgs(KeyCredential, []byte("sk-first"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertRecordSQL).
		WithArgs(KeyCredential, []byte("sk-second"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Set(ctx, KeyCredential, []byte("sk-first")))
	require.NoError(t, store.Set(ctx, KeyCredential, []byte("sk-second")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreGetAndDelete(t *testing.T) {
	store, mock := newMockSQLStore(t)
	ctx := context.Background()
	columns := []string{"name", "value", "updated_at"}

	mock.ExpectQuery(`SELECT \* FROM "kv_records" WHERE name = \$1`).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(KeyHistory, []byte(`[]`), time.Now()))
	mock.ExpectQuery(`SELECT \* FROM "kv_records" WHERE name = \$1`).
		WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectExec(`DELETE FROM "kv_records" WHERE name = \$1`).
		WithArgs(KeyHistory).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := store.Get(ctx, KeyHistory)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))

	_, err = store.Get(ctx, KeySelectedModel)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, KeyHistory))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenSQLRejectsOtherDrivers(t *testing.T) {
	_, err := OpenSQL(DriverRedis, "redis://localhost:6379/0")
	require.Error(t, err)
}

func TestSQLStorePostgres(t *testing.T) {
	dsn := os.Getenv("PAGETUTOR_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PAGETUTOR_TEST_POSTGRES_DSN not set")
	}
	store, err := OpenSQL(DriverPostgres, dsn)
	require.NoError(t, err)
	defer store.Close()
	cleanupSQL(t, store)
	exerciseStore(t, store)
}

func TestSQLStoreMySQL(t *testing.T) {
	dsn := os.Getenv("PAGETUTOR_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("PAGETUTOR_TEST_MYSQL_DSN not set")
	}
	store, err := OpenSQL(DriverMySQL, dsn)
	require.NoError(t, err)
	defer store.Close()
	cleanupSQL(t, store)
	exerciseStore(t, store)
}

func cleanupSQL(t *testing.T, store *SQLStore) {
	t.Helper()
	for _, name := range []string{KeyCredential, KeyHistory, KeySelectedModel} {
		require.NoError(t, store.Delete(context.Background(), name))
	}
}

func TestOpenSQLRejectsUnknownDialect(t *testing.T) {
	t.Parallel()
	_, err := OpenSQL(DriverRedis, "")
	assert.Error(t, err)
}
