package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/miowsis/portfolio-engine/internal/database"
	"github.com/miowsis/portfolio-engine/internal/events"
	testutil "github.com/miowsis/portfolio-engine/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (s *memoryStore) Upload(ctx context.Context, key string, body io.Reader) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memoryStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var objects []ObjectInfo
	for key, data := range s.objects {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, ObjectInfo{Key: key, Size: int64(len(data))})
		}
	}
	return objects, nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memoryStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func newBackupService(t *testing.T, store ObjectStore, sink *testutil.RecordingSink) *BackupService {
	t.Helper()
	db, cleanup := testutil.NewTestDB(t, "portfolio")
	t.Cleanup(cleanup)

	return NewBackupService(store, map[string]*database.DB{"portfolio": db}, t.TempDir(), "/engine/", sink, zerolog.Nop())
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer gz.Close()

	files := make(map[string][]byte)
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[header.Name] = content
	}
	return files
}

func TestCreateAndUpload(t *testing.T) {
	store := newMemoryStore()
	sink := testutil.NewRecordingSink()
	service := newBackupService(t, store, sink)
	service.now = func() time.Time { return time.Date(2026, 1, 8, 14, 30, 22, 0, time.UTC) }

	key, err := service.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "engine/portfolio-backup-2026-01-08-143022.tar.gz", key)
	require.Contains(t, store.objects, key)

	files := readArchive(t, store.objects[key])
	require.Contains(t, files, "portfolio.db")
	require.Contains(t, files, metadataFile)
	assert.True(t, bytes.HasPrefix(files["portfolio.db"], []byte("SQLite format 3")))

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(files[metadataFile], &metadata))
	assert.Equal(t, metadataVersion, metadata.Version)
	require.Len(t, metadata.Databases, 1)
	assert.Equal(t, "portfolio", metadata.Databases[0].Name)
	assert.Equal(t, int64(len(files["portfolio.db"])), metadata.Databases[0].SizeBytes)
	assert.True(t, strings.HasPrefix(metadata.Databases[0].Checksum, "sha256:"))

	assert.Equal(t, []string{string(events.BackupCompleted)}, sink.Keys())
	payload := sink.Events()[0].Payload.(*events.BackupCompletedData)
	assert.Equal(t, key, payload.Key)
	assert.Equal(t, int64(len(store.objects[key])), payload.SizeBytes)
}

func TestCreateAndUpload_UploadFailure(t *testing.T) {
	store := newMemoryStore()
	store.uploadErr = errors.New("bucket unreachable")
	sink := testutil.NewRecordingSink()
	service := newBackupService(t, store, sink)

	_, err := service.CreateAndUpload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unreachable")
	assert.Empty(t, sink.Events())
}

func seedBackups(store *memoryStore, prefix string, stamps ...string) {
	for _, stamp := range stamps {
		store.objects[prefix+archivePrefix+stamp+archiveSuffix] = []byte("x")
	}
}

func TestListBackups(t *testing.T) {
	store := newMemoryStore()
	service := NewBackupService(store, nil, t.TempDir(), "engine", nil, zerolog.Nop())
	service.now = func() time.Time { return time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC) }

	seedBackups(store, "engine/", "2026-01-08-000000", "2026-01-09-000000")
	store.objects["engine/portfolio-backup-garbage.tar.gz"] = []byte("x")
	store.objects["other/portfolio-backup-2026-01-09-000000.tar.gz"] = []byte("x")

	backups, err := service.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "engine/portfolio-backup-2026-01-09-000000.tar.gz", backups[0].Key)
	assert.Equal(t, int64(24), backups[0].AgeHours)
	assert.Equal(t, int64(48), backups[1].AgeHours)
}

func TestRotateOldBackups(t *testing.T) {
	store := newMemoryStore()
	service := NewBackupService(store, nil, t.TempDir(), "", nil, zerolog.Nop())
	service.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }

	seedBackups(store, "",
		"2025-12-01-000000",
		"2025-12-02-000000",
		"2025-12-03-000000",
		"2026-01-20-000000",
		"2026-01-31-000000",
	)

	deleted, err := service.RotateOldBackups(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, []string{
		"portfolio-backup-2025-12-03-000000.tar.gz",
		"portfolio-backup-2026-01-20-000000.tar.gz",
		"portfolio-backup-2026-01-31-000000.tar.gz",
	}, store.keys(), "the newest three are kept even when expired")
}

func TestRotateOldBackups_ZeroRetentionKeepsAll(t *testing.T) {
	store := newMemoryStore()
	service := NewBackupService(store, nil, t.TempDir(), "", nil, zerolog.Nop())
	seedBackups(store, "", "2020-01-01-000000", "2020-01-02-000000", "2020-01-03-000000", "2020-01-04-000000")

	deleted, err := service.RotateOldBackups(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
	assert.Len(t, store.keys(), 4)
}

func TestBackupJob(t *testing.T) {
	store := newMemoryStore()
	service := newBackupService(t, store, testutil.NewRecordingSink())

	job := NewBackupJob(service, 30, time.Minute, zerolog.Nop())
	assert.Equal(t, "backup", job.Name())
	require.NoError(t, job.Run())
	assert.Len(t, store.keys(), 1)

	store.uploadErr = errors.New("denied")
	assert.Error(t, job.Run())
}
