package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/autosave/internal/manifest"
	"github.com/roach88/autosave/internal/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testManifest(ioc string, contents ...string) *manifest.Manifest {
	m := &manifest.Manifest{IOC: ioc, Arch: "linux-x86_64"}
	for i, c := range contents {
		m.Artifacts = append(m.Artifacts, manifest.Artifact{
			Name: filepath.Join("db", string(rune('a'+i))+".txt"),
			Hash: manifest.ArtifactHash([]byte(c)),
			Size: int64(len(c)),
		})
	}
	return m
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := openTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestWriteRun_AssignsSeq(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ids := testutil.NewSequenceIDGenerator("run")

	r1, err := s.WriteRun(ctx, ids.Generate(), testManifest("TS1", "one"))
	require.NoError(t, err)
	r2, err := s.WriteRun(ctx, ids.Generate(), testManifest("TS2", "two"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), r1.Seq)
	assert.Equal(t, int64(2), r2.Seq)
	assert.Equal(t, "run-0001", r1.ID)
	assert.NotEmpty(t, r1.ManifestHash)
}

func TestWriteRun_IdempotentOnID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ids := testutil.NewFixedIDGenerator("run-x")

	first, err := s.WriteRun(ctx, ids.Generate(), testManifest("TS1", "one"))
	require.NoError(t, err)
	second, err := s.WriteRun(ctx, ids.Generate(), testManifest("TS1", "changed"))
	require.NoError(t, err)

	assert.Equal(t, first, second, "rewriting a run ID returns the stored run")

	runs, err := s.ListRuns(ctx, "TS1")
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestLatestRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ids := testutil.NewSequenceIDGenerator("run")

	_, ok, err := s.LatestRun(ctx, "TS1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.WriteRun(ctx, ids.Generate(), testManifest("TS1", "one"))
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, ids.Generate(), testManifest("TS2", "other"))
	require.NoError(t, err)
	want, err := s.WriteRun(ctx, ids.Generate(), testManifest("TS1", "two"))
	require.NoError(t, err)

	got, ok, err := s.LatestRun(ctx, "TS1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestListRuns_OrderedBySeq(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	ids := testutil.NewSequenceIDGenerator("run")

	for _, c := range []string{"a", "b", "c"} {
		_, err := s.WriteRun(ctx, ids.Generate(), testManifest("TS1", c))
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, "TS1")
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i, r := range runs {
		assert.Equal(t, int64(i+1), r.Seq)
	}

	empty, err := s.ListRuns(ctx, "NOPE")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestReadArtifacts_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	m := testManifest("TS1", "first", "second")

	run, err := s.WriteRun(ctx, "run-1", m)
	require.NoError(t, err)

	got, err := s.ReadArtifacts(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Artifacts, got)
	assert.Empty(t, manifest.Diff(got, m.Artifacts))
}
