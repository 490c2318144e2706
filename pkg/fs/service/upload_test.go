package service

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/shelf-fs/shelf/pkg/fs/models"
	"github.com/shelf-fs/shelf/pkg/fs/store"
)

func blake3Hex(content string) string {
	sum := blake3.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// paths returns every file currently on the fake disk.
func (d *fakeDisk) paths() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.files))
	for p := range d.files {
		out = append(out, p)
	}
	return out
}

// errReader fails after yielding its prefix, simulating a client that
// drops mid-stream.
type errReader struct {
	prefix io.Reader
}

func (r *errReader) Read(p []byte) (int, error) {
	n, err := r.prefix.Read(p)
	if errors.Is(err, io.EOF) {
		return n, errors.New("connection reset")
	}
	return n, err
}

func TestUploadCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		item := env.upload(t, env.rootUID, "a.txt", "text/plain", "hello")

		require.Equal(t, models.TypeFile, item.Type)
		require.Equal(t, int64(5), item.Size)
		require.Equal(t, blake3Hex("hello"), item.Hash)
		require.Equal(t, "text/plain", item.Mime)
		require.True(t, env.disk.hasFile("/data/main/a.txt", "hello"))

		// No scratch files survive a successful upload.
		for _, p := range env.disk.paths() {
			require.NotContains(t, p, ".tmp")
		}
	})

	t.Run("duplicate basename", func(t *testing.T) {
		_, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: env.rootUID, Basename: "a.txt", Mime: "text/plain",
			Body: strings.NewReader("again"),
		})
		require.ErrorIs(t, err, models.ErrAlreadyExists)
		require.True(t, env.disk.hasFile("/data/main/a.txt", "hello"))
	})

	t.Run("invalid basename", func(t *testing.T) {
		_, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: env.rootUID, Basename: "bad/name", Mime: "text/plain",
			Body: strings.NewReader("x"),
		})
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("missing content type", func(t *testing.T) {
		_, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: env.rootUID, Basename: "b.txt",
			Body: strings.NewReader("x"),
		})
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("upload into file target replaces", func(t *testing.T) {
		// Covered in TestUploadReplace; here just confirm dispatch.
		item := env.upload(t, env.rootUID, "dispatch.txt", "text/plain", "one")
		replaced, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: item.UID, Mime: "text/plain",
			Body: strings.NewReader("two"),
		})
		require.NoError(t, err)
		require.Equal(t, item.UID, replaced.UID)
	})
}

func TestUploadHashVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("matching hash accepted", func(t *testing.T) {
		item, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID:    env.rootUID,
			Basename:     "verified.txt",
			Mime:         "text/plain",
			ExpectedHash: "blake3:" + blake3Hex("content"),
			Body:         strings.NewReader("content"),
		})
		require.NoError(t, err)
		require.Equal(t, blake3Hex("content"), item.Hash)
	})

	t.Run("mismatching hash rejected, nothing kept", func(t *testing.T) {
		_, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID:    env.rootUID,
			Basename:     "tampered.txt",
			Mime:         "text/plain",
			ExpectedHash: "blake3:" + blake3Hex("expected"),
			Body:         strings.NewReader("actual"),
		})
		require.ErrorIs(t, err, models.ErrInvalidHash)

		require.False(t, env.disk.fileExists("/data/main/tampered.txt"))
		for _, p := range env.disk.paths() {
			require.NotContains(t, p, ".tmp")
		}
		page, err := env.svc.ListContents(ctx, env.user.ID, env.rootUID, store.ListOptions{Limit: 100})
		require.NoError(t, err)
		for _, item := range page.Items {
			require.NotEqual(t, "tampered.txt", item.Basename)
		}
	})

	t.Run("malformed header rejected early", func(t *testing.T) {
		for _, header := range []string{"md5:abcd", "blake3:short", "blake3:" + strings.Repeat("z", 64)} {
			_, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
				TargetUID: env.rootUID, Basename: "x.txt", Mime: "text/plain",
				ExpectedHash: header, Body: strings.NewReader("x"),
			})
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr, "header %q", header)
		}
	})
}

func TestUploadCreateAtomicity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assertNoTrace := func(t *testing.T, basename string) {
		t.Helper()
		require.False(t, env.disk.fileExists("/data/main/"+basename))
		for _, p := range env.disk.paths() {
			require.NotContains(t, p, ".tmp")
		}
		page, err := env.svc.ListContents(ctx, env.user.ID, env.rootUID, store.ListOptions{Limit: 100})
		require.NoError(t, err)
		for _, item := range page.Items {
			require.NotEqual(t, basename, item.Basename)
		}
	}

	t.Run("mid-stream failure", func(t *testing.T) {
		_, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: env.rootUID, Basename: "dropped.txt", Mime: "text/plain",
			Body: &errReader{prefix: strings.NewReader("partial")},
		})
		require.Error(t, err)
		assertNoTrace(t, "dropped.txt")
	})

	t.Run("size cap exceeded", func(t *testing.T) {
		capped := New(env.store, Options{Disk: env.disk, MaxUploadBytes: 4})
		_, err := capped.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: env.rootUID, Basename: "big.txt", Mime: "text/plain",
			Body: strings.NewReader("12345"),
		})
		require.ErrorIs(t, err, models.ErrMaxSize)
		assertNoTrace(t, "big.txt")
	})

	t.Run("retry after mid-stream failure succeeds", func(t *testing.T) {
		_, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: env.rootUID, Basename: "flaky.txt", Mime: "text/plain",
			Body: &errReader{prefix: strings.NewReader("par")},
		})
		require.Error(t, err)

		item, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: env.rootUID, Basename: "flaky.txt", Mime: "text/plain",
			Body: strings.NewReader("recovered"),
		})
		require.NoError(t, err)
		require.Equal(t, blake3Hex("recovered"), item.Hash)
		require.True(t, env.disk.hasFile("/data/main/flaky.txt", "recovered"))
	})
}

func TestUploadReplace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	original := env.upload(t, env.rootUID, "a.txt", "text/plain", "hello")

	t.Run("replaces content and metadata", func(t *testing.T) {
		replaced, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: original.UID, Mime: "text/plain",
			Body: strings.NewReader("world!"),
		})
		require.NoError(t, err)

		require.Equal(t, original.UID, replaced.UID)
		require.Equal(t, int64(6), replaced.Size)
		require.Equal(t, blake3Hex("world!"), replaced.Hash)
		require.NotEqual(t, original.Hash, replaced.Hash)
		require.NotNil(t, replaced.UpdatedAt)
		require.True(t, env.disk.hasFile("/data/main/a.txt", "world!"))

		// prev and tmp are both gone after success.
		require.False(t, env.disk.fileExists("/data/main/"+original.UID+".prev"))
		require.False(t, env.disk.fileExists("/data/main/"+original.UID+".tmp"))

		dl, err := env.svc.DownloadFile(ctx, env.user.ID, original.UID)
		require.NoError(t, err)
		defer dl.Content.Close()
		content, err := io.ReadAll(dl.Content)
		require.NoError(t, err)
		require.Equal(t, "world!", string(content))
	})

	t.Run("mime mismatch leaves everything untouched", func(t *testing.T) {
		_, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: original.UID, Mime: "application/json",
			Body: strings.NewReader(`{}`),
		})
		require.ErrorIs(t, err, models.ErrMimeMismatch)

		require.True(t, env.disk.hasFile("/data/main/a.txt", "world!"))
		item, err := env.svc.GetItem(ctx, env.user.ID, original.UID)
		require.NoError(t, err)
		require.Equal(t, "text/plain", item.Mime)
		require.Equal(t, int64(6), item.Size)
	})

	t.Run("missing disk file surfaces divergence", func(t *testing.T) {
		lost := env.upload(t, env.rootUID, "lost.txt", "text/plain", "here")
		require.NoError(t, env.disk.RemoveFile("/data/main/lost.txt"))

		_, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: lost.UID, Mime: "text/plain",
			Body: strings.NewReader("replacement"),
		})
		require.ErrorIs(t, err, models.ErrFileMissing)
	})
}

func TestUploadReplaceAtomicity(t *testing.T) {
	ctx := context.Background()

	// Each scenario gets a fresh environment with one committed file so
	// "old content + old metadata" has a precise meaning.
	setup := func(t *testing.T) (*testEnv, *models.Item) {
		env := newTestEnv(t)
		item := env.upload(t, env.rootUID, "a.txt", "text/plain", "old")
		return env, item
	}

	assertOldState := func(t *testing.T, env *testEnv, item *models.Item) {
		t.Helper()
		require.True(t, env.disk.hasFile("/data/main/a.txt", "old"),
			"final path must hold the old content")
		require.False(t, env.disk.fileExists("/data/main/"+item.UID+".tmp"))
		require.False(t, env.disk.fileExists("/data/main/"+item.UID+".prev"))

		got, err := env.svc.GetItem(ctx, env.user.ID, item.UID)
		require.NoError(t, err)
		require.Equal(t, int64(3), got.Size)
		require.Equal(t, blake3Hex("old"), got.Hash)
	}

	t.Run("mid-stream failure", func(t *testing.T) {
		env, item := setup(t)
		_, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: item.UID, Mime: "text/plain",
			Body: &errReader{prefix: strings.NewReader("par")},
		})
		require.Error(t, err)
		assertOldState(t, env, item)
	})

	t.Run("retry after mid-stream failure succeeds", func(t *testing.T) {
		env, item := setup(t)
		_, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: item.UID, Mime: "text/plain",
			Body: &errReader{prefix: strings.NewReader("par")},
		})
		require.Error(t, err)

		// The temp name is derived from the uid, so a leftover from the
		// failed attempt would make this second replace impossible.
		replaced, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: item.UID, Mime: "text/plain",
			Body: strings.NewReader("recovered"),
		})
		require.NoError(t, err)
		require.Equal(t, blake3Hex("recovered"), replaced.Hash)
		require.True(t, env.disk.hasFile("/data/main/a.txt", "recovered"))
	})

	t.Run("stash rename failure", func(t *testing.T) {
		env, item := setup(t)
		env.disk.failOn("rename", "/data/main/a.txt", fs.ErrPermission)

		_, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: item.UID, Mime: "text/plain",
			Body: strings.NewReader("new"),
		})
		require.Error(t, err)
		assertOldState(t, env, item)
	})

	t.Run("promote rename failure restores prev", func(t *testing.T) {
		env, item := setup(t)
		env.disk.failOn("rename", "/data/main/"+item.UID+".tmp", fs.ErrPermission)

		_, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: item.UID, Mime: "text/plain",
			Body: strings.NewReader("new"),
		})
		require.Error(t, err)
		assertOldState(t, env, item)
	})

	t.Run("hash mismatch aborts before any rename", func(t *testing.T) {
		env, item := setup(t)
		_, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
			TargetUID: item.UID, Mime: "text/plain",
			ExpectedHash: "blake3:" + blake3Hex("something else"),
			Body:         strings.NewReader("new"),
		})
		require.ErrorIs(t, err, models.ErrInvalidHash)
		assertOldState(t, env, item)
	})
}

func TestSagaCompensationOrder(t *testing.T) {
	var trace []string

	step := func(name string, fail bool) sagaStep {
		return sagaStep{
			name: name,
			run: func() error {
				trace = append(trace, "run "+name)
				if fail {
					return errors.New(name + " failed")
				}
				return nil
			},
			undo: func() error {
				trace = append(trace, "undo "+name)
				return nil
			},
		}
	}

	t.Run("all steps succeed, no undo", func(t *testing.T) {
		trace = nil
		err := runSaga("test", []sagaStep{step("one", false), step("two", false)})
		require.NoError(t, err)
		require.Equal(t, []string{"run one", "run two"}, trace)
	})

	t.Run("failure unwinds completed steps in reverse", func(t *testing.T) {
		trace = nil
		err := runSaga("test", []sagaStep{
			step("one", false), step("two", false), step("three", true),
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "three")
		require.Equal(t, []string{
			"run one", "run two", "run three",
			"undo two", "undo one",
		}, trace)
	})

	t.Run("nil undo is skipped", func(t *testing.T) {
		trace = nil
		steps := []sagaStep{
			step("one", false),
			{name: "no-undo", run: func() error { trace = append(trace, "run no-undo"); return nil }},
			step("three", true),
		}
		err := runSaga("test", steps)
		require.Error(t, err)
		require.Equal(t, []string{"run one", "run no-undo", "run three", "undo one"}, trace)
	})

	t.Run("undo failure does not mask the original error", func(t *testing.T) {
		steps := []sagaStep{
			{
				name: "fragile",
				run:  func() error { return nil },
				undo: func() error { return errors.New("undo broke") },
			},
			{name: "boom", run: func() error { return errors.New("boom failed") }},
		}
		err := runSaga("test", steps)
		require.Error(t, err)
		require.Contains(t, err.Error(), "boom failed")
		require.NotContains(t, err.Error(), "undo broke")
	})
}

func TestConcurrentReplaceSerialized(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := env.upload(t, env.rootUID, "contended.txt", "text/plain", "v0")

	const writers = 8
	done := make(chan error, writers)
	for i := 0; i < writers; i++ {
		content := strings.Repeat("x", i+1)
		go func() {
			_, err := env.svc.Upload(ctx, env.user.ID, UploadRequest{
				TargetUID: item.UID, Mime: "text/plain",
				Body: strings.NewReader(content),
			})
			done <- err
		}()
	}
	for i := 0; i < writers; i++ {
		require.NoError(t, <-done)
	}

	// Whatever writer won, disk and metadata must agree.
	got, err := env.svc.GetItem(ctx, env.user.ID, item.UID)
	require.NoError(t, err)

	dl, err := env.svc.DownloadFile(ctx, env.user.ID, item.UID)
	require.NoError(t, err)
	defer dl.Content.Close()
	content, err := io.ReadAll(dl.Content)
	require.NoError(t, err)

	require.Equal(t, got.Size, int64(len(content)))
	require.Equal(t, got.Hash, blake3Hex(string(content)))
	require.False(t, env.disk.fileExists("/data/main/"+item.UID+".tmp"))
	require.False(t, env.disk.fileExists("/data/main/"+item.UID+".prev"))
}
