package service

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelf-fs/shelf/pkg/fs/models"
	"github.com/shelf-fs/shelf/pkg/fs/store"
)

// fakeDisk is an in-memory fsio.Ops with per-call fault injection, keyed
// by "<op> <path>".
type fakeDisk struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool
	fail  map[string]error
}

func newFakeDisk() *fakeDisk {
	return &fakeDisk{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
		fail:  make(map[string]error),
	}
}

// failOn makes the next matching call return err.
func (d *fakeDisk) failOn(op, path string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[op+" "+path] = err
}

func (d *fakeDisk) injected(op, path string) error {
	if err, ok := d.fail[op+" "+path]; ok {
		delete(d.fail, op+" "+path)
		return err
	}
	return nil
}

func (d *fakeDisk) Mkdir(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("mkdir", path); err != nil {
		return err
	}
	if d.dirs[path] {
		return fs.ErrExist
	}
	d.dirs[path] = true
	return nil
}

// seedDir registers a directory without going through Mkdir, for test
// setup of paths that exist before the service runs.
func (d *fakeDisk) seedDir(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dirs[path] = true
}

type fakeFile struct {
	disk *fakeDisk
	path string
	buf  bytes.Buffer
}

func (f *fakeFile) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

func (f *fakeFile) Close() error {
	f.disk.mu.Lock()
	defer f.disk.mu.Unlock()
	f.disk.files[f.path] = f.buf.Bytes()
	return nil
}

func (d *fakeDisk) CreateExclusive(path string) (io.WriteCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("create", path); err != nil {
		return nil, err
	}
	if _, ok := d.files[path]; ok {
		return nil, fs.ErrExist
	}
	return &fakeFile{disk: d, path: path}, nil
}

func (d *fakeDisk) Rename(oldpath, newpath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("rename", oldpath); err != nil {
		return err
	}
	content, ok := d.files[oldpath]
	if !ok {
		return fs.ErrNotExist
	}
	delete(d.files, oldpath)
	d.files[newpath] = content
	return nil
}

func (d *fakeDisk) RemoveFile(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("remove", path); err != nil {
		return err
	}
	if _, ok := d.files[path]; !ok {
		return fs.ErrNotExist
	}
	delete(d.files, path)
	return nil
}

func (d *fakeDisk) RemoveDir(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("rmdir", path); err != nil {
		return err
	}
	if !d.dirs[path] {
		return fs.ErrNotExist
	}
	for p := range d.files {
		if strings.HasPrefix(p, path+"/") {
			return fs.ErrInvalid
		}
	}
	for p := range d.dirs {
		if strings.HasPrefix(p, path+"/") {
			return fs.ErrInvalid
		}
	}
	delete(d.dirs, path)
	return nil
}

type fakeInfo struct {
	name string
	size int64
	dir  bool
}

func (i fakeInfo) Name() string       { return i.name }
func (i fakeInfo) Size() int64        { return i.size }
func (i fakeInfo) Mode() fs.FileMode  { return 0o644 }
func (i fakeInfo) ModTime() time.Time { return time.Time{} }
func (i fakeInfo) IsDir() bool        { return i.dir }
func (i fakeInfo) Sys() any           { return nil }

func (d *fakeDisk) Stat(path string) (fs.FileInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("stat", path); err != nil {
		return nil, err
	}
	if content, ok := d.files[path]; ok {
		return fakeInfo{name: path, size: int64(len(content))}, nil
	}
	if d.dirs[path] {
		return fakeInfo{name: path, dir: true}, nil
	}
	return nil, fs.ErrNotExist
}

type fakeReader struct {
	*bytes.Reader
}

func (fakeReader) Close() error { return nil }

func (d *fakeDisk) Open(path string) (io.ReadSeekCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.injected("open", path); err != nil {
		return nil, err
	}
	content, ok := d.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return fakeReader{bytes.NewReader(content)}, nil
}

// hasFile reports whether the path holds exactly the given content.
func (d *fakeDisk) hasFile(path, content string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	got, ok := d.files[path]
	return ok && string(got) == content
}

func (d *fakeDisk) fileExists(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.files[path]
	return ok
}

func (d *fakeDisk) dirExists(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirs[path]
}

// testEnv is one service instance over an in-memory store and a fake disk,
// with a user, a medium rooted at /data/main and its Root item.
type testEnv struct {
	svc     *Service
	store   *store.GORMStore
	disk    *fakeDisk
	user    *models.User
	medium  *models.Medium
	rootUID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	st, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	disk := newFakeDisk()
	disk.seedDir("/data/main")

	svc := New(st, Options{Disk: disk})

	user, err := st.Conn(ctx).CreateUser("tester", "password", models.RoleUser)
	require.NoError(t, err)

	medium, err := svc.CreateMedium(ctx, user.ID, CreateMediumRequest{
		Name: "main",
		Path: "/data/main",
	})
	require.NoError(t, err)

	root, err := st.Conn(ctx).GetRootItem(medium.ID)
	require.NoError(t, err)

	return &testEnv{
		svc:     svc,
		store:   st,
		disk:    disk,
		user:    user,
		medium:  medium,
		rootUID: root.UID,
	}
}

func (e *testEnv) upload(t *testing.T, targetUID, basename, mime, content string) *models.Item {
	t.Helper()
	item, err := e.svc.Upload(context.Background(), e.user.ID, UploadRequest{
		TargetUID: targetUID,
		Basename:  basename,
		Mime:      mime,
		Body:      strings.NewReader(content),
	})
	require.NoError(t, err)
	return item
}

func (e *testEnv) mkdir(t *testing.T, parentUID, basename string) *models.Item {
	t.Helper()
	item, err := e.svc.CreateDirectory(context.Background(), e.user.ID, CreateDirectoryRequest{
		ParentUID: parentUID,
		Basename:  basename,
	})
	require.NoError(t, err)
	return item
}

func TestCreateDirectoryThenList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	dir := env.mkdir(t, env.rootUID, "docs")
	require.Equal(t, models.TypeDirectory, dir.Type)
	require.True(t, env.disk.dirExists("/data/main/docs"))

	page, err := env.svc.ListContents(ctx, env.user.ID, env.rootUID, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "docs", page.Items[0].Basename)
	require.Equal(t, models.TypeDirectory, page.Items[0].Type)
}

func TestCreateDirectoryErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mkdir(t, env.rootUID, "docs")

	t.Run("duplicate basename", func(t *testing.T) {
		_, err := env.svc.CreateDirectory(ctx, env.user.ID, CreateDirectoryRequest{
			ParentUID: env.rootUID, Basename: "docs",
		})
		require.ErrorIs(t, err, models.ErrAlreadyExists)
	})

	t.Run("invalid basename", func(t *testing.T) {
		_, err := env.svc.CreateDirectory(ctx, env.user.ID, CreateDirectoryRequest{
			ParentUID: env.rootUID, Basename: "no/slashes",
		})
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "basename", verr.Field)
	})

	t.Run("file as parent", func(t *testing.T) {
		file := env.upload(t, env.rootUID, "a.txt", "text/plain", "hello")
		_, err := env.svc.CreateDirectory(ctx, env.user.ID, CreateDirectoryRequest{
			ParentUID: file.UID, Basename: "nested",
		})
		require.ErrorIs(t, err, models.ErrInvalidType)
	})

	t.Run("mkdir failure leaves no metadata", func(t *testing.T) {
		env.disk.failOn("mkdir", "/data/main/broken", fs.ErrPermission)
		_, err := env.svc.CreateDirectory(ctx, env.user.ID, CreateDirectoryRequest{
			ParentUID: env.rootUID, Basename: "broken",
		})
		require.Error(t, err)

		page, err := env.svc.ListContents(ctx, env.user.ID, env.rootUID, store.ListOptions{Limit: 100})
		require.NoError(t, err)
		for _, item := range page.Items {
			require.NotEqual(t, "broken", item.Basename)
		}
	})
}

func TestUpdateMetadata(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	file := env.upload(t, env.rootUID, "a.txt", "text/plain", "hello")

	t.Run("no work", func(t *testing.T) {
		_, err := env.svc.UpdateMetadata(ctx, env.user.ID, UpdateMetadataRequest{ItemUID: file.UID})
		require.ErrorIs(t, err, models.ErrNoWork)
	})

	t.Run("set and clear comment", func(t *testing.T) {
		comment := "important file"
		item, err := env.svc.UpdateMetadata(ctx, env.user.ID, UpdateMetadataRequest{
			ItemUID: file.UID, Comment: &comment,
		})
		require.NoError(t, err)
		require.NotNil(t, item.Comment)
		require.Equal(t, comment, *item.Comment)
		require.NotNil(t, item.UpdatedAt)

		empty := ""
		item, err = env.svc.UpdateMetadata(ctx, env.user.ID, UpdateMetadataRequest{
			ItemUID: file.UID, Comment: &empty,
		})
		require.NoError(t, err)
		require.Nil(t, item.Comment)
	})

	t.Run("tag set replacement", func(t *testing.T) {
		v := "prod"
		item, err := env.svc.UpdateMetadata(ctx, env.user.ID, UpdateMetadataRequest{
			ItemUID: file.UID, Tags: models.TagMap{"env": &v, "flag": nil},
		})
		require.NoError(t, err)
		require.Len(t, item.Tags, 2)

		item, err = env.svc.UpdateMetadata(ctx, env.user.ID, UpdateMetadataRequest{
			ItemUID: file.UID, Tags: models.TagMap{"only": nil},
		})
		require.NoError(t, err)
		require.Len(t, item.Tags, 1)
		require.Contains(t, item.Tags, "only")
	})

	t.Run("invalid tag key", func(t *testing.T) {
		_, err := env.svc.UpdateMetadata(ctx, env.user.ID, UpdateMetadataRequest{
			ItemUID: file.UID, Tags: models.TagMap{" bad key ": nil},
		})
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestMediumLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("create validates path", func(t *testing.T) {
		_, err := env.svc.CreateMedium(ctx, env.user.ID, CreateMediumRequest{
			Name: "rel", Path: "relative/path",
		})
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)

		_, err = env.svc.CreateMedium(ctx, env.user.ID, CreateMediumRequest{
			Name: "missing", Path: "/does/not/exist",
		})
		require.ErrorAs(t, err, &verr)
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := env.svc.CreateMedium(ctx, env.user.ID, CreateMediumRequest{
			Name: "main", Path: "/data/main",
		})
		require.ErrorIs(t, err, models.ErrDuplicateMedium)
	})

	t.Run("update name and tags", func(t *testing.T) {
		name := "renamed"
		v := "ssd"
		medium, err := env.svc.UpdateMedium(ctx, env.user.ID, UpdateMediumRequest{
			MediumID: env.medium.ID, Name: &name, Tags: models.TagMap{"disk": &v},
		})
		require.NoError(t, err)
		require.Equal(t, "renamed", medium.Name)
		require.Len(t, medium.Tags, 1)

		_, err = env.svc.UpdateMedium(ctx, env.user.ID, UpdateMediumRequest{MediumID: env.medium.ID})
		require.ErrorIs(t, err, models.ErrNoWork)
	})

	t.Run("soft delete cascades", func(t *testing.T) {
		file := env.upload(t, env.rootUID, "doomed.txt", "text/plain", "bye")

		require.NoError(t, env.svc.DeleteMedium(ctx, env.user.ID, env.medium.ID))

		_, err := env.svc.GetMedium(ctx, env.user.ID, env.medium.ID)
		require.ErrorIs(t, err, models.ErrMediumNotFound)
		_, err = env.svc.GetItem(ctx, env.user.ID, file.UID)
		require.ErrorIs(t, err, models.ErrItemNotFound)

		// Soft delete only: the bytes stay on disk.
		require.True(t, env.disk.fileExists("/data/main/doomed.txt"))
	})
}

func TestOwnershipIsolation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	other, err := env.store.Conn(ctx).CreateUser("intruder", "password", models.RoleUser)
	require.NoError(t, err)

	file := env.upload(t, env.rootUID, "private.txt", "text/plain", "secret")

	_, err = env.svc.GetItem(ctx, other.ID, file.UID)
	require.ErrorIs(t, err, models.ErrItemNotFound)
	_, err = env.svc.GetMedium(ctx, other.ID, env.medium.ID)
	require.ErrorIs(t, err, models.ErrMediumNotFound)
	_, err = env.svc.DeleteItem(ctx, other.ID, file.UID)
	require.ErrorIs(t, err, models.ErrItemNotFound)
}

func TestDownload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	file := env.upload(t, env.rootUID, "a.txt", "text/plain", "hello world")

	t.Run("streams content", func(t *testing.T) {
		dl, err := env.svc.DownloadFile(ctx, env.user.ID, file.UID)
		require.NoError(t, err)
		defer dl.Content.Close()

		content, err := io.ReadAll(dl.Content)
		require.NoError(t, err)
		require.Equal(t, "hello world", string(content))
		require.Equal(t, file.Hash, dl.Item.Hash)
	})

	t.Run("container is invalid", func(t *testing.T) {
		_, err := env.svc.DownloadFile(ctx, env.user.ID, env.rootUID)
		require.ErrorIs(t, err, models.ErrInvalidType)
	})

	t.Run("missing bytes diverge", func(t *testing.T) {
		require.NoError(t, env.disk.RemoveFile("/data/main/a.txt"))
		_, err := env.svc.DownloadFile(ctx, env.user.ID, file.UID)
		require.ErrorIs(t, err, models.ErrFileMissing)
	})
}

func TestPaginationExhaustiveness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const total = 9
	for i := 0; i < total; i++ {
		env.upload(t, env.rootUID, string(rune('a'+i))+".txt", "text/plain", "x")
	}

	seen := make(map[string]bool)
	var last *int64
	pages := 0
	for {
		page, err := env.svc.ListContents(ctx, env.user.ID, env.rootUID, store.ListOptions{
			Limit: 4, LastID: orZero(last),
		})
		require.NoError(t, err)
		if len(page.Items) == 0 {
			break
		}
		pages++
		for _, item := range page.Items {
			require.False(t, seen[item.UID], "item %s visited twice", item.Basename)
			seen[item.UID] = true
		}
		last = page.LastID
	}

	require.Len(t, seen, total)
	require.Equal(t, 3, pages) // ceil(9/4)
}

// orZero adapts a next-page cursor: the first call passes a zero cursor so
// the listing starts keyset mode from the beginning.
func orZero(last *int64) *int64 {
	if last == nil {
		zero := int64(0)
		return &zero
	}
	return last
}
