package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"camport/internal/domain"
)

// fakeFS is an in-memory FileSystem for the destination side.
type fakeFS struct {
	mu    sync.Mutex
	files map[string]*fakeFile
	dirs  map[string]bool
}

type fakeFile struct {
	data    []byte
	modTime time.Time
}

func newFakeFS() *fakeFS {
	return &fakeFS{
		files: make(map[string]*fakeFile),
		dirs:  make(map[string]bool),
	}
}

func (f *fakeFS) put(path string, data []byte, modTime time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = &fakeFile{data: data, modTime: modTime}
	f.addParents(path)
}

func (f *fakeFS) addParents(path string) {
	for dir := filepath.Dir(path); dir != "." && dir != "/" && dir != ""; dir = filepath.Dir(dir) {
		f.dirs[dir] = true
	}
}

func (f *fakeFS) content(path string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[path]
	if !ok {
		return nil, false
	}
	return file.data, true
}

func (f *fakeFS) WalkDir(root string, fn fs.WalkDirFunc) error {
	f.mu.Lock()
	var paths []string
	for p := range f.files {
		if p == root || strings.HasPrefix(p, root+"/") {
			paths = append(paths, p)
		}
	}
	for p := range f.dirs {
		if p == root || strings.HasPrefix(p, root+"/") {
			paths = append(paths, p)
		}
	}
	f.mu.Unlock()
	sort.Strings(paths)

	skip := ""
	for _, p := range paths {
		if skip != "" && (p == skip || strings.HasPrefix(p, skip+"/")) {
			continue
		}
		isDir := f.dirs[p]
		err := fn(p, fakeDirEntry{name: filepath.Base(p), isDir: isDir, info: f.infoFor(p)}, nil)
		if err == fs.SkipDir {
			if isDir {
				skip = p
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeFS) infoFor(path string) fs.FileInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	if file, ok := f.files[path]; ok {
		return fakeFileInfo{name: filepath.Base(path), size: int64(len(file.data)), modTime: file.modTime}
	}
	return fakeFileInfo{name: filepath.Base(path), isDir: true}
}

func (f *fakeFS) Stat(path string) (fs.FileInfo, error) {
	f.mu.Lock()
	file, isFile := f.files[path]
	isDir := f.dirs[path]
	f.mu.Unlock()
	if isFile {
		return fakeFileInfo{name: filepath.Base(path), size: int64(len(file.data)), modTime: file.modTime}, nil
	}
	if isDir {
		return fakeFileInfo{name: filepath.Base(path), isDir: true}, nil
	}
	return nil, fs.ErrNotExist
}

func (f *fakeFS) Exists(path string) (bool, error) {
	_, err := f.Stat(path)
	if err == nil {
		return true, nil
	}
	return false, nil
}

func (f *fakeFS) MkdirAll(path string, perm fs.FileMode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirs[path] = true
	f.addParents(path)
	return nil
}

func (f *fakeFS) ReadDir(path string) ([]fs.DirEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.dirs[path] {
		return nil, fs.ErrNotExist
	}
	var entries []fs.DirEntry
	seen := map[string]bool{}
	add := func(p string, isDir bool) {
		rel := strings.TrimPrefix(p, path+"/")
		if rel == p || strings.Contains(rel, "/") || seen[rel] {
			return
		}
		seen[rel] = true
		entries = append(entries, fakeDirEntry{name: rel, isDir: isDir})
	}
	for p := range f.files {
		add(p, false)
	}
	for p := range f.dirs {
		add(p, true)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

func (f *fakeFS) Open(path string) (io.ReadCloser, error) {
	data, ok := f.content(path)
	if !ok {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeFS) Create(path string) (io.WriteCloser, error) {
	return &fakeWriter{fs: f, path: path}, nil
}

func (f *fakeFS) Rename(oldPath, newPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[oldPath]
	if !ok {
		return fs.ErrNotExist
	}
	delete(f.files, oldPath)
	f.files[newPath] = file
	f.addParents(newPath)
	return nil
}

func (f *fakeFS) Remove(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[path]; ok {
		delete(f.files, path)
		return nil
	}
	if f.dirs[path] {
		for p := range f.files {
			if strings.HasPrefix(p, path+"/") {
				return errors.New("directory not empty")
			}
		}
		delete(f.dirs, path)
		return nil
	}
	return fs.ErrNotExist
}

type fakeWriter struct {
	fs   *fakeFS
	path string
	buf  bytes.Buffer
}

func (w *fakeWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *fakeWriter) Close() error {
	w.fs.put(w.path, w.buf.Bytes(), time.Now())
	return nil
}

type fakeDirEntry struct {
	name  string
	isDir bool
	info  fs.FileInfo
}

func (e fakeDirEntry) Name() string      { return e.name }
func (e fakeDirEntry) IsDir() bool       { return e.isDir }
func (e fakeDirEntry) Type() fs.FileMode { return 0 }
func (e fakeDirEntry) Info() (fs.FileInfo, error) {
	if e.info == nil {
		return fakeFileInfo{name: e.name, isDir: e.isDir}, nil
	}
	return e.info, nil
}

type fakeFileInfo struct {
	name    string
	size    int64
	modTime time.Time
	isDir   bool
}

func (i fakeFileInfo) Name() string       { return i.name }
func (i fakeFileInfo) Size() int64        { return i.size }
func (i fakeFileInfo) Mode() fs.FileMode  { return 0 }
func (i fakeFileInfo) ModTime() time.Time { return i.modTime }
func (i fakeFileInfo) IsDir() bool        { return i.isDir }
func (i fakeFileInfo) Sys() any           { return nil }

// fakeDevice serves preset files in a fixed enumeration order.
type fakeDevice struct {
	mu      sync.Mutex
	order   []string
	files   map[string]*fakeDeviceFile
	listErr error
	warns   []string
}

type fakeDeviceFile struct {
	data         []byte
	modTime      time.Time
	reportedSize int64
	openFailures int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{files: make(map[string]*fakeDeviceFile)}
}

func (d *fakeDevice) add(path string, data []byte, modTime time.Time) *fakeDeviceFile {
	file := &fakeDeviceFile{data: data, modTime: modTime, reportedSize: int64(len(data))}
	d.order = append(d.order, path)
	d.files[path] = file
	return file
}

func (d *fakeDevice) List(ctx context.Context) ([]domain.FileDescriptor, []string, error) {
	if d.listErr != nil {
		return nil, nil, d.listErr
	}
	var descs []domain.FileDescriptor
	for _, path := range d.order {
		if ctx.Err() != nil {
			return descs, d.warns, ctx.Err()
		}
		file := d.files[path]
		descs = append(descs, domain.FileDescriptor{
			Path:    path,
			Name:    filepath.Base(path),
			Size:    file.reportedSize,
			ModTime: file.modTime,
		})
	}
	return descs, d.warns, nil
}

func (d *fakeDevice) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	file, ok := d.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	if file.openFailures > 0 {
		file.openFailures--
		return nil, errors.New("device busy")
	}
	return io.NopCloser(bytes.NewReader(file.data)), nil
}

// fakeCaptureReader keys capture times by stream content, since readers
// only ever see the opened stream.
type fakeCaptureReader struct {
	times map[string]time.Time
}

func (r fakeCaptureReader) CaptureTime(ctx context.Context, rd io.Reader) (time.Time, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return time.Time{}, err
	}
	if t, ok := r.times[string(data)]; ok {
		return t, nil
	}
	return time.Time{}, errors.New("capture time not present")
}

type fakeTranscoder struct {
	available bool
	err       error
	calls     []string
}

func (t *fakeTranscoder) Available() bool { return t.available }

func (t *fakeTranscoder) Transcode(ctx context.Context, src, dst string) error {
	t.calls = append(t.calls, dst)
	return t.err
}

type fakeMetaCopier struct {
	available bool
	err       error
}

func (m *fakeMetaCopier) Available() bool { return m.available }

func (m *fakeMetaCopier) CopyMetadata(ctx context.Context, src, dst string) error {
	return m.err
}
