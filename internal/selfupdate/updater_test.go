package selfupdate

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// releaseHost serves one tagged release with a single archive.
type releaseHost struct {
	tag      string
	asset    string
	archive  []byte
	checksum string
}

func (h releaseHost) start(t *testing.T) string {
	t.Helper()
	dl := "/abhisek/threatlab/releases/download/" + h.tag + "/"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/abhisek/threatlab/releases/latest":
			fmt.Fprintf(w, `{"tag_name":%q}`, h.tag)
		case dl + h.asset:
			_, _ = w.Write(h.archive)
		case dl + "checksums.txt":
			fmt.Fprintf(w, "%s  %s\n", h.checksum, h.asset)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func sha(b []byte) string {
	s := sha256.Sum256(b)
	return hex.EncodeToString(s[:])
}

func tarGz(t *testing.T, name string, body []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "dist/" + name, Size: int64(len(body)), Mode: 0o755, Typeflag: tar.TypeReg}))
	_, err := tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

func zipped(t *testing.T, name string, body []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write(body)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func installed(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "threatlab")
	require.NoError(t, os.WriteFile(p, []byte("v1 binary"), 0o750))
	return p
}

func TestArchiveName(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         string
	}{
		{"darwin", "arm64", "threatlab_Darwin_all.tar.gz"},
		{"darwin", "amd64", "threatlab_Darwin_all.tar.gz"},
		{"linux", "amd64", "threatlab_Linux_x86_64.tar.gz"},
		{"linux", "386", "threatlab_Linux_i386.tar.gz"},
		{"windows", "arm64", "threatlab_Windows_arm64.zip"},
		{"linux", "riscv64", ""},
		{"plan9", "amd64", ""},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, err := archiveName("threatlab", tt.goos, tt.goarch)
			if tt.want == "" {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseChecksums(t *testing.T) {
	sums := parseChecksums([]byte("aa11  threatlab_Linux_x86_64.tar.gz\n\nnot a checksum line here\nbb22  threatlab_Windows_arm64.zip\n"))
	assert.Equal(t, map[string]string{
		"threatlab_Linux_x86_64.tar.gz": "aa11",
		"threatlab_Windows_arm64.zip":   "bb22",
	}, sums)
}

func TestUpdateInstallsRelease(t *testing.T) {
	bin := []byte("v2 binary")
	archive := tarGz(t, "threatlab", bin)
	host := releaseHost{tag: "v2.0.0", asset: "threatlab_Linux_x86_64.tar.gz", archive: archive, checksum: sha(archive)}
	url := host.start(t)
	exe := installed(t)

	checker := NewChecker(WithBaseURL(url), WithDownloadBaseURL(url),
		withPlatform("linux", "amd64"),
		withExecPath(func() (string, error) { return exe, nil }))

	var stages []Stage
	tag, err := checker.Update(context.Background(), &UpdateInput{CurrentVersion: "v1.0.0"}, func(s Stage, _ string) {
		stages = append(stages, s)
	})
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0", tag)
	assert.Equal(t, []Stage{StageCheck, StageDownload, StageVerify, StageInstall}, stages)

	got, err := os.ReadFile(exe)
	require.NoError(t, err)
	assert.Equal(t, bin, got)
	info, err := os.Stat(exe)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), info.Mode().Perm())

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(exe), ".threatlab.new-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestUpdatePinnedTagOnWindows(t *testing.T) {
	bin := []byte("windows binary")
	archive := zipped(t, "threatlab.exe", bin)
	host := releaseHost{tag: "v1.5.0", asset: "threatlab_Windows_x86_64.zip", archive: archive, checksum: sha(archive)}
	url := host.start(t)
	exe := installed(t)

	checker := NewChecker(WithDownloadBaseURL(url),
		withPlatform("windows", "amd64"),
		withExecPath(func() (string, error) { return exe, nil }))

	tag, err := checker.Update(context.Background(), &UpdateInput{CurrentVersion: "v1.0.0", TargetVersion: "v1.5.0"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "v1.5.0", tag)
	got, err := os.ReadFile(exe)
	require.NoError(t, err)
	assert.Equal(t, bin, got)
}

func TestUpdateFailures(t *testing.T) {
	archive := tarGz(t, "threatlab", []byte("v2 binary"))

	t.Run("dev build", func(t *testing.T) {
		_, err := NewChecker().Update(context.Background(), &UpdateInput{CurrentVersion: DevVersion}, nil)
		assert.ErrorIs(t, err, ErrDevBuild)
	})

	t.Run("already latest", func(t *testing.T) {
		url := releaseHost{tag: "v1.0.0"}.start(t)
		_, err := NewChecker(WithBaseURL(url)).Update(context.Background(), &UpdateInput{CurrentVersion: "1.0.0"}, nil)
		assert.ErrorIs(t, err, ErrAlreadyLatest)
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		host := releaseHost{tag: "v2.0.0", asset: "threatlab_Darwin_all.tar.gz", archive: archive, checksum: sha([]byte("other"))}
		url := host.start(t)
		exe := installed(t)
		checker := NewChecker(WithBaseURL(url), WithDownloadBaseURL(url), withPlatform("darwin", "arm64"),
			withExecPath(func() (string, error) { return exe, nil }))

		_, err := checker.Update(context.Background(), &UpdateInput{CurrentVersion: "v1.0.0"}, nil)
		assert.ErrorIs(t, err, ErrChecksum)
		got, _ := os.ReadFile(exe)
		assert.Equal(t, "v1 binary", string(got))
	})

	t.Run("missing asset", func(t *testing.T) {
		host := releaseHost{tag: "v2.0.0", asset: "threatlab_Darwin_all.tar.gz", archive: archive, checksum: sha(archive)}
		url := host.start(t)
		checker := NewChecker(WithBaseURL(url), WithDownloadBaseURL(url), withPlatform("linux", "arm64"))

		_, err := checker.Update(context.Background(), &UpdateInput{CurrentVersion: "v1.0.0"}, nil)
		assert.ErrorContains(t, err, "HTTP 404")
	})

	t.Run("binary not in archive", func(t *testing.T) {
		other := tarGz(t, "README.md", []byte("docs"))
		host := releaseHost{tag: "v2.0.0", asset: "threatlab_Darwin_all.tar.gz", archive: other, checksum: sha(other)}
		url := host.start(t)
		checker := NewChecker(WithBaseURL(url), WithDownloadBaseURL(url), withPlatform("darwin", "amd64"))

		_, err := checker.Update(context.Background(), &UpdateInput{CurrentVersion: "v1.0.0"}, nil)
		assert.ErrorContains(t, err, "threatlab not found")
	})
}
