package selfupdate

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	ErrDevBuild      = errors.New("development builds cannot self-update")
	ErrAlreadyLatest = errors.New("already on the latest release")
	ErrChecksum      = errors.New("checksum mismatch")
)

// Stage names a step of Update.
type Stage string

const (
	StageCheck    Stage = "check"
	StageDownload Stage = "download"
	StageVerify   Stage = "verify"
	StageInstall  Stage = "install"
)

// Progress receives a line of status per stage. It may be nil.
type Progress func(stage Stage, msg string)

// UpdateInput names the running version and, optionally, the release tag to
// install. An empty TargetVersion means the latest release.
type UpdateInput struct {
	CurrentVersion string
	TargetVersion  string
}

// Update installs a release over the running executable and returns the
// installed tag.
func (c *Checker) Update(ctx context.Context, in *UpdateInput, progress Progress) (string, error) {
	if progress == nil {
		progress = func(Stage, string) {}
	}
	if canonical(in.CurrentVersion) == "" {
		return "", errors.WithHint(ErrDevBuild, "install a tagged release first")
	}

	tag := in.TargetVersion
	if tag == "" {
		progress(StageCheck, "Looking up the latest release")
		res, err := c.Check(ctx, &CheckInput{Version: in.CurrentVersion})
		if err != nil {
			return "", err
		}
		if !res.UpdateAvailable {
			return "", ErrAlreadyLatest
		}
		tag = res.LatestVersion
	}

	goos, goarch := c.goos, c.goarch
	if goos == "" {
		goos, goarch = runtime.GOOS, runtime.GOARCH
	}
	asset, err := archiveName(c.binary, goos, goarch)
	if err != nil {
		return "", err
	}

	progress(StageDownload, fmt.Sprintf("Downloading %s %s", c.binary, tag))
	archive, err := c.fetch(ctx, c.releaseFile(tag, asset))
	if err != nil {
		return "", err
	}

	progress(StageVerify, "Verifying checksum")
	sums, err := c.fetch(ctx, c.releaseFile(tag, "checksums.txt"))
	if err != nil {
		return "", err
	}
	want, ok := parseChecksums(sums)[asset]
	if !ok {
		return "", errors.Newf("checksums.txt has no entry for %s", asset)
	}
	if err := verify(archive, want); err != nil {
		return "", err
	}

	exe := c.binary
	if goos == "windows" {
		exe += ".exe"
	}
	bin, err := unpack(archive, asset, exe)
	if err != nil {
		return "", err
	}

	progress(StageInstall, "Replacing "+c.binary)
	target, err := c.execPath()
	if err != nil {
		return "", errors.Wrap(err, "locate running executable")
	}
	if err := replaceFile(target, bin); err != nil {
		return "", err
	}
	return tag, nil
}

func (c *Checker) releaseFile(tag, name string) string {
	return strings.TrimRight(c.downloadBaseURL, "/") + "/" +
		path.Join(c.owner, c.repo, "releases", "download", tag, name)
}

var releaseArch = map[string]string{
	"amd64": "x86_64",
	"arm64": "arm64",
	"386":   "i386",
}

// archiveName matches the goreleaser archive names of the release
// workflow. macOS ships a single universal archive.
func archiveName(binary, goos, goarch string) (string, error) {
	if goos == "darwin" {
		return binary + "_Darwin_all.tar.gz", nil
	}
	arch, ok := releaseArch[goarch]
	if !ok {
		return "", errors.Newf("no release build for %s/%s", goos, goarch)
	}
	switch goos {
	case "linux":
		return binary + "_Linux_" + arch + ".tar.gz", nil
	case "windows":
		return binary + "_Windows_" + arch + ".zip", nil
	}
	return "", errors.Newf("no release build for %s/%s", goos, goarch)
}

func (c *Checker) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build download request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "download %s", path.Base(url))
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("download %s: HTTP %d", path.Base(url), resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// parseChecksums reads "<sha256>  <file>" lines as written by sha256sum.
func parseChecksums(data []byte) map[string]string {
	sums := map[string]string{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) == 2 {
			sums[f[1]] = f[0]
		}
	}
	return sums
}

func verify(data []byte, wantHex string) error {
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); !strings.EqualFold(got, wantHex) {
		return errors.Wrapf(ErrChecksum, "want %s, got %s", wantHex, got)
	}
	return nil
}

// unpack returns the file called name from a .tar.gz or .zip archive.
func unpack(archive []byte, asset, name string) ([]byte, error) {
	if strings.HasSuffix(asset, ".zip") {
		zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
		if err != nil {
			return nil, errors.Wrap(err, "open zip")
		}
		for _, f := range zr.File {
			if path.Base(f.Name) != name {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return nil, errors.Wrapf(err, "open %s", f.Name)
			}
			defer func() { _ = rc.Close() }()
			return io.ReadAll(rc)
		}
		return nil, errors.Newf("%s not found in %s", name, asset)
	}

	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, errors.Wrap(err, "open gzip")
	}
	defer func() { _ = gz.Close() }()
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, errors.Newf("%s not found in %s", name, asset)
		}
		if err != nil {
			return nil, errors.Wrap(err, "read tar")
		}
		if hdr.Typeflag == tar.TypeReg && path.Base(hdr.Name) == name {
			return io.ReadAll(tr)
		}
	}
}

// replaceFile swaps target for data through a temp file in the same
// directory so the rename is atomic. The original mode is kept.
func replaceFile(target string, data []byte) error {
	info, err := os.Stat(target)
	if err != nil {
		return errors.Wrap(err, "stat executable")
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".new-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "write new executable")
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "sync new executable")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close new executable")
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return errors.Wrap(err, "chmod new executable")
	}
	return errors.Wrap(os.Rename(tmp.Name(), target), "swap executable")
}
