package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/mrjoshuak/go-jpeg2000"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func serveCodestream(t *testing.T) *httptest.Server {
	t.Helper()
	src := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			src.SetRGBA(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg2000.Encode(&buf, src, &jpeg2000.Options{
		Format:         jpeg2000.FormatJ2K,
		Lossless:       true,
		NumResolutions: 3,
	}))
	payload := buf.Bytes()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("texture_id") == "00000000-0000-0000-0000-000000000404" {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, "texture.j2c", time.Time{}, bytes.NewReader(payload))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEstimateInitial(t *testing.T) {
	out, err := run(t, "estimate", "--max-dim", "64")
	require.NoError(t, err)
	assert.Equal(t, "initial read: 14745 bytes\n", out)

	out, err = run(t, "estimate", "--max-dim", "10000")
	require.NoError(t, err)
	assert.Equal(t, "initial read: unbounded\n", out)
}

func TestEstimateKnownSize(t *testing.T) {
	out, err := run(t, "estimate", "--max-dim", "64", "--width", "512", "--height", "512")
	require.NoError(t, err)
	assert.Equal(t, "14745 bytes, discard level 3\n", out)

	out, err = run(t, "estimate", "--max-dim", "400", "--width", "512", "--height", "512")
	require.NoError(t, err)
	assert.Equal(t, "unbounded, discard level 0\n", out)
}

func TestEstimateRejectsBadInput(t *testing.T) {
	_, err := run(t, "estimate", "--max-dim", "0")
	assert.ErrorContains(t, err, "--max-dim must be positive")

	_, err = run(t, "estimate", "--max-dim", "64", "--width", "512")
	assert.ErrorContains(t, err, "--width and --height")
}

func TestFetchByURL(t *testing.T) {
	srv := serveCodestream(t)
	outPath := filepath.Join(t.TempDir(), "small.png")

	out, err := run(t, "fetch", "-v", "-i", srv.URL+"/texture.j2c", "-o", outPath, "--max-dim", "16")
	require.NoError(t, err)
	assert.Contains(t, out, "dimensions:     32x32")

	img, err := imaging.Open(outPath)
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx(), 16)
}

func TestFetchRejectsBadInput(t *testing.T) {
	_, err := run(t, "fetch", "-i", "not-a-uuid", "-o", filepath.Join(t.TempDir(), "x.png"))
	assert.ErrorContains(t, err, "input must be a URL or an asset UUID")
}

func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "j2kfetch.toml")
	body := fmt.Sprintf(`
[asset]
base_url = %q

[retry]
max_attempts = 1
`, baseURL)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestBatch(t *testing.T) {
	srv := serveCodestream(t)
	dir := t.TempDir()
	list := filepath.Join(dir, "ids.txt")
	require.NoError(t, os.WriteFile(list, []byte(
		"# two textures\n89556747-24cb-43ed-920b-47caed15465f\n\n3b3b6e5e-3f3e-4c1e-9f3a-1d2c3b4a5f6e\n"), 0o644))
	outDir := filepath.Join(dir, "out")

	out, err := run(t, "batch", "-c", writeConfig(t, srv.URL), "--list", list, "--out-dir", outDir, "--max-dim", "16")
	require.NoError(t, err)
	assert.Contains(t, out, "2 assets: 2 ok, 0 failed")
	assert.FileExists(t, filepath.Join(outDir, "89556747-24cb-43ed-920b-47caed15465f.png"))
	assert.FileExists(t, filepath.Join(outDir, "3b3b6e5e-3f3e-4c1e-9f3a-1d2c3b4a5f6e.png"))
}

func TestBatchReportsFailures(t *testing.T) {
	srv := serveCodestream(t)
	dir := t.TempDir()
	list := filepath.Join(dir, "ids.txt")
	require.NoError(t, os.WriteFile(list, []byte(
		"89556747-24cb-43ed-920b-47caed15465f\n00000000-0000-0000-0000-000000000404\n"), 0o644))

	out, err := run(t, "batch", "-c", writeConfig(t, srv.URL), "--list", list, "--out-dir", filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "1 of 2 assets failed")
	assert.Contains(t, out, "FAIL 00000000-0000-0000-0000-000000000404")
}

func TestBatchRejectsBadList(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "ids.txt")
	require.NoError(t, os.WriteFile(list, []byte("bogus\n"), 0o644))

	_, err := run(t, "batch", "--list", list, "--out-dir", dir)
	assert.ErrorContains(t, err, "line 1")
}
