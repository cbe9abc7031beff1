package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/film-info-crawler/internal/app"
	"github.com/JakeFAU/film-info-crawler/internal/config"
	"github.com/JakeFAU/film-info-crawler/internal/film"
	"github.com/JakeFAU/film-info-crawler/internal/updater"
)

type fakeApp struct {
	entries    []film.URLEntry
	collection string
	summary    updater.Summary
	err        error
	closed     bool
}

func (f *fakeApp) Run(_ context.Context, entries []film.URLEntry, collection string) (updater.Summary, error) {
	f.entries = entries
	f.collection = collection
	return f.summary, f.err
}

func (f *fakeApp) Close(context.Context) error {
	f.closed = true
	return nil
}

func withFakeApp(t *testing.T, fake *fakeApp) *app.Options {
	t.Helper()

	var got app.Options
	original := buildApp
	buildApp = func(_ context.Context, _ config.Config, _ *zap.Logger, opts app.Options) (batchApp, error) {
		got = opts
		return fake, nil
	}
	t.Cleanup(func() { buildApp = original })
	return &got
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: error\n"), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestUpdateCommandRunsBatch(t *testing.T) {
	urlsPath := filepath.Join(t.TempDir(), "urls.json")
	require.NoError(t, os.WriteFile(urlsPath, []byte(`[
		{"url": "https://x.example/watch-abp-123", "title": "ignored"},
		{"url": "https://x.example/watch-carib-123-456"}
	]`), 0o600))

	fake := &fakeApp{summary: updater.Summary{Processed: 3, Upserted: 2, Skipped: 1}}
	opts := withFakeApp(t, fake)

	out, err := execute(t, "--config", writeConfig(t), "update",
		"--urls", urlsPath,
		"--url", "https://x.example/watch-tokyo-hot-n1234",
		"--collection", "films_test",
		"--dry-run",
	)
	require.NoError(t, err)
	require.True(t, opts.DryRun)
	require.True(t, fake.closed)
	require.Equal(t, "films_test", fake.collection)
	require.Equal(t, []film.URLEntry{
		{URL: "https://x.example/watch-abp-123"},
		{URL: "https://x.example/watch-carib-123-456"},
		{URL: "https://x.example/watch-tokyo-hot-n1234"},
	}, fake.entries)
	require.Contains(t, out, "processed=3 skipped=1 upserted=2 deleted=0 malformed=0")
}

func TestUpdateCommandRequiresURLs(t *testing.T) {
	withFakeApp(t, &fakeApp{})

	_, err := execute(t, "--config", writeConfig(t), "update")
	require.ErrorContains(t, err, "no URLs given")
}

func TestUpdateCommandPropagatesRunError(t *testing.T) {
	fake := &fakeApp{err: errors.New("mongo unavailable")}
	withFakeApp(t, fake)

	_, err := execute(t, "--config", writeConfig(t), "update", "--url", "https://x.example/watch-abp-1")
	require.ErrorContains(t, err, "mongo unavailable")
	require.True(t, fake.closed)
}

func TestUpdateCommandBadConfig(t *testing.T) {
	withFakeApp(t, &fakeApp{})

	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "update", "--url", "u")
	require.ErrorContains(t, err, "load config")
}

func TestCollectEntries(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"url": "not an array"}`), 0o600))
	_, err := collectEntries(bad, nil)
	require.ErrorContains(t, err, "parse url list")

	missingURL := filepath.Join(dir, "missing-url.json")
	require.NoError(t, os.WriteFile(missingURL, []byte(`[{"link": "x"}]`), 0o600))
	_, err = collectEntries(missingURL, nil)
	require.ErrorContains(t, err, "entry 0 has no url")

	_, err = collectEntries(filepath.Join(dir, "nope.json"), nil)
	require.ErrorContains(t, err, "read url list")

	entries, err := collectEntries("", []string{" https://a ", "", "https://b"})
	require.NoError(t, err)
	require.Equal(t, []film.URLEntry{{URL: "https://a"}, {URL: "https://b"}}, entries)
}
