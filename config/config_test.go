package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMergePrecedence(t *testing.T) {
	value := rapid.StringMatching(`[a-zA-Z0-9/_.:-]{1,20}`)
	layer := rapid.Custom(func(t *rapid.T) *Config {
		if rapid.Bool().Draw(t, "nil") {
			return nil
		}
		cfg := &Config{}
		if rapid.Bool().Draw(t, "hasAuthor") {
			cfg.Author = value.Draw(t, "author")
		}
		if rapid.Bool().Draw(t, "hasAddr") {
			cfg.Addr = value.Draw(t, "addr")
		}
		if rapid.Bool().Draw(t, "hasDPI") {
			cfg.ImageDPI = rapid.IntRange(1, 600).Draw(t, "dpi")
		}
		return cfg
	})

	rapid.Check(t, func(t *rapid.T) {
		env := layer.Draw(t, "env")
		project := layer.Draw(t, "project")
		merged := Merge(env, project)
		defaults := Defaults()

		pick := func(get func(*Config) string) string {
			if project != nil && get(project) != "" {
				return get(project)
			}
			if env != nil && get(env) != "" {
				return get(env)
			}
			return get(&defaults)
		}
		if want := pick(func(c *Config) string { return c.Author }); merged.Author != want {
			t.Fatalf("Author: want %q, got %q", want, merged.Author)
		}
		if want := pick(func(c *Config) string { return c.Addr }); merged.Addr != want {
			t.Fatalf("Addr: want %q, got %q", want, merged.Addr)
		}

		wantDPI := defaults.ImageDPI
		if env != nil && env.ImageDPI > 0 {
			wantDPI = env.ImageDPI
		}
		if project != nil && project.ImageDPI > 0 {
			wantDPI = project.ImageDPI
		}
		if merged.ImageDPI != wantDPI {
			t.Fatalf("ImageDPI: want %d, got %d", wantDPI, merged.ImageDPI)
		}
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Nil(t, cfg)

	path := filepath.Join(dir, "pdfannotator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("author: ana\nimage_dpi: 300\nallowed_origins: [http://localhost:3000]\n"), 0o644))
	cfg, err = LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ana", cfg.Author)
	assert.Equal(t, 300, cfg.ImageDPI)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)

	require.NoError(t, os.WriteFile(path, []byte("author: [\n"), 0o644))
	_, err = LoadFile(path)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, path, parseErr.Path)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"PDFANNOTATOR_AUTHOR=from-file\nPDFANNOTATOR_ADDR=:9000\nPDFANNOTATOR_POINTER_LENGTH=14\nPDFANNOTATOR_ALLOWED_ORIGINS=a.test, b.test\n",
	), 0o644))
	t.Setenv("PDFANNOTATOR_AUTHOR", "from-env")

	cfg, err := LoadEnv(envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Author)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 14.0, cfg.PointerLength)
	assert.Equal(t, []string{"a.test", "b.test"}, cfg.AllowedOrigins)

	t.Setenv("PDFANNOTATOR_IMAGE_DPI", "lots")
	_, err = LoadEnv()
	assert.Error(t, err)
}

func TestLoadLayersProjectOverEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pdfannotator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("author: project\n"), 0o644))
	t.Setenv("PDFANNOTATOR_AUTHOR", "env")
	t.Setenv("PDFANNOTATOR_ADDR", ":7000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "project", cfg.Author)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, Defaults().DebounceMS, cfg.DebounceMS)
}
