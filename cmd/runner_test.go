package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/bilisync/internal/models"
	"github.com/desertthunder/bilisync/internal/shared"
	tu "github.com/desertthunder/bilisync/internal/testing"
)

// newTestRunner returns a runner over an in-memory database and a mock remote with favorite folder 42 = [a, b, c].
func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer, *tu.MockBilibili) {
	t.Helper()

	remote := tu.NewMockBilibili()
	remote.FavoriteFolder("42", "favs", []string{"a", "b", "c"}, 20)

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: shared.DefaultConfig(),
		DB:     tu.MustOpenDB(t),
		Remote: remote,
		Logger: shared.NewLogger(&bytes.Buffer{}),
		Output: output,
	})
	return runner, output, remote
}

func run(r *Runner, args ...string) error {
	app := &cli.Command{
		Name:      "bilisync",
		Commands:  r.register(),
		Writer:    &bytes.Buffer{},
		ErrWriter: &bytes.Buffer{},
	}
	return app.Run(context.Background(), append([]string{"bilisync"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			db := tu.MustOpenDB(t)
			remote := tu.NewMockBilibili()

			runner := NewRunner(RunnerOpts{Config: config, DB: db, Remote: remote, Logger: logger, Output: output})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.db != db || runner.ownsDB {
				t.Error("expected injected database not to be owned")
			}
			if runner.remote != remote {
				t.Error("expected remote to be set")
			}
		})

		t.Run("with nil logger and output uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to stdout")
			}
			if runner.registry == nil {
				t.Error("expected a metrics registry")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "{\n  \"key\": \"value\"\n}\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(map[string]any{"ch": make(chan int)}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlain("test"); err == nil {
				t.Fatal("expected error from failing writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		var names []string
		for _, cmd := range commands {
			names = append(names, cmd.Name)
		}
		if strings.Join(names, ",") != "setup,sync,playlists,serve" {
			t.Errorf("unexpected commands %v", names)
		}
	})
}

func TestSetup(t *testing.T) {
	t.Run("uses an existing config file", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.toml")
		dbPath := filepath.Join(dir, "library.db")
		if err := os.WriteFile(configPath, []byte("[database]\npath = \""+filepath.ToSlash(dbPath)+"\"\n"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(&bytes.Buffer{}), Output: output})
		defer runner.Close()

		if err := run(runner, "setup", "--config", configPath); err != nil {
			t.Fatalf("setup failed: %v", err)
		}

		tu.AssertFileExists(t, dbPath)
		if !strings.Contains(output.String(), "Database ready") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("creates a missing config file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		runner := NewRunner(RunnerOpts{DB: tu.MustOpenDB(t), Logger: shared.NewLogger(&bytes.Buffer{}), Output: &bytes.Buffer{}})

		if err := run(runner, "setup", "--config", configPath); err != nil {
			t.Fatalf("setup failed: %v", err)
		}

		tu.AssertFileExists(t, configPath)
		if content := tu.MustReadFile(t, configPath); !strings.Contains(content, "[credentials.bilibili]") {
			t.Errorf("expected config template, got %s", content)
		}
	})
}

func TestSyncCommand(t *testing.T) {
	t.Run("syncs a favorite folder", func(t *testing.T) {
		runner, output, remote := newTestRunner(t)

		if err := run(runner, "sync", "--type", "favorite", "--id", "42"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		if !strings.Contains(output.String(), "favorite 42 synced") || !strings.Contains(output.String(), "added: 3") {
			t.Errorf("unexpected output %q", output.String())
		}
		if remote.Calls("GetFavoriteListAllContents") != 1 {
			t.Errorf("expected the index to be fetched once")
		}
	})

	t.Run("prints progress and JSON", func(t *testing.T) {
		runner, output, _ := newTestRunner(t)

		if err := run(runner, "sync", "--id", "42", "--progress", "--json"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		out := output.String()
		if !strings.Contains(out, "[fetch_index]") {
			t.Errorf("expected progress lines, got %q", out)
		}

		var result map[string]any
		if err := json.Unmarshal([]byte(out[strings.Index(out, "{"):]), &result); err != nil {
			t.Fatalf("expected JSON result: %v\n%s", err, out)
		}
		if result["playlist_id"] == "" || result["added"] != float64(3) {
			t.Errorf("unexpected result %v", result)
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		runner, _, remote := newTestRunner(t)

		if err := run(runner, "sync", "--type", "local", "--id", "1"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument for local, got %v", err)
		}
		if err := run(runner, "sync", "--type", "album", "--id", "1"); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected validation error for unknown type, got %v", err)
		}
		if err := run(runner, "sync", "--type", "collection"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument, got %v", err)
		}
		if remote.TotalCalls() != 0 {
			t.Errorf("expected no remote calls, got %d", remote.TotalCalls())
		}
	})

	t.Run("reports remote failures", func(t *testing.T) {
		runner, _, _ := newTestRunner(t)

		err := run(runner, "sync", "--type", "collection", "--id", "missing")
		if !errors.Is(err, shared.ErrSyncCollectionFailed) {
			t.Errorf("expected collection failure, got %v", err)
		}
	})

	t.Run("all re-syncs known playlists", func(t *testing.T) {
		runner, output, _ := newTestRunner(t)

		if err := run(runner, "sync", "all"); err != nil {
			t.Fatalf("sync all failed: %v", err)
		}
		if !strings.Contains(output.String(), "No remote playlists") {
			t.Errorf("expected empty notice, got %q", output.String())
		}

		if err := run(runner, "sync", "--id", "42"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		output.Reset()

		if err := run(runner, "sync", "all", "--concurrency", "1"); err != nil {
			t.Fatalf("sync all failed: %v", err)
		}
		if !strings.Contains(output.String(), "Synced 1 of 1 playlists") {
			t.Errorf("unexpected output %q", output.String())
		}
	})
}

func TestPlaylistsCommand(t *testing.T) {
	runner, output, _ := newTestRunner(t)
	if err := run(runner, "sync", "--id", "42"); err != nil {
		t.Fatalf("sync failed: %v", err)
	}

	favorite, err := runner.syncer.Sync(context.Background(), "42", models.PlaylistFavorite, nil)
	if err != nil || !favorite.ShortCircuited {
		t.Fatalf("expected re-sync to short-circuit, got %+v, %v", favorite, err)
	}
	id := favorite.PlaylistID

	t.Run("list", func(t *testing.T) {
		output.Reset()
		if err := run(runner, "playlists", "list"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(output.String(), "favs") || !strings.Contains(output.String(), "3 tracks") {
			t.Errorf("unexpected output %q", output.String())
		}

		output.Reset()
		if err := run(runner, "playlists", "list", "--type", "local"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(output.String(), "No playlists") {
			t.Errorf("expected no local playlists, got %q", output.String())
		}
	})

	t.Run("show", func(t *testing.T) {
		output.Reset()
		if err := run(runner, "playlists", "show", "--id", id); err != nil {
			t.Fatalf("show failed: %v", err)
		}
		out := output.String()
		a, b, c := strings.Index(out, "video a"), strings.Index(out, "video b"), strings.Index(out, "video c")
		if a < 0 || !(a < b && b < c) {
			t.Errorf("expected tracks in order, got %q", out)
		}
		if !strings.Contains(out, "up - video a") {
			t.Errorf("expected artist names, got %q", out)
		}

		if err := run(runner, "playlists", "show", "--id", "nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("export", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "favs")
		if err := run(runner, "playlists", "export", "--id", id, "--format", "csv", "--output", base); err != nil {
			t.Fatalf("export failed: %v", err)
		}

		tu.AssertFileExists(t, base+"_metadata.json")
		if content := tu.MustReadFile(t, base+"_tracks.csv"); strings.Count(content, "\n") != 4 {
			t.Errorf("expected header and 3 rows, got %q", content)
		}

		if err := run(runner, "playlists", "export", "--id", id, "--format", "pdf"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid format error, got %v", err)
		}
	})

	t.Run("create, add and delete a local playlist", func(t *testing.T) {
		output.Reset()
		if err := run(runner, "playlists", "create", "--title", "Mine"); err != nil {
			t.Fatalf("create failed: %v", err)
		}

		locals, err := runner.syncer.RemoteTargets(context.Background())
		if err != nil || len(locals) != 1 {
			t.Fatalf("expected local playlists not to be sync targets, got %v, %v", locals, err)
		}

		out := output.String()
		localID := out[strings.LastIndex(out, "(")+1 : strings.LastIndex(out, ")")]

		file := filepath.Join(t.TempDir(), "song.flac")
		if err := run(runner, "playlists", "add", "--id", localID, "--file", file, "--artist", "Me", "--duration", "90"); err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if err := run(runner, "playlists", "add", "--id", localID, "--file", file); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected duplicate to be rejected, got %v", err)
		}
		if err := run(runner, "playlists", "add", "--id", id, "--file", file); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected remote playlist to be rejected, got %v", err)
		}

		output.Reset()
		if err := run(runner, "playlists", "show", "--id", localID); err != nil {
			t.Fatalf("show failed: %v", err)
		}
		if !strings.Contains(output.String(), "1. Me - song.flac") {
			t.Errorf("unexpected local playlist %q", output.String())
		}

		if err := run(runner, "playlists", "delete", "--id", localID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if err := run(runner, "playlists", "delete", "--id", localID); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected second delete to fail, got %v", err)
		}
	})
}
