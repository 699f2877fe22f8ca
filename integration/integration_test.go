//go:build integration

// Package integration provides integration tests for the stackup CLI using
// testscript. The container runtime is replaced with an in-process fake so
// the CLI's wiring can be exercised without Docker.
package integration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/mgale/stackup/internal/cmd"
)

// TestMain sets up the testscript environment. Both the stackup CLI and the
// fake docker binary run in-process.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"stackup": stackupMain,
		"docker":  dockerMain,
	}))
}

// stackupMain runs the CLI in-process.
func stackupMain() int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// dockerMain is a recording fake for the docker CLI. Every invocation is
// appended to $DOCKER_FAKE_LOG; the commands the engine issues get canned
// replies. Container IDs handed out during 'compose ps -q' are remembered in
// $DOCKER_FAKE_RUNNING so 'ps -q --no-trunc' can report them live until a
// 'stop' removes them.
func dockerMain() int {
	args := os.Args[1:]
	logCall(strings.Join(args, " "))

	switch {
	case len(args) >= 2 && args[0] == "pull":
		fmt.Printf("%s: Pulled\n", args[1])
		return 0

	case len(args) >= 1 && args[0] == "build":
		fmt.Println("Successfully built")
		return 0

	case len(args) >= 1 && args[0] == "compose":
		return composeMain(args[1:])

	case len(args) >= 2 && args[0] == "stop":
		removeRunning(args[1:])
		return 0

	case len(args) >= 1 && args[0] == "ps":
		for _, id := range readRunning() {
			fmt.Println(id)
		}
		return 0
	}

	fmt.Fprintf(os.Stderr, "fake docker: unhandled command %q\n", strings.Join(args, " "))
	return 1
}

// composeMain handles 'docker compose' subcommands. The -f and -p flags come
// first, matching how the engine builds its argument list.
func composeMain(args []string) int {
	rest := args
	for len(rest) >= 2 && (rest[0] == "-f" || rest[0] == "-p") {
		rest = rest[2:]
	}
	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "fake docker: missing compose subcommand")
		return 1
	}

	switch rest[0] {
	case "up":
		return 0
	case "ps":
		// compose ps -q <service>
		service := rest[len(rest)-1]
		id := "cid-" + service
		addRunning(id)
		fmt.Println(id)
		return 0
	}

	fmt.Fprintf(os.Stderr, "fake docker: unhandled compose command %q\n", strings.Join(rest, " "))
	return 1
}

func logCall(line string) {
	path := os.Getenv("DOCKER_FAKE_LOG")
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintln(f, line)
}

func runningPath() string {
	return os.Getenv("DOCKER_FAKE_RUNNING")
}

func readRunning() []string {
	data, err := os.ReadFile(runningPath())
	if err != nil {
		return nil
	}
	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			ids = append(ids, line)
		}
	}
	return ids
}

func writeRunning(ids []string) {
	if runningPath() == "" {
		return
	}
	_ = os.WriteFile(runningPath(), []byte(strings.Join(ids, "\n")+"\n"), 0o644)
}

func addRunning(id string) {
	ids := readRunning()
	for _, existing := range ids {
		if existing == id {
			return
		}
	}
	writeRunning(append(ids, id))
}

func removeRunning(stopped []string) {
	drop := make(map[string]bool, len(stopped))
	for _, id := range stopped {
		drop[id] = true
	}
	var kept []string
	for _, id := range readRunning() {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	writeRunning(kept)
}

// TestScripts runs all testscript files in testdata/scripts.
func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir:   "testdata/scripts",
		Setup: setupTestEnv,
	})
}

// setupTestEnv isolates HOME, the state file, and the fake runtime's
// bookkeeping inside the script's work directory.
func setupTestEnv(env *testscript.Env) error {
	testHome := filepath.Join(env.WorkDir, "home")
	configDir := filepath.Join(testHome, ".config", "stackup")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	statePath := filepath.Join(env.WorkDir, "stackup-instances.json")

	env.Setenv("HOME", testHome)
	env.Setenv("XDG_CONFIG_HOME", filepath.Join(testHome, ".config"))
	env.Setenv("DOCKER_FAKE_LOG", filepath.Join(env.WorkDir, "docker-calls.log"))
	env.Setenv("DOCKER_FAKE_RUNNING", filepath.Join(env.WorkDir, "docker-running.txt"))

	configPath := filepath.Join(configDir, "config.yaml")
	configContent := fmt.Sprintf(`project:
  service: ""
  version: latest
tags:
  local_build: "#local-build"
  skip_pull: "#skip-pull"
compose:
  binary: docker
  flags: {}
storage:
  state_file: %s
`, statePath)

	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}
