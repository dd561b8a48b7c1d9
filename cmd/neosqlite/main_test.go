package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/neosqlite/internal/api"
	"github.com/nerrad567/neosqlite/internal/sqlitedb"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// writeConfig writes a config file pointing at a database in a temp dir and
// returns the config path and the database path. extra is appended verbatim.
func writeConfig(t *testing.T, extra string) (string, string) {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	dbPath := filepath.Join(tmpDir, "data", "test.db")

	configContent := `
database:
  name: test
  path: "` + dbPath + `"
  busy_timeout: 5

logging:
  level: error
  format: text
  output: discard

security:
  jwt:
    secret: "` + testSecret + `"
    access_token_ttl: 15
` + extra

	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath, dbPath
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// seeded creates and seeds a database and returns the config path.
func seeded(t *testing.T, extra string) string {
	t.Helper()
	configPath, _ := writeConfig(t, extra)
	if out, err := execute(t, "--config", configPath, "init", "--seed", "table_one"); err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	return configPath
}

// ─── Config Path Tests ─────────────────────────────────────────────

func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("NEOSQLITE_CONFIG", "")

	if path := getConfigPath(""); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("NEOSQLITE_CONFIG", expected)

	if path := getConfigPath(""); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
	if path := getConfigPath("/flag.yaml"); path != "/flag.yaml" {
		t.Errorf("getConfigPath(flag) = %q, want /flag.yaml", path)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	if _, err := loadConfig(&options{configPath: "/nonexistent/path/config.yaml"}); err == nil {
		t.Fatal("loadConfig() should fail with an explicit missing config path")
	}
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	configPath, _ := writeConfig(t, "")

	cfg, err := loadConfig(&options{configPath: configPath, dbPath: "/other.db", verbose: true})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Database.Path != "/other.db" || !cfg.Database.Verbose {
		t.Errorf("database = %+v", cfg.Database)
	}
}

// ─── Command Tests ─────────────────────────────────────────────────

func TestInit(t *testing.T) {
	configPath, dbPath := writeConfig(t, "")

	out, err := execute(t, "--config", configPath, "init")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.Contains(out, "created "+dbPath) {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}

	if _, err := execute(t, "--config", configPath, "init"); err == nil {
		t.Error("second init over an existing file succeeded")
	}
}

func TestTables(t *testing.T) {
	configPath := seeded(t, "")

	out, err := execute(t, "--config", configPath, "tables")
	if err != nil {
		t.Fatalf("tables: %v", err)
	}
	if out != "sqlite_sequence\ntable_one\n" {
		t.Errorf("tables output = %q", out)
	}
}

func TestTables_MissingDatabase(t *testing.T) {
	configPath, _ := writeConfig(t, "")

	_, err := execute(t, "--config", configPath, "tables")
	if !errors.Is(err, sqlitedb.ErrCannotAccess) {
		t.Errorf("error = %v, want ErrCannotAccess", err)
	}
}

func TestRows(t *testing.T) {
	configPath := seeded(t, "")

	out, err := execute(t, "--config", configPath, "rows", "table_one")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 6 {
		t.Fatalf("rows printed %d lines, want header + 5:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "id") || !strings.Contains(lines[2], "NULL") {
		t.Errorf("unexpected table:\n%s", out)
	}

	out, err = execute(t, "--config", configPath, "rows", "table_one",
		"--where", "something_not_null = ?", "--arg", "curry", "--json")
	if err != nil {
		t.Fatalf("rows --where: %v", err)
	}
	want := `{"id":4,"something_not_null":"curry","something_null":"chutney"}` + "\n"
	if out != want {
		t.Errorf("rows --json = %q, want %q", out, want)
	}
}

func TestRows_MissingTable(t *testing.T) {
	configPath := seeded(t, "")

	_, err := execute(t, "--config", configPath, "rows", "table_two")
	if !errors.Is(err, sqlitedb.ErrTableDoesNotExist) {
		t.Errorf("error = %v, want ErrTableDoesNotExist", err)
	}
}

func TestExec(t *testing.T) {
	configPath := seeded(t, "")

	out, err := execute(t, "--config", configPath, "exec",
		"INSERT INTO table_one VALUES (NULL, ?, ?)", "toast", "marmite")
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if out != "rows affected: 1, last insert id: 6\n" {
		t.Errorf("exec output = %q", out)
	}

	out, err = execute(t, "--config", configPath, "exec", "--query", "SELECT count(*) FROM table_one")
	if err != nil {
		t.Fatalf("exec --query: %v", err)
	}
	if strings.TrimSpace(out) != "6" {
		t.Errorf("count = %q, want 6", out)
	}

	_, err = execute(t, "--config", configPath, "exec", "SELEC nonsense")
	if !errors.Is(err, sqlitedb.ErrExecution) {
		t.Errorf("invalid SQL error = %v, want ErrExecution", err)
	}

	if _, err := execute(t, "--config", configPath, "exec"); err == nil {
		t.Error("exec without SQL succeeded")
	}
}

func TestExec_File(t *testing.T) {
	configPath := seeded(t, "")
	script := filepath.Join(t.TempDir(), "script.sql")
	content := "DELETE FROM table_one; INSERT INTO table_one VALUES (NULL, 'a', 'b');"
	if err := os.WriteFile(script, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "--config", configPath, "exec", "--file", script); err != nil {
		t.Fatalf("exec --file: %v", err)
	}

	out, err := execute(t, "--config", configPath, "exec", "-q", "SELECT count(*) FROM table_one")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if strings.TrimSpace(out) != "1" {
		t.Errorf("count = %q, want 1", out)
	}
}

func TestSeed(t *testing.T) {
	configPath := seeded(t, "")

	if _, err := execute(t, "--config", configPath, "exec", "DELETE FROM table_one"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	out, err := execute(t, "--config", configPath, "seed", "table_one")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if out != "fixture table_one applied\n" {
		t.Errorf("seed output = %q", out)
	}

	out, err = execute(t, "--config", configPath, "exec", "-q", "SELECT count(*) FROM table_one")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if strings.TrimSpace(out) != "5" {
		t.Errorf("count after reseed = %q, want 5", out)
	}

	if _, err := execute(t, "--config", configPath, "seed", "no_such_fixture"); err == nil {
		t.Error("seeding an unknown fixture succeeded")
	}
}

func TestSeed_List(t *testing.T) {
	out, err := execute(t, "seed", "--list")
	if err != nil {
		t.Fatalf("seed --list: %v", err)
	}
	if !strings.Contains(out, "table_one\n") {
		t.Errorf("fixtures = %q", out)
	}
}

func TestToken(t *testing.T) {
	configPath, _ := writeConfig(t, "")

	out, err := execute(t, "--config", configPath, "token", "--subject", "ops", "--ttl", "1m")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	subject, err := api.ParseToken(testSecret, strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if subject != "ops" {
		t.Errorf("subject = %q, want ops", subject)
	}
}

func TestToken_NoSecret(t *testing.T) {
	t.Setenv("NEOSQLITE_CONFIG", "")
	t.Setenv("NEOSQLITE_JWT_SECRET", "")
	t.Chdir(t.TempDir())

	if _, err := execute(t, "token"); err == nil {
		t.Error("token without a secret succeeded")
	}
}

// ─── Metrics Push Tests ────────────────────────────────────────────

func TestPushMetrics(t *testing.T) {
	var mu sync.Mutex
	var pushes []string
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		pushes = append(pushes, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer gateway.Close()

	configPath := seeded(t, fmt.Sprintf(`
metrics:
  enabled: true
  push_gateway: %q
`, gateway.URL))

	if _, err := execute(t, "--config", configPath, "exec", "DELETE FROM table_one WHERE id = 1"); err != nil {
		t.Fatalf("exec: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(pushes) == 0 || pushes[len(pushes)-1] != "PUT /metrics/job/"+pushJob {
		t.Errorf("gateway saw %v", pushes)
	}
}

// ─── Serve Tests ───────────────────────────────────────────────────

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port //nolint:forcetypeassert // tcp listener
}

func TestServe(t *testing.T) {
	port := freePort(t)
	configPath := seeded(t, fmt.Sprintf(`
metrics:
  enabled: true
api:
  host: 127.0.0.1
  port: %d
`, port))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		cmd := newRootCmd()
		cmd.SetArgs([]string{"--config", configPath, "serve"})
		cmd.SetOut(&bytes.Buffer{})
		done <- cmd.ExecuteContext(ctx)
	}()

	base := fmt.Sprintf("http://127.0.0.1:%d/api/v1", port)
	var resp *http.Response
	var err error
	for deadline := time.Now().Add(5 * time.Second); time.Now().Before(deadline); time.Sleep(50 * time.Millisecond) {
		resp, err = http.Get(base + "/health") //nolint:noctx // Test
		if err == nil {
			break
		}
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/metrics") //nolint:noctx // Test
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop after cancellation")
	}
}

func TestServe_RequiresSecret(t *testing.T) {
	configPath, _ := writeConfig(t, "")
	t.Setenv("NEOSQLITE_JWT_SECRET", "short")

	if _, err := execute(t, "--config", configPath, "serve"); err == nil {
		t.Error("serve accepted a short jwt secret")
	}
}
