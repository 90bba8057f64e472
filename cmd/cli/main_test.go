package main

import (
	"bufio"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// commandLog records commands a fake server has seen.
type commandLog struct {
	mu       sync.Mutex
	commands []string
}

func (l *commandLog) add(command string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commands = append(l.commands, command)
}

func (l *commandLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.commands...)
}

// fakeServer speaks the wire protocol with canned responses, so client
// behavior is testable without an engine.
func fakeServer(t *testing.T, respond func(command string) any) (string, *commandLog) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	log := &commandLog{}

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}

			go func(conn net.Conn) {
				defer conn.Close()
				reader := bufio.NewReader(conn)
				for {
					line, err := reader.ReadString('\n')
					if err != nil {
						return
					}
					command := strings.TrimSpace(line)
					if command == "quit" {
						return
					}
					log.add(command)

					data, _ := json.Marshal(respond(command))
					conn.Write(append(data, '\n'))
				}
			}(conn)
		}
	}()

	return listener.Addr().String(), log
}

func okResponder(command string) any {
	return map[string]any{"status": "ok", "message": command}
}

func setupTestCLI(t *testing.T) (*CLI, *commandLog) {
	t.Helper()

	addr, log := fakeServer(t, okResponder)

	client, err := dialServer(addr, false, false)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(client.close)

	return &CLI{
		client:  client,
		history: make([]string, 0),
	}, log
}

func TestClientSendReceive(t *testing.T) {
	cli, log := setupTestCLI(t)

	resp, err := cli.client.send("DATABASES")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Expected ok, got: %s", resp.Status)
	}
	if resp.Message != "DATABASES" {
		t.Errorf("Expected echoed command, got: %s", resp.Message)
	}

	seen := log.all()
	if len(seen) != 1 || seen[0] != "DATABASES" {
		t.Errorf("Expected server to see [DATABASES], got: %v", seen)
	}
}

func TestClientDecodesResultFields(t *testing.T) {
	addr, _ := fakeServer(t, func(command string) any {
		return map[string]any{
			"status":  "ok",
			"columns": []string{"region", "amount"},
			"rows": []map[string]any{
				{"id": 0, "data": map[string]any{"region": "east", "amount": 100.5}},
			},
			"total":   1,
			"time_ms": 2.5,
		}
	})

	client, err := dialServer(addr, false, false)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.close()

	resp, err := client.send("SELECT * FROM sales")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if len(resp.Columns) != 2 || resp.Columns[0] != "region" {
		t.Errorf("Expected columns [region amount], got: %v", resp.Columns)
	}
	if len(resp.Rows) != 1 {
		t.Fatalf("Expected 1 row, got: %d", len(resp.Rows))
	}
	if resp.Rows[0].Data["region"] != "east" {
		t.Errorf("Expected east, got: %v", resp.Rows[0].Data["region"])
	}
	if resp.TimeMs != 2.5 {
		t.Errorf("Expected time_ms 2.5, got: %v", resp.TimeMs)
	}
}

func TestCLIUseDatabase(t *testing.T) {
	cli, log := setupTestCLI(t)

	cli.handleCommand(".use testdb")

	if cli.database != "testdb" {
		t.Errorf("Expected database to be 'testdb', got '%s'", cli.database)
	}

	seen := log.all()
	if len(seen) != 1 || seen[0] != "USE testdb" {
		t.Errorf("Expected server to see [USE testdb], got: %v", seen)
	}
}

func TestCLIUseDatabaseRejected(t *testing.T) {
	addr, _ := fakeServer(t, func(command string) any {
		return map[string]any{"status": "error", "code": "not_found", "message": "database missing does not exist"}
	})

	client, err := dialServer(addr, false, false)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer client.close()

	cli := &CLI{client: client}
	cli.handleCommand(".use missing")

	if cli.database != "" {
		t.Errorf("Expected database context to stay empty, got '%s'", cli.database)
	}
}

func TestCLIAddToHistory(t *testing.T) {
	cli, _ := setupTestCLI(t)

	cli.addToHistory("SELECT * FROM test")
	cli.addToHistory("ROWS INSERT test [{}]")

	if len(cli.history) != 2 {
		t.Errorf("Expected 2 history entries, got %d", len(cli.history))
	}

	// Adding duplicate of last command should not increase count
	cli.addToHistory("ROWS INSERT test [{}]")
	if len(cli.history) != 2 {
		t.Errorf("Expected 2 history entries after duplicate, got %d", len(cli.history))
	}
}

func TestCLIHistoryLimit(t *testing.T) {
	cli, _ := setupTestCLI(t)

	// Add more than 1000 entries
	for i := 0; i < 1100; i++ {
		cli.addToHistory("SELECT " + string(rune(i)))
	}

	if len(cli.history) > 1000 {
		t.Errorf("Expected history to be limited to 1000, got %d", len(cli.history))
	}
}

func TestCLIHistorySaveLoad(t *testing.T) {
	cli, _ := setupTestCLI(t)
	cli.historyFile = filepath.Join(t.TempDir(), "history")

	cli.addToHistory("CREATE DATABASE a;")
	cli.addToHistory("USE a;")
	cli.saveHistory()

	reloaded := &CLI{historyFile: cli.historyFile}
	reloaded.loadHistory()

	if len(reloaded.history) != 2 {
		t.Fatalf("Expected 2 reloaded entries, got %d", len(reloaded.history))
	}
	if reloaded.history[1] != "USE a;" {
		t.Errorf("Expected 'USE a;', got %q", reloaded.history[1])
	}
}

func TestCLIGetPrompt(t *testing.T) {
	cli, _ := setupTestCLI(t)

	// Normal prompt
	prompt := cli.getPrompt(false)
	if !strings.Contains(prompt, "tabuladb") {
		t.Error("Expected prompt to contain 'tabuladb'")
	}

	// Multi-line prompt
	prompt = cli.getPrompt(true)
	if !strings.Contains(prompt, "...>") {
		t.Error("Expected multi-line prompt to contain '...>'")
	}

	// With database context
	cli.database = "mydb"
	prompt = cli.getPrompt(false)
	if !strings.Contains(prompt, "mydb") {
		t.Error("Expected prompt to contain database name")
	}
}

func TestCLIHandleCommand(t *testing.T) {
	cli, _ := setupTestCLI(t)

	tests := []struct {
		command  string
		expected bool // should return true (command handled)
	}{
		{".help", true},
		{".version", true},
		{".history", true},
		{".databases", true},
		{".unknown", true}, // Unknown commands are still handled (with error message)
	}

	for _, test := range tests {
		result := cli.handleCommand(test.command)
		if result != test.expected {
			t.Errorf("handleCommand(%s) = %v, expected %v", test.command, result, test.expected)
		}
	}
}

func TestVersionVariable(t *testing.T) {
	// Test that Version variable exists and has a default value
	if Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestRenderShapes(t *testing.T) {
	cli, _ := setupTestCLI(t)

	// Each response shape renders without panicking.
	shapes := []response{
		{Status: "error", Code: "validation", Message: "bad input"},
		{Status: "ok", Message: "created database shop"},
		{Status: "ok", Databases: []string{"shop", "crm"}},
		{Status: "ok", Tables: []string{"sales"}},
		{Status: "ok", Columns: []string{"region"}, ColumnTypes: map[string]string{"region": "VARCHAR"}},
		{Status: "ok", History: []transaction{{Id: "0123456789abcdef", When: time.Now(), Author: "a <b>"}}},
		{Status: "ok", Remotes: []remote{{Name: "origin", URLs: []string{"/tmp/store"}}}},
		{Status: "ok"},
	}

	for _, shape := range shapes {
		cli.render(shape)
	}
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"single statement", "SELECT * FROM test", 1},
		{"two statements", "SELECT * FROM a; SELECT * FROM b", 2},
		{"with semicolons", "ROWS CLEAR t; ROWS CLEAR u;", 2},
		{"with comments", "-- comment\nSELECT * FROM test", 1},
		{"multiline", "TABLE CREATE t [\n {\"name\":\"id\",\n \"type\":\"INTEGER\"}\n]", 1},
		{"empty", "", 0},
		{"only semicolons", ";;;", 0},
		{"string with semicolon", "SELECT * FROM t WHERE s = 'a;b'", 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := splitStatements(test.input)
			if len(result) != test.expected {
				t.Errorf("splitStatements(%q) = %d statements, expected %d", test.input, len(result), test.expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		max      int
		expected string
	}{
		{"short", 10, "short"},
		{"this is a long string", 10, "this is..."},
		{"exact", 5, "exact"},
		{"ab", 10, "ab"},
	}

	for _, test := range tests {
		result := truncate(test.input, test.max)
		if result != test.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q", test.input, test.max, result, test.expected)
		}
	}
}

func TestImportFile(t *testing.T) {
	cli, log := setupTestCLI(t)

	path := filepath.Join(t.TempDir(), "seed.tql")
	content := `-- seed data
CREATE DATABASE shop;
USE shop;
TABLE CREATE sales [
  {"name":"region","type":"VARCHAR"}
];
ROWS INSERT sales [{"region":"east"}];
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	if err := cli.importFile(path); err != nil {
		t.Fatalf("importFile failed: %v", err)
	}

	seen := log.all()
	if len(seen) != 4 {
		t.Fatalf("Expected 4 commands sent, got %d: %v", len(seen), seen)
	}
	if seen[0] != "CREATE DATABASE shop" {
		t.Errorf("Expected CREATE DATABASE first, got: %s", seen[0])
	}
	// Multi-line statements are flattened onto one protocol line.
	if strings.Contains(seen[2], "\n") {
		t.Errorf("Expected flattened statement, got: %q", seen[2])
	}
	if !strings.HasPrefix(seen[2], "TABLE CREATE sales") {
		t.Errorf("Expected TABLE CREATE third, got: %s", seen[2])
	}
}

func TestImportFileNotFound(t *testing.T) {
	cli, _ := setupTestCLI(t)

	err := cli.importFile("nonexistent.tql")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestImportCommand(t *testing.T) {
	cli, _ := setupTestCLI(t)

	// Missing filename is handled with a usage message.
	result := cli.handleCommand(".import")
	if !result {
		t.Error("Expected .import to be handled")
	}
}
