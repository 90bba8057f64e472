// Package main provides the interactive TabulaDB client.
package main

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nickyhof/TabulaDB/db"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

// response mirrors the server's wire shape, one JSON object per line.
type response struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`

	Columns []string `json:"columns"`
	Rows    []struct {
		ID   int            `json:"id"`
		Data map[string]any `json:"data"`
	} `json:"rows"`

	Data        []map[string]any  `json:"data"`
	Total       int               `json:"total"`
	Page        int               `json:"page"`
	PageSize    int               `json:"page_size"`
	ColumnTypes map[string]string `json:"column_types"`

	Databases   []string      `json:"databases"`
	Tables      []string      `json:"tables"`
	Ids         []int64       `json:"ids"`
	Count       int           `json:"count"`
	Transaction string        `json:"transaction"`
	History     []transaction `json:"history"`
	Remotes     []remote      `json:"remotes"`

	Identity  string `json:"identity"`
	ExpiresIn int    `json:"expires_in"`

	TimeMs float64 `json:"time_ms"`
}

// transaction mirrors ps.Transaction on the wire.
type transaction struct {
	Id     string    `json:"Id"`
	When   time.Time `json:"When"`
	Author string    `json:"Author"`
}

// remote mirrors ps.Remote on the wire.
type remote struct {
	Name string   `json:"Name"`
	URLs []string `json:"URLs"`
}

// client is a line-protocol connection to a TabulaDB server.
type client struct {
	conn   net.Conn
	reader *bufio.Reader
}

func dialServer(addr string, useTLS bool, insecure bool) (*client, error) {
	var conn net.Conn
	var err error

	if useTLS {
		conn, err = tls.DialWithDialer(&net.Dialer{Timeout: 5 * time.Second}, "tcp", addr, &tls.Config{
			InsecureSkipVerify: insecure,
		})
	} else {
		conn, err = net.DialTimeout("tcp", addr, 5*time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	return &client{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// send writes one command line and reads one response line.
func (c *client) send(command string) (response, error) {
	if _, err := c.conn.Write([]byte(command + "\n")); err != nil {
		return response{}, fmt.Errorf("failed to send command: %w", err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		return response{}, fmt.Errorf("failed to read response: %w", err)
	}

	var resp response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return response{}, fmt.Errorf("malformed response: %w", err)
	}

	return resp, nil
}

func (c *client) close() {
	c.conn.Write([]byte("quit\n"))
	c.conn.Close()
}

// CLI holds the REPL state.
type CLI struct {
	client      *client
	history     []string
	historyFile string
	database    string // current database context
}

func main() {
	addr := flag.String("addr", "localhost:3306", "Server address")
	token := flag.String("token", "", "JWT token for authentication")
	database := flag.String("database", "", "Database to USE on connect")
	useTLS := flag.Bool("tls", false, "Connect with TLS")
	insecure := flag.Bool("tlsSkipVerify", false, "Skip TLS certificate verification")
	cmdFile := flag.String("file", "", "Command file to execute (non-interactive)")
	flag.Parse()

	printBanner()

	conn, err := dialServer(*addr, *useTLS, *insecure)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}
	fmt.Printf("%sConnected to %s%s\n", SuccessColor, *addr, ResetColor)

	cli := &CLI{
		client:      conn,
		history:     make([]string, 0),
		historyFile: getHistoryPath(),
	}

	if *token != "" {
		resp, err := conn.send("AUTH JWT " + *token)
		if err != nil || resp.Status != "ok" {
			fmt.Printf("%sAuthentication failed: %s%s\n", ErrorColor, respError(resp, err), ResetColor)
			os.Exit(1)
		}
		fmt.Printf("%sAuthenticated as %s%s\n", SuccessColor, resp.Identity, ResetColor)
	}

	if *database != "" {
		resp, err := conn.send("USE " + *database)
		if err != nil || resp.Status != "ok" {
			fmt.Printf("%sError: %s%s\n", ErrorColor, respError(resp, err), ResetColor)
			os.Exit(1)
		}
		cli.database = *database
	}

	cli.loadHistory()

	// Execute command file if provided
	if *cmdFile != "" {
		err := cli.importFile(*cmdFile)
		if err != nil {
			fmt.Printf("%sError importing file: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
		cli.client.close()
		return
	}

	cli.run()
}

func respError(resp response, err error) string {
	if err != nil {
		return err.Error()
	}
	return resp.Message
}

func printBanner() {
	fmt.Println()
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("TabulaDB v%s", Version)
	padding := bannerWidth - len(versionLine) - 2 // -2 for "  " margins
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Printf("%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Printf("%s%s║   Git-backed Dynamic Query Engine     ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println()
}

func (cli *CLI) run() {
	reader := bufio.NewReader(os.Stdin)
	var multiLineBuffer strings.Builder

	for {
		// Show prompt
		prompt := cli.getPrompt(multiLineBuffer.Len() > 0)
		fmt.Print(prompt)

		// Read input
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Printf("\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			cli.client.close()
			return
		}

		input = strings.TrimSuffix(input, "\n")
		input = strings.TrimSuffix(input, "\r")

		// Handle empty input
		if strings.TrimSpace(input) == "" {
			continue
		}

		// Check for special commands (only when not in multi-line mode)
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(input, ".") {
			if cli.handleCommand(input) {
				continue
			}
		}

		// Multi-line support: accumulate until we see a semicolon
		multiLineBuffer.WriteString(input)

		// Check if the statement is complete (ends with ;)
		trimmed := strings.TrimSpace(multiLineBuffer.String())
		if !strings.HasSuffix(trimmed, ";") {
			multiLineBuffer.WriteString(" ")
			continue
		}

		// Execute the complete statement
		command := strings.TrimSuffix(trimmed, ";")
		multiLineBuffer.Reset()

		if strings.TrimSpace(command) == "" {
			continue
		}

		// Add to history
		cli.addToHistory(command + ";")

		cli.execute(command)
	}
}

// execute sends one command line and renders the response.
func (cli *CLI) execute(command string) {
	resp, err := cli.client.send(command)
	if err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}

	cli.render(resp)
}

// render prints a server response: tabular for result sets, one line for
// receipts and errors.
func (cli *CLI) render(resp response) {
	if resp.Status != "ok" {
		fmt.Printf("%s✗ Error [%s]: %s%s\n", ErrorColor, resp.Code, resp.Message, ResetColor)
		return
	}

	switch {
	case len(resp.Rows) > 0:
		table := db.NewTable(os.Stdout)
		table.Header(resp.Columns)
		for _, row := range resp.Rows {
			cells := make([]string, len(resp.Columns))
			for i, column := range resp.Columns {
				cells[i] = db.FormatCell(row.Data[column])
			}
			table.Row(cells)
		}
		table.Render()
		fmt.Printf("%d row(s)\n", len(resp.Rows))

	case len(resp.Data) > 0:
		columns := resp.Columns
		table := db.NewTable(os.Stdout)
		table.Header(columns)
		for _, row := range resp.Data {
			cells := make([]string, len(columns))
			for i, column := range columns {
				cells[i] = db.FormatCell(row[column])
			}
			table.Row(cells)
		}
		table.Render()
		fmt.Printf("%d of %d row(s), page %d\n", len(resp.Data), resp.Total, resp.Page)

	case resp.Databases != nil:
		for _, name := range resp.Databases {
			fmt.Println(name)
		}
		fmt.Printf("%d database(s)\n", len(resp.Databases))

	case resp.Tables != nil:
		for _, name := range resp.Tables {
			fmt.Println(name)
		}
		fmt.Printf("%d table(s)\n", len(resp.Tables))

	case len(resp.History) > 0:
		table := db.NewTable(os.Stdout)
		table.Header([]string{"transaction", "when", "author"})
		for _, txn := range resp.History {
			id := txn.Id
			if len(id) > 8 {
				id = id[:8]
			}
			table.Row([]string{id, txn.When.Format(time.RFC3339), txn.Author})
		}
		table.Render()

	case len(resp.Remotes) > 0:
		table := db.NewTable(os.Stdout)
		table.Header([]string{"remote", "url"})
		for _, rem := range resp.Remotes {
			table.Row([]string{rem.Name, strings.Join(rem.URLs, ", ")})
		}
		table.Render()

	case len(resp.Columns) > 0:
		// Schema listing: names with their declared types.
		table := db.NewTable(os.Stdout)
		table.Header([]string{"column", "type"})
		for _, column := range resp.Columns {
			table.Row([]string{column, resp.ColumnTypes[column]})
		}
		table.Render()

	case resp.Message != "":
		fmt.Printf("%s✓ %s%s\n", SuccessColor, resp.Message, ResetColor)

	default:
		fmt.Printf("%s✓ OK%s\n", SuccessColor, ResetColor)
	}
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return fmt.Sprintf("%s   ...>%s ", PromptColor, ResetColor)
	}

	dbPart := ""
	if cli.database != "" {
		dbPart = fmt.Sprintf(" (%s)", cli.database)
	}

	return fmt.Sprintf("%stabuladb%s>%s ", PromptColor, dbPart, ResetColor)
}

func (cli *CLI) handleCommand(input string) bool {
	cmd := strings.TrimSpace(input)
	parts := strings.Fields(cmd)

	if len(parts) == 0 {
		return true
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		fmt.Printf("%sGoodbye!%s\n", SuccessColor, ResetColor)
		cli.saveHistory()
		cli.client.close()
		os.Exit(0)

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".tables":
		cli.execute("TABLES")

	case ".databases", ".dbs":
		cli.execute("DATABASES")

	case ".use":
		if len(parts) > 1 {
			resp, err := cli.client.send("USE " + parts[1])
			if err != nil || resp.Status != "ok" {
				fmt.Printf("%s✗ Error: %s%s\n", ErrorColor, respError(resp, err), ResetColor)
			} else {
				cli.database = parts[1]
				fmt.Printf("%s✓ Using database: %s%s\n", SuccessColor, cli.database, ResetColor)
			}
		} else {
			fmt.Printf("%s✗ Usage: .use <database>%s\n", ErrorColor, ResetColor)
		}

	case ".clear", ".cls":
		fmt.Print("\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Printf("TabulaDB version %s\n", Version)

	case ".import":
		if len(parts) > 1 {
			err := cli.importFile(parts[1])
			if err != nil {
				fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			}
		} else {
			fmt.Printf("%s✗ Usage: .import <file>%s\n", ErrorColor, ResetColor)
		}

	default:
		fmt.Printf("%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}

	return true
}

func (cli *CLI) printHelp() {
	fmt.Println()
	fmt.Printf("%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  .help, .h        Show this help message")
	fmt.Println("  .quit, .exit     Exit the CLI")
	fmt.Println("  .databases       List all databases")
	fmt.Println("  .tables          List tables in the current database")
	fmt.Println("  .use <db>        Set the current database context")
	fmt.Println("  .import <file>   Execute commands from a file")
	fmt.Println("  .history         Show command history")
	fmt.Println("  .clear           Clear the screen")
	fmt.Println("  .version         Show version info")
	fmt.Println()
	fmt.Printf("%s%sServer Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  USE <database>;")
	fmt.Println("  CREATE DATABASE <name>;  DROP DATABASE <name>;")
	fmt.Println("  TABLE CREATE <name> [{\"name\":...,\"type\":...}, ...];")
	fmt.Println("  TABLE COLUMNS <name>;  TABLE REPLACE <name> <columns>;  TABLE DROP <name>;")
	fmt.Println("  ROWS INSERT <table> [<row>, ...];  ROWS UPDATE <table> <key> <row>;")
	fmt.Println("  ROWS DELETE <table> <key>;  ROWS CLEAR <table>;")
	fmt.Println("  PAGE <table> <page> <size> [<column> <asc|desc>];")
	fmt.Println("  TOP <table> <n> [<column> <asc|desc>];")
	fmt.Println("  EXPORT <table> <url>;  IMPORT <table> <url>;")
	fmt.Println("  SNAPSHOT <tag>;  RESTORE <tag>;  HISTORY [<n>];")
	fmt.Println("  REMOTE ADD <name> <url>;  REMOTE LIST;  REMOTE REMOVE <name>;")
	fmt.Println("  PUSH [<remote>] [<branch>];  PULL [<remote>] [<branch>];")
	fmt.Println()
	fmt.Printf("%s%sSQL:%s any other statement runs on the SQL path against the current database\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  SELECT region, SUM(amount) FROM sales GROUP BY region;")
	fmt.Println()
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	// Limit history size
	if len(cli.history) > 1000 {
		cli.history = cli.history[len(cli.history)-1000:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Println("No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}

	for i := start; i < len(cli.history); i++ {
		fmt.Printf("  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tabuladb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	// Save last 1000 entries
	start := 0
	if len(cli.history) > 1000 {
		start = len(cli.history) - 1000
	}

	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile reads and executes commands from a file, one statement per
// semicolon.
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	content := string(data)
	statements := splitStatements(content)

	successCount := 0
	errorCount := 0

	for i, stmt := range statements {
		// The wire protocol is one command per line.
		stmt = strings.TrimSpace(strings.ReplaceAll(stmt, "\n", " "))
		if stmt == "" || strings.HasPrefix(stmt, "--") {
			continue
		}

		resp, err := cli.client.send(stmt)
		if err != nil {
			return fmt.Errorf("failed at statement %d: %w", i+1, err)
		}

		if resp.Status != "ok" {
			fmt.Printf("%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(stmt, 50), ResetColor)
			fmt.Printf("      Error [%s]: %s\n", resp.Code, resp.Message)
			errorCount++
			continue
		}

		successCount++
		detail := ""
		switch {
		case resp.Count > 0:
			detail = fmt.Sprintf(" (%d affected)", resp.Count)
		case len(resp.Rows) > 0:
			detail = fmt.Sprintf(" (%d rows)", len(resp.Rows))
		}
		fmt.Printf("%s[%d] ✓ %s%s%s\n", SuccessColor, i+1, truncate(stmt, 50), detail, ResetColor)
	}

	fmt.Printf("\n%s✓ Import complete: %d succeeded, %d failed%s\n",
		SuccessColor, successCount, errorCount, ResetColor)

	return nil
}

// splitStatements splits file content into individual statements
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := byte(0)

	for i := 0; i < len(content); i++ {
		ch := content[i]

		// Handle string literals
		if (ch == '\'' || ch == '"') && (i == 0 || content[i-1] != '\\') {
			if !inString {
				inString = true
				stringChar = ch
			} else if ch == stringChar {
				inString = false
			}
		}

		// Handle comments
		if !inString && ch == '-' && i+1 < len(content) && content[i+1] == '-' {
			// Skip to end of line
			for i < len(content) && content[i] != '\n' {
				i++
			}
			continue
		}

		// Statement separator
		if !inString && ch == ';' {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	// Handle last statement without semicolon
	stmt := strings.TrimSpace(current.String())
	if stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
