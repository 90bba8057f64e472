package main

import (
	"bufio"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nickyhof/TabulaDB"
	"github.com/nickyhof/TabulaDB/core"
	"github.com/nickyhof/TabulaDB/db"
	"github.com/nickyhof/TabulaDB/ps"
)

// Server is a TCP server that exposes the TabulaDB engine over a line
// protocol: one command per line in, one JSON response per line out.
type Server struct {
	listener   net.Listener
	instance   *TabulaDB.Instance
	identity   core.Identity
	engine     *db.Engine
	authConfig *AuthConfig
	remoteAuth *ps.RemoteAuth
	tlsEnabled bool
	done       chan struct{}
	wg         sync.WaitGroup
}

// session tracks per-connection state: authentication, the database set by
// USE, and the engine stamping that connection's identity on writes.
type session struct {
	state    ConnectionState
	database string
	engine   *db.Engine
}

// NewServer creates a server with the given TabulaDB instance. All writes
// are stamped with the default identity.
func NewServer(instance *TabulaDB.Instance, identity core.Identity) *Server {
	return &Server{
		instance: instance,
		identity: identity,
		engine:   instance.Engine(identity),
		done:     make(chan struct{}),
	}
}

// NewServerWithAuth creates a server that requires clients to authenticate
// before issuing commands. Writes are stamped with the authenticated
// identity.
func NewServerWithAuth(instance *TabulaDB.Instance, authConfig *AuthConfig) *Server {
	identity := core.Identity{Name: "TabulaDB Server", Email: "server@tabuladb.local"}
	server := NewServer(instance, identity)
	server.authConfig = authConfig

	return server
}

// NewServerWithOptions creates a server whose engine uses the given
// options (driver, query timeout).
func NewServerWithOptions(instance *TabulaDB.Instance, identity core.Identity, options db.Options) (*Server, error) {
	engine, err := instance.EngineWithOptions(identity, options)
	if err != nil {
		return nil, err
	}

	return &Server{
		instance: instance,
		identity: identity,
		engine:   engine,
		done:     make(chan struct{}),
	}, nil
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener

	log.Printf("Server listening on %s", addr)

	go s.acceptLoop()
	return nil
}

// StartTLS begins listening with TLS using the given certificate and key
// files.
func (s *Server) StartTLS(addr string, certFile string, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	listener, err := tls.Listen("tcp", addr, &tls.Config{Certificates: []tls.Certificate{cert}})
	if err != nil {
		return fmt.Errorf("failed to start TLS server: %w", err)
	}
	s.listener = listener
	s.tlsEnabled = true

	log.Printf("Server listening on %s (TLS)", addr)

	go s.acceptLoop()
	return nil
}

// TLSEnabled reports whether the server is serving TLS connections.
func (s *Server) TLSEnabled() bool {
	return s.tlsEnabled
}

// AuthEnabled reports whether clients must authenticate before issuing
// commands.
func (s *Server) AuthEnabled() bool {
	return s.authConfig != nil && s.authConfig.Enabled
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				log.Printf("Accept error: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	connID := uuid.NewString()
	log.Printf("Client connected: %s [%s]", conn.RemoteAddr(), connID)

	sess := &session{engine: s.engine}
	reader := bufio.NewReader(conn)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		// One command per line.
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				log.Printf("Read error from %s [%s]: %v", conn.RemoteAddr(), connID, err)
			}
			return
		}

		command := strings.TrimSpace(line)
		if command == "" {
			continue
		}

		lowered := strings.ToLower(command)
		if lowered == "quit" || lowered == "exit" {
			log.Printf("Client disconnected: %s [%s]", conn.RemoteAddr(), connID)
			return
		}

		response := s.dispatch(command, sess)

		data, err := EncodeResponse(response)
		if err != nil {
			log.Printf("Failed to encode response: %v", err)
			continue
		}

		_, err = conn.Write(data)
		if err != nil {
			log.Printf("Write error to %s [%s]: %v", conn.RemoteAddr(), connID, err)
			return
		}
	}
}

// dispatch routes one command line. When authentication is enabled, an
// unauthenticated connection may only AUTH.
func (s *Server) dispatch(command string, sess *session) Response {
	fields := strings.Fields(command)
	head := strings.ToUpper(fields[0])

	if head == "AUTH" {
		return s.handleAuth(command, sess)
	}

	if s.AuthEnabled() && !sess.state.IsAuthenticated() {
		return Response{Status: "error", Code: CodeAuth, Message: "authentication required"}
	}

	switch head {
	case "USE":
		return s.handleUse(fields, sess)
	case "DATABASES":
		return Response{Status: "ok", Databases: sess.engine.ListDatabases()}
	case "TABLES":
		return s.handleTables(sess)
	case "CREATE", "DROP":
		// CREATE DATABASE and DROP DATABASE are commands; every other
		// CREATE/DROP statement falls through to SQL.
		if len(fields) == 3 && strings.EqualFold(fields[1], "DATABASE") {
			return s.handleDatabase(head, fields[2], sess)
		}
		return s.handleSQL(command, sess)
	case "TABLE":
		return s.handleTable(command, fields, sess)
	case "ROWS":
		return s.handleRows(command, fields, sess)
	case "PAGE":
		return s.handlePage(fields, sess)
	case "TOP":
		return s.handleTop(fields, sess)
	case "EXPORT":
		return s.handleExport(fields, sess)
	case "IMPORT":
		return s.handleImport(fields, sess)
	case "SNAPSHOT":
		return s.handleSnapshot(fields, sess)
	case "RESTORE":
		return s.handleRestore(fields, sess)
	case "HISTORY":
		return s.handleHistory(fields, sess)
	case "REMOTE":
		return s.handleRemote(fields, sess)
	case "PUSH", "PULL":
		return s.handleSync(head, fields, sess)
	default:
		return s.handleSQL(command, sess)
	}
}

func (s *Server) handleUse(fields []string, sess *session) Response {
	if len(fields) != 2 {
		return Response{Status: "error", Code: CodeValidation, Message: "usage: USE <database>"}
	}

	database := fields[1]
	if _, err := sess.engine.GetDatabase(database); err != nil {
		return ErrorResponse(err)
	}
	sess.database = database

	return Response{Status: "ok", Message: fmt.Sprintf("using %s", database)}
}

func (s *Server) handleTables(sess *session) Response {
	if sess.database == "" {
		return Response{Status: "error", Code: CodeValidation, Message: "no database selected, run USE <database> first"}
	}

	tables := sess.engine.ListTables(sess.database)
	return Response{Status: "ok", Tables: tables}
}

func (s *Server) handleDatabase(head string, name string, sess *session) Response {
	switch head {
	case "CREATE":
		txn, err := sess.engine.CreateDatabase(name)
		if err != nil {
			return ErrorResponse(err)
		}
		return Response{Status: "ok", Message: fmt.Sprintf("created database %s", name), Transaction: txn.Id}
	default:
		txn, err := sess.engine.DropDatabase(name)
		if err != nil {
			return ErrorResponse(err)
		}
		if sess.database == name {
			sess.database = ""
		}
		return Response{Status: "ok", Message: fmt.Sprintf("dropped database %s", name), Transaction: txn.Id}
	}
}

// handleTable serves TABLE CREATE|COLUMNS|REPLACE|DROP. The columns
// payload is the JSON tail after the table name.
func (s *Server) handleTable(command string, fields []string, sess *session) Response {
	if len(fields) < 3 {
		return Response{Status: "error", Code: CodeValidation, Message: "usage: TABLE CREATE|COLUMNS|REPLACE|DROP <table> [<columns-json>]"}
	}
	if sess.database == "" {
		return Response{Status: "error", Code: CodeValidation, Message: "no database selected, run USE <database> first"}
	}

	action := strings.ToUpper(fields[1])
	table := fields[2]

	switch action {
	case "CREATE", "REPLACE":
		payload := jsonTail(command, fields[:3])
		var columns []core.Column
		if err := json.Unmarshal([]byte(payload), &columns); err != nil {
			return Response{Status: "error", Code: CodeValidation, Message: fmt.Sprintf("malformed columns json: %v", err)}
		}

		if action == "CREATE" {
			txn, err := sess.engine.CreateTable(core.Table{Database: sess.database, Name: table, Columns: columns})
			if err != nil {
				return ErrorResponse(err)
			}
			return Response{Status: "ok", Message: fmt.Sprintf("created table %s", table), Transaction: txn.Id}
		}

		txn, err := sess.engine.ReplaceTableColumns(sess.database, table, columns)
		if err != nil {
			return ErrorResponse(err)
		}
		return Response{Status: "ok", Message: fmt.Sprintf("replaced columns of %s", table), Transaction: txn.Id}

	case "COLUMNS":
		columns, err := sess.engine.TableColumns(sess.database, table)
		if err != nil {
			return ErrorResponse(err)
		}

		names := make([]string, len(columns))
		types := make(map[string]core.DataType, len(columns))
		for i, column := range columns {
			names[i] = column.Name
			types[column.Name] = column.Type
		}
		return Response{Status: "ok", Columns: names, ColumnTypes: types}

	case "DROP":
		txn, err := sess.engine.DropTable(sess.database, table)
		if err != nil {
			return ErrorResponse(err)
		}
		return Response{Status: "ok", Message: fmt.Sprintf("dropped table %s", table), Transaction: txn.Id}

	default:
		return Response{Status: "error", Code: CodeValidation, Message: fmt.Sprintf("unknown TABLE action: %s", action)}
	}
}

// handleRows serves ROWS INSERT|UPDATE|DELETE|CLEAR. Row payloads are the
// JSON tail after the fixed arguments.
func (s *Server) handleRows(command string, fields []string, sess *session) Response {
	if len(fields) < 3 {
		return Response{Status: "error", Code: CodeValidation, Message: "usage: ROWS INSERT|UPDATE|DELETE|CLEAR <table> …"}
	}
	if sess.database == "" {
		return Response{Status: "error", Code: CodeValidation, Message: "no database selected, run USE <database> first"}
	}

	action := strings.ToUpper(fields[1])
	table := fields[2]

	switch action {
	case "INSERT":
		payload := jsonTail(command, fields[:3])
		var rows []core.Row
		if err := json.Unmarshal([]byte(payload), &rows); err != nil {
			return Response{Status: "error", Code: CodeValidation, Message: fmt.Sprintf("malformed rows json: %v", err)}
		}

		ids, txn, err := sess.engine.InsertRows(sess.database, table, rows)
		if err != nil {
			return ErrorResponse(err)
		}
		return Response{Status: "ok", Ids: ids, Count: len(ids), Transaction: txn.Id}

	case "UPDATE":
		if len(fields) < 4 {
			return Response{Status: "error", Code: CodeValidation, Message: "usage: ROWS UPDATE <table> <key> <row-json>"}
		}
		id, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return Response{Status: "error", Code: CodeValidation, Message: fmt.Sprintf("malformed row key: %s", fields[3])}
		}

		payload := jsonTail(command, fields[:4])
		var row core.Row
		if err := json.Unmarshal([]byte(payload), &row); err != nil {
			return Response{Status: "error", Code: CodeValidation, Message: fmt.Sprintf("malformed row json: %v", err)}
		}

		txn, err := sess.engine.UpdateRow(sess.database, table, id, row)
		if err != nil {
			return ErrorResponse(err)
		}
		return Response{Status: "ok", Count: 1, Transaction: txn.Id}

	case "DELETE":
		if len(fields) != 4 {
			return Response{Status: "error", Code: CodeValidation, Message: "usage: ROWS DELETE <table> <key>"}
		}
		id, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return Response{Status: "error", Code: CodeValidation, Message: fmt.Sprintf("malformed row key: %s", fields[3])}
		}

		txn, err := sess.engine.DeleteRow(sess.database, table, id)
		if err != nil {
			return ErrorResponse(err)
		}
		return Response{Status: "ok", Count: 1, Transaction: txn.Id}

	case "CLEAR":
		count, txn, err := sess.engine.DeleteAllRows(sess.database, table)
		if err != nil {
			return ErrorResponse(err)
		}
		return Response{Status: "ok", Count: count, Transaction: txn.Id}

	default:
		return Response{Status: "error", Code: CodeValidation, Message: fmt.Sprintf("unknown ROWS action: %s", action)}
	}
}

func (s *Server) handlePage(fields []string, sess *session) Response {
	if len(fields) < 4 {
		return Response{Status: "error", Code: CodeValidation, Message: "usage: PAGE <table> <page> <pageSize> [<sortColumn> <asc|desc>]"}
	}
	if sess.database == "" {
		return Response{Status: "error", Code: CodeValidation, Message: "no database selected, run USE <database> first"}
	}

	page, err := strconv.Atoi(fields[2])
	if err != nil {
		return Response{Status: "error", Code: CodeValidation, Message: fmt.Sprintf("malformed page number: %s", fields[2])}
	}
	pageSize, err := strconv.Atoi(fields[3])
	if err != nil {
		return Response{Status: "error", Code: CodeValidation, Message: fmt.Sprintf("malformed page size: %s", fields[3])}
	}

	req := db.PageRequest{Page: page, PageSize: pageSize}
	if len(fields) > 4 {
		req.SortColumn = fields[4]
	}
	if len(fields) > 5 {
		req.SortOrder = strings.ToLower(fields[5])
	}

	result, err := sess.engine.GetPage(sess.database, fields[1], req)
	if err != nil {
		return ErrorResponse(err)
	}

	return pageResponse(result)
}

func (s *Server) handleTop(fields []string, sess *session) Response {
	if len(fields) < 3 {
		return Response{Status: "error", Code: CodeValidation, Message: "usage: TOP <table> <n> [<sortColumn> <asc|desc>]"}
	}
	if sess.database == "" {
		return Response{Status: "error", Code: CodeValidation, Message: "no database selected, run USE <database> first"}
	}

	n, err := strconv.Atoi(fields[2])
	if err != nil {
		return Response{Status: "error", Code: CodeValidation, Message: fmt.Sprintf("malformed top count: %s", fields[2])}
	}

	req := db.PageRequest{TopN: n}
	if len(fields) > 3 {
		req.SortColumn = fields[3]
	}
	if len(fields) > 4 {
		req.SortOrder = strings.ToLower(fields[4])
	}

	result, err := sess.engine.GetPage(sess.database, fields[1], req)
	if err != nil {
		return ErrorResponse(err)
	}

	return pageResponse(result)
}

func pageResponse(page db.Page) Response {
	return Response{
		Status:      "ok",
		Columns:     page.Columns,
		Data:        page.Data,
		Total:       page.Total,
		Page:        page.Page,
		PageSize:    page.PageSize,
		ColumnTypes: page.ColumnTypes,
		TimeMs:      page.ExecutionTimeSec * 1000,
	}
}

func (s *Server) handleExport(fields []string, sess *session) Response {
	if len(fields) != 3 {
		return Response{Status: "error", Code: CodeValidation, Message: "usage: EXPORT <table> <url>"}
	}
	if sess.database == "" {
		return Response{Status: "error", Code: CodeValidation, Message: "no database selected, run USE <database> first"}
	}

	count, err := sess.engine.ExportRows(sess.database, fields[1], fields[2])
	if err != nil {
		return ErrorResponse(err)
	}

	return Response{Status: "ok", Count: count, Message: fmt.Sprintf("exported %d row(s)", count)}
}

func (s *Server) handleImport(fields []string, sess *session) Response {
	if len(fields) != 3 {
		return Response{Status: "error", Code: CodeValidation, Message: "usage: IMPORT <table> <url>"}
	}
	if sess.database == "" {
		return Response{Status: "error", Code: CodeValidation, Message: "no database selected, run USE <database> first"}
	}

	count, txn, err := sess.engine.ImportRows(sess.database, fields[1], fields[2])
	if err != nil {
		return ErrorResponse(err)
	}

	return Response{Status: "ok", Count: count, Transaction: txn.Id, Message: fmt.Sprintf("imported %d row(s)", count)}
}

func (s *Server) handleSnapshot(fields []string, sess *session) Response {
	if len(fields) != 2 {
		return Response{Status: "error", Code: CodeValidation, Message: "usage: SNAPSHOT <tag>"}
	}

	if err := sess.engine.Snapshot(fields[1]); err != nil {
		return ErrorResponse(err)
	}

	return Response{Status: "ok", Message: fmt.Sprintf("snapshot %s created", fields[1])}
}

func (s *Server) handleRestore(fields []string, sess *session) Response {
	if len(fields) != 2 {
		return Response{Status: "error", Code: CodeValidation, Message: "usage: RESTORE <tag>"}
	}

	if err := sess.engine.RestoreSnapshot(fields[1]); err != nil {
		return ErrorResponse(err)
	}

	return Response{Status: "ok", Message: fmt.Sprintf("restored snapshot %s", fields[1])}
}

func (s *Server) handleHistory(fields []string, sess *session) Response {
	limit := 0
	if len(fields) > 1 {
		parsed, err := strconv.Atoi(fields[1])
		if err != nil {
			return Response{Status: "error", Code: CodeValidation, Message: fmt.Sprintf("malformed history limit: %s", fields[1])}
		}
		limit = parsed
	}

	history := sess.engine.History(limit)
	return Response{Status: "ok", History: history, Count: len(history)}
}

// handleRemote serves REMOTE ADD|LIST|REMOVE. Remotes are git remotes on
// the backing store; PUSH and PULL sync against them.
func (s *Server) handleRemote(fields []string, sess *session) Response {
	if len(fields) < 2 {
		return Response{Status: "error", Code: CodeValidation, Message: "usage: REMOTE ADD|LIST|REMOVE <name> [<url>]"}
	}

	action := strings.ToUpper(fields[1])
	switch action {
	case "ADD":
		if len(fields) != 4 {
			return Response{Status: "error", Code: CodeValidation, Message: "usage: REMOTE ADD <name> <url>"}
		}
		if err := sess.engine.AddRemote(fields[2], fields[3]); err != nil {
			return ErrorResponse(err)
		}
		return Response{Status: "ok", Message: fmt.Sprintf("added remote %s", fields[2])}

	case "LIST":
		remotes, err := sess.engine.ListRemotes()
		if err != nil {
			return ErrorResponse(err)
		}
		return Response{Status: "ok", Remotes: remotes, Count: len(remotes)}

	case "REMOVE":
		if len(fields) != 3 {
			return Response{Status: "error", Code: CodeValidation, Message: "usage: REMOTE REMOVE <name>"}
		}
		if err := sess.engine.RemoveRemote(fields[2]); err != nil {
			return ErrorResponse(err)
		}
		return Response{Status: "ok", Message: fmt.Sprintf("removed remote %s", fields[2])}

	default:
		return Response{Status: "error", Code: CodeValidation, Message: fmt.Sprintf("unknown REMOTE action: %s", action)}
	}
}

// handleSync serves PUSH and PULL. Remote and branch default to origin and
// the current branch; credentials come from the server's remote auth
// configuration.
func (s *Server) handleSync(head string, fields []string, sess *session) Response {
	if len(fields) > 3 {
		return Response{Status: "error", Code: CodeValidation, Message: fmt.Sprintf("usage: %s [<remote>] [<branch>]", head)}
	}

	remote := ""
	branch := ""
	if len(fields) > 1 {
		remote = fields[1]
	}
	if len(fields) > 2 {
		branch = fields[2]
	}

	var err error
	if head == "PUSH" {
		err = sess.engine.Push(remote, branch, s.remoteAuth)
	} else {
		err = sess.engine.Pull(remote, branch, s.remoteAuth)
	}
	if err != nil {
		return ErrorResponse(err)
	}

	return Response{Status: "ok", Message: fmt.Sprintf("%s complete", strings.ToLower(head))}
}

func (s *Server) handleSQL(command string, sess *session) Response {
	if sess.database == "" {
		return Response{Status: "error", Code: CodeValidation, Message: "no database selected, run USE <database> first"}
	}

	result, err := sess.engine.RunSQL(sess.database, command)
	if err != nil {
		return ErrorResponse(err)
	}

	return Response{
		Status:  "ok",
		Columns: result.Columns,
		Rows:    result.Rows,
		Count:   len(result.Rows),
		TimeMs:  result.ExecutionTimeSec * 1000,
	}
}

// jsonTail returns what remains of the command line after the given head
// fields, preserving whitespace inside the JSON payload.
func jsonTail(command string, head []string) string {
	rest := command
	for _, field := range head {
		idx := strings.Index(rest, field)
		rest = rest[idx+len(field):]
	}

	return strings.TrimSpace(rest)
}
