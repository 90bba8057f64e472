package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nickyhof/TabulaDB"
	"github.com/nickyhof/TabulaDB/core"
	"github.com/nickyhof/TabulaDB/db"
	"github.com/nickyhof/TabulaDB/ps"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	port := flag.Int("port", 3306, "TCP port to listen on")
	baseDir := flag.String("baseDir", "", "Base directory for persistence (memory if empty)")
	gitUrl := flag.String("gitUrl", "", "Git URL for remote sync")
	driver := flag.String("driver", db.SQLiteDriver, "Materialization driver: sqlite or duckdb")
	queryTimeout := flag.Duration("queryTimeout", db.DefaultQueryTimeout, "SQL execution timeout (0 for default, negative to disable)")
	name := flag.String("name", "TabulaDB Server", "Identity name stamped on writes when auth is disabled")
	email := flag.String("email", "server@tabuladb.local", "Identity email stamped on writes when auth is disabled")
	authSecret := flag.String("authSecret", "", "JWT HS256 shared secret (enables authentication)")
	authIssuer := flag.String("authIssuer", "", "Expected JWT issuer claim")
	authAudience := flag.String("authAudience", "", "Expected JWT audience claim")
	remoteToken := flag.String("remoteToken", "", "Token credential for PUSH/PULL against git remotes")
	tlsCert := flag.String("tlsCert", "", "TLS certificate file (enables TLS together with -tlsKey)")
	tlsKey := flag.String("tlsKey", "", "TLS private key file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("TabulaDB Server v%s\n", Version)
		return
	}

	// Initialize persistence
	var instance *TabulaDB.Instance
	if *baseDir == "" {
		log.Println("Using memory persistence")
		persistence, err := ps.NewMemoryPersistence()
		if err != nil {
			log.Fatalf("Failed to initialize memory persistence: %v", err)
		}
		instance = TabulaDB.Open(&persistence)
	} else {
		log.Printf("Using file persistence: %s", *baseDir)
		var gitUrlPtr *string
		if *gitUrl != "" {
			gitUrlPtr = gitUrl
		}
		persistence, err := ps.NewFilePersistence(*baseDir, gitUrlPtr)
		if err != nil {
			log.Fatalf("Failed to initialize file persistence: %v", err)
		}
		instance = TabulaDB.Open(&persistence)
	}

	identity := core.Identity{Name: *name, Email: *email}
	options := db.Options{Driver: *driver, QueryTimeout: *queryTimeout}

	server, err := NewServerWithOptions(instance, identity, options)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	if *authSecret != "" {
		server.authConfig = &AuthConfig{
			Enabled:   true,
			JWTSecret: *authSecret,
			Issuer:    *authIssuer,
			Audience:  *authAudience,
		}
		log.Println("Authentication enabled (JWT)")
	}

	if *remoteToken != "" {
		server.remoteAuth = &ps.RemoteAuth{Type: ps.AuthTypeToken, Token: *remoteToken}
	}

	addr := fmt.Sprintf(":%d", *port)
	if *tlsCert != "" || *tlsKey != "" {
		if *tlsCert == "" || *tlsKey == "" {
			log.Fatal("TLS requires both -tlsCert and -tlsKey")
		}
		err = server.StartTLS(addr, *tlsCert, *tlsKey)
	} else {
		err = server.Start(addr)
	}
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Print banner
	fmt.Println()
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Printf("║   TabulaDB Server v%-14s      ║\n", Version)
	fmt.Println("║   Git-backed Dynamic Query Engine     ║")
	fmt.Println("╚═══════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("Listening on port %d (driver: %s)\n", *port, *driver)
	fmt.Println("Send commands or SQL (one per line), 'quit' to disconnect")
	fmt.Println()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down...")
	server.Stop()
	log.Println("Server stopped")
}
