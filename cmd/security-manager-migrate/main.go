package main

import (
	"database/sql"
	"flag"
	"io"
	"log"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/krzsas/security-manager/pkg/storage"
)

var (
	dbPath     = flag.String("db", storage.DefaultDBPath, "Privilege database path")
	dryRun     = flag.Bool("dry-run", false, "Show the pending migration without making changes")
	backupPath = flag.String("backup", "", "Path to back up the database before migration (default: <db>.backup)")
)

func main() {
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("security-manager schema migration tool")

	if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
		log.Fatalf("Database not found at %s", *dbPath)
	}

	log.Printf("Database: %s", *dbPath)
	log.Printf("Dry run: %v", *dryRun)

	db, err := sql.Open("sqlite3", *dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		log.Fatalf("Failed to read schema version: %v", err)
	}
	log.Printf("Current schema version: %d", version)

	if *dryRun {
		log.Println("Dry run complete, no changes made")
		return
	}

	// Back up before touching anything
	backupFile := *backupPath
	if backupFile == "" {
		backupFile = *dbPath + ".backup"
	}
	log.Printf("Creating backup: %s", backupFile)
	if err := copyFile(*dbPath, backupFile); err != nil {
		log.Fatalf("Failed to create backup: %v", err)
	}

	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		log.Fatalf("Failed to read schema version: %v", err)
	}
	log.Printf("✓ Migration complete, schema version: %d", version)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
