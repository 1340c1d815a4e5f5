package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Drops and recreates the configured database so local runs start from an
// empty schema. The server rebuilds tables on boot via bootstrap.
func main() {
	_ = godotenv.Load()

	driver := os.Getenv("DB_DRIVER")
	if driver == "" {
		driver = "mysql"
	}

	if driver == "sqlite" {
		path := os.Getenv("SQLITE_PATH")
		if path == "" {
			path = "store.db"
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Fatalf("Failed to remove %s: %v", path, err)
		}
		log.Printf("✅ SQLite file '%s' removed.", path)
		return
	}

	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "4000"
	}
	name := os.Getenv("DB_NAME")
	if name == "" {
		name = "store"
	}

	// Connect without selecting a schema so it can be dropped
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/?parseTime=true",
		os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), host, port)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("Failed to open connection: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	log.Printf("💣 Wiping Database '%s'...", name)

	if _, err := db.Exec("DROP DATABASE IF EXISTS " + name); err != nil {
		log.Fatalf("Failed to drop database: %v", err)
	}

	if _, err := db.Exec("CREATE DATABASE " + name); err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}

	log.Printf("✅ Database '%s' recreated successfully.", name)
}
