// Command migrate creates the Postgres schema for the tender-analysis
// core: the pgvector extension the vector store relies on, and the
// three tables the unit-of-work repositories address directly
// (documents, run status, comparisons). Fragment/section reference
// vector tables are provisioned lazily by pkg/vectorstore/pgstore on
// first use, one physical table per collection.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"tenderanalysis/internal/entity"
	"tenderanalysis/pkg/database"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting tender-analysis schema migration...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	log.Println("Running AutoMigrate for document/run/comparison tables...")
	models := []interface{}{
		&entity.Document{},
		&entity.Run{},
		&entity.Comparison{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	log.Println("Migration complete.")
}
