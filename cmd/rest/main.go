package main

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"tenderanalysis/internal/bootstrap"
	"tenderanalysis/internal/config"
	"tenderanalysis/internal/pkg/logger"
	"tenderanalysis/internal/server"
	"tenderanalysis/internal/tracer"
	"tenderanalysis/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize tracing (no-op outside production; see internal/tracer)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	shutdownTracer := tracer.Init(cfg, sysLogger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(ctx)
	}()

	// 3. Initialize Database (optional: the disk-backed vector store and
	// artifact store run fine without one, for a bare checkout)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	} else {
		log.Println("DB_CONNECTION_STRING not set, running without Postgres-backed run/document/comparison persistence")
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
