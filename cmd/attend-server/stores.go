package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lumnic12/attend/internal/attend/facematch"
	"github.com/Lumnic12/attend/internal/attend/store"
	"github.com/Lumnic12/attend/internal/attend/store/file"
	"github.com/Lumnic12/attend/internal/attend/store/memory"
	"github.com/Lumnic12/attend/internal/attend/store/sqlite"
	"github.com/Lumnic12/attend/internal/attend/store/xlsx"
	"github.com/Lumnic12/attend/internal/config"
	"github.com/Lumnic12/attend/internal/db"
)

const faceServiceTimeout = 15 * time.Second

// stores holds the persistence collaborators selected by config.
type stores struct {
	sink      store.AttendanceSink
	history   store.AttendanceHistory // nil for the xlsx sink
	directory store.IdentityDirectory
	faces     store.ReferenceFaces
	snapshots store.SnapshotStore

	sqlDB  *sql.DB
	writer *db.Worker
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	s := &stores{faces: file.NewFaceDir(cfg.FacesDir)}

	if cfg.Sink == "sqlite" || cfg.Directory == "sqlite" {
		sqlDB, err := db.Open(ctx, db.Config{
			Path:           cfg.DBPath,
			Env:            cfg.Env,
			SeedIdentities: cfg.SeedIdentities,
		})
		if err != nil {
			return nil, err
		}
		s.sqlDB = sqlDB
		s.writer = db.NewWorker(sqlDB)
		logger.Info("database opened", "path", cfg.DBPath, "env", cfg.Env)
	}

	switch cfg.Sink {
	case "sqlite":
		log := sqlite.NewAttendanceLog(s.sqlDB, s.writer)
		s.sink, s.history = log, log
	case "xlsx":
		s.sink = xlsx.NewWorkbook(cfg.XLSXPath, time.Local)
	case "memory":
		log := memory.NewAttendanceLog()
		s.sink, s.history = log, log
	default:
		s.Close()
		return nil, fmt.Errorf("unknown sink %q", cfg.Sink)
	}

	if cfg.Directory == "sqlite" {
		s.directory = sqlite.NewDirectory(s.sqlDB, s.writer)
	} else {
		s.directory = file.NewCSVDirectory(cfg.UserFile)
	}

	if cfg.SnapshotPath != "" {
		s.snapshots = file.NewSnapshotFile(cfg.SnapshotPath)
	} else {
		s.snapshots = memory.NewSnapshotStore()
	}

	logger.Info("stores ready", "sink", cfg.Sink, "directory", cfg.Directory, "faces_dir", cfg.FacesDir)
	return s, nil
}

// Close flushes queued writes and closes the database, if one was opened.
func (s *stores) Close() {
	if s.writer != nil {
		s.writer.Close()
	}
	if s.sqlDB != nil {
		_ = s.sqlDB.Close()
	}
}

func newAnalyzer(cfg config.Config) *facematch.FaceServiceClient {
	return facematch.NewFaceServiceClient(cfg.FaceServiceURL, faceServiceTimeout)
}
