package utils

import (
	"database/sql"
	"log/slog"
	"os"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// AppState holds everything the app needs to run: config, database handles
// and the channels tying metric collection to graceful shutdown. Construct
// one in main and pass it down; nothing in here is a global.
type AppState struct {
	Config *Config
	RawDB  *sql.DB
	BunDB  *bun.DB

	MetricChans        *MetricChans
	AppCloseSignalChan chan os.Signal

	gracefulShutdownChans []chan struct{}
	gracefulShutdownMutex sync.Mutex
}

func NewAppState() *AppState {
	as := &AppState{
		Config:             NewConfig(),
		AppCloseSignalChan: make(chan os.Signal, 1),
		MetricChans: &MetricChans{
			DatabaseRead:  make(chan float64, 8),
			DatabaseWrite: make(chan float64, 8),
		},
	}

	var err error
	as.RawDB, err = sql.Open(sqliteshim.ShimName, as.Config.GetDatabasePath()+"?mode=rwc")
	if err != nil {
		slog.Error("cannot open sqlite database", "error", err)
		os.Exit(1)
	}
	as.RawDB.SetMaxIdleConns(8)

	as.BunDB = bun.NewDB(as.RawDB, sqlitedialect.New())
	as.BunDB.AddQueryHook(bundebug.NewQueryHook(
		bundebug.FromEnv("BUNDEBUG"),
	))

	return as
}

// CreateGracefulShutdownChan returns a channel that gets closed when
// GracefulShutdown runs; long-lived goroutines select on it to clean up.
func (as *AppState) CreateGracefulShutdownChan() *chan struct{} {
	ch := make(chan struct{})
	as.gracefulShutdownMutex.Lock()
	defer as.gracefulShutdownMutex.Unlock()
	as.gracefulShutdownChans = append(as.gracefulShutdownChans, ch)
	return &ch
}

func (as *AppState) GracefulShutdown() {
	as.gracefulShutdownMutex.Lock()
	defer as.gracefulShutdownMutex.Unlock()
	for _, ch := range as.gracefulShutdownChans {
		close(ch)
	}
	as.gracefulShutdownChans = nil

	if err := as.BunDB.Close(); err != nil {
		slog.Warn("can't close database", "error", err)
	}
}
