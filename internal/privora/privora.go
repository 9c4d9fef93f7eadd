// This package contains the privora run function.
// This is separate from the main package to facilitate testing.
package privora

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/privora/privora-go/internal/commons"
	"github.com/privora/privora-go/internal/devnode"
	"github.com/privora/privora-go/internal/model"
	"github.com/privora/privora-go/internal/supervisor"
)

const DefaultHttpPort = 4000
const HttpTimeout = 10 * time.Second

// Options to privora.
type PrivoraOpts struct {
	HttpAddress string
	HttpPort    int

	// The sqlite file to load the state. If empty, uses an in-memory db.
	SqliteFile string

	// How long the workers have to shut down after the context is canceled.
	TimeoutWorker time.Duration
}

// Create the options struct with default values.
func NewPrivoraOpts() PrivoraOpts {
	return PrivoraOpts{
		HttpAddress:   "127.0.0.1",
		HttpPort:      DefaultHttpPort,
		SqliteFile:    "",
		TimeoutWorker: supervisor.DefaultSupervisorTimeout,
	}
}

// Create the privora supervisor.
func NewSupervisor(opts PrivoraOpts) supervisor.SupervisorWorker {
	var w supervisor.SupervisorWorker
	w.Name = "privora"
	w.ShutdownTimeout = opts.TimeoutWorker

	db := createDb(opts)
	m := model.NewPrivoraModel(db)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		ErrorMessage: "Request timed out",
		Timeout:      HttpTimeout,
	}))
	devnode.Register(e, m)

	w.Workers = append(w.Workers, supervisor.HttpWorker{
		Address: fmt.Sprintf("%v:%v", opts.HttpAddress, opts.HttpPort),
		Handler: e,
	})
	slog.Info("Listening", "port", opts.HttpPort)
	return w
}

func createDb(opts PrivoraOpts) *sqlx.DB {
	if opts.SqliteFile == "" {
		slog.Debug("Using in-memory sqlite")
		return commons.CreateMemoryDb("privora")
	}
	slog.Debug("Using sqlite file", "path", opts.SqliteFile)
	return sqlx.MustConnect("sqlite3", opts.SqliteFile)
}
