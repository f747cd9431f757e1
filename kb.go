package main

import (
	"bytes"
	gocontext "context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"kb/api"
	"kb/config"
	"kb/core"
	"kb/sqldb"
	"kb/sqldb/migrations"
	"kb/sqldb/mysql"
	"kb/sqldb/sqlite3"
	"kb/upload"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "kb",
	Short: "Knowledge base server",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, cfg, err := openCoreDB()
		if err != nil {
			return err
		}
		defer db.SqlDB.Close()

		uploads, err := upload.New(cmd.Context(), cfg.Uploads())
		if err != nil {
			return fmt.Errorf("opening upload store: %w", err)
		}
		db.Uploads = uploads

		return listen(db, cfg.Listen)
	},
}

var initCmd = &cobra.Command{
	Use:   "init [email]",
	Short: "Create an admin user, prompting for a password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openCoreDB()
		if err != nil {
			return err
		}
		defer db.SqlDB.Close()

		return insertAdmin(db, args[0])
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openCoreDB()
		if err != nil {
			return err
		}
		defer db.SqlDB.Close()
		return nil // openCoreDB already migrated
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to an ini config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// openCoreDB loads the config, opens and migrates the database and wires the
// stores. The caller must close db.SqlDB.
func openCoreDB() (*core.CoreDB, *config.Config, error) {

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	log := newLogger(cfg.LogLevel)

	sqlDB, driver, err := sqldb.Open(cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrations.Up(sqlDB, driver); err != nil {
		sqlDB.Close()
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}

	db := &core.CoreDB{}
	switch driver {
	case "mysql":
		db.Init(mysql.NewSessionStore(sqlDB), log)
	case "sqlite3":
		db.Init(sqlite3.NewSessionStore(sqlDB), log)
	default:
		sqlDB.Close()
		return nil, nil, fmt.Errorf("unknown database backend: %s", driver)
	}

	db.UserStore = sqldb.NewUserStore(sqlDB)
	db.CategoryStore = sqldb.NewCategoryStore(sqlDB)
	db.ArticleStore = sqldb.NewArticleStore(sqlDB)
	db.GrantStore = sqldb.NewGrantStore(sqlDB)
	db.FileStore = sqldb.NewFileStore(sqlDB)
	db.TagStore = sqldb.NewTagStore(sqlDB)
	db.SqlDB = sqlDB

	log.Info().Str("driver", driver).Msg("database ready")
	return db, cfg, nil
}

func insertAdmin(db *core.CoreDB, email string) error {

	fmt.Printf("password for %s: ", email)
	pass1, err := term.ReadPassword(0)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	fmt.Printf("repeat password: ")
	pass2, err := term.ReadPassword(0)
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	if !bytes.Equal(pass1, pass2) {
		return fmt.Errorf("passwords don't match")
	}

	u, err := db.Register(email, string(pass1), core.RoleAdmin)
	if err != nil {
		return fmt.Errorf("creating admin: %w", err)
	}

	fmt.Printf("created admin %s (id %d)\n", u.Email, u.ID)
	return nil
}

func listen(db *core.CoreDB, addr string) error {

	server := api.NewServer(db)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Handler:      db.SessionManager.LoadAndSave(server.Router()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	sigintChannel := make(chan os.Signal, 1)
	signal.Notify(sigintChannel, os.Interrupt, syscall.SIGTERM)

	go func() {
		db.Log.Info().Str("addr", addr).Msg("listening")
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			db.Log.Error().Err(err).Msg("server failed")
		}
	}()

	<-sigintChannel

	db.Log.Info().Msg("shutting down")
	ctx, cancel := gocontext.WithTimeout(gocontext.Background(), 30*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}
