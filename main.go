package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/user/snsapp/background"
	"github.com/user/snsapp/comments"
	"github.com/user/snsapp/config"
	"github.com/user/snsapp/db"
	"github.com/user/snsapp/memstore"
	"github.com/user/snsapp/posts"
	"github.com/user/snsapp/render"
	"github.com/user/snsapp/server"
	"github.com/user/snsapp/session"
	"github.com/user/snsapp/users"
)

func main() {
	// A missing .env is fine; the environment may be set by other means.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or error loading it: %v", err)
	}

	app := &cli.App{
		Name:  "snsapp",
		Usage: "a small social posting site",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the HTTP server",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "memory",
						Usage: "keep all data in process memory instead of PostgreSQL",
					},
					&cli.BoolFlag{
						Name:  "migrate",
						Usage: "apply pending migrations before serving",
					},
				},
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "manage the database schema",
				Subcommands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "apply all pending migrations",
						Action: migrateAction(db.Up),
					},
					{
						Name:   "down",
						Usage:  "roll back every migration",
						Action: migrateAction(db.Down),
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func migrateAction(dir db.Direction) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.LoadConfig(true)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return db.RunMigrations(cfg.DBPool, cfg.Migrations.Path, dir)
	}
}

func serve(c *cli.Context) error {
	inMemory := c.Bool("memory")

	cfg, err := config.LoadConfig(!inMemory)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sessions := session.NewManager(cfg.Session)
	rd, err := render.New(sessions)
	if err != nil {
		return err
	}

	var publisher background.Publisher = background.LogPublisher{}
	if cfg.Events.NATSURL != "" {
		natsPublisher, err := background.ConnectNATS(cfg.Events.NATSURL)
		if err != nil {
			return err
		}
		publisher = natsPublisher
	}
	dispatcher := background.NewDispatcher(publisher, background.DefaultWorkers, background.DefaultBuffer)

	opts := server.Options{
		Sessions:       sessions,
		Renderer:       rd,
		Events:         dispatcher,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
	}

	closePool := func() {}
	if inMemory {
		log.Println("Using the in-memory store; data is lost on exit")
		store := memstore.New(nil)
		opts.Users, opts.Posts, opts.Comments = store.Users, store.Posts, store.Comments
	} else {
		if c.Bool("migrate") {
			if err := db.RunMigrations(cfg.DBPool, cfg.Migrations.Path, db.Up); err != nil {
				dispatcher.Stop()
				return err
			}
		}
		pool, err := db.NewPool(cfg.DBPool)
		if err != nil {
			dispatcher.Stop()
			return fmt.Errorf("failed to create database pool: %w", err)
		}
		closePool = pool.Close
		opts.Users = users.NewUserService(pool)
		opts.Posts = posts.NewPostService(pool)
		opts.Comments = comments.NewCommentService(pool)
	}

	handler, err := server.NewRouter(opts)
	if err != nil {
		dispatcher.Stop()
		closePool()
		return err
	}

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
		log.Println("Server shutting down...")
	case runErr = <-serverErr:
		log.Printf("Server failed: %v", runErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}

	// Handlers may still enqueue events until Shutdown returns, so the dispatcher and the
	// pool are stopped only after it.
	dispatcher.Stop()
	closePool()
	log.Println("Server stopped gracefully")
	return runErr
}
