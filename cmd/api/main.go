package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/akolanti/TranscriptRAG/internal/app"
	"github.com/akolanti/TranscriptRAG/internal/config"
	"github.com/akolanti/TranscriptRAG/internal/handlers"
	"github.com/akolanti/TranscriptRAG/internal/job"
	"github.com/akolanti/TranscriptRAG/internal/middleware"
	"github.com/akolanti/TranscriptRAG/internal/server"
	"github.com/akolanti/TranscriptRAG/internal/worker"
	"github.com/akolanti/TranscriptRAG/pkg/logger_i"
)

func main() {
	var (
		configPath string
		listenAddr string
	)
	flag.StringVar(&configPath, "config", config.DefaultConfigFile, "path to the yaml config file")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides the config")
	flag.Parse()

	settings, err := config.Load(configPath)
	if err != nil {
		logger_i.Init(false, "error")
		logger_i.NewLogger("main").Error("Could not load config", "error", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		settings.ListenAddr = listenAddr
	}

	logger_i.Init(settings.IsProd(), settings.LogLevel)
	var logger = logger_i.NewLogger("main")

	serviceContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.Build(serviceContext, settings)
	if err != nil {
		logger.Error("One or more external services failed to initialize. Shutting down.", "error", err)
		os.Exit(1)
	}

	//job service and worker pool
	logger.Info("Starting job service")
	jobs := job.InitJobService(job.ServiceConfig{JobStore: application.NewJobStore(serviceContext)})
	pool := worker.NewPool(jobs, application, worker.Options{})
	pool.Start()

	h := handlers.New(handlers.Deps{
		Answerer: application.Answerer,
		Sessions: application.Sessions,
		Index:    application.Index,
		Jobs:     jobs,
	})
	chain := middleware.New(middleware.Options{AuthToken: settings.AuthToken})
	srv := server.CreateServer(settings.ListenAddr, server.Routes(h, chain))

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	go srv.ShutDownHandler(server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		StopWorkers:      pool.Stop,
		CloseServices: func() {
			cancel()
			if err := application.Close(); err != nil {
				logger.Error("Closing services", "error", err)
			}
		},
	})
	go srv.Start()

	<-stopExecution
	logger.Info("Server stopped")
}
