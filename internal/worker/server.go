package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/agenttrace/xray/internal/config"
)

// Server consumes run tasks from Redis inside the API process, so runs
// write into the same in-memory registry that serves queries.
type Server struct {
	logger *zap.Logger
	config *config.Config
	server *asynq.Server
	mux    *asynq.ServeMux
	client *asynq.Client
}

// NewServer creates a new worker server
func NewServer(logger *zap.Logger, cfg *config.Config, run RunFunc) *Server {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues:      map[string]int{cfg.Worker.ProcessQueue(): 1},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task processing failed",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
			Logger: &asynqLogger{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRunExecution, NewRunWorker(logger, run).ProcessTask)

	return &Server{
		logger: logger,
		config: cfg,
		server: server,
		mux:    mux,
		client: asynq.NewClient(redisOpt),
	}
}

// Start starts processing in the background
func (s *Server) Start() error {
	s.logger.Info("starting worker server",
		zap.Int("concurrency", s.config.Worker.Concurrency),
		zap.String("queue", s.config.Worker.ProcessQueue()),
	)
	if err := s.server.Start(s.mux); err != nil {
		return fmt.Errorf("failed to start worker server: %w", err)
	}
	return nil
}

// Stop waits for in-flight runs and stops the worker server
func (s *Server) Stop() {
	s.server.Shutdown()
	if err := s.client.Close(); err != nil {
		s.logger.Warn("failed to close asynq client", zap.Error(err))
	}
}

// Client returns the asynq client for enqueuing tasks
func (s *Server) Client() *asynq.Client {
	return s.client
}

// asynqLogger adapts zap.Logger to asynq.Logger
type asynqLogger struct {
	logger *zap.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Fatal(fmt.Sprint(args...))
}
