// Package tasks provides Asynq background task helpers.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// Client wraps an Asynq client for enqueuing tasks.
type Client struct {
	client *asynq.Client
}

// NewClient creates a new task client.
func NewClient(redisAddr, redisPassword string, redisDB int) *Client {
	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
	return &Client{client: client}
}

// Close closes the task client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Enqueue enqueues a task with the given type and payload. A nil payload
// enqueues an empty task.
func (c *Client) Enqueue(taskType string, payload interface{}, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	var data []byte
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling task payload: %w", err)
		}
	}

	task := asynq.NewTask(taskType, data)
	info, err := c.client.Enqueue(task, opts...)
	if err != nil {
		return nil, fmt.Errorf("enqueuing task: %w", err)
	}

	log.Debug().
		Str("task_type", taskType).
		Str("task_id", info.ID).
		Msg("Task enqueued")

	return info, nil
}

// Server wraps an Asynq server for processing tasks.
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// ServerConfig holds configuration for the task server.
type ServerConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// NewServer creates a new task server.
func NewServer(cfg *ServerConfig) *Server {
	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error().
					Err(err).
					Str("task_type", task.Type()).
					Msg("Task failed")
			}),
		},
	)

	return &Server{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

// Handle registers a handler for the given task type.
func (s *Server) Handle(taskType string, handler asynq.Handler) {
	s.mux.Handle(taskType, handler)
	log.Debug().Str("task_type", taskType).Msg("Registered task handler")
}

// Start starts the server without blocking.
func (s *Server) Start() error {
	log.Info().Msg("Starting task server")
	return s.server.Start(s.mux)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() {
	log.Info().Msg("Shutting down task server")
	s.server.Shutdown()
}
