// testserver starts a kiln API server with deterministic test kinds for E2E
// testing. Usage: go run ./cmd/testserver
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/seantiz/kiln/internal/api"
	"github.com/seantiz/kiln/internal/config"
	"github.com/seantiz/kiln/internal/dispatch"
	"github.com/seantiz/kiln/internal/job"
	"github.com/seantiz/kiln/internal/journal"
	"github.com/seantiz/kiln/internal/store"
)

type sleepInput struct {
	DurationMS int `json:"duration_ms"`
}

type failInput struct {
	Message string `json:"message"`
}

// sleep pauses for duration_ms and reports how long it slept.
func sleep() job.Body {
	return func(_ context.Context, _ string, input json.RawMessage) (json.RawMessage, error) {
		var in sleepInput
		if len(input) > 0 {
			if err := json.Unmarshal(input, &in); err != nil {
				return nil, fmt.Errorf("decode sleep input: %w", err)
			}
		}
		time.Sleep(time.Duration(in.DurationMS) * time.Millisecond)
		return json.Marshal(map[string]int{"slept_ms": in.DurationMS})
	}
}

// fail always fails with the given message.
func fail() job.Body {
	return func(_ context.Context, _ string, input json.RawMessage) (json.RawMessage, error) {
		var in failInput
		if len(input) > 0 {
			if err := json.Unmarshal(input, &in); err != nil {
				return nil, fmt.Errorf("decode fail input: %w", err)
			}
		}
		if in.Message == "" {
			in.Message = "induced failure"
		}
		return nil, errors.New(in.Message)
	}
}

func main() {
	cfg := config.Load()

	var storeOpts []store.Option
	if cfg.StoreCapacity > 0 {
		storeOpts = append(storeOpts, store.WithCapacity(cfg.StoreCapacity))
	}
	s := store.NewMemoryStore(storeOpts...)

	var j *journal.Journal
	if cfg.JournalPath != "" {
		var err error
		j, err = journal.Open(cfg.JournalPath)
		if err != nil {
			log.Fatalf("failed to open journal: %v", err)
		}
		defer j.Close()
	}

	reg := job.NewRegistry()
	job.RegisterBuiltins(reg)
	reg.Register("sleep", "sleeps for duration_ms milliseconds", sleep())
	reg.Register("fail", "fails with the given message", fail())

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var dispatchOpts []dispatch.Option
	if cfg.MaxConcurrent > 0 {
		dispatchOpts = append(dispatchOpts, dispatch.WithMaxConcurrent(cfg.MaxConcurrent))
	}
	if j != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithJournal(j))
	}
	d := dispatch.NewDispatcher(s, logger, dispatchOpts...)

	srv := api.NewServer(cfg.ListenAddr, s, reg, d, j, logger)

	logger.Info("testserver: starting", "addr", cfg.ListenAddr)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
