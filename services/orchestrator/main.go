// Copyright (C) 2026 Guardian AI (maintainers@guardian-ai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guardian-ai/convergence/services/consensus"
	"github.com/guardian-ai/convergence/services/llm"
	"github.com/guardian-ai/convergence/services/orchestrator/cache"
	"github.com/guardian-ai/convergence/services/orchestrator/handlers"
	"github.com/guardian-ai/convergence/services/orchestrator/observability"
	"github.com/guardian-ai/convergence/services/orchestrator/routes"
	"github.com/guardian-ai/convergence/services/rubric"
	"golang.org/x/time/rate"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "guardian-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("guardian-orchestrator")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// reliabilityFromEnv reads a per-backend trust prior, falling back to def.
func reliabilityFromEnv(key string, def float64) float64 {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 && v <= 1 {
			return v
		}
		slog.Warn("ignoring invalid reliability weight", "var", key, "value", raw)
	}
	return def
}

// configureBackends registers every provider whose client initializes.
// A provider that cannot initialize (missing key, bad config) is still listed
// as a descriptor, just unavailable, so the API can report it.
func configureBackends(adapter *llm.Adapter) []llm.BackendDescriptor {
	limit := rate.NewLimiter(rate.Every(time.Second), 4)

	backends := []llm.BackendDescriptor{
		{Name: "openai", ReliabilityWeight: reliabilityFromEnv("GUARDIAN_OPENAI_WEIGHT", 0.95)},
		{Name: "anthropic", ReliabilityWeight: reliabilityFromEnv("GUARDIAN_ANTHROPIC_WEIGHT", 0.95)},
		{Name: "ollama", ReliabilityWeight: reliabilityFromEnv("GUARDIAN_OLLAMA_WEIGHT", 0.75)},
	}

	for i := range backends {
		var client llm.LLMClient
		var err error
		switch backends[i].Name {
		case "openai":
			client, err = llm.NewOpenAIClient()
		case "anthropic":
			client, err = llm.NewAnthropicClient()
		case "ollama":
			client = llm.NewOllamaClient()
		}
		if err != nil {
			slog.Warn("backend unavailable", "backend", backends[i].Name, "error", err)
			continue
		}
		adapter.Register(backends[i].Name, client, limit)
		backends[i].Available = true
		slog.Info("backend registered", "backend", backends[i].Name,
			"reliability", backends[i].ReliabilityWeight)
	}
	return backends
}

func main() {
	port := os.Getenv("GUARDIAN_PORT")
	if port == "" {
		port = "12310"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	catalog, err := rubric.NewCatalog()
	if err != nil {
		log.Fatalf("FATAL: could not load the rubric catalog: %v", err)
	}

	biasCfg, err := consensus.DefaultBiasConfig()
	if err != nil {
		log.Fatalf("FATAL: could not load the bias configuration: %v", err)
	}

	adapter := llm.NewAdapter()
	backends := configureBackends(adapter)

	engine := consensus.NewEngine(adapter, consensus.NewBiasScorer(biasCfg), nil,
		consensus.DefaultEngineConfig(), logger)

	metrics := observability.InitMetrics()

	var scoreCache *cache.ScoreCache
	cacheDir := os.Getenv("GUARDIAN_CACHE_DIR")
	if cacheDir == "" {
		cacheDir = "/var/lib/guardian/cache"
	}
	if os.Getenv("GUARDIAN_CACHE_DISABLED") == "" {
		scoreCache, err = cache.Open(cache.DefaultConfig(cacheDir))
		if err != nil {
			slog.Warn("score cache disabled, could not open store", "error", err, "dir", cacheDir)
			scoreCache = nil
		} else {
			defer scoreCache.Close()
		}
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("guardian-orchestrator"))

	routes.SetupRoutes(router, handlers.ScoreDeps{
		Engine:   engine,
		Catalog:  catalog,
		Cache:    scoreCache,
		Backends: backends,
		Metrics:  metrics,
	})

	log.Println("Starting the guardian orchestrator on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
