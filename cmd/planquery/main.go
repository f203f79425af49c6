// Command planquery loads a composed, federation-annotated schema and a
// query document from disk, builds a query plan against them, and prints the
// plan as JSON. It is a thin CLI wrapper around the federation/plan packages,
// grounded in the teacher's cmd/federation-gateway/main.go Cobra structure.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"

	"github.com/n9te9/federation-query-planner/federation"
	"github.com/n9te9/federation-query-planner/federation/plan"
	"github.com/n9te9/federation-query-planner/internal/telemetry"
)

const planqueryVersion = "0.1.0"

// config is the CLI's optional config file shape, mirroring
// gateway.GatewayOption's yaml/default struct tag conventions.
type config struct {
	SchemaFile    string `yaml:"schema_file"`
	QueryFile     string `yaml:"query_file"`
	OperationName string `yaml:"operation_name"`
	Tracing       struct {
		Enable bool `yaml:"enable" default:"false"`
	} `yaml:"tracing"`
}

func main() {
	logger := telemetry.NewLogger()

	root := &cobra.Command{
		Use:   "planquery",
		Short: "Build a federated query plan from a schema and an operation",
	}
	root.AddCommand(versionCmd(), planCmd(logger))

	if err := root.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the planquery version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), planqueryVersion)
			return nil
		},
	}
}

func planCmd(logger *slog.Logger) *cobra.Command {
	var (
		configFile    string
		schemaFile    string
		queryFile     string
		operationName string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build a query plan and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return err
			}
			if schemaFile != "" {
				cfg.SchemaFile = schemaFile
			}
			if queryFile != "" {
				cfg.QueryFile = queryFile
			}
			if operationName != "" {
				cfg.OperationName = operationName
			}

			return runPlan(cmd.Context(), logger, cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "optional YAML config file")
	cmd.Flags().StringVar(&schemaFile, "schema", "", "composed schema SDL file")
	cmd.Flags().StringVar(&queryFile, "query", "", "query document file")
	cmd.Flags().StringVar(&operationName, "operation", "", "operation name, required if the document defines more than one")

	return cmd
}

func loadConfig(path string) (config, error) {
	var cfg config
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

func runPlan(ctx context.Context, logger *slog.Logger, cfg config) error {
	requestID := uuid.New().String()
	start := time.Now()

	if cfg.Tracing.Enable {
		shutdown, err := telemetry.InitTracer(ctx, "planquery", planqueryVersion)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			_ = shutdown(ctx)
		}()

		var endSpan func()
		ctx, endSpan = beginSpan(ctx, requestID, cfg)
		defer endSpan()
	}

	logger.Debug("loading schema", "requestId", requestID, "schemaFile", cfg.SchemaFile)
	schema, err := loadSchema(cfg.SchemaFile)
	if err != nil {
		return err
	}

	logger.Debug("loading query", "requestId", requestID, "queryFile", cfg.QueryFile)
	queryDoc, err := loadDocument(cfg.QueryFile)
	if err != nil {
		return err
	}

	opCtx, err := federation.BuildOperationContext(schema, queryDoc, cfg.OperationName)
	if err != nil {
		logger.Error("failed to resolve operation", "requestId", requestID, "error", err)
		return err
	}

	queryPlan, err := plan.Build(opCtx)
	if err != nil {
		logger.Error("failed to build plan", "requestId", requestID, "error", err)
		return err
	}

	out, err := json.MarshalIndent(queryPlan, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}

	logger.Info("plan built", "requestId", requestID, "durationMs", time.Since(start).Milliseconds())
	fmt.Println(string(out))
	return nil
}

// beginSpan opens the CLI's single root span around a plan-build invocation,
// tagging it with the request correlation ID.
func beginSpan(ctx context.Context, requestID string, cfg config) (context.Context, func()) {
	ctx, span := telemetry.Tracer("planquery").Start(ctx, "federation.plan.build")
	span.SetAttributes(
		attribute.String("request.id", requestID),
		attribute.String("operation.name", cfg.OperationName),
	)
	return ctx, func() {
		span.SetStatus(codes.Ok, "")
		span.End()
	}
}

func loadSchema(path string) (*federation.Schema, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, fmt.Errorf("load schema %q: %w", path, err)
	}
	schema, err := federation.NewSchema(doc)
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return schema, nil
}

func loadDocument(path string) (*ast.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	lx := lexer.New(string(src))
	p := parser.New(lx)
	doc := p.ParseDocument()
	return doc, nil
}
