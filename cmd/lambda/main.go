// Command lambda serves the API behind API Gateway.
package main

import (
	"context"

	"github.com/SanchitCoder/PortIQ/internal/config"
	"github.com/SanchitCoder/PortIQ/internal/db"
	"github.com/SanchitCoder/PortIQ/internal/logger"
	"github.com/SanchitCoder/PortIQ/internal/server"

	awsevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
)

var ginLambda *ginadapter.GinLambda

func handler(ctx context.Context, req awsevents.APIGatewayProxyRequest) (awsevents.APIGatewayProxyResponse, error) {
	return ginLambda.ProxyWithContext(ctx, req)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.InitWithLevel(cfg.LogLevel)
	if err := logger.InitSentry(cfg.SentryDSN, cfg.Environment); err != nil {
		logger.Warn("Sentry disabled", "error", err)
	}
	defer logger.Flush()

	verifier, err := server.NewVerifier(cfg)
	if err != nil {
		logger.Fatalf("Failed to configure token verification: %v", err)
	}

	// each container serves one request at a time
	database, err := db.Connect(context.Background(), cfg.DatabaseURL, db.Pool{
		MaxOpen:     2,
		MaxIdle:     2,
		MaxLifetime: cfg.DBMaxLifetime,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Migrations run from the long-lived deployment; emails are only
	// enqueued here and drained by that worker.
	emailService := server.NewEmailService(cfg)
	publisher := server.NewPublisher(context.Background(), cfg)

	srv := server.New(database, cfg, emailService, publisher, verifier)
	ginLambda = ginadapter.New(srv.Router())

	lambda.Start(handler)
}
