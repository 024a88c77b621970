package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
// This struct contains all configuration parameters for the application
type Config struct {
	// AWS-specific configuration
	AWSRegion         string
	DynamoDBTableName string
	// DynamoDBEndpoint overrides the endpoint for local development
	// (DynamoDB Local); empty in real deployments.
	DynamoDBEndpoint string

	// Environment info
	Environment string

	// Headers the upstream authorizer sets to identify the acting user.
	// The core trusts them as-is; authentication happens before us.
	ActorIDHeader   string
	ActorRoleHeader string
	ActorNameHeader string

	// HTTPAddr is the listen address of the local dev server.
	HTTPAddr string

	// Lambda detection flag (cached)
	isLambda bool
}

// LoadFromEnv loads the configuration from environment variables
func LoadFromEnv() (*Config, error) {
	// Local development reads a .env file when one exists; deployed
	// environments get everything from real environment variables.
	_ = godotenv.Load()

	// Create a new config object and load values from environment
	cfg := &Config{}

	// Required environment variables
	cfg.DynamoDBTableName = os.Getenv("DYNAMODB_TABLE_NAME")
	if cfg.DynamoDBTableName == "" {
		return nil, errors.New("DYNAMODB_TABLE_NAME environment variable is required")
	}

	cfg.DynamoDBEndpoint = os.Getenv("DYNAMODB_ENDPOINT")

	// Environment info
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "dev" // Default to dev environment
	}

	// AWS Region; the product serves Thai villages, so Bangkok is the default
	cfg.AWSRegion = os.Getenv("AWS_REGION")
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = "ap-southeast-1"
	}

	// Actor headers
	cfg.ActorIDHeader = os.Getenv("ACTOR_ID_HEADER")
	if cfg.ActorIDHeader == "" {
		cfg.ActorIDHeader = "X-Actor-Id"
	}
	cfg.ActorRoleHeader = os.Getenv("ACTOR_ROLE_HEADER")
	if cfg.ActorRoleHeader == "" {
		cfg.ActorRoleHeader = "X-Actor-Role"
	}
	cfg.ActorNameHeader = os.Getenv("ACTOR_NAME_HEADER")
	if cfg.ActorNameHeader == "" {
		cfg.ActorNameHeader = "X-Actor-Name"
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	// Check if running in Lambda
	cfg.isLambda = os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""

	return cfg, nil
}

func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// IsLambda returns true if the application is running in AWS Lambda
func (c *Config) IsLambda() bool {
	return c.isLambda
}
