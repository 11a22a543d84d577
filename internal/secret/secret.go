package secret

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rs/zerolog/log"
)

var ErrMalformedSecret = errors.New("secret: malformed database credentials")

// Client is the subset of the Secrets Manager API used to read credentials.
type Client interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Credentials is the JSON document stored in the database secret.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewClient builds a Secrets Manager client from the default AWS configuration chain.
func NewClient(ctx context.Context) (*secretsmanager.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("secret: load aws config: %w", err)
	}
	return secretsmanager.NewFromConfig(cfg), nil
}

// Fetch reads the credentials stored under arn.
func Fetch(ctx context.Context, client Client, arn string) (Credentials, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(arn),
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("secret: get %s: %w", arn, err)
	}

	raw := aws.ToString(out.SecretString)
	if raw == "" {
		return Credentials{}, fmt.Errorf("%w: %s has no string value", ErrMalformedSecret, arn)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrMalformedSecret, err)
	}
	if creds.Username == "" || creds.Password == "" {
		return Credentials{}, fmt.Errorf("%w: username and password are required", ErrMalformedSecret)
	}

	log.Debug().Str("secret", arn).Str("user", creds.Username).Msg("Database credentials loaded")
	return creds, nil
}
