package algolia

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// fakeSecretsManager serves one secret and records the id it was asked for.
type fakeSecretsManager struct {
	secret *string
	err    error

	gotID string
}

func (f *fakeSecretsManager) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.gotID = aws.ToString(params.SecretId)
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: f.secret}, nil
}

func TestAWSSecrets(t *testing.T) {
	tests := []struct {
		name          string
		env           string
		secret        *string
		err           error
		wantID        string
		wantSecrets   Secrets
		wantErr       string
		wantClientErr string
	}{
		{
			name:        "production",
			env:         "production",
			secret:      aws.String(`{"app_id":"grants-prod","write_api_key":"prod-key"}`),
			wantID:      "production/algolia",
			wantSecrets: Secrets{AppID: "grants-prod", WriteApiKey: "prod-key"},
		},
		{
			name:        "staging ignores extra fields",
			env:         "staging",
			secret:      aws.String(`{"app_id":"grants-stg","write_api_key":"stg-key","search_api_key":"ignored"}`),
			wantID:      "staging/algolia",
			wantSecrets: Secrets{AppID: "grants-stg", WriteApiKey: "stg-key"},
		},
		{
			name:    "secrets manager failure",
			env:     "production",
			err:     errors.New("AccessDeniedException"),
			wantID:  "production/algolia",
			wantErr: "failed to get secret from AWS Secrets Manager at path production/algolia",
		},
		{
			name:    "binary secret",
			env:     "dev",
			wantID:  "dev/algolia",
			wantErr: "secret at path dev/algolia has no string value",
		},
		{
			name:    "malformed secret",
			env:     "dev",
			secret:  aws.String(`{"app_id":`),
			wantID:  "dev/algolia",
			wantErr: "failed to unmarshal secret JSON at path dev/algolia",
		},
		{
			name:          "missing write key",
			env:           "production",
			secret:        aws.String(`{"app_id":"grants-prod"}`),
			wantID:        "production/algolia",
			wantSecrets:   Secrets{AppID: "grants-prod"},
			wantClientErr: "WriteApiKey is empty",
		},
		{
			name:          "missing app id",
			env:           "production",
			secret:        aws.String(`{"write_api_key":"prod-key"}`),
			wantID:        "production/algolia",
			wantSecrets:   Secrets{WriteApiKey: "prod-key"},
			wantClientErr: "AppID is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := &fakeSecretsManager{secret: tt.secret, err: tt.err}
			fetch := AWSSecrets(context.Background(), sm, tt.env)

			secrets, err := fetch()
			if sm.gotID != tt.wantID {
				t.Errorf("Expected secret id %q, got %q", tt.wantID, sm.gotID)
			}
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				if _, err := NewClient(fetch).getClient(); err == nil || !strings.Contains(err.Error(), "failed to fetch secrets") {
					t.Errorf("Expected the client to report the fetch failure, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if secrets != tt.wantSecrets {
				t.Errorf("Expected %+v, got %+v", tt.wantSecrets, secrets)
			}

			_, err = NewClient(fetch).getClient()
			if tt.wantClientErr == "" {
				if err != nil {
					t.Errorf("Unexpected client error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantClientErr) {
				t.Errorf("Expected client error containing %q, got %v", tt.wantClientErr, err)
			}
		})
	}
}

func TestAWSSecretsFromARN(t *testing.T) {
	arn := "arn:aws:secretsmanager:us-east-1:123456789012:secret:grants/algolia-AbCdEf"

	t.Run("reads the secret by ARN", func(t *testing.T) {
		sm := &fakeSecretsManager{secret: aws.String(`{"app_id":"arn-app","write_api_key":"arn-key"}`)}
		secrets, err := AWSSecretsFromARN(context.Background(), sm, arn)()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if sm.gotID != arn {
			t.Errorf("Expected secret id %q, got %q", arn, sm.gotID)
		}
		if secrets != (Secrets{AppID: "arn-app", WriteApiKey: "arn-key"}) {
			t.Errorf("Unexpected secrets %+v", secrets)
		}
	})

	t.Run("names the ARN on failure", func(t *testing.T) {
		sm := &fakeSecretsManager{err: errors.New("access denied")}
		_, err := AWSSecretsFromARN(context.Background(), sm, arn)()
		if err == nil || !strings.Contains(err.Error(), "with ARN "+arn) {
			t.Errorf("Expected error to name the ARN, got %v", err)
		}
	})
}

func TestSecretPath(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{env: "production", want: "production/algolia"},
		{env: "staging", want: "staging/algolia"},
		{env: "pr-412", want: "pr-412/algolia"},
	}
	for _, tt := range tests {
		if got := SecretPath(tt.env); got != tt.want {
			t.Errorf("SecretPath(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}
