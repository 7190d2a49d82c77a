package algolia

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cockroachdb/errors"
)

// SecretsManagerClient defines the interface for AWS Secrets Manager operations.
type SecretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretPath returns the Secrets Manager path of the Algolia secret for env.
func SecretPath(env string) string {
	return fmt.Sprintf("%s/algolia", env)
}

// AWSSecrets returns a FetchSecrets function that retrieves Algolia credentials
// from AWS Secrets Manager at SecretPath(env). The secret holds JSON with
// app_id and write_api_key fields.
func AWSSecrets(ctx context.Context, client SecretsManagerClient, env string) FetchSecrets {
	path := SecretPath(env)
	return func() (Secrets, error) {
		return getSecrets(ctx, client, path, "at path "+path)
	}
}

// AWSSecretsFromARN returns a FetchSecrets function that retrieves Algolia
// credentials from the secret with the given ARN.
func AWSSecretsFromARN(ctx context.Context, client SecretsManagerClient, secretArn string) FetchSecrets {
	return func() (Secrets, error) {
		return getSecrets(ctx, client, secretArn, "with ARN "+secretArn)
	}
}

func getSecrets(ctx context.Context, client SecretsManagerClient, id, where string) (Secrets, error) {
	result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(id),
	})
	if err != nil {
		return Secrets{}, errors.Wrapf(err, "failed to get secret from AWS Secrets Manager %s", where)
	}

	if result.SecretString == nil {
		return Secrets{}, errors.Newf("secret %s has no string value", where)
	}

	var secrets Secrets
	if err := json.Unmarshal([]byte(aws.ToString(result.SecretString)), &secrets); err != nil {
		return Secrets{}, errors.Wrapf(err, "failed to unmarshal secret JSON %s", where)
	}

	return secrets, nil
}
