package staging

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/warehouse"
	apperrors "github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/errors"
)

// LoadAWSConfig resolves the AWS default credential chain. Nothing is
// retrieved until a load asks for keys.
func LoadAWSConfig(ctx context.Context, region, profile string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, apperrors.AuthorizationError("Failed to load AWS config", err).
			WithContext("profile", profile)
	}
	return cfg, nil
}

// NewS3Lister returns the S3 client used for preflight checks.
func NewS3Lister(cfg aws.Config) *s3.Client {
	return s3.NewFromConfig(cfg)
}

// Authorizer supplies COPY authorization for a source.
type Authorizer struct {
	RoleARN            string
	StorageIntegration string
	Credentials        aws.CredentialsProvider
}

// apply sets the authorization fields of spec for method. Keys are fetched
// from the provider on every call.
func (a Authorizer) apply(ctx context.Context, method AuthMethod, spec *warehouse.CopySpec) error {
	switch method {
	case AuthKeys:
		if a.Credentials == nil {
			return apperrors.New(apperrors.ErrCodeAuthorization, "No AWS credentials provider configured").
				WithContext("table", spec.Table)
		}
		creds, err := a.Credentials.Retrieve(ctx)
		if err != nil {
			return apperrors.AuthorizationError("Failed to retrieve AWS credentials", err).
				WithContext("table", spec.Table).
				WithSuggestions("Check AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY or the aws.profile setting")
		}
		if creds.Expired() {
			return apperrors.New(apperrors.ErrCodeCredentialsExpired, "AWS credentials are expired").
				WithContext("table", spec.Table).
				WithContext("source", creds.Source)
		}
		spec.Keys = &warehouse.KeyCredentials{
			AccessKeyID:     creds.AccessKeyID,
			SecretAccessKey: creds.SecretAccessKey,
			SessionToken:    creds.SessionToken,
		}
	default:
		if a.RoleARN == "" && a.StorageIntegration == "" {
			return apperrors.New(apperrors.ErrCodeAuthorization, "Role auth requires an IAM role ARN or storage integration").
				WithContext("table", spec.Table).
				WithSuggestions("Set aws.iam_role_arn (or SPARKIFY_AWS_IAM_ROLE_ARN)")
		}
		spec.RoleARN = a.RoleARN
		spec.StorageIntegration = a.StorageIntegration
	}
	return nil
}

// PlaceholderAuthorizer renders COPY statements without touching the
// credential chain. Missing role settings are shown as placeholders.
func PlaceholderAuthorizer(roleARN, storageIntegration string) Authorizer {
	if roleARN == "" && storageIntegration == "" {
		roleARN = "<iam-role-arn>"
	}
	return Authorizer{
		RoleARN:            roleARN,
		StorageIntegration: storageIntegration,
		Credentials:        credentials.NewStaticCredentialsProvider("<access-key-id>", "<secret-access-key>", ""),
	}
}
