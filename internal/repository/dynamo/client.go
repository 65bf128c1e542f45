// Package dynamo is the DynamoDB backend for the check record store.
//
// Tables:
//   - bookings:     PK id
//   - fuel_pricing: PK lessor_id
//   - fines:        PK booking_id, SK id
//   - check_records: PK booking_id, SK record_type, GSI on id
//
// The (booking_id, record_type) key makes at-most-one record per booking and type a
// property of the table itself.
package dynamo

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// API is the subset of *dynamodb.Client the repositories use.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Tables          Tables `yaml:"tables"`
}

type Tables struct {
	Bookings     string `yaml:"bookings"`
	FuelPricing  string `yaml:"fuel_pricing"`
	Fines        string `yaml:"fines"`
	CheckRecords string `yaml:"check_records"`
	// RecordIDIndex is the check_records GSI keyed by id.
	RecordIDIndex string `yaml:"record_id_index"`
}

// WithDefaults fills in missing table names.
func (t Tables) WithDefaults() Tables {
	if t.Bookings == "" {
		t.Bookings = "bookings"
	}
	if t.FuelPricing == "" {
		t.FuelPricing = "fuel_pricing"
	}
	if t.Fines == "" {
		t.Fines = "fines"
	}
	if t.CheckRecords == "" {
		t.CheckRecords = "check_records"
	}
	if t.RecordIDIndex == "" {
		t.RecordIDIndex = "id-index"
	}
	return t
}

// NewClient creates a DynamoDB client. Static credentials and a custom endpoint are
// optional and meant for DynamoDB Local.
func NewClient(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}
