package database

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/valkey-io/valkey-go"
)

// Open selects the approval backend from databaseURL:
//
//	""                              sqlite file under dataDir
//	sqlite://path, file:path        sqlite file at path
//	valkey://[:pass@]host:port[/db] valkey (also redis://, valkeys://, rediss://)
//	dynamodb://table?region=..&endpoint=..
func Open(ctx context.Context, databaseURL, dataDir string) (ApprovalRepository, error) {
	switch {
	case databaseURL == "":
		return openSQLite(ctx, filepath.Join(dataDir, defaultDatabaseFile))
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return openSQLite(ctx, strings.TrimPrefix(databaseURL, "sqlite://"))
	case strings.HasPrefix(databaseURL, "file:"):
		return openSQLite(ctx, strings.TrimPrefix(databaseURL, "file:"))
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}

	switch u.Scheme {
	case "valkey", "valkeys", "redis", "rediss":
		client, err := NewValkeyClient(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		slog.Info("Using valkey approval store", "address", u.Host)
		return NewValkeyApprovalRepository(client), nil
	case "dynamodb":
		return openDynamo(ctx, u)
	default:
		return nil, fmt.Errorf("unsupported database url scheme '%s'", u.Scheme)
	}
}

func openSQLite(ctx context.Context, path string) (ApprovalRepository, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is empty")
	}
	db, err := NewConnection(ctx, path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteApprovalRepository(db), nil
}

// ValkeyOptions converts a valkey:// style URL into client options.
func ValkeyOptions(rawURL string) (valkey.ClientOption, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return valkey.ClientOption{}, fmt.Errorf("invalid valkey url: %w", err)
	}

	if u.Host == "" {
		return valkey.ClientOption{}, fmt.Errorf("valkey url has no host")
	}

	opts := valkey.ClientOption{
		InitAddress:      []string{u.Host},
		ConnWriteTimeout: 5 * time.Second,
	}

	if u.User != nil {
		opts.Username = u.User.Username()
		if password, ok := u.User.Password(); ok {
			opts.Password = password
		}
	}

	if db := strings.Trim(u.Path, "/"); db != "" {
		index, err := strconv.Atoi(db)
		if err != nil {
			return valkey.ClientOption{}, fmt.Errorf("invalid valkey database index '%s'", db)
		}
		opts.SelectDB = index
	}

	if u.Scheme == "valkeys" || u.Scheme == "rediss" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return opts, nil
}

// NewValkeyClient connects and pings the server at rawURL.
func NewValkeyClient(ctx context.Context, rawURL string) (valkey.Client, error) {
	opts, err := ValkeyOptions(rawURL)
	if err != nil {
		return nil, err
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping valkey: %w", err)
	}

	return client, nil
}

type dynamoTarget struct {
	table    string
	region   string
	endpoint string
}

func parseDynamoURL(u *url.URL) (dynamoTarget, error) {
	target := dynamoTarget{
		table:    u.Host,
		region:   u.Query().Get("region"),
		endpoint: u.Query().Get("endpoint"),
	}
	if target.table == "" {
		return dynamoTarget{}, fmt.Errorf("dynamodb url has no table name")
	}
	return target, nil
}

func openDynamo(ctx context.Context, u *url.URL) (ApprovalRepository, error) {
	target, err := parseDynamoURL(u)
	if err != nil {
		return nil, err
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if target.region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(target.region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if target.endpoint != "" {
			o.BaseEndpoint = aws.String(target.endpoint)
		}
	})

	slog.Info("Using dynamodb approval store", "table", target.table, "region", awsCfg.Region)

	return NewDynamoApprovalRepository(client, target.table), nil
}
