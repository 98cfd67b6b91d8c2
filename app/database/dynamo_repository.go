package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	dynamodb.ScanAPIClient
}

var _ ApprovalRepository = (*DynamoApprovalRepository)(nil)

// DynamoApprovalRepository stores approvals in a table keyed by thread_id.
type DynamoApprovalRepository struct {
	client dynamoAPI
	table  string
}

func NewDynamoApprovalRepository(client dynamoAPI, table string) *DynamoApprovalRepository {
	return &DynamoApprovalRepository{client: client, table: table}
}

func threadKey(threadID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"thread_id": &types.AttributeValueMemberS{Value: threadID},
	}
}

func (r *DynamoApprovalRepository) UpsertApproval(ctx context.Context, approval Approval) error {
	if approval.ThreadID == "" {
		return fmt.Errorf("approval thread id is required")
	}
	if approval.CreatedAt.IsZero() {
		approval.CreatedAt = time.Now()
	}

	item, err := attributevalue.MarshalMap(approval)
	if err != nil {
		return fmt.Errorf("failed to encode approval: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert approval: %w", err)
	}

	return nil
}

func (r *DynamoApprovalRepository) GetApproval(ctx context.Context, threadID string) (*Approval, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            threadKey(threadID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var approval Approval
	if err := attributevalue.UnmarshalMap(out.Item, &approval); err != nil {
		return nil, fmt.Errorf("failed to decode approval %s: %w", threadID, err)
	}

	return &approval, nil
}

func (r *DynamoApprovalRepository) DeleteApproval(ctx context.Context, threadID string) (bool, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.table),
		Key:          threadKey(threadID),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete approval: %w", err)
	}

	return len(out.Attributes) > 0, nil
}

func (r *DynamoApprovalRepository) ListApprovals(ctx context.Context) ([]Approval, error) {
	var approvals []Approval

	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:      aws.String(r.table),
		ConsistentRead: aws.Bool(true),
	})

	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approvals: %w", err)
		}

		var page []Approval
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to decode approvals: %w", err)
		}
		approvals = append(approvals, page...)
	}

	return approvals, nil
}

// DeleteApprovalsOlderThan deletes conditionally on created_at so a record
// refreshed between scan and delete survives the purge.
func (r *DynamoApprovalRepository) DeleteApprovalsOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	cutoffValue := map[string]types.AttributeValue{
		":cutoff": &types.AttributeValueMemberN{Value: strconv.FormatInt(cutoff.Unix(), 10)},
	}

	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.table),
		FilterExpression:          aws.String("created_at < :cutoff"),
		ExpressionAttributeValues: cutoffValue,
		ProjectionExpression:      aws.String("thread_id"),
	})

	purged := 0
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return purged, fmt.Errorf("failed to scan stale approvals: %w", err)
		}

		for _, item := range out.Items {
			key, ok := item["thread_id"]
			if !ok {
				continue
			}

			_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName:                 aws.String(r.table),
				Key:                       map[string]types.AttributeValue{"thread_id": key},
				ConditionExpression:       aws.String("created_at < :cutoff"),
				ExpressionAttributeValues: cutoffValue,
			})
			var conditionFailed *types.ConditionalCheckFailedException
			if errors.As(err, &conditionFailed) {
				continue
			}
			if err != nil {
				return purged, fmt.Errorf("failed to purge approval: %w", err)
			}
			purged++
		}
	}

	return purged, nil
}

func (r *DynamoApprovalRepository) GetApprovalCount(ctx context.Context) (int, error) {
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.table),
		Select:    types.SelectCount,
	})

	count := 0
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count approvals: %w", err)
		}
		count += int(out.Count)
	}

	return count, nil
}

func (r *DynamoApprovalRepository) Close() error {
	return nil
}
