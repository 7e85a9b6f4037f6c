package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/omarhamed888/paths-dashboard/internal/domain"
)

// AttendanceRepo provides typed DynamoDB operations for the attendance table.
// The table is keyed (user_id, date), so Put is an upsert per calendar day.
type AttendanceRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAttendanceRepo(client *dynamodb.Client, tableName string) *AttendanceRepo {
	return &AttendanceRepo{client: client, tableName: tableName}
}

func (r *AttendanceRepo) Put(ctx context.Context, rec *domain.AttendanceRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal attendance record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Latest returns up to limit records for userID with date <= upTo, newest first.
// Dates sort lexicographically because of the fixed YYYY-MM-DD layout.
func (r *AttendanceRepo) Latest(ctx context.Context, userID, upTo string, limit int32) ([]domain.AttendanceRecord, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("user_id = :uid AND #d <= :date"),
		ExpressionAttributeNames: map[string]string{"#d": "date"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid":  &types.AttributeValueMemberS{Value: userID},
			":date": &types.AttributeValueMemberS{Value: upTo},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	})
	if err != nil {
		return nil, err
	}
	var records []domain.AttendanceRecord
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// History returns all records for userID, newest first.
func (r *AttendanceRepo) History(ctx context.Context, userID string) ([]domain.AttendanceRecord, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	var records []domain.AttendanceRecord
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// ScanSince returns all records across users with date >= since.
// Used by the admin team summary; the table is small enough to scan.
func (r *AttendanceRepo) ScanSince(ctx context.Context, since string) ([]domain.AttendanceRecord, error) {
	var records []domain.AttendanceRecord
	input := &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		FilterExpression:         aws.String("#d >= :since"),
		ExpressionAttributeNames: map[string]string{"#d": "date"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":since": &types.AttributeValueMemberS{Value: since},
		},
	}
	for {
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.AttendanceRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		records = append(records, page...)
		if out.LastEvaluatedKey == nil {
			return records, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
