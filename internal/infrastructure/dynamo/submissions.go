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

// SubmissionRepo provides typed DynamoDB operations for the submissions table.
type SubmissionRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSubmissionRepo(client *dynamodb.Client, tableName string) *SubmissionRepo {
	return &SubmissionRepo{client: client, tableName: tableName}
}

func (r *SubmissionRepo) Put(ctx context.Context, s *domain.Submission) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *SubmissionRepo) Get(ctx context.Context, submissionID string) (*domain.Submission, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("submission_id", submissionID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("submission not found: %w", domain.ErrNotFound)
	}
	var s domain.Submission
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByAssignment returns the submission for an assignment, or ErrNotFound.
// There is at most one: resubmission overwrites the existing record.
func (r *SubmissionRepo) GetByAssignment(ctx context.Context, assignmentID string) (*domain.Submission, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("assignment_id-index"),
		KeyConditionExpression: aws.String("assignment_id = :aid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":aid": &types.AttributeValueMemberS{Value: assignmentID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("submission not found: %w", domain.ErrNotFound)
	}
	var s domain.Submission
	if err := attributevalue.UnmarshalMap(out.Items[0], &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Scan returns every submission. Used by the admin dashboard for the
// recent-submissions feed.
func (r *SubmissionRepo) Scan(ctx context.Context) ([]domain.Submission, error) {
	var submissions []domain.Submission
	input := &dynamodb.ScanInput{TableName: aws.String(r.tableName)}
	for {
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.Submission
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		submissions = append(submissions, page...)
		if out.LastEvaluatedKey == nil {
			return submissions, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
