package dynamo

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/omarhamed888/paths-dashboard/internal/domain"
)

// AssignmentRepo provides typed DynamoDB operations for the assignments table.
type AssignmentRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAssignmentRepo(client *dynamodb.Client, tableName string) *AssignmentRepo {
	return &AssignmentRepo{client: client, tableName: tableName}
}

func (r *AssignmentRepo) Put(ctx context.Context, a *domain.Assignment) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal assignment: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *AssignmentRepo) Get(ctx context.Context, assignmentID string) (*domain.Assignment, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("assignment_id", assignmentID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("assignment not found: %w", domain.ErrNotFound)
	}
	var a domain.Assignment
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByTaskAndIntern returns the assignment linking taskID to internID, or
// ErrNotFound. Used to keep task assignment idempotent per intern.
func (r *AssignmentRepo) GetByTaskAndIntern(ctx context.Context, taskID, internID string) (*domain.Assignment, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("task_id-index"),
		KeyConditionExpression: aws.String("task_id = :tid"),
		FilterExpression:       aws.String("intern_id = :iid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":tid": &types.AttributeValueMemberS{Value: taskID},
			":iid": &types.AttributeValueMemberS{Value: internID},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("assignment not found: %w", domain.ErrNotFound)
	}
	var a domain.Assignment
	if err := attributevalue.UnmarshalMap(out.Items[0], &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AssignmentRepo) ListByTask(ctx context.Context, taskID string) ([]domain.Assignment, error) {
	return r.queryIndex(ctx, "task_id-index", "task_id", taskID)
}

func (r *AssignmentRepo) ListByIntern(ctx context.Context, internID string) ([]domain.Assignment, error) {
	return r.queryIndex(ctx, "intern_id-index", "intern_id", internID)
}

// CountByStatus counts internID's assignments whose status is one of the
// given values, without pulling the items back.
func (r *AssignmentRepo) CountByStatus(ctx context.Context, internID string, statuses ...string) (int, error) {
	placeholders := make([]string, len(statuses))
	values := map[string]types.AttributeValue{
		":iid": &types.AttributeValueMemberS{Value: internID},
	}
	for i, s := range statuses {
		p := fmt.Sprintf(":s%d", i)
		placeholders[i] = p
		values[p] = &types.AttributeValueMemberS{Value: s}
	}
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("intern_id-index"),
		KeyConditionExpression:    aws.String("intern_id = :iid"),
		FilterExpression:          aws.String(fmt.Sprintf("#s IN (%s)", strings.Join(placeholders, ", "))),
		ExpressionAttributeNames:  map[string]string{"#s": fieldStatus},
		ExpressionAttributeValues: values,
		Select:                    types.SelectCount,
	})
	if err != nil {
		return 0, err
	}
	return int(out.Count), nil
}

func (r *AssignmentRepo) UpdateStatus(ctx context.Context, assignmentID, status string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldStatus: status})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("assignment_id", assignmentID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func (r *AssignmentRepo) Delete(ctx context.Context, assignmentID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("assignment_id", assignmentID),
	})
	return err
}

func (r *AssignmentRepo) queryIndex(ctx context.Context, index, attr, value string) ([]domain.Assignment, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(index),
		KeyConditionExpression: aws.String(fmt.Sprintf("%s = :v", attr)),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: value},
		},
	})
	if err != nil {
		return nil, err
	}
	var assignments []domain.Assignment
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}
