package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/omarhamed888/paths-dashboard/internal/domain"
)

// NotificationRepo provides typed DynamoDB operations for the notifications
// table. Records are append-only; the only mutation is flipping is_read.
type NotificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewNotificationRepo(client *dynamodb.Client, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

func (r *NotificationRepo) Put(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("notification_id", notificationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification not found: %w", domain.ErrNotFound)
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByRecipient returns recipientID's notifications newest first via the
// recipient GSI. isRead filters by read state when non-nil. Offset pagination
// over-fetches and slices; notification volume per user stays small.
func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipientID string, isRead *bool, limit, offset int) ([]domain.Notification, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("recipient_id-created_at-index"),
		KeyConditionExpression: aws.String("recipient_id = :rid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": &types.AttributeValueMemberS{Value: recipientID},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if isRead != nil {
		input.FilterExpression = aws.String("is_read = :read")
		input.ExpressionAttributeValues[":read"] = &types.AttributeValueMemberBOOL{Value: *isRead}
	}
	var all []domain.Notification
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		var page []domain.Notification
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		all = append(all, page...)
		if out.LastEvaluatedKey == nil || len(all) >= offset+limit {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	if offset >= len(all) {
		return []domain.Notification{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// ExistsSince reports whether recipientID already has a notification created
// after since that matches category, severity and (when non-empty) a message
// substring. This is the rule engine's dedup gate.
func (r *NotificationRepo) ExistsSince(ctx context.Context, recipientID, category, severity, messageContains string, since time.Time) (bool, error) {
	sinceAV, err := attributevalue.Marshal(since)
	if err != nil {
		return false, fmt.Errorf("marshal since: %w", err)
	}
	filter := "category = :cat AND severity = :sev"
	values := map[string]types.AttributeValue{
		":rid":   &types.AttributeValueMemberS{Value: recipientID},
		":since": sinceAV,
		":cat":   &types.AttributeValueMemberS{Value: category},
		":sev":   &types.AttributeValueMemberS{Value: severity},
	}
	if messageContains != "" {
		filter += " AND contains(message, :frag)"
		values[":frag"] = &types.AttributeValueMemberS{Value: messageContains}
	}
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String("recipient_id-created_at-index"),
		KeyConditionExpression:    aws.String("recipient_id = :rid AND created_at > :since"),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeValues: values,
		Select:                    types.SelectCount,
	})
	if err != nil {
		return false, err
	}
	return out.Count > 0, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{fieldIsRead: true})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("notification_id", notificationID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// MarkAllRead flips every unread notification for recipientID.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, recipientID string) error {
	unread := false
	items, err := r.ListByRecipient(ctx, recipientID, &unread, 1000, 0)
	if err != nil {
		return err
	}
	var firstErr error
	for _, n := range items {
		if err := r.MarkRead(ctx, n.NotificationID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *NotificationRepo) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("recipient_id-created_at-index"),
		KeyConditionExpression: aws.String("recipient_id = :rid"),
		FilterExpression:       aws.String("is_read = :f"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": &types.AttributeValueMemberS{Value: recipientID},
			":f":   &types.AttributeValueMemberBOOL{Value: false},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, err
	}
	return int(out.Count), nil
}

// CountUnread counts recipientID's unread notifications matching a category
// and severity. Used by the admin dashboard counters.
func (r *NotificationRepo) CountUnread(ctx context.Context, recipientID, category, severity string) (int, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("recipient_id-created_at-index"),
		KeyConditionExpression: aws.String("recipient_id = :rid"),
		FilterExpression:       aws.String("is_read = :f AND category = :cat AND severity = :sev"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": &types.AttributeValueMemberS{Value: recipientID},
			":f":   &types.AttributeValueMemberBOOL{Value: false},
			":cat": &types.AttributeValueMemberS{Value: category},
			":sev": &types.AttributeValueMemberS{Value: severity},
		},
		Select: types.SelectCount,
	})
	if err != nil {
		return 0, err
	}
	return int(out.Count), nil
}

// ListAlerts returns recipientID's unread warning and critical notifications,
// newest first, capped at limit. Feeds the dashboard alert panel.
func (r *NotificationRepo) ListAlerts(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("recipient_id-created_at-index"),
		KeyConditionExpression: aws.String("recipient_id = :rid"),
		FilterExpression:       aws.String("is_read = :f AND severity <> :info"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid":  &types.AttributeValueMemberS{Value: recipientID},
			":f":    &types.AttributeValueMemberBOOL{Value: false},
			":info": &types.AttributeValueMemberS{Value: domain.SeverityInfo},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	var alerts []domain.Notification
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &alerts); err != nil {
		return nil, err
	}
	if len(alerts) > limit {
		alerts = alerts[:limit]
	}
	return alerts, nil
}
