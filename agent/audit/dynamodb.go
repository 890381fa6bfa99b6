package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	skPrefixTurn = "TURN#"
	defaultTTL   = 30 * 24 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by DynamoRecorder.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoRecorder writes one item per turn, partitioned by session.
type DynamoRecorder struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
}

var _ Recorder = (*DynamoRecorder)(nil)

func NewDynamoRecorder(api dynamodbAPI, tableName string, ttl time.Duration) (*DynamoRecorder, error) {
	if api == nil {
		return nil, errors.New("audit: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("audit: table name must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &DynamoRecorder{api: api, tableName: tableName, ttl: ttl}, nil
}

func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

func turnSK(ts time.Time) string {
	return skPrefixTurn + ts.UTC().Format(time.RFC3339Nano)
}

func (r *DynamoRecorder) Record(ctx context.Context, turn Turn) error {
	if strings.TrimSpace(turn.SessionID) == "" {
		return errors.New("audit: Record: session id is required")
	}
	at := turn.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      r.turnItem(turn, at),
	})
	if err != nil {
		return fmt.Errorf("audit: Record: %w", err)
	}
	return nil
}

func (r *DynamoRecorder) turnItem(turn Turn, at time.Time) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: sessionPK(turn.SessionID)},
		"SK":        &types.AttributeValueMemberS{Value: turnSK(at)},
		"sessionId": &types.AttributeValueMemberS{Value: turn.SessionID},
		"query":     &types.AttributeValueMemberS{Value: turn.Query},
		"routedTo":  &types.AttributeValueMemberS{Value: turn.RoutedTo},
		"response":  &types.AttributeValueMemberS{Value: turn.Response},
		"createdAt": &types.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339)},
		"ttl":       &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", at.Add(r.ttl).Unix())},
	}
	if turn.CustomerID != "" {
		item["customerId"] = &types.AttributeValueMemberS{Value: turn.CustomerID}
	}
	return item
}
