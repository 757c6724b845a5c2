package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kdimtricp/tubely/internal/models"
)

// DynamoVideoRepository implements VideoStore on a DynamoDB table keyed by "id".
type DynamoVideoRepository struct {
	client    *dynamodb.Client
	tableName string
}

var _ VideoStore = (*DynamoVideoRepository)(nil)

// videoItem represents the DynamoDB item structure
type videoItem struct {
	ID           string    `dynamodbav:"id"`
	UserID       string    `dynamodbav:"user_id"`
	Title        string    `dynamodbav:"title"`
	Description  string    `dynamodbav:"description"`
	ThumbnailURL *string   `dynamodbav:"thumbnail_url,omitempty"`
	VideoURL     *string   `dynamodbav:"video_url,omitempty"`
	CreatedAt    time.Time `dynamodbav:"created_at"`
	UpdatedAt    time.Time `dynamodbav:"updated_at"`
}

func toItem(v *models.Video) videoItem {
	return videoItem{
		ID:           v.ID,
		UserID:       v.UserID,
		Title:        v.Title,
		Description:  v.Description,
		ThumbnailURL: v.ThumbnailURL,
		VideoURL:     v.StorageKey,
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

func (it videoItem) toModel() models.Video {
	return models.Video{
		ID:           it.ID,
		UserID:       it.UserID,
		Title:        it.Title,
		Description:  it.Description,
		ThumbnailURL: it.ThumbnailURL,
		StorageKey:   it.VideoURL,
		CreatedAt:    it.CreatedAt,
		UpdatedAt:    it.UpdatedAt,
	}
}

func NewDynamoVideoRepository(ctx context.Context, tableName, region string) (*DynamoVideoRepository, error) {
	if tableName == "" {
		return nil, fmt.Errorf("DynamoDB table name cannot be empty")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewDynamoVideoRepositoryFromClient(dynamodb.NewFromConfig(cfg), tableName), nil
}

func NewDynamoVideoRepositoryFromClient(client *dynamodb.Client, tableName string) *DynamoVideoRepository {
	return &DynamoVideoRepository{client: client, tableName: tableName}
}

func (r *DynamoVideoRepository) SetStorageKey(ctx context.Context, id, key string) error {
	return r.setAttribute(ctx, id, "video_url", key)
}

func (r *DynamoVideoRepository) SetThumbnailURL(ctx context.Context, id, url string) error {
	return r.setAttribute(ctx, id, "thumbnail_url", url)
}

// setAttribute updates a single attribute in place; the rest of the item is
// left as stored.
func (r *DynamoVideoRepository) setAttribute(ctx context.Context, id, name, value string) error {
	updatedAt, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:    aws.String("SET #attr = :value, updated_at = :updated_at"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeNames: map[string]string{
			"#attr": name,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":value":      &types.AttributeValueMemberS{Value: value},
			":updated_at": updatedAt,
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update %s: %w", name, err)
	}
	return nil
}

func (r *DynamoVideoRepository) InsertVideo(ctx context.Context, video *models.Video) error {
	av, err := attributevalue.MarshalMap(toItem(video))
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("failed to put item: %w", err)
	}
	return nil
}

func (r *DynamoVideoRepository) GetVideoByID(ctx context.Context, id string) (*models.Video, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		ConsistentRead: aws.Bool(true),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var item videoItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	v := item.toModel()
	return &v, nil
}

func (r *DynamoVideoRepository) ListVideosByUser(ctx context.Context, userID string) ([]models.Video, error) {
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("user_id = :user_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":user_id": &types.AttributeValueMemberS{Value: userID},
		},
	})

	videos := []models.Video{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		var items []videoItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal items: %w", err)
		}
		for _, it := range items {
			videos = append(videos, it.toModel())
		}
	}

	sort.Slice(videos, func(i, j int) bool {
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
	return videos, nil
}

func (r *DynamoVideoRepository) DeleteVideo(ctx context.Context, id string) error {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(r.tableName),
		ReturnValues: types.ReturnValueAllOld,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if len(out.Attributes) == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DynamoVideoRepository) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(r.tableName),
	})
	if err != nil {
		return fmt.Errorf("table %s unreachable: %w", r.tableName, err)
	}
	return nil
}
