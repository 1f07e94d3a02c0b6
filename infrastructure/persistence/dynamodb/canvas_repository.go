package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"inkboard-backend/application/ports"
	"inkboard-backend/domain/core/valueobjects"
	pkgerrors "inkboard-backend/pkg/errors"
	"inkboard-backend/pkg/observability"
)

// CanvasRepository stores each canvas as a single item: metadata columns
// plus the full node/edge document as a JSON blob. The whole document is
// overwritten on every save, guarded by a conditional put on Version.
type CanvasRepository struct {
	client    *dynamodb.Client
	tableName string
	indexName string
	logger    *zap.Logger
	tracer    *observability.Tracer
	metrics   *observability.Metrics
}

// NewCanvasRepository creates a new CanvasRepository
func NewCanvasRepository(client *dynamodb.Client, tableName, indexName string, tracer *observability.Tracer, metrics *observability.Metrics, logger *zap.Logger) *CanvasRepository {
	return &CanvasRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
		tracer:    tracer,
		metrics:   metrics,
	}
}

// canvasItem represents the DynamoDB item structure for a canvas
type canvasItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	EntityType string `dynamodbav:"EntityType"`
	CanvasID   string `dynamodbav:"CanvasID"`
	OwnerID    string `dynamodbav:"OwnerID"`
	Name       string `dynamodbav:"Name"`
	Document   string `dynamodbav:"Document"`
	NodeCount  int    `dynamodbav:"NodeCount"`
	EdgeCount  int    `dynamodbav:"EdgeCount"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
	Version    int64  `dynamodbav:"Version"`
}

// documentBlob is the JSON shape stored in the Document attribute
type documentBlob struct {
	Nodes []ports.NodeRecord `json:"nodes"`
	Edges []ports.EdgeRecord `json:"edges"`
}

// Load retrieves a canvas document by id via GSI1
func (r *CanvasRepository) Load(ctx context.Context, id valueobjects.CanvasID) (ports.CanvasDocument, error) {
	var doc ports.CanvasDocument
	err := r.trace(ctx, "CanvasRepository.Load", func(ctx context.Context) error {
		input := &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String(r.indexName),
			KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: canvasGSI1PK(id.String())},
				":sk": &types.AttributeValueMemberS{Value: "METADATA"},
			},
			Limit: aws.Int32(1),
		}

		result, err := r.client.Query(ctx, input)
		if err != nil {
			return pkgerrors.NewDatabaseError("query canvas", err)
		}
		if len(result.Items) == 0 {
			return pkgerrors.NewNotFoundError("canvas")
		}

		var item canvasItem
		if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
			return pkgerrors.NewDatabaseError("unmarshal canvas item", err)
		}

		var blob documentBlob
		if err := json.Unmarshal([]byte(item.Document), &blob); err != nil {
			return pkgerrors.NewDatabaseError("decode canvas document", err)
		}

		doc = ports.CanvasDocument{
			ID:      item.CanvasID,
			OwnerID: item.OwnerID,
			Name:    item.Name,
			Nodes:   blob.Nodes,
			Edges:   blob.Edges,
			Version: item.Version,
		}
		return nil
	})
	return doc, err
}

// Save overwrites the canvas document whole. doc.Version must match the
// stored version; zero means the item must not exist yet. The new
// stored version is doc.Version+1.
func (r *CanvasRepository) Save(ctx context.Context, doc ports.CanvasDocument) (int64, error) {
	start := time.Now()
	newVersion := doc.Version + 1

	err := r.trace(ctx, "CanvasRepository.Save", func(ctx context.Context) error {
		blob, err := json.Marshal(documentBlob{Nodes: doc.Nodes, Edges: doc.Edges})
		if err != nil {
			return pkgerrors.NewDatabaseError("encode canvas document", err)
		}

		item := canvasItem{
			PK:         canvasPK(doc.OwnerID),
			SK:         canvasSK(doc.ID),
			GSI1PK:     canvasGSI1PK(doc.ID),
			GSI1SK:     "METADATA",
			EntityType: "CANVAS",
			CanvasID:   doc.ID,
			OwnerID:    doc.OwnerID,
			Name:       doc.Name,
			Document:   string(blob),
			NodeCount:  len(doc.Nodes),
			EdgeCount:  len(doc.Edges),
			UpdatedAt:  time.Now().UTC().Format(time.RFC3339),
			Version:    newVersion,
		}

		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return pkgerrors.NewDatabaseError("marshal canvas item", err)
		}

		input := &dynamodb.PutItemInput{
			TableName: aws.String(r.tableName),
			Item:      av,
		}
		if doc.Version == 0 {
			input.ConditionExpression = aws.String("attribute_not_exists(PK)")
		} else {
			input.ConditionExpression = aws.String("Version = :expected")
			input.ExpressionAttributeValues = map[string]types.AttributeValue{
				":expected": &types.AttributeValueMemberN{Value: strconv.FormatInt(doc.Version, 10)},
			}
		}

		if _, err := r.client.PutItem(ctx, input); err != nil {
			var conditionFailed *types.ConditionalCheckFailedException
			if errors.As(err, &conditionFailed) {
				return pkgerrors.NewConflictError(
					fmt.Sprintf("canvas %s was modified by another writer", doc.ID))
			}
			return pkgerrors.NewDatabaseError("put canvas", err)
		}
		return nil
	})

	r.metrics.RecordSave(ctx, doc.ID, time.Since(start), err == nil)
	if err != nil {
		return 0, err
	}

	r.logger.Debug("canvas saved",
		zap.String("canvas_id", doc.ID),
		zap.Int("node_count", len(doc.Nodes)),
		zap.Int("edge_count", len(doc.Edges)),
		zap.Int64("version", newVersion),
	)
	return newVersion, nil
}

// Delete removes a canvas item. Deleting an absent id is a no-op.
func (r *CanvasRepository) Delete(ctx context.Context, ownerID string, id valueobjects.CanvasID) error {
	return r.trace(ctx, "CanvasRepository.Delete", func(ctx context.Context) error {
		input := &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: canvasPK(ownerID)},
				"SK": &types.AttributeValueMemberS{Value: canvasSK(id.String())},
			},
		}
		if _, err := r.client.DeleteItem(ctx, input); err != nil {
			return pkgerrors.NewDatabaseError("delete canvas", err)
		}
		return nil
	})
}

// ListByOwner returns summaries of every canvas the owner has. The
// projection skips the Document blob so listings stay cheap.
func (r *CanvasRepository) ListByOwner(ctx context.Context, ownerID string) ([]ports.CanvasSummary, error) {
	var summaries []ports.CanvasSummary
	err := r.trace(ctx, "CanvasRepository.ListByOwner", func(ctx context.Context) error {
		keyCond := expression.Key("PK").Equal(expression.Value(canvasPK(ownerID))).
			And(expression.Key("SK").BeginsWith("CANVAS#"))
		projection := expression.NamesList(
			expression.Name("CanvasID"),
			expression.Name("Name"),
			expression.Name("NodeCount"),
			expression.Name("EdgeCount"),
			expression.Name("UpdatedAt"),
		)
		expr, err := expression.NewBuilder().
			WithKeyCondition(keyCond).
			WithProjection(projection).
			Build()
		if err != nil {
			return pkgerrors.NewDatabaseError("build list expression", err)
		}

		input := &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ProjectionExpression:      expr.Projection(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}

		paginator := dynamodb.NewQueryPaginator(r.client, input)
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return pkgerrors.NewDatabaseError("query canvases", err)
			}
			for _, raw := range page.Items {
				var item canvasItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					r.logger.Warn("skipping malformed canvas item", zap.Error(err))
					continue
				}
				summaries = append(summaries, ports.CanvasSummary{
					ID:        item.CanvasID,
					Name:      item.Name,
					NodeCount: item.NodeCount,
					EdgeCount: item.EdgeCount,
					UpdatedAt: item.UpdatedAt,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *CanvasRepository) trace(ctx context.Context, name string, fn func(context.Context) error) error {
	if r.tracer == nil {
		return fn(ctx)
	}
	return r.tracer.TraceFunction(ctx, name, fn)
}

func canvasPK(ownerID string) string {
	return fmt.Sprintf("USER#%s", ownerID)
}

func canvasSK(canvasID string) string {
	return fmt.Sprintf("CANVAS#%s", canvasID)
}

func canvasGSI1PK(canvasID string) string {
	return fmt.Sprintf("CANVASID#%s", canvasID)
}
