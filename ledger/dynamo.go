package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoClient is the subset of the DynamoDB API used by DynamoLedger.
type DynamoClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoLedger is a Ledger backed by a DynamoDB table.
type DynamoLedger struct {
	client DynamoClient
	table  string
}

// NewDynamoLedger creates a DynamoLedger on table.
func NewDynamoLedger(client DynamoClient, table string) *DynamoLedger {
	return &DynamoLedger{client: client, table: table}
}

// NewDynamoFromDefault creates a DynamoLedger using the default AWS
// configuration chain.
func NewDynamoFromDefault(ctx context.Context, table, region string) (*DynamoLedger, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return NewDynamoLedger(dynamodb.NewFromConfig(cfg), table), nil
}

const (
	attrJob              = "job"
	attrVersion          = "version"
	attrInputTotal       = "input_total"
	attrAutoAnnotated    = "autoannotated"
	attrSelected         = "selected"
	attrAutoAnnotations  = "autoannotations_uri"
	attrSelections       = "selections_uri"
	attrNextJobName      = "next_job_name"
	attrNextJobOutputURI = "next_job_output_uri"
	attrCreatedAt        = "created_at"
)

// Append implements Ledger. It reads the latest version and writes the next
// one under the condition that it does not exist yet.
func (l *DynamoLedger) Append(ctx context.Context, rec RunRecord) (RunRecord, error) {
	latest, _, err := l.Latest(ctx, rec.Job)
	if err != nil {
		return RunRecord{}, err
	}
	rec.Version = latest.Version + 1

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.table),
		Item:                marshalRun(rec),
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return RunRecord{}, fmt.Errorf("%w: %s version %d", ErrConcurrentRun, rec.Job, rec.Version)
		}
		return RunRecord{}, fmt.Errorf("failed to append run to DynamoDB: %w", err)
	}
	return rec, nil
}

// Latest implements Ledger.
func (l *DynamoLedger) Latest(ctx context.Context, job string) (RunRecord, bool, error) {
	resp, err := l.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.table),
		KeyConditionExpression: aws.String("job = :job"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":job": &types.AttributeValueMemberS{Value: job},
		},
		ScanIndexForward: aws.Bool(false), // Descending order
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return RunRecord{}, false, fmt.Errorf("failed to query DynamoDB: %w", err)
	}
	if len(resp.Items) == 0 {
		return RunRecord{}, false, nil
	}

	rec, err := unmarshalRun(resp.Items[0])
	if err != nil {
		return RunRecord{}, false, err
	}
	return rec, true, nil
}

func marshalRun(r RunRecord) map[string]types.AttributeValue {
	n := func(v int) types.AttributeValue {
		return &types.AttributeValueMemberN{Value: strconv.Itoa(v)}
	}
	s := func(v string) types.AttributeValue {
		return &types.AttributeValueMemberS{Value: v}
	}

	item := map[string]types.AttributeValue{
		attrJob:           s(r.Job),
		attrVersion:       &types.AttributeValueMemberN{Value: strconv.FormatUint(r.Version, 10)},
		attrInputTotal:    n(r.InputTotal),
		attrAutoAnnotated: n(r.AutoAnnotated),
		attrSelected:      n(r.Selected),
		attrCreatedAt:     s(r.CreatedAt.UTC().Format(time.RFC3339Nano)),
	}
	// Empty strings are omitted.
	for k, v := range map[string]string{
		attrAutoAnnotations:  r.AutoAnnotationsURI,
		attrSelections:       r.SelectionsURI,
		attrNextJobName:      r.NextJobName,
		attrNextJobOutputURI: r.NextJobOutputURI,
	} {
		if v != "" {
			item[k] = s(v)
		}
	}
	return item
}

func unmarshalRun(item map[string]types.AttributeValue) (RunRecord, error) {
	var r RunRecord
	var err error

	str := func(k string) string {
		if v, ok := item[k].(*types.AttributeValueMemberS); ok {
			return v.Value
		}
		return ""
	}
	num := func(k string) int64 {
		if err != nil {
			return 0
		}
		v, ok := item[k].(*types.AttributeValueMemberN)
		if !ok {
			err = fmt.Errorf("invalid %s attribute in DynamoDB", k)
			return 0
		}
		var n int64
		n, err = strconv.ParseInt(v.Value, 10, 64)
		return n
	}

	r.Job = str(attrJob)
	r.Version = uint64(num(attrVersion))
	r.InputTotal = int(num(attrInputTotal))
	r.AutoAnnotated = int(num(attrAutoAnnotated))
	r.Selected = int(num(attrSelected))
	r.AutoAnnotationsURI = str(attrAutoAnnotations)
	r.SelectionsURI = str(attrSelections)
	r.NextJobName = str(attrNextJobName)
	r.NextJobOutputURI = str(attrNextJobOutputURI)
	if err != nil {
		return RunRecord{}, err
	}

	if ts := str(attrCreatedAt); ts != "" {
		r.CreatedAt, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return RunRecord{}, fmt.Errorf("invalid %s attribute in DynamoDB: %w", attrCreatedAt, err)
		}
	}
	return r, nil
}
