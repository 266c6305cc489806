// Package ledger records the outcome of every labeling round.
//
// Each job has an append-only sequence of RunRecords with increasing
// versions. The DynamoDB implementation uses conditional writes so that two
// concurrent rounds of the same job cannot both commit the same version.
//
// Table schema for DynamoLedger:
//   - Partition key: job (string)
//   - Sort key: version (number)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name autolabel-runs \
//	  --attribute-definitions AttributeName=job,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=job,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package ledger
