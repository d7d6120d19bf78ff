// Package ddb implements the document store port on DynamoDB. Every
// collection shares one table: PK is the collection partition, SK the
// document key.
package ddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"profiledir/internal/ports"
	"profiledir/internal/types"
)

type Store struct {
	table string
	cli   *dynamodb.Client
}

func NewStore(table string, cli *dynamodb.Client) *Store {
	createTableIfNotExists(cli, table)
	return &Store{table: table, cli: cli}
}

func (s *Store) docKey(collection, key string) map[string]ddbTypes.AttributeValue {
	return map[string]ddbTypes.AttributeValue{
		"PK": &ddbTypes.AttributeValueMemberS{Value: pkColl(collection)},
		"SK": &ddbTypes.AttributeValueMemberS{Value: skDoc(key)},
	}
}

func (s *Store) Get(ctx context.Context, collection, key string) (types.Document, error) {
	out, err := s.cli.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &s.table,
		ConsistentRead: awsBool(true),
		Key:            s.docKey(collection, key),
	})
	if err != nil {
		return nil, types.Err(types.ErrStoreAccess, err, "get %s/%s", collection, key)
	}
	if out.Item == nil {
		return nil, nil
	}
	return unmarshalDoc(out.Item)
}

func (s *Store) Set(ctx context.Context, collection, key string, fields types.Document, merge bool) error {
	if !merge {
		item, err := attributevalue.MarshalMap(fields)
		if err != nil {
			return err
		}
		item["PK"] = &ddbTypes.AttributeValueMemberS{Value: pkColl(collection)}
		item["SK"] = &ddbTypes.AttributeValueMemberS{Value: skDoc(key)}
		_, err = s.cli.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: &s.table,
			Item:      item,
		})
		if err != nil {
			return types.Err(types.ErrStoreAccess, err, "put %s/%s", collection, key)
		}
		return nil
	}

	// Merge writes touch only the provided fields.
	expr := ""
	names := make(map[string]string, len(fields))
	values := make(map[string]ddbTypes.AttributeValue, len(fields))
	i := 0
	for field, value := range fields {
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return err
		}
		name := fmt.Sprintf("#f%d", i)
		ph := fmt.Sprintf(":v%d", i)
		if expr == "" {
			expr = "SET "
		} else {
			expr += ", "
		}
		expr += name + "=" + ph
		names[name] = field
		values[ph] = av
		i++
	}
	if expr == "" {
		return nil
	}
	_, err := s.cli.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 &s.table,
		Key:                       s.docKey(collection, key),
		UpdateExpression:          awsString(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return types.Err(types.ErrStoreAccess, err, "merge %s/%s", collection, key)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	_, err := s.cli.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.table,
		Key:       s.docKey(collection, key),
	})
	if err != nil {
		return types.Err(types.ErrStoreAccess, err, "delete %s/%s", collection, key)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection, field string, op ports.Operator, value any) ([]ports.Doc, error) {
	av, err := attributevalue.Marshal(value)
	if err != nil {
		return nil, err
	}
	var filter string
	switch op {
	case ports.Equals:
		filter = "#f = :val"
	case ports.ArrayContains:
		filter = "contains(#f, :val)"
	default:
		return nil, fmt.Errorf("unsupported operator %q", op)
	}
	out, err := s.cli.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.table,
		KeyConditionExpression: awsString("PK = :pk"),
		FilterExpression:       awsString(filter),
		ExpressionAttributeNames: map[string]string{
			"#f": field,
		},
		ExpressionAttributeValues: map[string]ddbTypes.AttributeValue{
			":pk":  &ddbTypes.AttributeValueMemberS{Value: pkColl(collection)},
			":val": av,
		},
	})
	if err != nil {
		return nil, types.Err(types.ErrStoreAccess, err, "query %s where %s %s", collection, field, op)
	}
	return docsFromItems(out.Items)
}

func (s *Store) All(ctx context.Context, collection string) ([]ports.Doc, error) {
	out, err := s.cli.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.table,
		KeyConditionExpression: awsString("PK = :pk"),
		ExpressionAttributeValues: map[string]ddbTypes.AttributeValue{
			":pk": &ddbTypes.AttributeValueMemberS{Value: pkColl(collection)},
		},
	})
	if err != nil {
		return nil, types.Err(types.ErrStoreAccess, err, "scan %s", collection)
	}
	return docsFromItems(out.Items)
}

func docsFromItems(items []map[string]ddbTypes.AttributeValue) ([]ports.Doc, error) {
	docs := make([]ports.Doc, 0, len(items))
	for _, item := range items {
		var sk string
		if v, ok := item["SK"].(*ddbTypes.AttributeValueMemberS); ok {
			sk = v.Value
		}
		doc, err := unmarshalDoc(item)
		if err != nil {
			return nil, err
		}
		docs = append(docs, ports.Doc{Key: parseDocKey(sk), Fields: doc})
	}
	return docs, nil
}

func unmarshalDoc(item map[string]ddbTypes.AttributeValue) (types.Document, error) {
	var doc types.Document
	if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
		return nil, err
	}
	delete(doc, "PK")
	delete(doc, "SK")
	return doc, nil
}
