// Package ddb decodes DynamoDB stream events of the grants table.
package ddb

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/grantsx"
)

// DynamoDBEvent represents a DynamoDB stream event
type DynamoDBEvent struct {
	Records []DynamoDBEventRecord `json:"Records"`
}

// DynamoDBEventRecord represents a single DynamoDB stream record
type DynamoDBEventRecord struct {
	AWSRegion      string               `json:"awsRegion"`
	Change         DynamoDBStreamRecord `json:"dynamodb"`
	EventID        string               `json:"eventID"`
	EventName      string               `json:"eventName"`
	EventSource    string               `json:"eventSource"`
	EventVersion   string               `json:"eventVersion"`
	EventSourceArn string               `json:"eventSourceARN"`
}

// DynamoDBStreamRecord represents the DynamoDB stream data
type DynamoDBStreamRecord struct {
	ApproximateCreationDateTime int64                           `json:"ApproximateCreationDateTime,omitempty"`
	Keys                        map[string]types.AttributeValue `json:"Keys,omitempty"`
	NewImage                    map[string]types.AttributeValue `json:"NewImage,omitempty"`
	OldImage                    map[string]types.AttributeValue `json:"OldImage,omitempty"`
	SequenceNumber              string                          `json:"SequenceNumber"`
	SizeBytes                   int64                           `json:"SizeBytes"`
	StreamViewType              string                          `json:"StreamViewType"`
}

// UnmarshalJSON decodes the attribute maps from DynamoDB JSON.
func (r *DynamoDBStreamRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ApproximateCreationDateTime int64           `json:"ApproximateCreationDateTime,omitempty"`
		Keys                        json.RawMessage `json:"Keys,omitempty"`
		NewImage                    json.RawMessage `json:"NewImage,omitempty"`
		OldImage                    json.RawMessage `json:"OldImage,omitempty"`
		SequenceNumber              string          `json:"SequenceNumber"`
		SizeBytes                   int64           `json:"SizeBytes"`
		StreamViewType              string          `json:"StreamViewType"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "failed to unmarshal stream record")
	}

	out := DynamoDBStreamRecord{
		ApproximateCreationDateTime: raw.ApproximateCreationDateTime,
		SequenceNumber:              raw.SequenceNumber,
		SizeBytes:                   raw.SizeBytes,
		StreamViewType:              raw.StreamViewType,
	}
	for _, img := range []struct {
		name string
		data json.RawMessage
		dst  *map[string]types.AttributeValue
	}{
		{"Keys", raw.Keys, &out.Keys},
		{"NewImage", raw.NewImage, &out.NewImage},
		{"OldImage", raw.OldImage, &out.OldImage},
	} {
		if len(img.data) == 0 || string(img.data) == "null" {
			continue
		}
		m, err := UnmarshalAttributeValueMap(img.data)
		if err != nil {
			return errors.Wrapf(err, "failed to unmarshal %s", img.name)
		}
		*img.dst = m
	}

	*r = out
	return nil
}

// UnmarshalAttributeValueMap converts a DynamoDB JSON object such as
// {"pk": {"S": "x"}} into SDK attribute values.
func UnmarshalAttributeValueMap(data []byte) (map[string]types.AttributeValue, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal attribute map")
	}

	out := make(map[string]types.AttributeValue, len(raw))
	for name, v := range raw {
		av, err := unmarshalAttributeValue(v)
		if err != nil {
			return nil, errors.Wrapf(err, "attribute %q", name)
		}
		out[name] = av
	}
	return out, nil
}

func unmarshalAttributeValue(data []byte) (types.AttributeValue, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal attribute value")
	}
	if len(raw) != 1 {
		return nil, errors.Newf("attribute value must have exactly one type, got %d", len(raw))
	}

	for typ, v := range raw {
		switch typ {
		case "S":
			var s string
			err := json.Unmarshal(v, &s)
			return &types.AttributeValueMemberS{Value: s}, err
		case "N":
			var n string
			err := json.Unmarshal(v, &n)
			return &types.AttributeValueMemberN{Value: n}, err
		case "B":
			var b []byte
			err := json.Unmarshal(v, &b)
			return &types.AttributeValueMemberB{Value: b}, err
		case "BOOL":
			var b bool
			err := json.Unmarshal(v, &b)
			return &types.AttributeValueMemberBOOL{Value: b}, err
		case "NULL":
			var b bool
			err := json.Unmarshal(v, &b)
			return &types.AttributeValueMemberNULL{Value: b}, err
		case "SS":
			var ss []string
			err := json.Unmarshal(v, &ss)
			return &types.AttributeValueMemberSS{Value: ss}, err
		case "NS":
			var ns []string
			err := json.Unmarshal(v, &ns)
			return &types.AttributeValueMemberNS{Value: ns}, err
		case "BS":
			var bs [][]byte
			err := json.Unmarshal(v, &bs)
			return &types.AttributeValueMemberBS{Value: bs}, err
		case "M":
			m, err := UnmarshalAttributeValueMap(v)
			if err != nil {
				return nil, err
			}
			return &types.AttributeValueMemberM{Value: m}, nil
		case "L":
			var items []json.RawMessage
			if err := json.Unmarshal(v, &items); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal list")
			}
			list := make([]types.AttributeValue, 0, len(items))
			for _, item := range items {
				av, err := unmarshalAttributeValue(item)
				if err != nil {
					return nil, err
				}
				list = append(list, av)
			}
			return &types.AttributeValueMemberL{Value: list}, nil
		default:
			return nil, errors.Newf("unknown attribute type %q", typ)
		}
	}
	return nil, nil
}

// DynamoDBOperationType represents the type of DynamoDB operation
type DynamoDBOperationType string

const (
	DynamoDBOperationTypeInsert DynamoDBOperationType = "INSERT"
	DynamoDBOperationTypeModify DynamoDBOperationType = "MODIFY"
	DynamoDBOperationTypeRemove DynamoDBOperationType = "REMOVE"
)

// Record is one row of the grants table. The sort key names the search
// index the grant belongs to.
type Record struct {
	ID        string         `dynamodbav:"pk"`
	IndexName string         `dynamodbav:"sk"`
	Object    map[string]any `dynamodbav:"object"`
}

// NewRecord builds the table row for g in indexName.
func NewRecord(indexName string, g grantsx.Grant) Record {
	object := make(map[string]any, len(g.Fields)+5)
	for k, v := range g.Fields {
		object[k] = v
	}
	object[grantsx.FieldTitle] = g.Title
	object[grantsx.FieldAgencyName] = g.AgencyName
	object[grantsx.FieldCity] = g.City
	object[grantsx.FieldMinAmount] = g.MinAmount
	object[grantsx.FieldMaxAmount] = g.MaxAmount
	return Record{ID: g.ID, IndexName: indexName, Object: object}
}

// Grant converts the row into a grant keyed by the partition key.
func (r Record) Grant() grantsx.Grant {
	g := grantsx.GrantFromFields(r.ID, r.Object)
	g.ID = r.ID
	return g
}

// Marshal encodes the row as a DynamoDB item.
func (r Record) Marshal() (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal grant record")
	}
	return item, nil
}

// UnmarshalRecord converts a DynamoDB NewImage into a Record struct
func UnmarshalRecord(newImage map[string]types.AttributeValue) (Record, error) {
	var record Record
	if err := attributevalue.UnmarshalMap(newImage, &record); err != nil {
		return Record{}, errors.Wrap(err, "failed to unmarshal grant record")
	}
	return record, nil
}
