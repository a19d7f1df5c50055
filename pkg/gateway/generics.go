package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/diwise/data-gateway/pkg/gateway/errors"
	"github.com/diwise/data-gateway/pkg/provider"
)

func Get[T any](ctx context.Context, g *Gateway, collection, id string) (T, error) {
	var t T

	record, err := g.GetEntity(ctx, collection, id)
	if err != nil {
		return t, err
	}

	return FromRecord[T](record)
}

func List[T any](ctx context.Context, g *Gateway, collection string, filter Filter, options ...ListOption) ([]T, error) {
	records, err := g.ListEntities(ctx, collection, filter, options...)
	if err != nil {
		return nil, err
	}

	result := make([]T, 0, len(records))
	for _, r := range records {
		t, err := FromRecord[T](r)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}

	return result, nil
}

func Create[T any](ctx context.Context, g *Gateway, collection string, payload T) (T, error) {
	var t T

	record, err := ToRecord(payload)
	if err != nil {
		return t, err
	}

	created, err := g.CreateEntity(ctx, collection, record)
	if err != nil {
		return t, err
	}

	return FromRecord[T](created)
}

func Update[T any](ctx context.Context, g *Gateway, collection, id string, patch provider.Record) (T, error) {
	var t T

	updated, err := g.UpdateEntity(ctx, collection, id, patch)
	if err != nil {
		return t, err
	}

	return FromRecord[T](updated)
}

// ToRecord converts a value with json tags into a record.
func ToRecord(v any) (provider.Record, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("failed to marshal payload: %s", err.Error()))
	}

	// numbers stay json.Number so that integers and decimals keep apart
	decoder := json.NewDecoder(bytes.NewReader(b))
	decoder.UseNumber()

	record := provider.Record{}
	err = decoder.Decode(&record)
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("payload is not an object: %s", err.Error()))
	}

	return record, nil
}

func FromRecord[T any](r provider.Record) (T, error) {
	var t T

	b, err := json.Marshal(r)
	if err != nil {
		return t, errors.NewProviderError(fmt.Sprintf("failed to marshal record: %s", err.Error()))
	}

	err = json.Unmarshal(b, &t)
	if err != nil {
		return t, errors.NewProviderError(fmt.Sprintf("record does not match %T: %s", t, err.Error()))
	}

	return t, nil
}
