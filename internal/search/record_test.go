package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mall-next/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildProductRecordCategoryPath(t *testing.T) {
	category := &models.Category{ID: 9, Name: "机械键盘", Path: "-1-4-", Level: 2}
	product := &models.Product{
		ID:          3,
		Type:        "normal",
		Title:       "K8",
		Price:       models.MustMoney("299.00"),
		OnSale:      true,
		Rating:      4.5,
		SoldCount:   12,
		ReviewCount: 3,
		Category:    category,
		SKUs: []models.ProductSKU{
			{Title: "青轴", Price: models.MustMoney("299")},
			{Title: "红轴", Price: models.MustMoney("309.5")},
		},
		Properties: []models.ProductProperty{{Name: "颜色", Value: "黑"}},
	}
	ancestors := []models.Category{
		{ID: 4, Name: "键盘"},
		{ID: 1, Name: "电脑配件"},
	}

	record := BuildProductRecord(product, ancestors)

	assert.Equal(t, []string{"电脑配件", "键盘", "机械键盘"}, record.Category)
	assert.Equal(t, "-1-4-9-", record.CategoryPath)
	assert.Equal(t, "299.00", record.Price)
	require.Len(t, record.SKUs, 2)
	assert.Equal(t, "309.50", record.SKUs[1].Price)
	require.Len(t, record.Properties, 1)
	assert.Equal(t, "颜色:黑", record.Properties[0].SearchValue)
}

func TestBuildProductRecordWithoutCategory(t *testing.T) {
	record := BuildProductRecord(&models.Product{ID: 1, Title: "T", Price: models.MustMoney("1")}, nil)
	assert.Empty(t, record.Category)
	assert.Empty(t, record.CategoryPath)
	assert.NotNil(t, record.SKUs)
}

func TestAncestorIDs(t *testing.T) {
	assert.Equal(t, []uint{1, 4}, AncestorIDs(&models.Category{Path: "-1-4-"}))
	assert.Empty(t, AncestorIDs(&models.Category{Path: "-"}))
	assert.Nil(t, AncestorIDs(nil))
}

type recordingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublisherKeysByProductID(t *testing.T) {
	writer := &recordingWriter{}
	publisher := NewPublisherWithWriter(writer, "products")

	err := publisher.Publish(context.Background(), ProductRecord{ID: 42, Title: "T"})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)
	assert.Equal(t, "42", string(writer.messages[0].Key))

	var decoded ProductRecord
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &decoded))
	assert.Equal(t, uint(42), decoded.ID)
}

func TestPublisherPropagatesWriteError(t *testing.T) {
	publisher := NewPublisherWithWriter(&recordingWriter{err: errors.New("broker down")}, "products")
	assert.Error(t, publisher.Publish(context.Background(), ProductRecord{ID: 1}))
}

func TestNilPublisherIsNoop(t *testing.T) {
	var publisher *Publisher
	assert.NoError(t, publisher.Publish(context.Background(), ProductRecord{ID: 1}))
	assert.NoError(t, publisher.Close())
	assert.Nil(t, NewPublisher(nil))
}
