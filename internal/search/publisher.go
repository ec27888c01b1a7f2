package search

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/mall-next/internal/config"
	"github.com/mall-next/internal/logger"

	"github.com/segmentio/kafka-go"
)

const defaultProductTopic = "mall.product.export"

// MessageWriter kafka 写入接口，便于测试替换
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher 商品导出消息发布者
type Publisher struct {
	writer MessageWriter
	topic  string
}

// NewPublisher 创建发布者；未启用或未配置 broker 时返回 nil
func NewPublisher(cfg *config.SearchConfig) *Publisher {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, broker := range cfg.Brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	if len(brokers) == 0 {
		logger.Warnw("search_publisher_disabled_no_brokers")
		return nil
	}
	topic := strings.TrimSpace(cfg.ProductTopic)
	if topic == "" {
		topic = defaultProductTopic
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return NewPublisherWithWriter(writer, topic)
}

// NewPublisherWithWriter 使用自定义 writer 创建发布者
func NewPublisherWithWriter(writer MessageWriter, topic string) *Publisher {
	if writer == nil {
		return nil
	}
	return &Publisher{writer: writer, topic: topic}
}

// Topic 发布主题
func (p *Publisher) Topic() string {
	if p == nil {
		return ""
	}
	return p.topic
}

// Publish 发布商品文档，以商品 ID 作为分区键保证同一商品有序
func (p *Publisher) Publish(ctx context.Context, record ProductRecord) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(record.ID), 10)),
		Value: body,
	})
}

// Close 关闭底层 writer
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
