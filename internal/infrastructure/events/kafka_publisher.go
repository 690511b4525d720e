// Package events publica eventos de movimientos de inventario en Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"

	"github.com/jhoicas/inventrack-api/internal/application/inventory"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/pkg/config"
)

var _ inventory.EventPublisher = (*KafkaPublisher)(nil)

// Tópicos sin prefijo.
const (
	TopicEntryRecorded = "inventory.entry.recorded"
	TopicExitRecorded  = "inventory.exit.recorded"
)

// KafkaPublisher publica con un SyncProducer; la clave del mensaje es el product_id
// para que los eventos de un producto queden en la misma partición y en orden.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	prefix   string
}

// NewSyncProducer crea el productor con confirmación de todas las réplicas.
func NewSyncProducer(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 3
	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// NewKafkaPublisher construye el publicador sobre un productor existente.
func NewKafkaPublisher(producer sarama.SyncProducer, topicPrefix string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, prefix: topicPrefix}
}

// Topic devuelve el tópico de un tipo de movimiento.
func (p *KafkaPublisher) Topic(movementType string) (string, error) {
	switch movementType {
	case entity.MovementTypeEntry:
		return p.prefix + TopicEntryRecorded, nil
	case entity.MovementTypeExit:
		return p.prefix + TopicExitRecorded, nil
	}
	return "", fmt.Errorf("tipo de movimiento desconocido %q", movementType)
}

// Publish envía el evento y espera la confirmación del broker.
func (p *KafkaPublisher) Publish(_ context.Context, ev inventory.MovementEvent) error {
	topic, err := p.Topic(ev.Type)
	if err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("codificar evento: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(ev.ProductID, 10)),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("transaction_id"), Value: []byte(ev.TransactionID)},
		},
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka send %s: %w", topic, err)
	}
	return nil
}

// Close cierra el productor.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
