package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventrack-api/internal/application/inventory"
	"github.com/jhoicas/inventrack-api/internal/domain/entity"
	"github.com/jhoicas/inventrack-api/internal/infrastructure/events"
)

func TestKafkaPublisher_PublishExit(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	ev := inventory.MovementEvent{
		Type:          entity.MovementTypeExit,
		TransactionID: "tx-1",
		MovementID:    9,
		ActorID:       2,
		ProductID:     5,
		Quantity:      7,
		Deductions:    []inventory.DeductionRecord{{WarehouseID: 1, Quantity: 5}, {WarehouseID: 2, Quantity: 2, Remaining: 3}},
		OccurredAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "test.inventory.exit.recorded" {
			return errors.New("tópico inesperado: " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "5" {
			return errors.New("clave inesperada: " + string(key))
		}
		value, _ := msg.Value.Encode()
		var got inventory.MovementEvent
		if err := json.Unmarshal(value, &got); err != nil {
			return err
		}
		if got.Quantity != 7 || len(got.Deductions) != 2 {
			return errors.New("payload inesperado")
		}
		return nil
	})

	pub := events.NewKafkaPublisher(producer, "test.")
	require.NoError(t, pub.Publish(context.Background(), ev))
	require.NoError(t, pub.Close())
}

func TestKafkaPublisher_SendFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := events.NewKafkaPublisher(producer, "")
	err := pub.Publish(context.Background(), inventory.MovementEvent{Type: entity.MovementTypeEntry, ProductID: 1})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, pub.Close())
}

func TestKafkaPublisher_UnknownType(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	pub := events.NewKafkaPublisher(producer, "")

	err := pub.Publish(context.Background(), inventory.MovementEvent{Type: "transfer"})
	assert.Error(t, err)

	topic, err := pub.Topic(entity.MovementTypeEntry)
	require.NoError(t, err)
	assert.Equal(t, events.TopicEntryRecorded, topic)
	require.NoError(t, pub.Close())
}
