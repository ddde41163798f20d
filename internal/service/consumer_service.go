package service

import (
	"context"
	"encoding/json"
	"log"

	"astrolynx-be/internal/entity"
	"astrolynx-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains turn events off the bus and writes audit rows.
// It runs in its own goroutine for the life of the process.
type consumerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
) IConsumerService {
	return &consumerService{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var envelope struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		log.Printf("[ERROR] Failed to unmarshal turn event: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	var sessionId uuid.UUID
	if raw, ok := envelope.Data["session_id"].(string); ok {
		if parsed, err := uuid.Parse(raw); err == nil {
			sessionId = parsed
		}
	}

	audit := entity.TurnAudit{
		Id:        uuid.New(),
		EventType: envelope.Type,
		SessionId: sessionId,
		Payload:   envelope.Data,
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.TurnAuditRepository().Create(ctx, &audit); err != nil {
		log.Printf("[ERROR] Failed to persist turn audit: %v", err)
		msg.Nack() // Nack for retriable errors
		return
	}

	msg.Ack()
}
