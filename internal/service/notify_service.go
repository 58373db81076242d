package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"document-routing-server/config"
	"document-routing-server/internal/util"
)

// RedisNotifier складывает уведомления в Redis-очереди, откуда их забирает
// внешний транспорт (почта, мессенджер). Доставка best-effort, ошибки
// логируются и не влияют на основную операцию.
type RedisNotifier struct {
	client      *config.RedisClient
	queuePrefix string
}

func NewRedisNotifier(rdb *config.RedisClient, queuePrefix string) *RedisNotifier {
	if queuePrefix == "" {
		queuePrefix = "notify"
	}
	return &RedisNotifier{rdb, queuePrefix}
}

type notification struct {
	DocumentUUID string    `json:"document_uuid"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
}

func (n *RedisNotifier) NotifyUser(ctx context.Context, userUUID string, message string, documentUUID string) error {
	return n.push(ctx, fmt.Sprintf("%s:user:%s", n.queuePrefix, userUUID), documentUUID, message)
}

func (n *RedisNotifier) NotifyDepartment(ctx context.Context, departmentID string, message string, documentUUID string) error {
	return n.push(ctx, fmt.Sprintf("%s:department:%s", n.queuePrefix, departmentID), documentUUID, message)
}

func (n *RedisNotifier) push(ctx context.Context, queue string, documentUUID string, message string) error {
	payload, err := json.Marshal(notification{
		DocumentUUID: documentUUID,
		Message:      message,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return util.LogError("[Notifier] ошибка сериализации уведомления", err)
	}

	if err := n.client.Client.LPush(ctx, queue, payload).Err(); err != nil {
		return util.LogError("[Notifier] не удалось поставить уведомление в очередь", err)
	}
	// канал для подписчиков, слушающих в реальном времени
	if err := n.client.Client.Publish(ctx, queue, payload).Err(); err != nil {
		return util.LogError("[Notifier] не удалось опубликовать уведомление", err)
	}
	return nil
}
