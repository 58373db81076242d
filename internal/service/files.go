package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"document-routing-server/internal/model"
	"document-routing-server/internal/ports"
	"document-routing-server/internal/util"
)

// objectKey — ключ объекта в S3: все файлы документа лежат под общим префиксом,
// имя уникализируется UUID записи
func objectKey(documentUUID string, fileUUID string, filename string) string {
	return fmt.Sprintf("documents/%s/%s%s", documentUUID, fileUUID, filepath.Ext(filename))
}

// presignUploads выдает pre-signed PUT URL на каждый зарегистрированный файл;
// сами байты клиент заливает напрямую в S3
func presignUploads(ctx context.Context, storage ports.S3Storage, ttl time.Duration, files []model.DocumentFile) ([]model.UploadSlot, error) {
	slots := make([]model.UploadSlot, 0, len(files))
	for _, file := range files {
		url, err := storage.GeneratePresignedPutURL(ctx, file.FilePath, ttl)
		if err != nil {
			return nil, util.LogError("[DocumentService] не удалось выдать URL загрузки", err)
		}
		slots = append(slots, model.UploadSlot{File: file, PutURL: url})
	}
	return slots, nil
}
