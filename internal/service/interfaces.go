// Package service содержит интерфейсы и реализацию бизнес-логики
package service

import (
	"context"
)

// ImageProvider turns a prompt into a reference to a generated image.
type ImageProvider interface {
	// GenerateImageURL returns a URL (http(s) or data:) for the generated image
	GenerateImageURL(ctx context.Context, prompt string) (string, error)
	// Name returns a short provider identifier used in logs and metrics
	Name() string
}

// Resolver определяет интерфейс для разрешения промпта в ссылку на изображение
type Resolver interface {
	// Resolve всегда возвращает ровно один результат
	Resolve(ctx context.Context, req GenerationRequest) GenerationResult
	// Ready сообщает, инициализирован ли провайдер
	Ready() bool
}

// BotService определяет интерфейс для работы с телеграм ботом
type BotService interface {
	// Run обрабатывает обновления до отмены контекста
	Run(ctx context.Context)
	// HandleCommand обрабатывает команду бота в указанном чате
	HandleCommand(ctx context.Context, chatID int64, command, args string) error
	// Stop останавливает работу бота
	Stop()
}
