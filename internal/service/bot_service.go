package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/azalio/prompt-image-server/internal/config"
	"github.com/azalio/prompt-image-server/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	helpText = `Доступные команды:
/imagine [текст] - Генерирует изображение по описанию
/start - Запускает бота
/help - Показывает это сообщение`
	unknownCommandText = "Я не знаю такой команды"
)

// BotAPI interface defines the methods we need from telegram bot.
// It allows mocking the Telegram API in tests.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	StopReceivingUpdates()
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

// BotServiceImpl is a Telegram front-end over the same Resolver as /generate.
type BotServiceImpl struct {
	logger   *logger.Logger
	Bot      BotAPI
	resolver Resolver
	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewBotService connects to Telegram with cfg.TelegramToken.
func NewBotService(cfg *config.Config, log *logger.Logger, resolver Resolver) (*BotServiceImpl, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return NewBotServiceWithAPI(bot, log, resolver), nil
}

// NewBotServiceWithAPI builds the service around an existing BotAPI.
func NewBotServiceWithAPI(bot BotAPI, log *logger.Logger, resolver Resolver) *BotServiceImpl {
	return &BotServiceImpl{
		logger:   log,
		Bot:      bot,
		resolver: resolver,
		stopChan: make(chan struct{}),
	}
}

// Run reads updates until ctx is cancelled or Stop is called. Each command is
// handled in its own goroutine.
func (s *BotServiceImpl) Run(ctx context.Context) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 30
	updates := s.Bot.GetUpdatesChan(updateConfig)

	defer s.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping update handler", nil)
			return
		case <-s.stopChan:
			s.logger.Info(ctx, "Bot stopped", nil)
			return
		case update, ok := <-updates:
			if !ok {
				s.logger.Info(ctx, "Update channel closed", nil)
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}

			msg := update.Message
			command := msg.Command()
			args := strings.TrimSpace(msg.CommandArguments())
			s.logger.Info(ctx, "Received command", map[string]interface{}{
				"chat_id": msg.Chat.ID,
				"command": command,
			})

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				if err := s.HandleCommand(ctx, msg.Chat.ID, command, args); err != nil {
					s.logger.Error(ctx, "Error handling command", map[string]interface{}{
						"command": command,
						"error":   err.Error(),
					})
				}
			}()
		}
	}
}

// HandleCommand processes a single command for chatID.
func (s *BotServiceImpl) HandleCommand(ctx context.Context, chatID int64, command, args string) error {
	switch command {
	case "imagine":
		result := s.resolver.Resolve(ctx, GenerationRequest{Prompt: args})
		if !result.IsSuccess() {
			if err := s.SendMessage(chatID, "Ошибка генерации изображения: "+result.Message()); err != nil {
				return fmt.Errorf("failed to send error message: %w", err)
			}
			return nil
		}
		if err := s.SendPhoto(chatID, result.ImageURL(), args); err != nil {
			return fmt.Errorf("failed to send photo: %w", err)
		}
		return nil
	case "start", "help":
		if err := s.SendMessage(chatID, helpText); err != nil {
			return fmt.Errorf("failed to send %s message: %w", command, err)
		}
		return nil
	default:
		if err := s.SendMessage(chatID, unknownCommandText); err != nil {
			return fmt.Errorf("failed to send unknown command message: %w", err)
		}
		return nil
	}
}

// SendMessage sends a text message to the specified chat.
func (s *BotServiceImpl) SendMessage(chatID int64, message string) error {
	_, err := s.Bot.Send(tgbotapi.NewMessage(chatID, message))
	return err
}

// SendPhoto sends the image by URL, or as bytes when it is a data: URL.
func (s *BotServiceImpl) SendPhoto(chatID int64, imageURL, caption string) error {
	file, err := photoFile(imageURL)
	if err != nil {
		return err
	}

	photoMsg := tgbotapi.NewPhoto(chatID, file)
	photoMsg.Caption = caption

	_, err = s.Bot.Send(photoMsg)
	return err
}

func photoFile(imageURL string) (tgbotapi.RequestFileData, error) {
	if !strings.HasPrefix(imageURL, "data:") {
		return tgbotapi.FileURL(imageURL), nil
	}

	meta, payload, found := strings.Cut(strings.TrimPrefix(imageURL, "data:"), ",")
	if !found || !strings.HasSuffix(meta, ";base64") {
		return nil, fmt.Errorf("unsupported data url")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decoding data url: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty photo data")
	}
	return tgbotapi.FileBytes{Name: "image." + imageExtension(strings.TrimSuffix(meta, ";base64")), Bytes: data}, nil
}

// imageExtension maps "image/jpeg" to "jpg", "image/svg+xml" to "svg" and so on.
func imageExtension(mimeType string) string {
	mimeType, _, _ = strings.Cut(mimeType, ";")
	subtype := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
	subtype, _, _ = strings.Cut(subtype, "+")
	switch subtype {
	case "", "*":
		return "png"
	case "jpeg", "pjpeg":
		return "jpg"
	default:
		return subtype
	}
}

// Stop safely shuts down the bot. Safe to call more than once.
func (s *BotServiceImpl) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.Bot != nil {
			s.Bot.StopReceivingUpdates()
		}
	})
}

// Shutdown implements do.Shutdownable.
func (s *BotServiceImpl) Shutdown() error {
	s.Stop()
	return nil
}
