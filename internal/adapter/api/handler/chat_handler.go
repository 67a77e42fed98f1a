package handler

import (
	"github.com/labstack/echo/v4"

	"desiredeal/internal/domain/entity"
	"desiredeal/internal/usecase"
	"desiredeal/pkg/errors"
	"desiredeal/pkg/response"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type sendMessageRequest struct {
	ChatID  string `json:"chat_id" validate:"required"`
	Content string `json:"content" validate:"required"`
	ReplyTo string `json:"reply_to,omitempty"`
}

type sendCredentialsRequest struct {
	ChatID  string                    `json:"chat_id" validate:"required"`
	Type    string                    `json:"credential_type" validate:"required,oneof=bank_details upi_id email phone address other"`
	Title   string                    `json:"title" validate:"required"`
	Bank    *entity.BankDetails       `json:"bank_details,omitempty"`
	UPI     *entity.UPIID             `json:"upi_id,omitempty"`
	Email   *entity.EmailCredential   `json:"email,omitempty"`
	Phone   *entity.PhoneCredential   `json:"phone,omitempty"`
	Address *entity.AddressCredential `json:"address,omitempty"`
	Other   map[string]string         `json:"other,omitempty"`
}

// GetUserChats lists the caller's chats, most recent activity first.
func (h *ChatHandler) GetUserChats(c echo.Context) error {
	userID := c.Get("uid").(string)

	chats, err := h.chatUseCase.ListChats(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chats)
}

// GetOrCreateChat resolves the chat with another user, creating it on first
// contact. Safe to call repeatedly from the UI's "message seller" button.
func (h *ChatHandler) GetOrCreateChat(c echo.Context) error {
	userID := c.Get("uid").(string)
	participantID := c.Param("participantId")

	chat, err := h.chatUseCase.GetOrCreateChat(c.Request().Context(), userID, participantID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

// GetChatMessages returns the chat history and, as a side effect, marks the
// other participant's messages as read for the caller.
func (h *ChatHandler) GetChatMessages(c echo.Context) error {
	userID := c.Get("uid").(string)
	chatID := c.Param("chatId")

	messages, err := h.chatUseCase.GetChatMessages(c.Request().Context(), userID, chatID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

// SendMessage ingests a text message.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), userID, usecase.SendMessageInput{
		ChatID:  req.ChatID,
		Content: req.Content,
		ReplyTo: req.ReplyTo,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// SendImageMessage ingests an image via multipart form. Fields: image (file,
// required), chat_id (required), caption (optional).
func (h *ChatHandler) SendImageMessage(c echo.Context) error {
	userID := c.Get("uid").(string)

	chatID := c.FormValue("chat_id")
	if chatID == "" {
		return response.Error(c, errors.BadRequest("chat_id is required", nil))
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return response.Error(c, errors.BadRequest("No image provided", err))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Failed to read uploaded file", err))
	}
	defer src.Close()

	message, err := h.chatUseCase.SendImageMessage(c.Request().Context(), userID, usecase.SendImageInput{
		ChatID:   chatID,
		Caption:  c.FormValue("caption"),
		File:     src,
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		MimeType: fileHeader.Header.Get("Content-Type"),
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// SendCredentialsMessage ingests a structured credentials message.
func (h *ChatHandler) SendCredentialsMessage(c echo.Context) error {
	var req sendCredentialsRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	message, err := h.chatUseCase.SendCredentialsMessage(c.Request().Context(), userID, usecase.SendCredentialsInput{
		ChatID: req.ChatID,
		Credentials: entity.Credentials{
			Type:    req.Type,
			Title:   req.Title,
			Bank:    req.Bank,
			UPI:     req.UPI,
			Email:   req.Email,
			Phone:   req.Phone,
			Address: req.Address,
			Other:   req.Other,
		},
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// MarkChatAsRead marks every message from the other participant as read.
func (h *ChatHandler) MarkChatAsRead(c echo.Context) error {
	userID := c.Get("uid").(string)
	chatID := c.Param("chatId")

	if err := h.chatUseCase.MarkChatAsRead(c.Request().Context(), userID, chatID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "read"})
}

// DeleteMessage removes one of the caller's own messages.
func (h *ChatHandler) DeleteMessage(c echo.Context) error {
	userID := c.Get("uid").(string)
	messageID := c.Param("messageId")

	if err := h.chatUseCase.DeleteMessage(c.Request().Context(), userID, messageID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "deleted"})
}

// GetUnreadCount returns the caller's total unread count across all chats,
// used for the navbar badge.
func (h *ChatHandler) GetUnreadCount(c echo.Context) error {
	userID := c.Get("uid").(string)

	total, err := h.chatUseCase.TotalUnread(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"unread_count": total})
}
