package router

import (
	"github.com/labstack/echo/v4"

	"desiredeal/internal/adapter/api/handler"
	"desiredeal/internal/adapter/api/middleware"
)

// SetupChatRouter sets up all chat-related routes (excluding WebSocket)
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	v1 := e.Group("/v1")
	v1.Use(authMiddleware.Authenticate) // All chat endpoints require authentication

	// Chat management
	v1.GET("/chats", chatHandler.GetUserChats)                   // GET /v1/chats - List user's chats
	v1.GET("/chat/:participantId", chatHandler.GetOrCreateChat)  // GET /v1/chat/:participantId - Resolve or create chat
	v1.GET("/chat/:chatId/messages", chatHandler.GetChatMessages) // GET /v1/chat/:chatId/messages - History (marks read)
	v1.PUT("/chat/:chatId/read", chatHandler.MarkChatAsRead)     // PUT /v1/chat/:chatId/read - Mark chat as read

	// Message ingestion
	v1.POST("/message", chatHandler.SendMessage)                        // POST /v1/message - Send text message
	v1.POST("/message/image", chatHandler.SendImageMessage)             // POST /v1/message/image - Send image message
	v1.POST("/message/credentials", chatHandler.SendCredentialsMessage) // POST /v1/message/credentials - Share credentials
	v1.DELETE("/message/:messageId", chatHandler.DeleteMessage)         // DELETE /v1/message/:messageId - Delete own message

	// Unread badge
	v1.GET("/unread-count", chatHandler.GetUnreadCount) // GET /v1/unread-count - Total unread across chats
}
