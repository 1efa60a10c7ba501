package main

import (
	"fmt"
	"os"
	"time"

	"tealchat/controller"
	"tealchat/model"
	"tealchat/platform"
	"tealchat/service"

	_uuid "github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

// CORSMiddleware ...
// CORS (Cross-Origin Resource Sharing)
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", os.Getenv("CORS_ORIGIN"))
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Origin, Authorization, Accept, Accept-Encoding")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
		} else {
			c.Next()
		}
	}
}

// RequestIDMiddleware ...
// Generate a unique ID and attach it to each request for future reference or use
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uuid := _uuid.New()
		c.Writer.Header().Set("X-Request-Id", uuid.String())
		c.Set("requestId", uuid.String())
		c.Next()
	}
}

func LogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		if raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()
		method := c.Request.Method
		userAgent := c.Request.UserAgent()
		requestId := c.GetString("requestId")

		platform.Logger.Infof(
			" [%s] %d | %v | %s | %s | %s | %s ",
			requestId,
			status,
			latency,
			clientIP,
			method,
			path,
			userAgent,
		)
	}
}

var auth = new(controller.AuthController)
var tokenService = new(service.TokenService)

// OptionalAuthMiddleware attaches the user id when a valid token is
// present but lets unauthenticated requests through; chat routes fall
// back to the anonymous device id for ownership.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenAuth, err := tokenService.ExtractTokenMetadata(c.Request); err == nil {
			c.Set("UserId", uint(tokenAuth.UserID))
			c.Set("UserName", tokenAuth.UserName)
		}
		c.Next()
	}
}

func main() {
	fmt.Println("Server started...")

	//Load the .env file
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("failed to load the env file")
	}

	platform.InitAppLogger("./log", "tealchat")

	r := gin.Default()
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LogMiddleware())

	//init database
	platform.InitDB()
	model.InstallDB()

	v1 := r.Group("/v1")
	{
		user := new(controller.UserController)
		v1.POST("/user/register", user.Register)
		v1.POST("/user/login", user.Login)

		//Refresh the token
		v1.POST("/token/refresh", auth.Refresh)

		chat := new(controller.ChatController)
		v1.GET("/models", chat.ListModels)

		chats := v1.Group("/chats", OptionalAuthMiddleware())
		{
			chats.GET("", chat.ListChats)
			chats.POST("", chat.CreateChat)
			chats.DELETE("/:chatId", chat.DeleteChat)
			chats.POST("/:chatId/title", chat.GenerateTitle)
			chats.GET("/:chatId/export", chat.Export)
			chats.GET("/:chatId/messages", chat.ListMessages)
			chats.POST("/:chatId/messages", chat.CreateMessage)
			chats.POST("/:chatId/messages/:messageId/stream", chat.Stream)
			chats.PATCH("/:chatId/messages/:messageId/stream", chat.Stream)
		}
	}

	c := cron.New()
	c.AddFunc("0 4 * * *", service.RetentionSweepTask)
	c.Start()

	port := os.Getenv("PORT")
	r.Run(":" + port)
}
