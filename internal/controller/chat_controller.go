package controller

import (
	"bufio"
	"context"

	"ai-agent-be/internal/dto"
	"ai-agent-be/internal/entity"
	"ai-agent-be/internal/mapper"
	"ai-agent-be/internal/pkg/logger"
	"ai-agent-be/internal/pkg/serverutils"
	"ai-agent-be/internal/service"
	"ai-agent-be/pkg/auth"
	"ai-agent-be/pkg/rag/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	GenerateStreamRag(ctx *fiber.Ctx) error
	GenerateTitle(ctx *fiber.Ctx) error
	Socket(ctx *fiber.Ctx) error
}

type generateFunc func(context.Context, *entity.ChatRequest) (<-chan string, error)

type chatController struct {
	chatService service.IChatService
	verifier    auth.TokenVerifier
	logger      logger.ILogger
}

func NewChatController(chatService service.IChatService, verifier auth.TokenVerifier, log logger.ILogger) IChatController {
	return &chatController{
		chatService: chatService,
		verifier:    verifier,
		logger:      log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ai")
	// Streaming endpoints authenticate in-band so a bad token still yields a stream item.
	h.Post("/generate_stream_rag", c.GenerateStreamRag)
	h.Post("/generate_title", c.GenerateTitle)
	h.Get("/ws", c.Socket)
}

func (c *chatController) GenerateStreamRag(ctx *fiber.Ctx) error {
	return c.streamSSE(ctx, c.chatService.GenerateAnswer)
}

func (c *chatController) GenerateTitle(ctx *fiber.Ctx) error {
	return c.streamSSE(ctx, c.chatService.GenerateTitle)
}

func (c *chatController) streamSSE(ctx *fiber.Ctx, generate generateFunc) error {
	ok, subject := c.verifier.VerifyToken(ctx.Get("Authorization"))
	if !ok {
		return c.writeSingle(ctx, dto.TokenErrorCode)
	}

	var body dto.ChatRequestDTO
	if err := ctx.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(body); err != nil {
		return err
	}

	// The stream outlives this handler, so it gets its own cancel tied to the
	// client connection instead of the fasthttp request.
	streamCtx, cancel := context.WithCancel(ctx.UserContext())
	items, err := generate(streamCtx, mapper.ToChatRequest(subject, &body))
	if err != nil {
		cancel()
		c.logger.Error("CHAT", "Pipeline failed before streaming", map[string]interface{}{
			"subject": subject,
			"path":    ctx.Path(),
			"error":   err.Error(),
		})
		return c.writeSingle(ctx, dto.UnknownErrorCode)
	}

	setSSEHeaders(ctx)
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		for item := range items {
			if err := writeEvent(w, item); err != nil {
				// Client went away: stop generation and let the responder close.
				cancel()
				for range items {
				}
				return
			}
		}
	})
	return nil
}

func (c *chatController) writeSingle(ctx *fiber.Ctx, item string) error {
	setSSEHeaders(ctx)
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		_ = writeEvent(w, item)
	})
	return nil
}

func setSSEHeaders(ctx *fiber.Ctx) {
	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")
}

// Socket serves chat turns over a websocket. The token comes from the query
// string because browsers cannot set headers on the handshake.
func (c *chatController) Socket(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	ok, subject := c.verifier.VerifyToken(ctx.Query("token"))
	if !ok {
		c.logger.Warn("CHAT", "Invalid token in websocket handshake", map[string]interface{}{"ip": ctx.IP()})
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, dto.TokenErrorCode))
	}

	return websocket.New(func(conn *websocket.Conn) {
		c.logger.Info("CHAT", "Websocket session started", map[string]interface{}{"subject": subject})
		defer c.logger.Info("CHAT", "Websocket session ended", map[string]interface{}{"subject": subject})

		for {
			var turn dto.ChatSocketRequest
			if err := conn.ReadJSON(&turn); err != nil {
				return
			}
			if err := c.serveTurn(conn, subject, &turn); err != nil {
				return
			}
		}
	})(ctx)
}

// serveTurn streams one turn and terminates it with the done marker. A
// returned error means the connection is unusable.
func (c *chatController) serveTurn(conn *websocket.Conn, subject string, turn *dto.ChatSocketRequest) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	send := func(item string) error {
		return conn.WriteMessage(websocket.TextMessage, []byte(item))
	}

	if err := serverutils.ValidateRequest(turn); err != nil {
		if err := send(stream.ErrorItem(err)); err != nil {
			return err
		}
		return send(dto.StreamDoneMarker)
	}

	generate := c.chatService.GenerateAnswer
	if turn.Mode == dto.ChatModeTitle {
		generate = c.chatService.GenerateTitle
	}

	items, err := generate(ctx, mapper.ToChatRequest(subject, &turn.ChatRequestDTO))
	if err != nil {
		c.logger.Error("CHAT", "Pipeline failed before streaming", map[string]interface{}{
			"subject": subject,
			"error":   err.Error(),
		})
		if err := send(dto.UnknownErrorCode); err != nil {
			return err
		}
		return send(dto.StreamDoneMarker)
	}

	for item := range items {
		if err := send(item); err != nil {
			cancel()
			for range items {
			}
			return err
		}
	}
	return send(dto.StreamDoneMarker)
}
