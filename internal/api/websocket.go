package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/DMGitPOS/Trading-Bot-Platform-Production-sub000/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsEnvelope wraps every pushed event with its topic.
type wsEnvelope struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

var wsTopics = []events.Topic{
	events.TopicTrade,
	events.TopicBotStatus,
	events.TopicRiskAlert,
	events.TopicFunding,
	events.TopicApprovalPending,
}

// websocket streams engine events for one user. Browsers cannot set headers
// on websocket upgrades, so the token rides in the query string.
func (s *Server) websocket(c *gin.Context) {
	userID, err := parseToken(c.Query("token"), s.JWTSecret)
	if err != nil || userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "INVALID_TOKEN", "error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	out := make(chan wsEnvelope, 128)
	for _, topic := range wsTopics {
		stream, unsub := s.Bus.Subscribe(topic, 64)
		defer unsub()
		go func(topic events.Topic, stream <-chan events.Event) {
			for msg := range stream {
				if msg.EventUser() != userID {
					continue
				}
				select {
				case out <- wsEnvelope{Topic: string(topic), Data: msg}:
				default:
					// drop rather than stall the bus
				}
			}
		}(topic, stream)
	}

	// Reader detects client disconnect; inbound frames are otherwise ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case ev := <-out:
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
