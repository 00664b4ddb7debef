package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"qa-live-service/internal/app"
)

// Per-connection answer throttle.
const (
	answerRate  = rate.Limit(2)
	answerBurst = 5
)

type WSHandler struct {
	service  *app.QAService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QAService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	SelectedOptionIDs []string `json:"selectedOptionIds"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ServeWS upgrades HTTP requests to websockets, streams the group's live question
// state and accepts answers from one participant.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	groupID := r.URL.Query().Get("groupId")
	participantID := r.URL.Query().Get("participantId")
	if groupID == "" || participantID == "" {
		http.Error(w, "missing groupId or participantId", http.StatusBadRequest)
		return
	}
	// browsers cannot set headers on websocket requests
	actor := principalFrom(r.Context())
	if actor.UserID == "" {
		actor.UserID = r.URL.Query().Get("userId")
	}
	if actor.Email == "" {
		actor.Email = r.URL.Query().Get("email")
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	updates, cancel, err := h.service.Subscribe(r.Context(), groupID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error(), Status: statusFor(err)}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("ws write error", "group_id", groupID, "err", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	limiter := rate.NewLimiter(answerRate, answerBurst)
	reply := func(msg outboundMessage[any]) bool {
		return deliver(send, writerDone, msg)
	}
	replyError := func(message string, status int) bool {
		return reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message, Status: status}})
	}

read:
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		ok := true
		switch inbound.Type {
		case "answer":
			if !limiter.Allow() {
				ok = replyError("too many answers, slow down", http.StatusTooManyRequests)
				break
			}
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				ok = replyError("invalid answer payload", http.StatusBadRequest)
				break
			}
			entry, err := h.service.SubmitAnswer(r.Context(), actor, groupID, participantID, payload.SelectedOptionIDs)
			if err != nil {
				ok = replyError(err.Error(), statusFor(err))
				break
			}
			ok = reply(outboundMessage[any]{Type: "answerResult", Payload: entry})
		default:
			ok = replyError("unsupported message type", http.StatusBadRequest)
		}
		if !ok {
			break read
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// deliver queues msg for the writer. It reports false once the writer has gone away.
func deliver(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}
