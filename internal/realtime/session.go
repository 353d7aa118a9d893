package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ridemax/service-booking/internal/application"
	"github.com/ridemax/service-booking/internal/domain/geo"
	"github.com/ridemax/service-booking/internal/domain/route"
	"github.com/ridemax/service-booking/internal/platform/domain"
	"go.uber.org/zap"
)

// Client message types.
const (
	MessageSearch   = "search"
	MessageEstimate = "estimate"
	MessageClear    = "clear"
)

// Server message types.
const (
	MessageSearchResults = "search_results"
	MessageQuote         = "quote"
	MessageCleared       = "cleared"
	MessageError         = "error"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// LiveEstimator is what a session needs from the estimate service.
type LiveEstimator interface {
	SearchLocations(ctx context.Context, query string, bias *geo.Coordinate) ([]route.Place, error)
	EstimateLocal(ctx context.Context, req application.LocalEstimateRequest) (*application.LocalQuoteDTO, error)
}

// ClientMessage is sent by the browser on every keystroke or pin move.
type ClientMessage struct {
	Type   string                  `json:"type"`
	Query  string                  `json:"query,omitempty"`
	Bias   *geo.Coordinate         `json:"bias,omitempty"`
	Pickup *application.PlaceInput `json:"pickup,omitempty"`
	Drop   *application.PlaceInput `json:"drop,omitempty"`
}

// ServerMessage carries a result tagged with the generation it answers.
type ServerMessage struct {
	Type       string                     `json:"type"`
	Generation uint64                     `json:"generation,omitempty"`
	Places     []route.Place              `json:"places,omitempty"`
	Quote      *application.LocalQuoteDTO `json:"quote,omitempty"`
	Error      *ErrorBody                 `json:"error,omitempty"`
}

// ErrorBody mirrors the REST error envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Session serves one websocket connection. Search and estimate requests are
// debounced independently; clearing invalidates both.
type Session struct {
	conn      *websocket.Conn
	estimates LiveEstimator
	delay     time.Duration
	logger    *zap.Logger

	writeMu  sync.Mutex
	search   *Debouncer
	estimate *Debouncer
}

// NewSession wraps an upgraded connection.
func NewSession(conn *websocket.Conn, estimates LiveEstimator, delay time.Duration, logger *zap.Logger) *Session {
	return &Session{
		conn:      conn,
		estimates: estimates,
		delay:     delay,
		logger:    logger,
	}
}

// Run reads client messages until the connection closes or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.search = NewDebouncer(ctx, s.delay)
	s.estimate = NewDebouncer(ctx, s.delay)
	defer s.search.Stop()
	defer s.estimate.Stop()

	go func() {
		<-ctx.Done()
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return err
		}

		// The frame was read in full, so a bad payload never ends the session.
		var msg ClientMessage
		if err := json.Unmarshal(frame, &msg); err != nil {
			s.logger.Debug("malformed websocket frame", zap.Int("bytes", len(frame)), zap.Error(err))
			s.writeError(0, domain.NewValidationError("malformed message"))
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Session) dispatch(msg ClientMessage) {
	switch msg.Type {
	case MessageSearch:
		query, bias := msg.Query, msg.Bias
		s.search.Schedule(func(ctx context.Context, gen uint64) {
			places, err := s.estimates.SearchLocations(ctx, query, bias)
			if err != nil {
				s.writeIfCurrent(s.search, gen, errorMessage(gen, err))
				return
			}
			if places == nil {
				places = []route.Place{}
			}
			s.writeIfCurrent(s.search, gen, ServerMessage{Type: MessageSearchResults, Generation: gen, Places: places})
		})

	case MessageEstimate:
		if msg.Pickup == nil || msg.Drop == nil {
			s.writeError(0, domain.NewValidationError("pickup and drop are required"))
			return
		}
		req := application.LocalEstimateRequest{Pickup: *msg.Pickup, Drop: *msg.Drop}
		s.estimate.Schedule(func(ctx context.Context, gen uint64) {
			quote, err := s.estimates.EstimateLocal(ctx, req)
			if err != nil {
				s.writeIfCurrent(s.estimate, gen, errorMessage(gen, err))
				return
			}
			s.writeIfCurrent(s.estimate, gen, ServerMessage{Type: MessageQuote, Generation: gen, Quote: quote})
		})

	case MessageClear:
		s.search.Cancel()
		s.estimate.Cancel()
		s.write(ServerMessage{Type: MessageCleared})

	default:
		s.writeError(0, domain.NewValidationError("unknown message type "+msg.Type))
	}
}

// writeIfCurrent drops results whose generation has been superseded.
func (s *Session) writeIfCurrent(d *Debouncer, gen uint64, msg ServerMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if !d.IsCurrent(gen) {
		s.logger.Debug("discarding stale result",
			zap.String("type", msg.Type),
			zap.Uint64("generation", gen),
		)
		return
	}
	s.writeLocked(msg)
}

func (s *Session) write(msg ServerMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.writeLocked(msg)
}

func (s *Session) writeLocked(msg ServerMessage) {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Debug("websocket write failed", zap.Error(err))
	}
}

func (s *Session) writeError(gen uint64, err error) {
	s.write(errorMessage(gen, err))
}

func errorMessage(gen uint64, err error) ServerMessage {
	body := &ErrorBody{Code: string(domain.CodeUnavailable), Message: "request failed"}
	if appErr, ok := domain.AsAppError(err); ok {
		body = &ErrorBody{Code: string(appErr.Code), Message: appErr.Message}
	}
	return ServerMessage{Type: MessageError, Generation: gen, Error: body}
}
