package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"quantsim/src/datamodels"
	"quantsim/src/metrics"
	"quantsim/src/simulation"
	"quantsim/src/utils/errors"
)

const shutdownTimeout = 5 * time.Second

// Controller is the part of the runner the websocket clients may drive.
type Controller interface {
	Pause()
	Resume()
	IsPaused() bool
	Steps() int
	Summary() simulation.Summary
}

// RecordSource supplies the records replayed to a newly connected client.
type RecordSource interface {
	Records() []datamodels.StepRecord
}

type Server struct {
	addr           string
	healthEndpoint string
	upgrader       websocket.Upgrader
	httpMux        *http.ServeMux
	metricsWriter  *metrics.WebsocketMetricsWriter
	controller     Controller
	recent         RecordSource
	plotter        *metrics.MetricPlotter
}

func NewServer(addr string) *Server {
	return &Server{
		addr:           addr,
		healthEndpoint: datamodels.DefaultHealthEndpoint,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all connections (for development purposes)
			},
		},
		httpMux: http.NewServeMux(),
	}
}

func ServerFromConfig(config *datamodels.ServerConfig) *Server {
	s := NewServer(config.Port)
	if config.HealthEndpoint != "" {
		s = s.WithHealthEndpoint(config.HealthEndpoint)
	}
	return s
}

func (s *Server) WithMetricsWriter(metricsWriter *metrics.WebsocketMetricsWriter) *Server {
	s.metricsWriter = metricsWriter
	return s
}

func (s *Server) WithController(controller Controller) *Server {
	s.controller = controller
	return s
}

func (s *Server) WithRecentRecords(recent RecordSource) *Server {
	s.recent = recent
	return s
}

func (s *Server) WithPlotter(plotter *metrics.MetricPlotter) *Server {
	s.plotter = plotter
	return s
}

func (s *Server) WithHealthEndpoint(endpoint string) *Server {
	s.healthEndpoint = endpoint
	return s
}

func (s *Server) Build() (*Server, error) {
	if s.metricsWriter == nil {
		return nil, errors.New("metrics writer is nil")
	}
	if s.controller == nil {
		return nil, errors.New("controller is nil")
	}
	s.RegisterHealthCheck()
	s.RegisterVersion()
	s.RegisterWebSocketHandler()
	s.RegisterSwagger()
	if s.plotter != nil {
		s.RegisterPlot()
	}
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.httpMux
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.httpMux,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down server", "error", err)
		}
	}()

	slog.Info("Starting server", "addr", s.addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server error")
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("Client connected", "remote", conn.RemoteAddr())

	welcomeMessage := WebSocketResponse{
		Success: true,
		Type:    ResponseWelcome,
		Data:    "Welcome to the quantsim websocket server",
	}
	if err := s.metricsWriter.WriteJSON(conn, welcomeMessage); err != nil {
		slog.Error("Failed to send welcome message", "error", err)
		return
	}

	if s.recent != nil {
		replay := WebSocketResponse{
			Success: true,
			Type:    ResponseReplay,
			Data:    s.recent.Records(),
		}
		if err := s.metricsWriter.WriteJSON(conn, replay); err != nil {
			slog.Error("Failed to replay recent records", "error", err)
			return
		}
	}

	s.metricsWriter.AddClient(conn)
	defer s.metricsWriter.RemoveClient(conn)

	for {
		mType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Error reading message", "error", err)
			}
			slog.Info("Client disconnected", "remote", conn.RemoteAddr())
			return
		}
		if mType != websocket.TextMessage {
			slog.Debug("Ignoring non text message", "type", mType)
			continue
		}

		response := s.handleMessage(msg)
		if err := s.metricsWriter.WriteJSON(conn, response); err != nil {
			slog.Error("Failed to send response", "error", err)
			return
		}
	}
}

func (s *Server) handleMessage(msg []byte) WebSocketResponse {
	var wsMessage WebSocketMessage
	if err := json.Unmarshal(msg, &wsMessage); err != nil {
		slog.Warn("Failed to unmarshal message", "error", err)
		return errorResponse(err)
	}

	switch wsMessage.MessageType {
	case Metrics:
		slog.Debug("Server websocket received metrics message")
		return s.handleMetrics(wsMessage.Message)
	case Command:
		slog.Debug("Server websocket received command message")
		return s.handleCommand(wsMessage.Message)
	default:
		return errorResponse(errors.Newf("unknown message type: %s", wsMessage.MessageType))
	}
}

func errorResponse(err error) WebSocketResponse {
	return WebSocketResponse{
		Success: false,
		Type:    ResponseError,
		Error:   err.Error(),
	}
}
